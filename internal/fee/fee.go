// Package fee рассчитывает сборы за раннее и позднее заселение, позднее выселение и ущерб.
//
// Все функции детерминированы: текущее время передаётся явно.
package fee

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNegativeDamageFee возвращается, если оператор указал отрицательную сумму ущерба.
var ErrNegativeDamageFee = errors.New("damage fee must not be negative")

// Rates содержит тарифы, используемые при расчёте сборов.
type Rates struct {
	EarlyHourly        decimal.Decimal
	LateDaily          decimal.Decimal
	LateCheckoutHourly decimal.Decimal
	// CheckoutHour - час стандартного выезда по местному времени отеля.
	CheckoutHour int
	Location     *time.Location
}

// DefaultRates возвращает тарифы по умолчанию.
func DefaultRates() Rates {
	return Rates{
		EarlyHourly:        decimal.NewFromInt(100),
		LateDaily:          decimal.NewFromInt(500),
		LateCheckoutHourly: decimal.NewFromInt(50),
		CheckoutHour:       12,
		Location:           time.UTC,
	}
}

// Validate проверяет корректность тарифов.
func (r Rates) Validate() error {
	if r.EarlyHourly.IsNegative() || r.LateDaily.IsNegative() || r.LateCheckoutHourly.IsNegative() {
		return errors.New("fee rates must not be negative")
	}
	if r.CheckoutHour < 0 || r.CheckoutHour > 23 {
		return fmt.Errorf("checkout hour %d out of range 0-23", r.CheckoutHour)
	}
	return nil
}

// Calculator рассчитывает сборы по заданным тарифам.
type Calculator struct {
	rates Rates
}

// NewCalculator создаёт калькулятор сборов.
func NewCalculator(rates Rates) *Calculator {
	if rates.Location == nil {
		rates.Location = time.UTC
	}
	return &Calculator{rates: rates}
}

// Rates возвращает используемые тарифы.
func (c *Calculator) Rates() Rates {
	return c.rates
}

// EarlyCheckInFee возвращает сбор за заселение раньше запланированного времени.
// Каждый начатый час раннего заезда оплачивается по часовому тарифу.
func (c *Calculator) EarlyCheckInFee(scheduledCheckIn, now time.Time) decimal.Decimal {
	if !now.Before(scheduledCheckIn) {
		return decimal.Zero
	}
	hours := ceilUnits(scheduledCheckIn.Sub(now), time.Hour)
	return c.rates.EarlyHourly.Mul(decimal.NewFromInt(hours))
}

// LateCheckInFee возвращает сбор за заселение более чем через сутки после запланированного.
// Первые начатые сутки не оплачиваются.
func (c *Calculator) LateCheckInFee(scheduledCheckIn, now time.Time) decimal.Decimal {
	late := now.Sub(scheduledCheckIn)
	if late <= 24*time.Hour {
		return decimal.Zero
	}
	days := ceilUnits(late, 24*time.Hour)
	return c.rates.LateDaily.Mul(decimal.NewFromInt(days - 1))
}

// CheckoutBoundary возвращает границу стандартного выезда: дата выезда в CheckoutHour:00 по местному времени.
func (c *Calculator) CheckoutBoundary(scheduledCheckOut time.Time) time.Time {
	local := scheduledCheckOut.In(c.rates.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), c.rates.CheckoutHour, 0, 0, 0, c.rates.Location)
}

// LateCheckoutFee возвращает сбор за выезд позже стандартной границы.
func (c *Calculator) LateCheckoutFee(scheduledCheckOut, now time.Time) decimal.Decimal {
	boundary := c.CheckoutBoundary(scheduledCheckOut)
	if !now.After(boundary) {
		return decimal.Zero
	}
	hours := ceilUnits(now.Sub(boundary), time.Hour)
	return c.rates.LateCheckoutHourly.Mul(decimal.NewFromInt(hours))
}

// ValidateDamageFee проверяет сумму ущерба, указанную оператором.
func (c *Calculator) ValidateDamageFee(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeDamageFee
	}
	return nil
}

// IsEarly сообщает, что заселение происходит раньше запланированного времени.
func IsEarly(scheduledCheckIn, now time.Time) bool {
	return now.Before(scheduledCheckIn)
}

// IsLate сообщает, что опоздание с заселением превысило бесплатные сутки.
func IsLate(scheduledCheckIn, now time.Time) bool {
	return now.Sub(scheduledCheckIn) > 24*time.Hour
}

// ceilUnits возвращает количество начатых единиц unit в положительной длительности d.
func ceilUnits(d, unit time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + unit - 1) / unit)
}
