// Package settlement пересчитывает итоговые суммы бронирования: начисления, оплаты и остаток к оплате.
package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
)

// Additions содержит начисления и оплату, добавляемые в ходе одного перехода.
type Additions struct {
	EarlyCheckInFee   decimal.Decimal
	LateCheckInFee    decimal.Decimal
	Ancillary         []model.LineItem
	AdditionalCharges decimal.Decimal
	LateCheckoutFee   decimal.Decimal
	DamageFee         decimal.Decimal
	CurrentPayment    decimal.Decimal
}

// Totals - результат пересчёта.
type Totals struct {
	RoomCharge    decimal.Decimal `json:"roomCharge"`
	ExtraCharges  decimal.Decimal `json:"extraCharges"`
	Discount      decimal.Decimal `json:"discount"`
	ServiceCharge decimal.Decimal `json:"serviceCharge"`
	Tax           decimal.Decimal `json:"tax"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	AdvancePaid   decimal.Decimal `json:"advancePaid"`
	BalanceDue    decimal.Decimal `json:"balanceDue"`

	PaymentStatus model.PaymentStatus `json:"paymentStatus"`

	OriginalAmount    decimal.Decimal `json:"originalAmount"`
	EarlyCheckInFee   decimal.Decimal `json:"earlyCheckInFee"`
	LateCheckInFee    decimal.Decimal `json:"lateCheckInFee"`
	AncillaryTotal    decimal.Decimal `json:"ancillaryTotal"`
	AdditionalCharges decimal.Decimal `json:"additionalCharges"`
	LateCheckoutFee   decimal.Decimal `json:"lateCheckoutFee"`
	DamageFee         decimal.Decimal `json:"damageFee"`
	TotalAdditional   decimal.Decimal `json:"totalAdditional"`
	CurrentPayment    decimal.Decimal `json:"currentPayment"`
}

// SumLineItems возвращает сумму дополнительных услуг.
func SumLineItems(items []model.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}

// Recompute пересчитывает итоги бронирования с учётом начислений и оплаты перехода.
// Функция не имеет состояния: одинаковые входные данные дают одинаковый результат.
func Recompute(r model.Reservation, add Additions) Totals {
	ancillary := SumLineItems(add.Ancillary)
	totalAdditional := add.EarlyCheckInFee.
		Add(add.LateCheckInFee).
		Add(ancillary).
		Add(add.AdditionalCharges).
		Add(add.LateCheckoutFee).
		Add(add.DamageFee)

	totalAmount := model.NonNegative(r.TotalAmount.Add(totalAdditional))
	paid := r.AdvancePaid.Add(add.CurrentPayment)
	balance := model.NonNegative(totalAmount.Sub(paid))

	return Totals{
		RoomCharge:    r.RoomCharge,
		ExtraCharges:  r.ExtraCharges.Add(totalAdditional),
		Discount:      r.Discount,
		ServiceCharge: r.ServiceCharge,
		Tax:           r.Tax,
		TotalAmount:   totalAmount,
		AdvancePaid:   paid,
		BalanceDue:    balance,
		PaymentStatus: paymentStatus(balance, paid),

		OriginalAmount:    r.TotalAmount,
		EarlyCheckInFee:   add.EarlyCheckInFee,
		LateCheckInFee:    add.LateCheckInFee,
		AncillaryTotal:    ancillary,
		AdditionalCharges: add.AdditionalCharges,
		LateCheckoutFee:   add.LateCheckoutFee,
		DamageFee:         add.DamageFee,
		TotalAdditional:   totalAdditional,
		CurrentPayment:    add.CurrentPayment,
	}
}

// Current возвращает итоги бронирования без дополнительных начислений.
func Current(r model.Reservation) Totals {
	return Recompute(r, Additions{})
}

// Model возвращает денежные поля для записи в бронирование.
func (t Totals) Model() model.Totals {
	return model.Totals{
		ExtraCharges:  t.ExtraCharges,
		TotalAmount:   t.TotalAmount,
		AdvancePaid:   t.AdvancePaid,
		BalanceDue:    t.BalanceDue,
		PaymentStatus: t.PaymentStatus,
	}
}

func paymentStatus(balance, paid decimal.Decimal) model.PaymentStatus {
	switch {
	case balance.IsZero():
		return model.PaymentStatusPaid
	case paid.IsPositive():
		return model.PaymentStatusPartial
	default:
		return model.PaymentStatusPending
	}
}
