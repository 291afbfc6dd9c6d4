// Package ledger формирует и записывает неизменяемые записи журнала: платежи, кассовые операции и инциденты.
//
// Журнал только дополняется. Исправления делаются новыми записями, существующие не меняются и не удаляются.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
)

// Категории кассовых операций.
const (
	CategoryCheckIn  = "ROOM_CHECKIN"
	CategoryCheckOut = "ROOM_CHECKOUT"

	ReferenceReservation = "RESERVATION"

	IncidentDamage = "DAMAGE"

	paymentStatusCompleted = "COMPLETED"
)

// ErrStaffRequired возвращается, если не указан сотрудник, выполняющий операцию.
var ErrStaffRequired = errors.New("acting staff id is required for ledger entries")

// Writer добавляет записи журнала в рамках транзакции перехода.
type Writer interface {
	InsertPayment(ctx context.Context, p *model.Payment) error
	InsertCashFlow(ctx context.Context, cf *model.CashFlow) error
	InsertIncident(ctx context.Context, inc *model.IncidentLog) error
}

// Entry описывает денежный результат перехода.
type Entry struct {
	TransitionID  string
	Reservation   model.Reservation
	StaffID       int64
	Category      string
	PaymentType   model.PaymentType
	Amount        decimal.Decimal
	Method        model.PaymentMethod
	Notes         string
	DamageFee     decimal.Decimal
	DamageDetails string
	At            time.Time
}

// Entries - набор записей, которые нужно добавить.
type Entries struct {
	Payment  *model.Payment
	CashFlow *model.CashFlow
	Incident *model.IncidentLog
}

// Plan формирует записи журнала для перехода:
// платёж - только при положительной сумме, кассовая операция - всегда,
// инцидент - только при положительной сумме ущерба.
func Plan(e Entry) (Entries, error) {
	if e.StaffID <= 0 {
		return Entries{}, ErrStaffRequired
	}

	r := e.Reservation
	var out Entries

	if e.Amount.IsPositive() {
		out.Payment = &model.Payment{
			TransitionID:  e.TransitionID,
			ReservationID: r.ID,
			CustomerID:    r.CustomerID,
			StaffID:       e.StaffID,
			Amount:        e.Amount,
			Method:        e.Method,
			Type:          e.PaymentType,
			Status:        paymentStatusCompleted,
			Notes:         e.Notes,
			CreatedAt:     e.At,
		}
	}

	out.CashFlow = &model.CashFlow{
		TransitionID:  e.TransitionID,
		StaffID:       e.StaffID,
		Type:          model.CashFlowInflow,
		Category:      e.Category,
		Amount:        model.NonNegative(e.Amount),
		ReferenceType: ReferenceReservation,
		ReferenceID:   r.ID,
		Description:   fmt.Sprintf("%s for booking %s", categoryLabel(e.Category), r.BookingRef),
		CreatedAt:     e.At,
	}

	if e.DamageFee.IsPositive() {
		out.Incident = &model.IncidentLog{
			TransitionID:  e.TransitionID,
			ReservationID: r.ID,
			RoomID:        r.RoomID,
			StaffID:       e.StaffID,
			Kind:          IncidentDamage,
			Description:   e.DamageDetails,
			Amount:        e.DamageFee,
			Status:        model.IncidentStatusOpen,
			CreatedAt:     e.At,
		}
	}

	return out, nil
}

// Recorder записывает запланированные записи через Writer.
type Recorder struct{}

// NewRecorder создаёт регистратор журнала.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record формирует записи перехода и добавляет их. Первая же ошибка прерывает запись,
// вызывающий код обязан откатить транзакцию.
func (rec *Recorder) Record(ctx context.Context, w Writer, e Entry) (Entries, error) {
	entries, err := Plan(e)
	if err != nil {
		return Entries{}, err
	}

	if entries.Payment != nil {
		if err := w.InsertPayment(ctx, entries.Payment); err != nil {
			return Entries{}, fmt.Errorf("insert payment: %w", err)
		}
	}
	if entries.CashFlow != nil {
		if err := w.InsertCashFlow(ctx, entries.CashFlow); err != nil {
			return Entries{}, fmt.Errorf("insert cash flow: %w", err)
		}
	}
	if entries.Incident != nil {
		if err := w.InsertIncident(ctx, entries.Incident); err != nil {
			return Entries{}, fmt.Errorf("insert incident: %w", err)
		}
	}

	return entries, nil
}

func categoryLabel(category string) string {
	switch category {
	case CategoryCheckIn:
		return "Check-in payment"
	case CategoryCheckOut:
		return "Check-out settlement"
	default:
		return category
	}
}
