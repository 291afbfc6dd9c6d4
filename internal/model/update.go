package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Totals содержит денежные поля бронирования, которые пересчитываются при переходах.
type Totals struct {
	ExtraCharges  decimal.Decimal
	TotalAmount   decimal.Decimal
	AdvancePaid   decimal.Decimal
	BalanceDue    decimal.Decimal
	PaymentStatus PaymentStatus
}

// CheckInUpdate перечисляет поля, которые меняет заселение. Остальные поля бронирования не трогаются.
type CheckInUpdate struct {
	ActualCheckIn time.Time
	Totals        Totals
	Remarks       string
}

// CheckOutUpdate перечисляет поля, которые меняет выселение.
type CheckOutUpdate struct {
	ActualCheckOut time.Time
	Totals         Totals
	Remarks        string
}

// CancelUpdate перечисляет поля, которые меняет отмена.
type CancelUpdate struct {
	Reason      string
	CancelledAt time.Time
}

// ApplyCheckIn возвращает копию бронирования с применённым заселением.
func (r Reservation) ApplyCheckIn(u CheckInUpdate) Reservation {
	at := u.ActualCheckIn
	r.Status = ReservationStatusCheckedIn
	r.ActualCheckIn = &at
	r.applyTotals(u.Totals)
	r.Remarks = u.Remarks
	r.UpdatedAt = at
	return r
}

// ApplyCheckOut возвращает копию бронирования с применённым выселением.
func (r Reservation) ApplyCheckOut(u CheckOutUpdate) Reservation {
	at := u.ActualCheckOut
	r.Status = ReservationStatusCheckedOut
	r.ActualCheckOut = &at
	r.applyTotals(u.Totals)
	r.Remarks = u.Remarks
	r.UpdatedAt = at
	return r
}

// ApplyCancel возвращает копию бронирования с применённой отменой.
func (r Reservation) ApplyCancel(u CancelUpdate) Reservation {
	at := u.CancelledAt
	r.Status = ReservationStatusCancelled
	r.CancellationReason = u.Reason
	r.CancelledAt = &at
	r.UpdatedAt = at
	return r
}

func (r *Reservation) applyTotals(t Totals) {
	r.ExtraCharges = t.ExtraCharges
	r.TotalAmount = t.TotalAmount
	r.AdvancePaid = t.AdvancePaid
	r.BalanceDue = t.BalanceDue
	r.PaymentStatus = t.PaymentStatus
}
