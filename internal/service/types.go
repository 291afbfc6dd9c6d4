package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/settlement"
)

// CheckInInput - данные оператора для заселения.
type CheckInInput struct {
	StaffID            int64               `json:"-" validate:"gt=0"`
	Notes              string              `json:"notes" validate:"max=1000"`
	PaymentAmount      decimal.Decimal     `json:"paymentAmount" validate:"gte=0"`
	PaymentMethod      model.PaymentMethod `json:"paymentMethod" validate:"omitempty,payment_method"`
	GuestConfirmed     bool                `json:"guestConfirmed"`
	IdentityVerified   bool                `json:"identityVerified"`
	KeyCardIssued      bool                `json:"keyCardIssued"`
	RoomInspected      bool                `json:"roomInspected"`
	OverrideRoomStatus bool                `json:"overrideRoomStatus"`
}

// CheckOutInput - данные оператора для выселения.
type CheckOutInput struct {
	StaffID           int64           `json:"-" validate:"gt=0"`
	AdditionalCharges decimal.Decimal `json:"additionalCharges" validate:"gte=0"`
	// LateCheckoutFee задаёт сбор за поздний выезд вручную. nil - рассчитать по тарифу.
	LateCheckoutFee   *decimal.Decimal    `json:"lateCheckoutFee" validate:"omitempty,gte=0"`
	DamageFee         decimal.Decimal     `json:"damageFee"`
	DamageDescription string              `json:"damageDescription" validate:"max=1000"`
	PaymentAmount     decimal.Decimal     `json:"paymentAmount" validate:"gte=0"`
	PaymentMethod     model.PaymentMethod `json:"paymentMethod" validate:"omitempty,payment_method"`
	Notes             string              `json:"notes" validate:"max=1000"`
}

// CancelInput - данные оператора для отмены.
type CancelInput struct {
	StaffID int64  `json:"-" validate:"gt=0"`
	Reason  string `json:"reason" validate:"required,max=500"`
}

// Summary - сводка расчёта перехода.
type Summary struct {
	TransitionID string
	Totals       settlement.Totals
	RoomNumber   string
	RoomStatus   model.RoomStatus
	// StaleRoomStatusHealed - номер был помечен занятым без активного проживания, статус исправлен.
	StaleRoomStatusHealed bool
	RoomStatusOverridden  bool

	PaymentID  *int64
	CashFlowID *int64
	IncidentID *int64
}

// Result - результат перехода.
type Result struct {
	Reservation model.Reservation
	// Customer может отсутствовать, если справочник клиентов недоступен.
	Customer *model.Customer
	Summary  Summary
}

// ReservationView - бронирование с итогами на момент чтения.
type ReservationView struct {
	Reservation model.Reservation
	Totals      settlement.Totals
}

// CheckInPreview - предварительный расчёт заселения.
type CheckInPreview struct {
	Reservation model.Reservation
	Room        model.Room
	EarlyFee    decimal.Decimal
	LateFee     decimal.Decimal
	IsEarly     bool
	IsLate      bool
	Projected   settlement.Totals
}

// CheckOutPreview - предварительный расчёт выселения.
type CheckOutPreview struct {
	Reservation      model.Reservation
	Room             model.Room
	Ancillary        []model.LineItem
	AncillaryTotal   decimal.Decimal
	LateCheckoutFee  decimal.Decimal
	CheckoutBoundary time.Time
	ProjectedBalance decimal.Decimal
	Projected        settlement.Totals
}
