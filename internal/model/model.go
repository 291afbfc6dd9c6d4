// Package model содержит доменные сущности подсистемы заселения и расчётов отеля.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationStatus описывает стадию жизненного цикла бронирования.
type ReservationStatus string

const (
	ReservationStatusConfirmed  ReservationStatus = "CONFIRMED"
	ReservationStatusCheckedIn  ReservationStatus = "CHECKED_IN"
	ReservationStatusCheckedOut ReservationStatus = "CHECKED_OUT"
	ReservationStatusCancelled  ReservationStatus = "CANCELLED"
)

// IsTerminal сообщает, что из статуса нет переходов.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusCheckedOut || s == ReservationStatusCancelled
}

// RoomStatus описывает текущее состояние номера.
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "AVAILABLE"
	RoomStatusOccupied    RoomStatus = "OCCUPIED"
	RoomStatusMaintenance RoomStatus = "MAINTENANCE"
	RoomStatusCleaning    RoomStatus = "CLEANING"
	RoomStatusOutOfOrder  RoomStatus = "OUT_OF_ORDER"
)

// PaymentStatus описывает состояние оплаты бронирования.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// PaymentMethod описывает способ оплаты.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodMobileWallet PaymentMethod = "MOBILE_WALLET"
)

// PaymentType описывает, на каком этапе принят платёж.
type PaymentType string

const (
	PaymentTypeAdvance  PaymentType = "ADVANCE"
	PaymentTypeCheckIn  PaymentType = "CHECKIN"
	PaymentTypeCheckOut PaymentType = "CHECKOUT"
)

// CashFlowType описывает направление движения денежных средств.
type CashFlowType string

const (
	CashFlowInflow  CashFlowType = "INFLOW"
	CashFlowOutflow CashFlowType = "OUTFLOW"
)

// IncidentStatus описывает состояние разбора инцидента.
type IncidentStatus string

const (
	IncidentStatusOpen     IncidentStatus = "OPEN"
	IncidentStatusResolved IncidentStatus = "RESOLVED"
)

// Reservation описывает бронирование одного номера одним клиентом на период.
type Reservation struct {
	ID          int64
	BookingRef  string
	CustomerID  int64
	RoomID      int64
	RoomClassID int64

	CheckInDate    time.Time
	CheckOutDate   time.Time
	ActualCheckIn  *time.Time
	ActualCheckOut *time.Time

	Adults   int
	Children int
	Infants  int

	BaseRoomRate  decimal.Decimal
	RoomCharge    decimal.Decimal
	ExtraCharges  decimal.Decimal
	Discount      decimal.Decimal
	ServiceCharge decimal.Decimal
	Tax           decimal.Decimal
	TotalAmount   decimal.Decimal
	AdvancePaid   decimal.Decimal
	BalanceDue    decimal.Decimal

	PaymentStatus      PaymentStatus
	Status             ReservationStatus
	Remarks            string
	CancellationReason string
	CancelledAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Room описывает физический номер отеля.
type Room struct {
	ID     int64
	Number string
	Status RoomStatus
}

// Customer содержит данные клиента, используемые в сводках расчёта.
type Customer struct {
	ID             int64
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	IdentityNumber string
}

// FullName возвращает имя клиента для отображения.
func (c Customer) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// ActiveStay описывает другое бронирование, фактически занимающее номер.
type ActiveStay struct {
	ReservationID  int64
	BookingRef     string
	RoomID         int64
	GuestName      string
	CheckInDate    time.Time
	CheckOutDate   time.Time
	ActualCheckIn  *time.Time
	ActualCheckOut *time.Time
}

// LineItem описывает дополнительную услугу (заказ, комплимент), начисленную за время проживания.
type LineItem struct {
	Source      string
	Reference   string
	Description string
	Amount      decimal.Decimal
}

// Payment описывает неизменяемую запись о поступлении денег.
type Payment struct {
	ID            int64
	TransitionID  string
	ReservationID int64
	CustomerID    int64
	StaffID       int64
	Amount        decimal.Decimal
	Method        PaymentMethod
	Type          PaymentType
	Status        string
	Notes         string
	CreatedAt     time.Time
}

// CashFlow описывает неизменяемую строку кассового журнала.
type CashFlow struct {
	ID            int64
	TransitionID  string
	StaffID       int64
	Type          CashFlowType
	Category      string
	Amount        decimal.Decimal
	ReferenceType string
	ReferenceID   int64
	Description   string
	CreatedAt     time.Time
}

// IncidentLog описывает зафиксированную проблему, например повреждение имущества.
type IncidentLog struct {
	ID            int64
	TransitionID  string
	ReservationID int64
	RoomID        int64
	StaffID       int64
	Kind          string
	Description   string
	Amount        decimal.Decimal
	Status        IncidentStatus
	CreatedAt     time.Time
}

// Ledger объединяет все записи журнала по одному бронированию.
type Ledger struct {
	Payments  []Payment
	CashFlows []CashFlow
	Incidents []IncidentLog
}
