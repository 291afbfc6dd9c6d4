// Package occupancy проверяет, допускает ли состояние бронирования и номера запрошенный переход.
//
// Проверки не имеют побочных эффектов: изменение статуса номера выполняет
// сервис в той же транзакции, что и смену статуса бронирования.
package occupancy

import (
	"fmt"
	"time"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/apperr"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
)

// Request описывает запрошенный переход.
type Request struct {
	Reservation model.Reservation
	Room        model.Room
	Target      model.ReservationStatus
	// ActiveStays - другие бронирования этого номера в статусе CHECKED_IN без отметки о выезде.
	ActiveStays []model.ActiveStay
	// OverrideRoomStatus разрешает заселение в номер на уборке или обслуживании.
	OverrideRoomStatus bool
	Now                time.Time
}

// Decision - результат успешной проверки.
type Decision struct {
	// StaleRoomStatus означает, что номер помечен OCCUPIED, но активного проживания нет.
	// Переход разрешён, статус номера исправляется в транзакции перехода.
	StaleRoomStatus bool
	// Overridden означает, что оператор подтвердил заселение в номер на уборке или обслуживании.
	Overridden bool
}

// Guard проверяет переходы бронирования.
type Guard struct{}

// NewGuard создаёт проверку занятости.
func NewGuard() *Guard {
	return &Guard{}
}

// CanTransition проверяет переход. Нарушение возвращается как *apperr.PreconditionError.
func (g *Guard) CanTransition(req Request) (Decision, error) {
	switch req.Target {
	case model.ReservationStatusCheckedIn:
		return g.canCheckIn(req)
	case model.ReservationStatusCheckedOut:
		return Decision{}, g.canCheckOut(req)
	case model.ReservationStatusCancelled:
		return Decision{}, g.canCancel(req)
	default:
		return Decision{}, &apperr.PreconditionError{
			Code:          apperr.CodeInvalidStatus,
			Message:       fmt.Sprintf("Transition to %s is not supported", req.Target),
			CurrentStatus: string(req.Reservation.Status),
		}
	}
}

// CheckStatus проверяет только статус бронирования для перехода в target, без учёта номера.
// Используется для предварительных расчётов.
func (g *Guard) CheckStatus(r model.Reservation, target model.ReservationStatus) error {
	switch target {
	case model.ReservationStatusCheckedIn:
		if r.Status != model.ReservationStatusConfirmed {
			return statusError(r, "check in", model.ReservationStatusConfirmed)
		}
		return nil
	case model.ReservationStatusCheckedOut:
		return g.canCheckOut(Request{Reservation: r})
	case model.ReservationStatusCancelled:
		return g.canCancel(Request{Reservation: r})
	}
	_, err := g.CanTransition(Request{Reservation: r, Target: target})
	return err
}

func (g *Guard) canCheckIn(req Request) (Decision, error) {
	r := req.Reservation
	if err := g.CheckStatus(r, model.ReservationStatusCheckedIn); err != nil {
		return Decision{}, err
	}

	if stay, ok := FindConflict(req.ActiveStays, r.ID, req.Now); ok {
		return Decision{}, &apperr.PreconditionError{
			Code:          apperr.CodeRoomOccupied,
			Message:       fmt.Sprintf("Room %s is occupied by %s — check them out first", req.Room.Number, guestName(stay)),
			CurrentStatus: string(req.Room.Status),
			RoomNumber:    req.Room.Number,
			ConflictGuest: stay.GuestName,
			ConflictRef:   stay.BookingRef,
		}
	}

	var d Decision
	switch req.Room.Status {
	case model.RoomStatusAvailable:
	case model.RoomStatusOccupied:
		d.StaleRoomStatus = true
	case model.RoomStatusCleaning, model.RoomStatusMaintenance:
		if !req.OverrideRoomStatus {
			return Decision{}, &apperr.PreconditionError{
				Code:          apperr.CodeRoomNeedsOverride,
				Message:       fmt.Sprintf("Room %s is under %s — confirm the override to check in anyway", req.Room.Number, roomStatusLabel(req.Room.Status)),
				CurrentStatus: string(req.Room.Status),
				RoomNumber:    req.Room.Number,
			}
		}
		d.Overridden = true
	default:
		return Decision{}, &apperr.PreconditionError{
			Code:          apperr.CodeRoomUnavailable,
			Message:       fmt.Sprintf("Room %s is %s and cannot be occupied", req.Room.Number, roomStatusLabel(req.Room.Status)),
			CurrentStatus: string(req.Room.Status),
			RoomNumber:    req.Room.Number,
		}
	}

	return d, nil
}

func (g *Guard) canCheckOut(req Request) error {
	if req.Reservation.Status != model.ReservationStatusCheckedIn {
		return statusError(req.Reservation, "check out", model.ReservationStatusCheckedIn)
	}
	return nil
}

func (g *Guard) canCancel(req Request) error {
	r := req.Reservation
	switch r.Status {
	case model.ReservationStatusCheckedOut, model.ReservationStatusCancelled:
		return &apperr.PreconditionError{
			Code:          apperr.CodeInvalidStatus,
			Message:       fmt.Sprintf("Reservation %s is already %s and cannot be cancelled", r.BookingRef, statusLabel(r.Status)),
			CurrentStatus: string(r.Status),
		}
	case model.ReservationStatusCheckedIn:
		return &apperr.PreconditionError{
			Code:          apperr.CodeCancelAfterArrival,
			Message:       fmt.Sprintf("Reservation %s is checked in; check the guest out instead of cancelling", r.BookingRef),
			CurrentStatus: string(r.Status),
		}
	}
	return nil
}

// FindConflict ищет среди активных проживаний другое бронирование, фактически занимающее номер в момент now.
// Проживание без отметки о выезде занимает номер с момента заезда, даже если плановая дата выезда прошла.
func FindConflict(stays []model.ActiveStay, reservationID int64, now time.Time) (model.ActiveStay, bool) {
	for _, s := range stays {
		if s.ReservationID == reservationID || s.ActualCheckOut != nil {
			continue
		}
		if Occupies(s, now) {
			return s, true
		}
	}
	return model.ActiveStay{}, false
}

// Occupies сообщает, что проживание перекрывает момент now.
func Occupies(s model.ActiveStay, now time.Time) bool {
	start := s.CheckInDate
	if s.ActualCheckIn != nil && s.ActualCheckIn.Before(start) {
		start = *s.ActualCheckIn
	}
	if now.Before(start) {
		return false
	}
	return s.ActualCheckOut == nil || now.Before(*s.ActualCheckOut)
}

// ReleasesRoom сообщает, освобождается ли номер при отмене бронирования.
// Номер не трогается, если его занимает другой гость или он выведен из эксплуатации.
func ReleasesRoom(room model.Room, stays []model.ActiveStay, reservationID int64, now time.Time) bool {
	if _, ok := FindConflict(stays, reservationID, now); ok {
		return false
	}
	switch room.Status {
	case model.RoomStatusMaintenance, model.RoomStatusOutOfOrder, model.RoomStatusCleaning, model.RoomStatusAvailable:
		return false
	}
	return true
}

func statusError(r model.Reservation, action string, want model.ReservationStatus) error {
	return &apperr.PreconditionError{
		Code: apperr.CodeInvalidStatus,
		Message: fmt.Sprintf("Cannot %s reservation %s: it is %s, expected %s",
			action, r.BookingRef, statusLabel(r.Status), statusLabel(want)),
		CurrentStatus: string(r.Status),
	}
}

func guestName(s model.ActiveStay) string {
	if s.GuestName != "" {
		return s.GuestName
	}
	return "booking " + s.BookingRef
}

func statusLabel(s model.ReservationStatus) string {
	switch s {
	case model.ReservationStatusConfirmed:
		return "confirmed"
	case model.ReservationStatusCheckedIn:
		return "checked in"
	case model.ReservationStatusCheckedOut:
		return "checked out"
	case model.ReservationStatusCancelled:
		return "cancelled"
	default:
		return string(s)
	}
}

func roomStatusLabel(s model.RoomStatus) string {
	switch s {
	case model.RoomStatusCleaning:
		return "cleaning"
	case model.RoomStatusMaintenance:
		return "maintenance"
	case model.RoomStatusOutOfOrder:
		return "out of order"
	case model.RoomStatusOccupied:
		return "occupied"
	default:
		return "available"
	}
}
