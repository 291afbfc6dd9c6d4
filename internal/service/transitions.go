package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/apperr"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/events"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/ledger"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/occupancy"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/repository"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/settlement"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/validation"
)

// CheckIn заселяет гостя по подтверждённому бронированию.
func (s *Service) CheckIn(ctx context.Context, reservationID int64, in CheckInInput) (*Result, error) {
	if verr := s.validateCheckIn(reservationID, in); verr != nil {
		s.logFailure("check-in", reservationID, verr)
		return nil, verr
	}

	transitionID := uuid.NewString()

	var (
		res      model.Reservation
		room     model.Room
		totals   settlement.Totals
		decision occupancy.Decision
		entries  ledger.Entries
	)

	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		now := s.clock.Now()

		r, rm, stays, err := lockForTransition(ctx, tx, reservationID)
		if err != nil {
			return err
		}

		decision, err = s.guard.CanTransition(occupancy.Request{
			Reservation:        *r,
			Room:               *rm,
			Target:             model.ReservationStatusCheckedIn,
			ActiveStays:        stays,
			OverrideRoomStatus: in.OverrideRoomStatus,
			Now:                now,
		})
		if err != nil {
			return err
		}

		totals = settlement.Recompute(*r, settlement.Additions{
			EarlyCheckInFee: s.fees.EarlyCheckInFee(r.CheckInDate, now),
			LateCheckInFee:  s.fees.LateCheckInFee(r.CheckInDate, now),
			CurrentPayment:  in.PaymentAmount,
		})

		update := model.CheckInUpdate{
			ActualCheckIn: now,
			Totals:        totals.Model(),
			Remarks:       checkInRemarks(r.Remarks, in),
		}
		if err := tx.ApplyCheckIn(ctx, r.ID, update); err != nil {
			return err
		}
		if err := tx.SetRoomStatus(ctx, rm.ID, model.RoomStatusOccupied); err != nil {
			return err
		}

		entries, err = s.recorder.Record(ctx, tx, ledger.Entry{
			TransitionID: transitionID,
			Reservation:  *r,
			StaffID:      in.StaffID,
			Category:     ledger.CategoryCheckIn,
			PaymentType:  model.PaymentTypeCheckIn,
			Amount:       in.PaymentAmount,
			Method:       in.PaymentMethod,
			Notes:        in.Notes,
			At:           now,
		})
		if err != nil {
			return err
		}

		res = r.ApplyCheckIn(update)
		room = *rm
		room.Status = model.RoomStatusOccupied
		return nil
	})
	if err != nil {
		err = normalize("check-in", err)
		s.logFailure("check-in", reservationID, err)
		return nil, err
	}

	if decision.StaleRoomStatus {
		s.logger.Warn("room marked occupied without an active stay, status healed on check-in",
			zap.Int64("room_id", room.ID),
			zap.String("room_number", room.Number),
			zap.Int64("reservation_id", res.ID),
		)
	}

	s.logger.Info("guest checked in",
		zap.String("transition_id", transitionID),
		zap.Int64("reservation_id", res.ID),
		zap.String("room_number", room.Number),
		zap.Int64("staff_id", in.StaffID),
		zap.String("balance_due", res.BalanceDue.String()),
	)

	result := s.finish(ctx, events.KindCheckIn, transitionID, in.StaffID, res, room, totals, entries)
	result.Summary.StaleRoomStatusHealed = decision.StaleRoomStatus
	result.Summary.RoomStatusOverridden = decision.Overridden
	return result, nil
}

// CheckOut выселяет гостя и закрывает расчёт.
func (s *Service) CheckOut(ctx context.Context, reservationID int64, in CheckOutInput) (*Result, error) {
	if verr := s.validateCheckOut(reservationID, in); verr != nil {
		s.logFailure("check-out", reservationID, verr)
		return nil, verr
	}

	items, err := s.ancillary.LineItems(ctx, reservationID)
	if err != nil {
		err = &apperr.PersistenceError{Op: "fetch ancillary charges", Err: err}
		s.logFailure("check-out", reservationID, err)
		return nil, err
	}

	transitionID := uuid.NewString()

	var (
		res     model.Reservation
		room    model.Room
		totals  settlement.Totals
		entries ledger.Entries
	)

	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		now := s.clock.Now()

		r, rm, stays, err := lockForTransition(ctx, tx, reservationID)
		if err != nil {
			return err
		}

		if _, err := s.guard.CanTransition(occupancy.Request{
			Reservation: *r,
			Room:        *rm,
			Target:      model.ReservationStatusCheckedOut,
			ActiveStays: stays,
			Now:         now,
		}); err != nil {
			return err
		}

		lateFee := s.fees.LateCheckoutFee(r.CheckOutDate, now)
		if in.LateCheckoutFee != nil {
			lateFee = *in.LateCheckoutFee
		}

		totals = settlement.Recompute(*r, settlement.Additions{
			Ancillary:         items,
			AdditionalCharges: in.AdditionalCharges,
			LateCheckoutFee:   lateFee,
			DamageFee:         in.DamageFee,
			CurrentPayment:    in.PaymentAmount,
		})

		update := model.CheckOutUpdate{
			ActualCheckOut: now,
			Totals:         totals.Model(),
			Remarks:        checkOutRemarks(r.Remarks, in),
		}
		if err := tx.ApplyCheckOut(ctx, r.ID, update); err != nil {
			return err
		}

		room = *rm
		if releasesOnCheckOut(rm.Status) {
			if err := tx.SetRoomStatus(ctx, rm.ID, model.RoomStatusAvailable); err != nil {
				return err
			}
			room.Status = model.RoomStatusAvailable
		}

		entries, err = s.recorder.Record(ctx, tx, ledger.Entry{
			TransitionID:  transitionID,
			Reservation:   *r,
			StaffID:       in.StaffID,
			Category:      ledger.CategoryCheckOut,
			PaymentType:   model.PaymentTypeCheckOut,
			Amount:        in.PaymentAmount,
			Method:        in.PaymentMethod,
			Notes:         in.Notes,
			DamageFee:     in.DamageFee,
			DamageDetails: in.DamageDescription,
			At:            now,
		})
		if err != nil {
			return err
		}

		res = r.ApplyCheckOut(update)
		return nil
	})
	if err != nil {
		err = normalize("check-out", err)
		s.logFailure("check-out", reservationID, err)
		return nil, err
	}

	s.logger.Info("guest checked out",
		zap.String("transition_id", transitionID),
		zap.Int64("reservation_id", res.ID),
		zap.String("room_number", room.Number),
		zap.Int64("staff_id", in.StaffID),
		zap.String("balance_due", res.BalanceDue.String()),
		zap.Bool("damage_reported", entries.Incident != nil),
	)

	return s.finish(ctx, events.KindCheckOut, transitionID, in.StaffID, res, room, totals, entries), nil
}

// Cancel отменяет бронирование до заезда. Журнал не пополняется.
func (s *Service) Cancel(ctx context.Context, reservationID int64, in CancelInput) (*Result, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if verr := validation.Merge(validation.ID("reservationId", reservationID), s.validator.Struct(in)); verr != nil {
		s.logFailure("cancel", reservationID, verr)
		return nil, verr
	}

	transitionID := uuid.NewString()

	var (
		res      model.Reservation
		room     model.Room
		released bool
	)

	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		now := s.clock.Now()

		r, rm, stays, err := lockForTransition(ctx, tx, reservationID)
		if err != nil {
			return err
		}

		if _, err := s.guard.CanTransition(occupancy.Request{
			Reservation: *r,
			Room:        *rm,
			Target:      model.ReservationStatusCancelled,
			ActiveStays: stays,
			Now:         now,
		}); err != nil {
			return err
		}

		update := model.CancelUpdate{Reason: in.Reason, CancelledAt: now}
		if err := tx.ApplyCancel(ctx, r.ID, update); err != nil {
			return err
		}

		room = *rm
		released = occupancy.ReleasesRoom(*rm, stays, r.ID, now)
		if released {
			if err := tx.SetRoomStatus(ctx, rm.ID, model.RoomStatusAvailable); err != nil {
				return err
			}
			room.Status = model.RoomStatusAvailable
		}

		res = r.ApplyCancel(update)
		return nil
	})
	if err != nil {
		err = normalize("cancel", err)
		s.logFailure("cancel", reservationID, err)
		return nil, err
	}

	s.logger.Info("reservation cancelled",
		zap.String("transition_id", transitionID),
		zap.Int64("reservation_id", res.ID),
		zap.Int64("staff_id", in.StaffID),
		zap.Bool("room_released", released),
	)

	return s.finish(ctx, events.KindCancel, transitionID, in.StaffID, res, room, settlement.Current(res), ledger.Entries{}), nil
}

// lockForTransition блокирует бронирование, затем номер. Порядок блокировок одинаков для всех переходов.
func lockForTransition(ctx context.Context, tx repository.Tx, reservationID int64) (*model.Reservation, *model.Room, []model.ActiveStay, error) {
	r, err := tx.LockReservation(ctx, reservationID)
	if err != nil {
		return nil, nil, nil, err
	}

	rm, err := tx.LockRoom(ctx, r.RoomID)
	if err != nil {
		return nil, nil, nil, err
	}

	stays, err := tx.ActiveStays(ctx, rm.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	return r, rm, stays, nil
}

// finish собирает результат и публикует событие после фиксации транзакции.
func (s *Service) finish(ctx context.Context, kind events.Kind, transitionID string, staffID int64,
	res model.Reservation, room model.Room, totals settlement.Totals, entries ledger.Entries) *Result {
	result := &Result{
		Reservation: res,
		Customer:    s.lookupCustomer(ctx, res.CustomerID),
		Summary: Summary{
			TransitionID: transitionID,
			Totals:       totals,
			RoomNumber:   room.Number,
			RoomStatus:   room.Status,
		},
	}
	if entries.Payment != nil {
		result.Summary.PaymentID = &entries.Payment.ID
	}
	if entries.CashFlow != nil {
		result.Summary.CashFlowID = &entries.CashFlow.ID
	}
	if entries.Incident != nil {
		result.Summary.IncidentID = &entries.Incident.ID
	}

	s.publish(ctx, events.TransitionEvent{
		TransitionID:  transitionID,
		Kind:          kind,
		ReservationID: res.ID,
		BookingRef:    res.BookingRef,
		RoomID:        room.ID,
		RoomNumber:    room.Number,
		StaffID:       staffID,
		Status:        string(res.Status),
		TotalAmount:   res.TotalAmount,
		BalanceDue:    res.BalanceDue,
		PaymentStatus: string(res.PaymentStatus),
		OccurredAt:    s.clock.Now(),
	})

	return result
}

// releasesOnCheckOut сообщает, освобождается ли номер при выезде. Номер на обслуживании или
// выведенный из эксплуатации сохраняет свой статус.
func releasesOnCheckOut(status model.RoomStatus) bool {
	return status != model.RoomStatusMaintenance && status != model.RoomStatusOutOfOrder
}

func (s *Service) validateCheckIn(reservationID int64, in CheckInInput) *apperr.ValidationError {
	verr := validation.Merge(validation.ID("reservationId", reservationID), s.validator.Struct(in))
	if verr == nil {
		verr = &apperr.ValidationError{}
	}

	if !in.GuestConfirmed {
		verr.Add("guestConfirmed", "guest details must be confirmed before check-in")
	}
	if !in.IdentityVerified {
		verr.Add("identityVerified", "guest identity must be verified before check-in")
	}
	validation.Money(verr, "paymentAmount", &in.PaymentAmount)
	requireMethod(verr, in.PaymentAmount, in.PaymentMethod)

	if verr.Empty() {
		return nil
	}
	return verr
}

func (s *Service) validateCheckOut(reservationID int64, in CheckOutInput) *apperr.ValidationError {
	verr := validation.Merge(validation.ID("reservationId", reservationID), s.validator.Struct(in))
	if verr == nil {
		verr = &apperr.ValidationError{}
	}

	if err := s.fees.ValidateDamageFee(in.DamageFee); err != nil {
		verr.Add("damageFee", err.Error())
	}
	if in.DamageFee.IsPositive() && strings.TrimSpace(in.DamageDescription) == "" {
		verr.Add("damageDescription", "is required when a damage fee is charged")
	}
	validation.Money(verr, "paymentAmount", &in.PaymentAmount)
	validation.Money(verr, "additionalCharges", &in.AdditionalCharges)
	validation.Money(verr, "damageFee", &in.DamageFee)
	validation.Money(verr, "lateCheckoutFee", in.LateCheckoutFee)
	requireMethod(verr, in.PaymentAmount, in.PaymentMethod)

	if verr.Empty() {
		return nil
	}
	return verr
}

func requireMethod(verr *apperr.ValidationError, amount decimal.Decimal, method model.PaymentMethod) {
	if amount.IsPositive() && method == "" {
		verr.Add("paymentMethod", "is required when a payment is taken")
	}
}

func checkInRemarks(existing string, in CheckInInput) string {
	var notes []string
	if n := strings.TrimSpace(in.Notes); n != "" {
		notes = append(notes, n)
	}
	if in.KeyCardIssued {
		notes = append(notes, "key card issued")
	}
	if in.RoomInspected {
		notes = append(notes, "room inspected")
	}
	if in.OverrideRoomStatus {
		notes = append(notes, "room status override confirmed")
	}
	return appendRemark(existing, "Check-in", notes)
}

func checkOutRemarks(existing string, in CheckOutInput) string {
	var notes []string
	if n := strings.TrimSpace(in.Notes); n != "" {
		notes = append(notes, n)
	}
	if d := strings.TrimSpace(in.DamageDescription); d != "" && in.DamageFee.IsPositive() {
		notes = append(notes, "damage: "+d)
	}
	return appendRemark(existing, "Check-out", notes)
}

func appendRemark(existing, label string, notes []string) string {
	if len(notes) == 0 {
		return existing
	}
	line := label + ": " + strings.Join(notes, "; ")
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}
