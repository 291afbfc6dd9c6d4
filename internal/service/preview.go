package service

import (
	"context"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/apperr"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/fee"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/settlement"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/validation"
)

// Предварительные расчёты читают данные без блокировок и ничего не изменяют.

// GetCheckinPreview возвращает сборы, которые будут начислены при заселении сейчас.
func (s *Service) GetCheckinPreview(ctx context.Context, reservationID int64) (*CheckInPreview, error) {
	r, room, err := s.loadForPreview(ctx, reservationID, model.ReservationStatusCheckedIn)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	early := s.fees.EarlyCheckInFee(r.CheckInDate, now)
	late := s.fees.LateCheckInFee(r.CheckInDate, now)

	return &CheckInPreview{
		Reservation: *r,
		Room:        *room,
		EarlyFee:    early,
		LateFee:     late,
		IsEarly:     fee.IsEarly(r.CheckInDate, now),
		IsLate:      fee.IsLate(r.CheckInDate, now),
		Projected: settlement.Recompute(*r, settlement.Additions{
			EarlyCheckInFee: early,
			LateCheckInFee:  late,
		}),
	}, nil
}

// GetCheckoutPreview возвращает дополнительные услуги, сбор за поздний выезд и ожидаемый остаток.
func (s *Service) GetCheckoutPreview(ctx context.Context, reservationID int64) (*CheckOutPreview, error) {
	r, room, err := s.loadForPreview(ctx, reservationID, model.ReservationStatusCheckedOut)
	if err != nil {
		return nil, err
	}

	items, err := s.ancillary.LineItems(ctx, reservationID)
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "fetch ancillary charges", Err: err}
	}

	now := s.clock.Now()
	lateFee := s.fees.LateCheckoutFee(r.CheckOutDate, now)
	projected := settlement.Recompute(*r, settlement.Additions{
		Ancillary:       items,
		LateCheckoutFee: lateFee,
	})

	return &CheckOutPreview{
		Reservation:      *r,
		Room:             *room,
		Ancillary:        items,
		AncillaryTotal:   projected.AncillaryTotal,
		LateCheckoutFee:  lateFee,
		CheckoutBoundary: s.fees.CheckoutBoundary(r.CheckOutDate),
		ProjectedBalance: projected.BalanceDue,
		Projected:        projected,
	}, nil
}

func (s *Service) loadForPreview(ctx context.Context, reservationID int64, target model.ReservationStatus) (*model.Reservation, *model.Room, error) {
	if verr := validation.ID("reservationId", reservationID); verr != nil {
		return nil, nil, verr
	}

	r, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, nil, normalize("preview", err)
	}

	if err := s.guard.CheckStatus(*r, target); err != nil {
		return nil, nil, err
	}

	room, err := s.store.GetRoom(ctx, r.RoomID)
	if err != nil {
		return nil, nil, normalize("preview", err)
	}

	return r, room, nil
}
