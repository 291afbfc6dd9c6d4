// Package handler содержит HTTP-обработчики API заселения и расчётов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/apperr"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/middleware"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/service"
)

const maxBodyBytes = 1 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	GetReservation(ctx context.Context, id int64) (*service.ReservationView, error)
	GetLedger(ctx context.Context, id int64) (*model.Ledger, error)
	GetCheckinPreview(ctx context.Context, id int64) (*service.CheckInPreview, error)
	GetCheckoutPreview(ctx context.Context, id int64) (*service.CheckOutPreview, error)
	CheckIn(ctx context.Context, id int64, in service.CheckInInput) (*service.Result, error)
	CheckOut(ctx context.Context, id int64, in service.CheckOutInput) (*service.Result, error)
	Cancel(ctx context.Context, id int64, in service.CancelInput) (*service.Result, error)
	Ping(ctx context.Context) error
}

// Handler реализует HTTP-обработчики API.
type Handler struct {
	service         Service
	logger          *zap.Logger
	staffMiddleware *middleware.StaffMiddleware
	allowedOrigins  []string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, staff *middleware.StaffMiddleware, allowedOrigins []string) *Handler {
	return &Handler{
		service:         s,
		logger:          logger,
		staffMiddleware: staff,
		allowedOrigins:  allowedOrigins,
	}
}

// reservationID разбирает идентификатор из пути. Ошибка уже записана в ответ.
func (h *Handler) reservationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, "parse id", apperr.NewValidation("reservationId", "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func staffID(r *http.Request) int64 {
	id, _ := middleware.StaffIDFromContext(r.Context())
	return id
}

// decodeBody читает JSON тела запроса. Пустое тело допустимо.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperr.NewValidation("body", "malformed JSON: "+err.Error())
	}
	return nil
}

// Health проверяет доступность хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.service.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetReservation возвращает бронирование с итогами на момент чтения.
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reservationID(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetReservation(r.Context(), id)
	if err != nil {
		h.writeError(w, "get reservation", err)
		return
	}

	writeJSON(w, http.StatusOK, reservationViewResponse{
		Reservation: toReservationResponse(view.Reservation),
		Totals:      view.Totals,
	})
}

// GetLedger возвращает платежи, кассовые записи и инциденты бронирования.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reservationID(w, r)
	if !ok {
		return
	}

	l, err := h.service.GetLedger(r.Context(), id)
	if err != nil {
		h.writeError(w, "get ledger", err)
		return
	}

	writeJSON(w, http.StatusOK, toLedgerResponse(l))
}

// GetCheckinPreview возвращает предварительный расчёт заселения.
func (h *Handler) GetCheckinPreview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reservationID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetCheckinPreview(r.Context(), id)
	if err != nil {
		h.writeError(w, "check-in preview", err)
		return
	}

	writeJSON(w, http.StatusOK, toCheckInPreviewResponse(p))
}

// CheckIn заселяет гостя.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reservationID(w, r)
	if !ok {
		return
	}

	var in service.CheckInInput
	if err := decodeBody(r, &in); err != nil {
		h.writeError(w, "check-in", err)
		return
	}
	in.StaffID = staffID(r)

	res, err := h.service.CheckIn(r.Context(), id, in)
	if err != nil {
		h.writeError(w, "check-in", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransitionResponse(res))
}

// GetCheckoutPreview возвращает предварительный расчёт выселения.
func (h *Handler) GetCheckoutPreview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reservationID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetCheckoutPreview(r.Context(), id)
	if err != nil {
		h.writeError(w, "check-out preview", err)
		return
	}

	writeJSON(w, http.StatusOK, toCheckOutPreviewResponse(p))
}

// CheckOut выселяет гостя и закрывает расчёт.
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reservationID(w, r)
	if !ok {
		return
	}

	var in service.CheckOutInput
	if err := decodeBody(r, &in); err != nil {
		h.writeError(w, "check-out", err)
		return
	}
	in.StaffID = staffID(r)

	res, err := h.service.CheckOut(r.Context(), id, in)
	if err != nil {
		h.writeError(w, "check-out", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransitionResponse(res))
}

// Cancel отменяет бронирование до заезда.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reservationID(w, r)
	if !ok {
		return
	}

	var in service.CancelInput
	if err := decodeBody(r, &in); err != nil {
		h.writeError(w, "cancel", err)
		return
	}
	in.StaffID = staffID(r)

	res, err := h.service.Cancel(r.Context(), id, in)
	if err != nil {
		h.writeError(w, "cancel", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransitionResponse(res))
}
