package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/apperr"
)

// retryAfterSeconds - пауза, которую клиент выжидает после сбоя хранилища.
const retryAfterSeconds = "2"

type errorResponse struct {
	Code          string            `json:"code"`
	Message       string            `json:"message"`
	Fields        map[string]string `json:"fields,omitempty"`
	CurrentStatus string            `json:"currentStatus,omitempty"`
	RoomNumber    string            `json:"roomNumber,omitempty"`
	ConflictGuest string            `json:"conflictGuest,omitempty"`
	Detail        string            `json:"detail,omitempty"`
}

// writeError переводит типизированную ошибку сервиса в HTTP-ответ.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var (
		verr  *apperr.ValidationError
		nferr *apperr.NotFoundError
		perr  *apperr.PreconditionError
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "VALIDATION_FAILED",
			Message: "request validation failed",
			Fields:  verr.Fields,
		})
	case errors.As(err, &nferr):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Code:    "NOT_FOUND",
			Message: nferr.Error(),
		})
	case errors.As(err, &perr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:          perr.Code,
			Message:       perr.Message,
			CurrentStatus: perr.CurrentStatus,
			RoomNumber:    perr.RoomNumber,
			ConflictGuest: perr.ConflictGuest,
		})
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{
			Code:    "CONFLICT",
			Message: "the reservation was changed by another operation, reload and retry",
		})
	case errors.Is(err, apperr.ErrPersistence):
		h.logger.Error(op+" error", zap.Error(err))
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Code:    "PERSISTENCE_FAILED",
			Message: "transition failed, retry",
		})
	default:
		h.logger.Error(op+" error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Code:    "INTERNAL",
			Message: http.StatusText(http.StatusInternalServerError),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
