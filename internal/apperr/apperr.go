// Package apperr содержит типизированные ошибки переходов бронирования.
//
// Каждая ошибка разворачивается в сентинел, поэтому вызывающий код
// проверяет категорию через errors.Is, а детали получает через errors.As.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation - входные данные некорректны, обращения к хранилищу не было.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound - бронирование или связанная сущность не найдены.
	ErrNotFound = errors.New("not found")
	// ErrPrecondition - состояние бронирования или номера не допускает перехода.
	ErrPrecondition = errors.New("precondition failed")
	// ErrConflict - параллельный переход выиграл гонку, нужно перечитать данные и повторить.
	ErrConflict = errors.New("concurrent transition conflict")
	// ErrPersistence - сбой хранилища, переход не применён, повтор безопасен.
	ErrPersistence = errors.New("transition failed, retry")
)

// Коды нарушенных предусловий.
const (
	CodeInvalidStatus      = "INVALID_STATUS"
	CodeRoomOccupied       = "ROOM_OCCUPIED"
	CodeRoomUnavailable    = "ROOM_UNAVAILABLE"
	CodeRoomNeedsOverride  = "ROOM_NEEDS_OVERRIDE"
	CodeCancelAfterArrival = "CANCEL_AFTER_ARRIVAL"
)

// ValidationError содержит ошибки по отдельным полям запроса.
type ValidationError struct {
	Fields map[string]string
}

// NewValidation создаёт ошибку валидации для одного поля.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add добавляет ошибку поля.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// Empty сообщает, что ошибок полей нет.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError сообщает об отсутствии сущности.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PreconditionError объясняет, какое предусловие перехода нарушено.
// Сообщение предназначено для показа сотруднику без изменений.
type PreconditionError struct {
	Code          string
	Message       string
	CurrentStatus string
	RoomNumber    string
	ConflictGuest string
	ConflictRef   string
}

func (e *PreconditionError) Error() string {
	return e.Message
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// ConflictError сообщает о проигранной гонке параллельных переходов.
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: concurrent transition conflict: %v", e.Op, e.Err)
	}
	return e.Op + ": concurrent transition conflict"
}

func (e *ConflictError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConflict}
	}
	return []error{ErrConflict, e.Err}
}

// PersistenceError сообщает о сбое хранилища. Транзакция гарантированно откатана.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: transition failed, retry: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// IsRetryable сообщает, что операцию можно повторить без ручного вмешательства.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrPersistence)
}

// IsClientError сообщает, что ошибка вызвана запросом или состоянием данных, а не сбоем.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPrecondition)
}
