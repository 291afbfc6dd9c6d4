// Package service реализует конечный автомат бронирования: заселение, выселение и отмену.
//
// Каждый переход выполняется одной транзакцией хранилища: блокировка бронирования,
// блокировка номера, проверка занятости, расчёт сборов и итогов, изменение статусов
// и запись журнала. После фиксации публикуется событие перехода.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/apperr"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/clock"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/events"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/fee"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/ledger"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/occupancy"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/repository"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/settlement"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/validation"
)

const publishTimeout = 5 * time.Second

// CustomerLookup возвращает данные клиента для сводки расчёта.
type CustomerLookup interface {
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
}

// AncillaryProvider возвращает дополнительные услуги, начисленные за время проживания.
type AncillaryProvider interface {
	LineItems(ctx context.Context, reservationID int64) ([]model.LineItem, error)
}

// Notifier публикует события о совершённых переходах.
type Notifier interface {
	PublishTransition(ctx context.Context, e events.TransitionEvent) error
}

// Store описывает контракт хранилища, используемый сервисом.
type Store interface {
	CustomerLookup
	AncillaryProvider

	InTx(ctx context.Context, fn repository.TxFunc) error
	GetReservation(ctx context.Context, id int64) (*model.Reservation, error)
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	GetLedger(ctx context.Context, reservationID int64) (*model.Ledger, error)
	Ping(ctx context.Context) error
	Close() error
}

// Service содержит бизнес-логику переходов бронирования.
type Service struct {
	store     Store
	customers CustomerLookup
	ancillary AncillaryProvider
	notifier  Notifier

	fees      *fee.Calculator
	guard     *occupancy.Guard
	recorder  *ledger.Recorder
	validator *validation.Validator

	clock  clock.Clock
	logger *zap.Logger
}

// Option настраивает Service.
type Option func(*Service)

// WithCustomers задаёт источник данных клиентов вместо хранилища.
func WithCustomers(c CustomerLookup) Option {
	return func(s *Service) { s.customers = c }
}

// WithAncillary задаёт источник дополнительных услуг вместо хранилища.
func WithAncillary(a AncillaryProvider) Option {
	return func(s *Service) { s.ancillary = a }
}

// WithNotifier задаёт издателя событий переходов.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock задаёт источник текущего времени.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger задаёт логгер.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService создаёт сервис с указанным хранилищем и калькулятором сборов.
func NewService(store Store, fees *fee.Calculator, opts ...Option) *Service {
	s := &Service{
		store:     store,
		customers: store,
		ancillary: store,
		fees:      fees,
		guard:     occupancy.NewGuard(),
		recorder:  ledger.NewRecorder(),
		validator: validation.New(),
		clock:     clock.System{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// GetReservation возвращает бронирование с итогами расчёта на момент чтения.
func (s *Service) GetReservation(ctx context.Context, id int64) (*ReservationView, error) {
	if verr := validation.ID("reservationId", id); verr != nil {
		return nil, verr
	}

	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, normalize("get reservation", err)
	}

	return &ReservationView{Reservation: *r, Totals: settlement.Current(*r)}, nil
}

// GetLedger возвращает записи журнала бронирования.
func (s *Service) GetLedger(ctx context.Context, id int64) (*model.Ledger, error) {
	if verr := validation.ID("reservationId", id); verr != nil {
		return nil, verr
	}

	l, err := s.store.GetLedger(ctx, id)
	if err != nil {
		return nil, normalize("get ledger", err)
	}
	return l, nil
}

// lookupCustomer загружает клиента для сводки. Ошибка не прерывает уже совершённый переход.
func (s *Service) lookupCustomer(ctx context.Context, id int64) *model.Customer {
	c, err := s.customers.GetCustomer(ctx, id)
	if err != nil {
		s.logger.Warn("customer lookup failed", zap.Int64("customer_id", id), zap.Error(err))
		return nil
	}
	return c
}

func (s *Service) publish(ctx context.Context, e events.TransitionEvent) {
	if s.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.notifier.PublishTransition(ctx, e); err != nil {
		s.logger.Warn("publish transition event failed",
			zap.String("transition_id", e.TransitionID),
			zap.String("kind", string(e.Kind)),
			zap.Error(err),
		)
	}
}

func (s *Service) logFailure(op string, reservationID int64, err error) {
	fields := []zap.Field{zap.String("op", op), zap.Int64("reservation_id", reservationID), zap.Error(err)}
	switch {
	case apperr.IsClientError(err):
		s.logger.Info("transition refused", fields...)
	case errors.Is(err, apperr.ErrConflict):
		s.logger.Warn("transition conflict", fields...)
	default:
		s.logger.Error("transition failed", fields...)
	}
}

// normalize гарантирует, что наружу выходят только типизированные ошибки.
func normalize(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrPrecondition),
		errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrPersistence):
		return err
	}
	return &apperr.PersistenceError{Op: op, Err: err}
}
