// Package events публикует события о совершённых переходах бронирований в RabbitMQ.
//
// Публикация выполняется после фиксации транзакции и не влияет на результат перехода:
// ошибка брокера только логируется вызывающей стороной.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QueueTransitions - очередь событий переходов.
const QueueTransitions = "reservation.transitions"

// Kind - вид перехода.
type Kind string

const (
	KindCheckIn  Kind = "check_in"
	KindCheckOut Kind = "check_out"
	KindCancel   Kind = "cancel"
)

// TransitionEvent описывает совершённый переход.
type TransitionEvent struct {
	TransitionID  string          `json:"transitionId"`
	Kind          Kind            `json:"kind"`
	ReservationID int64           `json:"reservationId"`
	BookingRef    string          `json:"bookingRef"`
	RoomID        int64           `json:"roomId"`
	RoomNumber    string          `json:"roomNumber"`
	StaffID       int64           `json:"staffId"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	BalanceDue    decimal.Decimal `json:"balanceDue"`
	PaymentStatus string          `json:"paymentStatus"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// ErrClosed возвращается при публикации после Close.
var ErrClosed = errors.New("publisher closed")

type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type dialFunc func(url string) (channel, io.Closer, error)

func dialAMQP(url string) (channel, io.Closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, conn, nil
}

// Publisher отправляет события в очередь. Соединение устанавливается при первой публикации
// и переоткрывается после ошибки.
type Publisher struct {
	url    string
	queue  string
	logger *zap.Logger
	dial   dialFunc

	mu     sync.Mutex
	ch     channel
	conn   io.Closer
	closed bool
}

// NewPublisher создаёт издателя для брокера по адресу url.
func NewPublisher(url string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		url:    url,
		queue:  QueueTransitions,
		logger: logger,
		dial:   dialAMQP,
	}
}

// PublishTransition публикует событие перехода как постоянное сообщение.
func (p *Publisher) PublishTransition(ctx context.Context, e TransitionEvent) error {
	msg, err := Encode(e)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	if err := p.ensureChannel(); err != nil {
		return err
	}

	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", e.Kind, err)
	}

	p.logger.Debug("transition event published",
		zap.String("transition_id", e.TransitionID),
		zap.String("kind", string(e.Kind)),
		zap.Int64("reservation_id", e.ReservationID),
	)
	return nil
}

func (p *Publisher) ensureChannel() error {
	if p.ch != nil {
		return nil
	}

	ch, conn, err := p.dial(p.url)
	if err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if conn != nil {
			_ = conn.Close()
		}
		return fmt.Errorf("declare queue %s: %w", p.queue, err)
	}

	p.ch, p.conn = ch, conn
	return nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close закрывает канал и соединение с брокером.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.reset()
	return nil
}

// Encode сериализует событие в сообщение AMQP.
func Encode(e TransitionEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.TransitionID,
		Type:         string(e.Kind),
		Timestamp:    e.OccurredAt,
		Body:         body,
	}, nil
}
