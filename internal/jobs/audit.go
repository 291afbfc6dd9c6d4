// Package jobs содержит фоновые задачи по расписанию.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/repository"
)

// DefaultAuditSchedule - каждые 15 минут.
const DefaultAuditSchedule = "*/15 * * * *"

const auditTimeout = 30 * time.Second

// MismatchFinder находит номера, статус которых расходится с активными проживаниями.
type MismatchFinder interface {
	RoomMismatches(ctx context.Context) ([]repository.RoomMismatch, error)
}

// RoomAudit сверяет статусы номеров с заселёнными бронированиями и пишет расхождения в лог.
// Статусы не исправляются: исправление происходит при следующем переходе.
type RoomAudit struct {
	finder MismatchFinder
	logger *zap.Logger
}

// NewRoomAudit создаёт задачу сверки.
func NewRoomAudit(finder MismatchFinder, logger *zap.Logger) *RoomAudit {
	return &RoomAudit{finder: finder, logger: logger}
}

// Run выполняет одну сверку и возвращает число найденных расхождений.
func (a *RoomAudit) Run(ctx context.Context) (int, error) {
	mismatches, err := a.finder.RoomMismatches(ctx)
	if err != nil {
		a.logger.Error("room audit failed", zap.Error(err))
		return 0, err
	}

	for _, mm := range mismatches {
		fields := []zap.Field{
			zap.Int64("room_id", mm.RoomID),
			zap.String("room_number", mm.RoomNumber),
			zap.String("room_status", string(mm.RoomStatus)),
			zap.Int("active_stays", mm.ActiveStays),
		}
		if mm.ReservationID != nil {
			fields = append(fields, zap.Int64("reservation_id", *mm.ReservationID))
		}
		a.logger.Warn("room status mismatch", fields...)
	}

	a.logger.Info("room audit completed", zap.Int("mismatches", len(mismatches)))
	return len(mismatches), nil
}

// Schedule регистрирует сверку в планировщике.
func (a *RoomAudit) Schedule(ctx context.Context, c *cron.Cron, spec string) error {
	if spec == "" {
		spec = DefaultAuditSchedule
	}
	_, err := c.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, auditTimeout)
		defer cancel()
		_, _ = a.Run(runCtx)
	})
	if err != nil {
		return fmt.Errorf("schedule room audit %q: %w", spec, err)
	}
	return nil
}
