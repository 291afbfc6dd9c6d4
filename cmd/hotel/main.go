// Package main запускает HTTP-сервер подсистемы заселения и расчётов отеля.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/ancillary"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/cache"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/config"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/events"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/fee"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/handler"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/jobs"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/middleware"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/repository"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/service"
)

type store interface {
	service.Store
	jobs.MismatchFinder
}

func openStore(cfg *config.Config, sugar *zap.SugaredLogger) (store, error) {
	if cfg.DatabaseURI == "" {
		sugar.Warn("DATABASE_URI is empty, using in-memory store")
		return repository.NewMemoryRepository(), nil
	}
	return repository.NewPostgresRepository(cfg.DatabaseURI, cfg.TxTimeout)
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	rates, err := cfg.Rates()
	if err != nil {
		sugar.Fatalw("fee configuration error", "error", err.Error())
	}

	repo, err := openStore(cfg, sugar)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []service.Option{service.WithLogger(logger)}

	var customers *cache.CustomerCache
	if rdb := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); rdb != nil {
		defer rdb.Close()
		customers = cache.NewCustomerCache(rdb, repo, cfg.CustomerCacheTTL, logger)
		sugar.Infow("customer cache enabled", "addr", cfg.RedisAddr)
	} else {
		customers = cache.NewCustomerCache(nil, repo, cfg.CustomerCacheTTL, logger)
		if cfg.RedisAddr != "" {
			sugar.Warnw("redis unavailable, customer cache disabled", "addr", cfg.RedisAddr)
		}
	}
	opts = append(opts, service.WithCustomers(customers))

	if cfg.AncillarySystemAddress != "" {
		opts = append(opts, service.WithAncillary(ancillary.NewClient(cfg.AncillarySystemAddress)))
	}

	if cfg.RabbitMQURL != "" {
		publisher := events.NewPublisher(cfg.RabbitMQURL, logger)
		defer publisher.Close()
		opts = append(opts, service.WithNotifier(publisher))
	}

	svc := service.NewService(repo, fee.NewCalculator(rates), opts...)
	defer svc.Close()

	scheduler := cron.New()
	audit := jobs.NewRoomAudit(repo, logger)
	if err := audit.Schedule(ctx, scheduler, cfg.RoomAuditSchedule); err != nil {
		sugar.Fatalw("room audit configuration error", "error", err.Error())
	}

	staff := middleware.NewStaffMiddleware(cfg.StaffTokenSecret)
	if cfg.StaffTokenSecret == "" {
		sugar.Warn("STAFF_TOKEN_SECRET is empty, staff tokens are valid until restart")
	}
	h := handler.NewHandler(svc, logger, staff, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Сверка статусов номеров по расписанию
	g.Go(func() error {
		scheduler.Start()
		<-ctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting hotel front desk server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
