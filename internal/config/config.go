// Package config содержит логику чтения конфигурации сервиса размещения.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/fee"
)

// Config содержит параметры конфигурации сервиса размещения.
type Config struct {
	RunAddress             string `env:"RUN_ADDRESS"`
	DatabaseURI            string `env:"DATABASE_URI"`
	AncillarySystemAddress string `env:"ANCILLARY_SYSTEM_ADDRESS"`

	RedisAddr        string        `env:"REDIS_ADDR"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	CustomerCacheTTL time.Duration `env:"CUSTOMER_CACHE_TTL" envDefault:"10m"`

	RabbitMQURL string `env:"RABBITMQ_URL"`

	StaffTokenSecret   string   `env:"STAFF_TOKEN_SECRET"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	TxTimeout         time.Duration `env:"TX_TIMEOUT" envDefault:"10s"`
	RoomAuditSchedule string        `env:"ROOM_AUDIT_SCHEDULE" envDefault:"*/15 * * * *"`

	EarlyHourlyRate        decimal.Decimal `env:"EARLY_HOURLY_RATE" envDefault:"100"`
	LateDailyRate          decimal.Decimal `env:"LATE_DAILY_RATE" envDefault:"500"`
	LateCheckoutHourlyRate decimal.Decimal `env:"LATE_CHECKOUT_HOURLY_RATE" envDefault:"50"`
	StandardCheckoutHour   int             `env:"STANDARD_CHECKOUT_HOUR" envDefault:"12"`
	HotelTimezone          string          `env:"HOTEL_TIMEZONE" envDefault:"UTC"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAncillaryAddress := cfg.AncillarySystemAddress

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AncillarySystemAddress, "r", "", "ancillary charges system address")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAncillaryAddress != "" {
		cfg.AncillarySystemAddress = envAncillaryAddress
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.TxTimeout <= 0 {
		return nil, fmt.Errorf("TX_TIMEOUT must be positive, got %s", cfg.TxTimeout)
	}

	return cfg, nil
}

// Rates строит и проверяет тарифы сборов.
func (c *Config) Rates() (fee.Rates, error) {
	loc, err := time.LoadLocation(c.HotelTimezone)
	if err != nil {
		return fee.Rates{}, fmt.Errorf("load hotel timezone %q: %w", c.HotelTimezone, err)
	}

	rates := fee.Rates{
		EarlyHourly:        c.EarlyHourlyRate,
		LateDaily:          c.LateDailyRate,
		LateCheckoutHourly: c.LateCheckoutHourlyRate,
		CheckoutHour:       c.StandardCheckoutHour,
		Location:           loc,
	}
	if err := rates.Validate(); err != nil {
		return fee.Rates{}, fmt.Errorf("invalid fee rates: %w", err)
	}
	return rates, nil
}
