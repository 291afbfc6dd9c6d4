// Package cache хранит данные клиентов в Redis поверх основного источника.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
)

const (
	keyPrefix  = "hotel:customer:"
	defaultTTL = 10 * time.Minute
)

// Client - подмножество команд Redis, которое использует кэш.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CustomerSource - основной источник данных клиентов.
type CustomerSource interface {
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
}

// CustomerCache читает клиентов из Redis, при промахе идёт в источник.
// Ошибки Redis не считаются ошибками чтения: кэш просто пропускается.
type CustomerCache struct {
	client Client
	source CustomerSource
	ttl    time.Duration
	logger *zap.Logger
}

// NewCustomerCache создаёт кэш. При client == nil все запросы идут напрямую в источник.
func NewCustomerCache(client Client, source CustomerSource, ttl time.Duration, logger *zap.Logger) *CustomerCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerCache{client: client, source: source, ttl: ttl, logger: logger}
}

type cachedCustomer struct {
	ID             int64  `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	IdentityNumber string `json:"identityNumber"`
}

// GetCustomer возвращает клиента по идентификатору.
func (c *CustomerCache) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	if c.client == nil {
		return c.source.GetCustomer(ctx, id)
	}

	key := customerKey(id)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cc cachedCustomer
		if uerr := json.Unmarshal(raw, &cc); uerr == nil {
			return &model.Customer{
				ID:             cc.ID,
				FirstName:      cc.FirstName,
				LastName:       cc.LastName,
				Email:          cc.Email,
				Phone:          cc.Phone,
				IdentityNumber: cc.IdentityNumber,
			}, nil
		}
		c.logger.Warn("corrupted customer cache entry", zap.Int64("customer_id", id))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("customer cache read failed", zap.Int64("customer_id", id), zap.Error(err))
	}

	customer, err := c.source.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, customer)
	return customer, nil
}

func (c *CustomerCache) store(ctx context.Context, key string, customer *model.Customer) {
	payload, err := json.Marshal(cachedCustomer{
		ID:             customer.ID,
		FirstName:      customer.FirstName,
		LastName:       customer.LastName,
		Email:          customer.Email,
		Phone:          customer.Phone,
		IdentityNumber: customer.IdentityNumber,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("customer cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func customerKey(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// NewRedisClient подключается к Redis и проверяет соединение.
// Возвращает nil, если сервер недоступен: кэш в этом случае отключается.
func NewRedisClient(ctx context.Context, addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
