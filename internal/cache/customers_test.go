package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/apperr"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
)

type fakeRedis struct {
	data    map[string]string
	ttl     map[string]time.Duration
	failGet error
	failSet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.failSet != nil {
		return redis.NewStatusResult("", f.failSet)
	}
	f.data[key] = string(value.([]byte))
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

type countingSource struct {
	calls     int
	customers map[int64]model.Customer
}

func (s *countingSource) GetCustomer(_ context.Context, id int64) (*model.Customer, error) {
	s.calls++
	c, ok := s.customers[id]
	if !ok {
		return nil, &apperr.NotFoundError{Entity: "customer", ID: id}
	}
	return &c, nil
}

func newSource() *countingSource {
	return &countingSource{customers: map[int64]model.Customer{
		7: {ID: 7, FirstName: "John", LastName: "Smith", Email: "john@example.com"},
	}}
}

func TestCustomerCache_MissThenHit(t *testing.T) {
	rdb := newFakeRedis()
	src := newSource()
	c := NewCustomerCache(rdb, src, time.Minute, nil)

	first, err := c.GetCustomer(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Smith", first.LastName)
	assert.Equal(t, time.Minute, rdb.ttl["hotel:customer:7"])

	second, err := c.GetCustomer(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, *first, *second)
	assert.Equal(t, 1, src.calls)
}

func TestCustomerCache_NilClientPassesThrough(t *testing.T) {
	src := newSource()
	c := NewCustomerCache(nil, src, 0, nil)

	for i := 0; i < 2; i++ {
		_, err := c.GetCustomer(context.Background(), 7)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, src.calls)
}

func TestCustomerCache_RedisFailureFallsBack(t *testing.T) {
	rdb := newFakeRedis()
	rdb.failGet = errors.New("connection refused")
	rdb.failSet = errors.New("connection refused")
	src := newSource()
	c := NewCustomerCache(rdb, src, time.Minute, nil)

	got, err := c.GetCustomer(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, 1, src.calls)
}

func TestCustomerCache_NotFoundNotCached(t *testing.T) {
	rdb := newFakeRedis()
	c := NewCustomerCache(rdb, newSource(), time.Minute, nil)

	_, err := c.GetCustomer(context.Background(), 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, rdb.data)
}

func TestCustomerCache_CorruptedEntryReloads(t *testing.T) {
	rdb := newFakeRedis()
	rdb.data["hotel:customer:7"] = "{not json"
	src := newSource()
	c := NewCustomerCache(rdb, src, time.Minute, nil)

	got, err := c.GetCustomer(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "John", got.FirstName)
	assert.Equal(t, 1, src.calls)
	assert.Contains(t, rdb.data["hotel:customer:7"], `"firstName":"John"`)
}
