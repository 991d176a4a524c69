// Package cache keeps read copies of orders in redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/fulfillment/internal/domain/model"
)

const (
	keyPrefix  = "order:"
	defaultTTL = 5 * time.Minute
)

// setIfNewer writes ARGV[1] under KEYS[1] with a PX of ARGV[3] unless the
// cached order already carries a version >= ARGV[2]. Returns 1 when written.
var setIfNewer = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
	local ok, cached = pcall(cjson.decode, current)
	if ok and type(cached) == 'table' then
		local version = tonumber(cached['version'])
		if version and version >= tonumber(ARGV[2]) then
			return 0
		end
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// redisClient is the subset of *redis.Client the cache uses.
type redisClient interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisOrderCache stores orders as JSON under order:{id}.
type RedisOrderCache struct {
	client redisClient
	ttl    time.Duration
}

// NewRedisOrderCache connects to addr. Connection problems surface on first use.
func NewRedisOrderCache(addr string, ttl time.Duration) *RedisOrderCache {
	return newRedisOrderCache(redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}), ttl)
}

func newRedisOrderCache(client redisClient, ttl time.Duration) *RedisOrderCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisOrderCache{client: client, ttl: ttl}
}

// Key returns the cache key of an order.
func Key(orderID string) string {
	return keyPrefix + orderID
}

// Get returns the cached order; a miss is not an error.
func (c *RedisOrderCache) Get(ctx context.Context, orderID string) (*model.Order, bool, error) {
	raw, err := c.client.Get(ctx, Key(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var entry cachedOrder
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("decode cached order: %w", err)
	}
	order := entry.toModel()
	return &order, true, nil
}

// Set stores the order for the configured TTL. An equal or newer cached
// version wins, so a slow reader cannot overwrite a transition's write.
func (c *RedisOrderCache) Set(ctx context.Context, order *model.Order) error {
	raw, err := json.Marshal(fromModel(order))
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	err = setIfNewer.Run(ctx, c.client, []string{Key(order.ID)}, string(raw), order.Version, c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate removes the cached copy.
func (c *RedisOrderCache) Invalidate(ctx context.Context, orderID string) error {
	if err := c.client.Del(ctx, Key(orderID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (c *RedisOrderCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *RedisOrderCache) Close() error {
	return c.client.Close()
}

// NopCache never holds anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*model.Order, bool, error) {
	return nil, false, nil
}

func (NopCache) Set(context.Context, *model.Order) error {
	return nil
}

func (NopCache) Invalidate(context.Context, string) error {
	return nil
}

type cachedEntry struct {
	Status    model.OrderStatus `json:"status"`
	ActorID   string            `json:"actor_id"`
	ActorRole model.Role        `json:"actor_role"`
	Note      string            `json:"note,omitempty"`
	At        time.Time         `json:"at"`
}

type cachedOrder struct {
	ID                string            `json:"id"`
	VendorID          string            `json:"vendor_id"`
	SupplierID        string            `json:"supplier_id"`
	MaterialID        string            `json:"material_id"`
	ReservationID     string            `json:"reservation_id"`
	Quantity          int64             `json:"quantity"`
	UnitPriceSnapshot decimal.Decimal   `json:"unit_price"`
	TotalAmount       decimal.Decimal   `json:"total_amount"`
	Status            model.OrderStatus `json:"status"`
	History           []cachedEntry     `json:"history"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	Version           int64             `json:"version"`
}

func fromModel(o *model.Order) cachedOrder {
	history := make([]cachedEntry, len(o.History))
	for i, h := range o.History {
		history[i] = cachedEntry(h)
	}
	return cachedOrder{
		ID:                o.ID,
		VendorID:          o.VendorID,
		SupplierID:        o.SupplierID,
		MaterialID:        o.MaterialID,
		ReservationID:     o.ReservationID,
		Quantity:          o.Quantity,
		UnitPriceSnapshot: o.UnitPriceSnapshot,
		TotalAmount:       o.TotalAmount,
		Status:            o.Status,
		History:           history,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		Version:           o.Version,
	}
}

func (c cachedOrder) toModel() model.Order {
	history := make([]model.StatusEntry, len(c.History))
	for i, h := range c.History {
		history[i] = model.StatusEntry(h)
	}
	return model.Order{
		ID:                c.ID,
		VendorID:          c.VendorID,
		SupplierID:        c.SupplierID,
		MaterialID:        c.MaterialID,
		ReservationID:     c.ReservationID,
		Quantity:          c.Quantity,
		UnitPriceSnapshot: c.UnitPriceSnapshot,
		TotalAmount:       c.TotalAmount,
		Status:            c.Status,
		History:           history,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
		Version:           c.Version,
	}
}
