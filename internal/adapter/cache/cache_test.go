package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/fx/fxtest"

	"github.com/polkiloo/fulfillment/internal/config"
	"github.com/polkiloo/fulfillment/internal/domain/model"
)

// fakeRedis emulates the commands the cache issues, including the
// setIfNewer script. EvalSha misses until Eval has loaded the script.
type fakeRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	err     error
	closed  bool
	pingErr error
	deleted []string
	loaded  bool
	evals   int
}

// noScriptError mimics the server reply that makes Script.Run fall back to EVAL.
type noScriptError string

func (e noScriptError) Error() string { return string(e) }

func (noScriptError) RedisError() {}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) setIfNewer(keys []string, args []any) *redis.Cmd {
	if f.err != nil {
		return redis.NewCmdResult(nil, f.err)
	}
	f.evals++
	key, payload, version, ttl := keys[0], args[0].(string), args[1].(int64), args[2].(int64)
	if current, ok := f.data[key]; ok {
		var cached struct {
			Version *int64 `json:"version"`
		}
		if json.Unmarshal([]byte(current), &cached) == nil && cached.Version != nil && *cached.Version >= version {
			return redis.NewCmdResult(int64(0), nil)
		}
	}
	f.data[key] = payload
	f.ttls[key] = time.Duration(ttl) * time.Millisecond
	return redis.NewCmdResult(int64(1), nil)
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	f.loaded = true
	return f.setIfNewer(keys, args)
}

func (f *fakeRedis) EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	if !f.loaded {
		return redis.NewCmdResult(nil, noScriptError("NOSCRIPT No matching script. Please use EVAL."))
	}
	return f.setIfNewer(keys, args)
}

func (f *fakeRedis) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeRedis) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	return f.EvalSha(ctx, sha1, keys, args...)
}

func (f *fakeRedis) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	exists := make([]bool, len(hashes))
	for i := range exists {
		exists[i] = f.loaded
	}
	return redis.NewBoolSliceResult(exists, nil)
}

func (f *fakeRedis) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	f.loaded = true
	return redis.NewStringResult(setIfNewer.Hash(), nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for _, k := range keys {
		delete(f.data, k)
	}
	f.deleted = append(f.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.pingErr)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func sampleOrder() *model.Order {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	return &model.Order{
		ID:                "o1",
		VendorID:          "v1",
		SupplierID:        "s1",
		MaterialID:        "m1",
		ReservationID:     "r1",
		Quantity:          3,
		UnitPriceSnapshot: decimal.RequireFromString("1.25"),
		TotalAmount:       decimal.RequireFromString("3.75"),
		Status:            model.OrderStatusAccepted,
		History: []model.StatusEntry{
			{Status: model.OrderStatusPending, ActorID: "v1", ActorRole: model.RoleVendor, At: at},
			{Status: model.OrderStatusAccepted, ActorID: "s1", ActorRole: model.RoleSupplier, Note: "ok", At: at},
		},
		CreatedAt: at,
		UpdatedAt: at,
		Version:   2,
	}
}

func TestRedisOrderCacheRoundTrip(t *testing.T) {
	client := newFakeRedis()
	c := newRedisOrderCache(client, time.Minute)
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "o1"); hit || err != nil {
		t.Fatalf("expected miss, got hit=%v err=%v", hit, err)
	}

	order := sampleOrder()
	if err := c.Set(ctx, order); err != nil {
		t.Fatalf("set: %v", err)
	}
	if client.ttls["order:o1"] != time.Minute {
		t.Fatalf("unexpected ttl %v", client.ttls["order:o1"])
	}

	got, hit, err := c.Get(ctx, "o1")
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if got.ID != order.ID || got.Version != 2 || got.Status != model.OrderStatusAccepted || len(got.History) != 2 {
		t.Fatalf("unexpected order %+v", got)
	}
	if !got.TotalAmount.Equal(order.TotalAmount) || !got.UnitPriceSnapshot.Equal(order.UnitPriceSnapshot) {
		t.Fatalf("money lost precision: %s %s", got.UnitPriceSnapshot, got.TotalAmount)
	}
	if got.History[1].Note != "ok" || !got.History[1].At.Equal(order.History[1].At) {
		t.Fatalf("unexpected history %+v", got.History)
	}

	if err := c.Invalidate(ctx, "o1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "o1"); hit {
		t.Fatal("expected miss after invalidation")
	}
}

func TestRedisOrderCacheKeepsNewerVersion(t *testing.T) {
	client := newFakeRedis()
	c := newRedisOrderCache(client, time.Minute)
	ctx := context.Background()

	newer := sampleOrder()
	if err := c.Set(ctx, newer); err != nil {
		t.Fatalf("set newer: %v", err)
	}
	stale := sampleOrder()
	stale.Status = model.OrderStatusPending
	stale.Version = 1
	stale.History = stale.History[:1]
	if err := c.Set(ctx, stale); err != nil {
		t.Fatalf("set stale: %v", err)
	}
	if client.evals != 2 {
		t.Fatalf("expected both writes to run the script, got %d", client.evals)
	}

	got, hit, err := c.Get(ctx, "o1")
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if got.Status != model.OrderStatusAccepted || got.Version != 2 {
		t.Fatalf("stale write replaced the cached order: status=%s version=%d", got.Status, got.Version)
	}

	next := sampleOrder()
	next.Status = model.OrderStatusPreparing
	next.Version = 3
	if err := c.Set(ctx, next); err != nil {
		t.Fatalf("set next: %v", err)
	}
	if got, _, _ := c.Get(ctx, "o1"); got.Version != 3 || got.Status != model.OrderStatusPreparing {
		t.Fatalf("newer write was dropped: %+v", got)
	}
}

func TestRedisOrderCacheErrors(t *testing.T) {
	client := newFakeRedis()
	c := newRedisOrderCache(client, 0)
	if c.ttl != defaultTTL {
		t.Fatalf("expected default ttl, got %v", c.ttl)
	}
	ctx := context.Background()

	client.data[Key("bad")] = "{not json"
	if _, _, err := c.Get(ctx, "bad"); err == nil {
		t.Fatal("expected decode error")
	}

	client.err = errors.New("connection refused")
	if _, _, err := c.Get(ctx, "o1"); !errors.Is(err, client.err) {
		t.Fatalf("expected get error, got %v", err)
	}
	if err := c.Set(ctx, sampleOrder()); !errors.Is(err, client.err) {
		t.Fatalf("expected set error, got %v", err)
	}
	if err := c.Invalidate(ctx, "o1"); !errors.Is(err, client.err) {
		t.Fatalf("expected del error, got %v", err)
	}
}

func TestNopCache(t *testing.T) {
	var c NopCache
	if err := c.Set(context.Background(), sampleOrder()); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, hit, err := c.Get(context.Background(), "o1"); hit || err != nil {
		t.Fatalf("expected permanent miss, got hit=%v err=%v", hit, err)
	}
	if err := c.Invalidate(context.Background(), "o1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
}

func TestNewOrderCacheSelectsBackend(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	lc := fxtest.NewLifecycle(t)
	if _, ok := newOrderCache(cacheParams{Lifecycle: lc, Config: &config.Config{}, Logger: logger}).(NopCache); !ok {
		t.Fatal("expected nop cache without redis address")
	}

	client := newFakeRedis()
	client.pingErr = errors.New("unreachable")
	original := newRedis
	newRedis = func(string, *config.Config) *RedisOrderCache { return newRedisOrderCache(client, time.Second) }
	t.Cleanup(func() { newRedis = original })

	lc = fxtest.NewLifecycle(t)
	c := newOrderCache(cacheParams{Lifecycle: lc, Config: &config.Config{RedisAddress: "localhost:6379"}, Logger: logger})
	if _, ok := c.(*RedisOrderCache); !ok {
		t.Fatalf("expected redis cache, got %T", c)
	}
	lc.RequireStart()
	lc.RequireStop()
	if !client.closed {
		t.Fatal("expected redis client to be closed on stop")
	}
}
