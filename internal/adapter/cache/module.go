package cache

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/fulfillment/internal/config"
	"github.com/polkiloo/fulfillment/internal/usecase"
)

// Module provides the order cache; without a redis address orders are never cached.
var Module = fx.Provide(newOrderCache)

type cacheParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

var newRedis = func(addr string, cfg *config.Config) *RedisOrderCache {
	return NewRedisOrderCache(addr, cfg.OrderCacheTTL)
}

func newOrderCache(p cacheParams) usecase.OrderCache {
	if p.Config.RedisAddress == "" {
		p.Logger.Info("order cache disabled")
		return NopCache{}
	}

	c := newRedis(p.Config.RedisAddress, p.Config)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// The service keeps running without a cache.
			if err := c.Ping(ctx); err != nil {
				p.Logger.Warn("redis unreachable", slog.String("address", p.Config.RedisAddress), slog.String("error", err.Error()))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
	return c
}
