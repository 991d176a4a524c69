package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/fulfillment/internal/adapter/cache"
	"github.com/polkiloo/fulfillment/internal/adapter/notify"
	"github.com/polkiloo/fulfillment/internal/app"
	"github.com/polkiloo/fulfillment/internal/config"
	"github.com/polkiloo/fulfillment/internal/logger"
	"github.com/polkiloo/fulfillment/internal/pkg/auth"
	"github.com/polkiloo/fulfillment/internal/server/http/handlers"
	"github.com/polkiloo/fulfillment/internal/server/http/router"
	"github.com/polkiloo/fulfillment/internal/storage"
	"github.com/polkiloo/fulfillment/internal/telemetry"
	"github.com/polkiloo/fulfillment/internal/usecase"
)

// Module composes the full application graph. Extra options are applied last
// so callers can replace any provided value.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		telemetry.Module,
		auth.Module,
		storage.Module,
		cache.Module,
		notify.Module,
		usecase.Module,
		fx.Provide(func(f *app.FulfillmentFacade) handlers.FulfillmentFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
