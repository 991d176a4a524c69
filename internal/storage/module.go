// Package storage selects the repository backend.
package storage

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/fulfillment/internal/config"
	"github.com/polkiloo/fulfillment/internal/domain/repository"
	"github.com/polkiloo/fulfillment/internal/storage/memory"
	"github.com/polkiloo/fulfillment/internal/storage/postgres"
)

// Module wires the storage backend and repository adapters.
var Module = fx.Options(
	fx.Provide(newFactory),
	fx.Provide(
		func(f repository.Factory) repository.MaterialRepository { return f.Materials() },
		func(f repository.Factory) repository.ReservationRepository { return f.Reservations() },
		func(f repository.Factory) repository.OrderRepository { return f.Orders() },
	),
	fx.Invoke(registerLifecycle),
)

var openPostgres = func(ctx context.Context, dsn string, logger *slog.Logger) (repository.Factory, error) {
	return postgres.New(ctx, dsn, logger)
}

type factoryParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newFactory(p factoryParams) (repository.Factory, error) {
	if p.Config.DatabaseURI == "" {
		p.Logger.Warn("database uri not set, using in-memory storage")
		return memory.New(p.Logger), nil
	}
	return openPostgres(p.Ctx, p.Config.DatabaseURI, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, factory repository.Factory) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			factory.Close()
			return nil
		},
	})
}
