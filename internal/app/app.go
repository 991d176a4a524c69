package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"

	"github.com/polkiloo/fulfillment/internal/config"
	"github.com/polkiloo/fulfillment/internal/domain/model"
	"github.com/polkiloo/fulfillment/internal/domain/repository"
	"github.com/polkiloo/fulfillment/internal/usecase"
	"github.com/polkiloo/fulfillment/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		newFulfillmentFacade,
		newHTTPServer,
		newExpiryPool,
		newReconcilePool,
	),
	fx.Invoke(registerLifecycle),
)

type facadeParams struct {
	fx.In

	Auth       *usecase.AuthUseCase
	Ledger     *usecase.InventoryLedger
	Machine    *usecase.OrderStateMachine
	Checkout   *usecase.CheckoutOrchestrator
	Queries    *usecase.OrderQueryUseCase
	Reconciler *usecase.Reconciler
	Storage    repository.Factory
}

func newFulfillmentFacade(p facadeParams) *FulfillmentFacade {
	return NewFulfillmentFacade(p.Auth, p.Ledger, p.Machine, p.Checkout, p.Queries, p.Reconciler, p.Storage)
}

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr: p.Config.RunAddress,
		// The router renames matched requests to their route template.
		Handler: otelhttp.NewHandler(p.Router, "fulfillment.http",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method
			}),
		),
	}
}

type workerParams struct {
	fx.In

	Facade *FulfillmentFacade
	Config *config.Config
	Logger *slog.Logger
}

func newExpiryPool(p workerParams) *worker.Pool[model.Order] {
	return worker.NewPool[model.Order](
		"pending-expiry",
		worker.NewExpirySource(p.Facade, p.Config.PendingOrderTTL),
		p.Config.ExpiryInterval,
		p.Config.WorkerBatchSize,
		p.Config.WorkerPoolSize,
		p.Logger,
	)
}

func newReconcilePool(p workerParams) *worker.Pool[model.Reservation] {
	return worker.NewPool[model.Reservation](
		"reservation-reconciler",
		worker.NewReconcileSource(p.Facade),
		p.Config.ReconcileInterval,
		p.Config.WorkerBatchSize,
		p.Config.WorkerPoolSize,
		p.Logger,
	)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Expiry     *worker.Pool[model.Order]
	Reconciler *worker.Pool[model.Reservation]
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	expiryEnabled := p.Config.PendingOrderTTL > 0

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting fulfillment", slog.String("addr", p.Server.Addr), slog.Bool("pending_expiry", expiryEnabled))
			// Workers outlive the start context.
			runCtx := context.WithoutCancel(ctx)
			p.Reconciler.Start(runCtx)
			if expiryEnabled {
				p.Expiry.Start(runCtx)
			}
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Reconciler.Stop()
			p.Expiry.Stop()

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("fulfillment stopped")
			return nil
		},
	})
}
