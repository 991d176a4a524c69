package telemetry

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/polkiloo/fulfillment/internal/config"
)

// Module provides the tracer provider and flushes it on shutdown.
var Module = fx.Options(
	fx.Provide(newProvider),
	fx.Provide(func(tp *sdktrace.TracerProvider) trace.TracerProvider { return tp }),
	fx.Invoke(func(trace.TracerProvider) {}),
)

type providerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
}

func newProvider(p providerParams) (*sdktrace.TracerProvider, error) {
	tp, err := NewProvider(context.Background(), p.Config.OTLPEndpoint)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return tp, nil
}
