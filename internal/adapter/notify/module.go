package notify

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/fulfillment/internal/config"
	"github.com/polkiloo/fulfillment/internal/usecase"
)

// Module provides the notification emitter: kafka when brokers are set, then
// a webhook, otherwise the log.
var Module = fx.Provide(newEmitter)

type emitterParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

var newKafka = func(cfg *config.Config, logger *slog.Logger) *KafkaEmitter {
	return NewKafkaEmitter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
}

func newEmitter(p emitterParams) (usecase.NotificationEmitter, error) {
	switch {
	case len(p.Config.KafkaBrokers) > 0:
		emitter := newKafka(p.Config, p.Logger)
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				emitter.Start()
				return nil
			},
			OnStop: emitter.Close,
		})
		p.Logger.Info("status changes published to kafka", slog.String("topic", p.Config.KafkaTopic))
		return emitter, nil
	case p.Config.NotifyWebhookURL != "":
		emitter, err := NewWebhookEmitter(p.Config.NotifyWebhookURL, p.Logger)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				emitter.Start()
				return nil
			},
			OnStop: emitter.Close,
		})
		return emitter, nil
	default:
		return NewLogEmitter(p.Logger), nil
	}
}
