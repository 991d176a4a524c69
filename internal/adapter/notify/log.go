package notify

import (
	"context"
	"log/slog"

	"github.com/polkiloo/fulfillment/internal/domain/model"
)

// LogEmitter writes status changes to the log.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter constructs LogEmitter.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Notify never fails.
func (e *LogEmitter) Notify(ctx context.Context, orderID string, previous, current model.OrderStatus) error {
	e.logger.InfoContext(ctx, "order status changed",
		slog.String("event_type", EventType),
		slog.String("order_id", orderID),
		slog.String("previous_status", string(previous)),
		slog.String("new_status", string(current)),
	)
	return nil
}
