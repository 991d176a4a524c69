// Package notify publishes order status changes.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/polkiloo/fulfillment/internal/domain/model"
)

const (
	// EventType names the status change event on every transport.
	EventType    = "OrderStatusChanged"
	eventVersion = 1
	producerName = "fulfillment"
)

// Envelope wraps every published event.
type Envelope struct {
	EventID       string        `json:"event_id"`
	EventType     string        `json:"event_type"`
	EventVersion  int           `json:"event_version"`
	OccurredAt    time.Time     `json:"occurred_at"`
	Producer      string        `json:"producer"`
	TraceID       string        `json:"trace_id,omitempty"`
	CorrelationID string        `json:"correlation_id"`
	Payload       StatusPayload `json:"payload"`
}

// StatusPayload describes one transition.
type StatusPayload struct {
	OrderID        string            `json:"order_id"`
	PreviousStatus model.OrderStatus `json:"previous_status"`
	NewStatus      model.OrderStatus `json:"new_status"`
}

// NewEnvelope builds the event for a transition. The correlation id follows
// the active trace when there is one.
func NewEnvelope(ctx context.Context, orderID string, previous, current model.OrderStatus, at time.Time) Envelope {
	env := Envelope{
		EventID:      uuid.NewString(),
		EventType:    EventType,
		EventVersion: eventVersion,
		OccurredAt:   at.UTC(),
		Producer:     producerName,
		Payload: StatusPayload{
			OrderID:        orderID,
			PreviousStatus: previous,
			NewStatus:      current,
		},
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
		env.CorrelationID = env.TraceID
	} else {
		env.CorrelationID = env.EventID
	}
	return env
}
