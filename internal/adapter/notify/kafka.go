package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/polkiloo/fulfillment/internal/domain/model"
)

var (
	// ErrEmitterBusy is returned when the producer buffer is full.
	ErrEmitterBusy = errors.New("emitter buffer is full")
	// ErrEmitterClosed is returned after Close.
	ErrEmitterClosed = errors.New("emitter is closed")
)

const defaultBuffer = 1024

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter publishes envelopes asynchronously, keyed by order id so that
// changes of one order stay in one partition.
type KafkaEmitter struct {
	writer messageWriter
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
	inbox  chan kafka.Message
	done   chan struct{}
}

// NewKafkaEmitter creates an emitter writing to topic on brokers.
func NewKafkaEmitter(brokers []string, topic string, logger *slog.Logger) *KafkaEmitter {
	return newKafkaEmitter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, defaultBuffer, logger)
}

func newKafkaEmitter(writer messageWriter, buffer int, logger *slog.Logger) *KafkaEmitter {
	return &KafkaEmitter{
		writer: writer,
		logger: logger,
		now:    time.Now,
		inbox:  make(chan kafka.Message, buffer),
		done:   make(chan struct{}),
	}
}

// Start launches the delivery loop.
func (e *KafkaEmitter) Start() {
	go func() {
		defer close(e.done)
		for msg := range e.inbox {
			if err := e.writer.WriteMessages(context.Background(), msg); err != nil {
				e.logger.Error("publish status change failed",
					slog.String("order_id", string(msg.Key)),
					slog.String("error", err.Error()),
				)
			}
		}
	}()
}

// Notify enqueues the event without waiting for the broker.
func (e *KafkaEmitter) Notify(ctx context.Context, orderID string, previous, current model.OrderStatus) error {
	env := NewEnvelope(ctx, orderID, previous, current, e.now())
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(orderID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventType)},
			{Key: "correlation_id", Value: []byte(env.CorrelationID)},
		},
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrEmitterClosed
	}
	select {
	case e.inbox <- msg:
		return nil
	default:
		return ErrEmitterBusy
	}
}

// Close flushes queued events and closes the writer. Pending events are
// dropped when ctx ends first.
func (e *KafkaEmitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.inbox)
	e.mu.Unlock()

	select {
	case <-e.done:
	case <-ctx.Done():
		e.logger.Warn("status change events dropped on shutdown", slog.Int("pending", len(e.inbox)))
	}
	return e.writer.Close()
}
