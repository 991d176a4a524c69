package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/polkiloo/fulfillment/internal/domain/model"
)

// TooManyRequestsError represents rate limiting signal from the webhook receiver.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

const (
	webhookAttempts = 3
	maxRetryWait    = 30 * time.Second
)

type webhookDelivery struct {
	orderID string
	body    []byte
	span    trace.SpanContext
}

// WebhookEmitter POSTs envelopes to a fixed URL from a background loop, so a
// slow receiver never holds up a transition. A 429 is retried after the
// receiver's Retry-After.
type WebhookEmitter struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu     sync.RWMutex
	closed bool
	inbox  chan webhookDelivery
	done   chan struct{}
	abort  chan struct{}
}

// NewWebhookEmitter creates an emitter with a default timeout.
func NewWebhookEmitter(endpoint string, logger *slog.Logger) (*WebhookEmitter, error) {
	return newWebhookEmitter(endpoint, defaultBuffer, logger)
}

func newWebhookEmitter(endpoint string, buffer int, logger *slog.Logger) (*WebhookEmitter, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse webhook url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("webhook url must be absolute")
	}
	return &WebhookEmitter{
		endpoint: parsed.String(),
		logger:   logger,
		now:      time.Now,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		inbox: make(chan webhookDelivery, buffer),
		done:  make(chan struct{}),
		abort: make(chan struct{}),
	}, nil
}

// Start launches the delivery loop.
func (w *WebhookEmitter) Start() {
	go func() {
		defer close(w.done)
		for d := range w.inbox {
			ctx := trace.ContextWithRemoteSpanContext(context.Background(), d.span)
			if err := w.deliverWithRetry(ctx, d.body); err != nil {
				w.logger.ErrorContext(ctx, "webhook delivery failed",
					slog.String("order_id", d.orderID),
					slog.String("error", err.Error()),
				)
			}
		}
	}()
}

// Notify enqueues the event without waiting for the receiver.
func (w *WebhookEmitter) Notify(ctx context.Context, orderID string, previous, current model.OrderStatus) error {
	body, err := json.Marshal(NewEnvelope(ctx, orderID, previous, current, w.now()))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	d := webhookDelivery{orderID: orderID, body: body, span: trace.SpanContextFromContext(ctx)}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrEmitterClosed
	}
	select {
	case w.inbox <- d:
		return nil
	default:
		return ErrEmitterBusy
	}
}

// Close flushes queued events. When ctx ends first the remaining events are
// dropped and any Retry-After wait is cut short.
func (w *WebhookEmitter) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.inbox)
	w.mu.Unlock()

	select {
	case <-w.done:
	case <-ctx.Done():
		close(w.abort)
		w.logger.Warn("status change events dropped on shutdown", slog.Int("pending", len(w.inbox)))
	}
	w.httpClient.CloseIdleConnections()
	return nil
}

func (w *WebhookEmitter) deliverWithRetry(ctx context.Context, body []byte) error {
	var err error
	for attempt := 1; attempt <= webhookAttempts; attempt++ {
		err = w.deliver(ctx, body)
		var tooMany TooManyRequestsError
		if !errors.As(err, &tooMany) || attempt == webhookAttempts {
			return err
		}
		select {
		case <-time.After(min(max(tooMany.RetryAfter, 0), maxRetryWait)):
		case <-w.abort:
			return err
		}
	}
	return err
}

func (w *WebhookEmitter) deliver(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return TooManyRequestsError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		w.logger.ErrorContext(ctx, "webhook receiver rejected event", slog.Int("status", resp.StatusCode), slog.String("body", string(respBody)))
		return fmt.Errorf("webhook error: %s", resp.Status)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
