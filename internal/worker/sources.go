package worker

import (
	"context"
	"time"

	"github.com/polkiloo/fulfillment/internal/domain/model"
)

// PendingExpirer is the part of the order state machine used for expiry.
type PendingExpirer interface {
	StalePending(ctx context.Context, before time.Time, limit int) ([]model.Order, error)
	ExpirePending(ctx context.Context, order model.Order) error
}

// ExpirySource yields pending orders older than ttl and expires them.
type ExpirySource struct {
	orders PendingExpirer
	ttl    time.Duration
	now    func() time.Time
}

// NewExpirySource constructs ExpirySource.
func NewExpirySource(orders PendingExpirer, ttl time.Duration) *ExpirySource {
	return &ExpirySource{orders: orders, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

func (s *ExpirySource) Fetch(ctx context.Context, limit int) ([]model.Order, error) {
	return s.orders.StalePending(ctx, s.now().Add(-s.ttl), limit)
}

func (s *ExpirySource) Handle(ctx context.Context, order model.Order) error {
	return s.orders.ExpirePending(ctx, order)
}

// ReservationReconciler is the part of the reconciler used by the worker.
type ReservationReconciler interface {
	Outstanding(ctx context.Context, limit int) ([]model.Reservation, error)
	Reconcile(ctx context.Context, reservation model.Reservation) error
}

// ReconcileSource yields outstanding reservations and settles them.
type ReconcileSource struct {
	reconciler ReservationReconciler
}

// NewReconcileSource constructs ReconcileSource.
func NewReconcileSource(reconciler ReservationReconciler) *ReconcileSource {
	return &ReconcileSource{reconciler: reconciler}
}

func (s *ReconcileSource) Fetch(ctx context.Context, limit int) ([]model.Reservation, error) {
	return s.reconciler.Outstanding(ctx, limit)
}

func (s *ReconcileSource) Handle(ctx context.Context, reservation model.Reservation) error {
	return s.reconciler.Reconcile(ctx, reservation)
}

var (
	_ Source[model.Order]       = (*ExpirySource)(nil)
	_ Source[model.Reservation] = (*ReconcileSource)(nil)
)
