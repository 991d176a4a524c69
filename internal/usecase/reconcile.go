package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domainErrors "github.com/polkiloo/fulfillment/internal/domain/errors"
	"github.com/polkiloo/fulfillment/internal/domain/model"
	"github.com/polkiloo/fulfillment/internal/domain/repository"
)

// Reconciler settles reservations that outlived their order flow: abandoned
// checkouts and settlements that failed after a transition was stored.
type Reconciler struct {
	reservations repository.ReservationRepository
	orders       repository.OrderRepository
	ledger       StockLedger
	grace        time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// NewReconciler constructs Reconciler. Reservations younger than grace are left
// alone so in-flight checkouts can finish.
func NewReconciler(reservations repository.ReservationRepository, orders repository.OrderRepository, ledger StockLedger, grace time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		reservations: reservations,
		orders:       orders,
		ledger:       ledger,
		grace:        grace,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
}

// Outstanding lists reserved reservations older than the grace period.
func (r *Reconciler) Outstanding(ctx context.Context, limit int) ([]model.Reservation, error) {
	reservations, err := r.reservations.ListOutstanding(ctx, r.now().Add(-r.grace), limit)
	if err != nil {
		return nil, domainErrors.Persistence("list reservations", err)
	}
	return reservations, nil
}

// Reconcile releases a reservation nobody ordered or whose order ended without
// delivery, and commits one whose order was delivered.
func (r *Reconciler) Reconcile(ctx context.Context, reservation model.Reservation) error {
	order, err := r.orders.GetByReservation(ctx, reservation.ID)
	if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
		return domainErrors.Persistence("get order by reservation", err)
	}

	settle, action := r.ledger.Release, "released"
	switch {
	case order == nil, order.Status.ReleasesStock():
	case order.Status == model.OrderStatusDelivered:
		settle, action = r.ledger.Commit, "committed"
	default:
		return nil
	}

	if err := settle(ctx, reservation.Token()); err != nil {
		if errors.Is(err, domainErrors.ErrConflict) {
			return nil
		}
		return err
	}

	attrs := []any{
		slog.String("reservation_id", reservation.ID),
		slog.String("material_id", reservation.MaterialID),
		slog.Int64("quantity", reservation.Quantity),
		slog.String("action", action),
	}
	if order != nil {
		attrs = append(attrs, slog.String("order_id", order.ID))
	}
	r.logger.InfoContext(ctx, "reservation reconciled", attrs...)
	return nil
}
