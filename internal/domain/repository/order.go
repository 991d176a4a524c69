package repository

import (
	"context"
	"time"

	"github.com/polkiloo/fulfillment/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
//
// UpdateWithVersion is the only mutation: it stores the order only if the
// persisted version still equals expectedVersion and returns ErrConflict
// otherwise. History entries beyond the stored ones are appended, never
// rewritten.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	CreateBatch(ctx context.Context, orders []*model.Order) error
	Get(ctx context.Context, orderID string) (*model.Order, error)
	GetByReservation(ctx context.Context, reservationID string) (*model.Order, error)
	UpdateWithVersion(ctx context.Context, order *model.Order, expectedVersion int64) error
	ListByVendor(ctx context.Context, vendorID string) ([]model.Order, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]model.Order, error)
	ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	// ListByStatusBefore returns orders in status created before the cutoff,
	// oldest first. A limit <= 0 means no limit.
	ListByStatusBefore(ctx context.Context, status model.OrderStatus, before time.Time, limit int) ([]model.Order, error)
}
