package repository

import (
	"context"
	"time"

	"github.com/polkiloo/fulfillment/internal/domain/model"
)

// MaterialRepository persists stock records.
type MaterialRepository interface {
	Create(ctx context.Context, material *model.Material) error
	Get(ctx context.Context, materialID string) (*model.Material, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]model.Material, error)
	// UpdateWithVersion stores material if its persisted version equals expectedVersion.
	UpdateWithVersion(ctx context.Context, material *model.Material, expectedVersion int64) error
}

// ReservationRepository couples stock updates with reservation bookkeeping.
// Each method writes the material and the reservation in one indivisible step.
type ReservationRepository interface {
	Get(ctx context.Context, reservationID string) (*model.Reservation, error)
	// Apply stores material (version checked) and inserts reservation.
	Apply(ctx context.Context, material *model.Material, expectedVersion int64, reservation *model.Reservation) error
	// Settle stores material (version checked) and moves the reservation from
	// reserved to status. Either precondition failing yields ErrConflict.
	Settle(ctx context.Context, material *model.Material, expectedVersion int64, reservationID string, status model.ReservationStatus, at time.Time) error
	// ListOutstanding returns reserved rows older than olderThan, oldest
	// first. A limit <= 0 means no limit.
	ListOutstanding(ctx context.Context, olderThan time.Time, limit int) ([]model.Reservation, error)
}
