package test

import (
	"context"
	"time"

	"github.com/polkiloo/fulfillment/internal/domain/model"
	"github.com/polkiloo/fulfillment/internal/domain/repository"
)

// MaterialRepositoryStub delegates to the embedded repository unless an
// override is set.
type MaterialRepositoryStub struct {
	repository.MaterialRepository
	GetFn               func(context.Context, string) (*model.Material, error)
	UpdateWithVersionFn func(context.Context, *model.Material, int64) error
}

// Get returns override result or delegates.
func (s *MaterialRepositoryStub) Get(ctx context.Context, materialID string) (*model.Material, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, materialID)
	}
	return s.MaterialRepository.Get(ctx, materialID)
}

// UpdateWithVersion returns override result or delegates.
func (s *MaterialRepositoryStub) UpdateWithVersion(ctx context.Context, material *model.Material, expectedVersion int64) error {
	if s.UpdateWithVersionFn != nil {
		return s.UpdateWithVersionFn(ctx, material, expectedVersion)
	}
	return s.MaterialRepository.UpdateWithVersion(ctx, material, expectedVersion)
}

// ReservationRepositoryStub delegates to the embedded repository unless an
// override is set.
type ReservationRepositoryStub struct {
	repository.ReservationRepository
	ApplyFn           func(context.Context, *model.Material, int64, *model.Reservation) error
	SettleFn          func(context.Context, *model.Material, int64, string, model.ReservationStatus, time.Time) error
	ListOutstandingFn func(context.Context, time.Time, int) ([]model.Reservation, error)
}

// Apply returns override result or delegates.
func (s *ReservationRepositoryStub) Apply(ctx context.Context, material *model.Material, expectedVersion int64, reservation *model.Reservation) error {
	if s.ApplyFn != nil {
		return s.ApplyFn(ctx, material, expectedVersion, reservation)
	}
	return s.ReservationRepository.Apply(ctx, material, expectedVersion, reservation)
}

// Settle returns override result or delegates.
func (s *ReservationRepositoryStub) Settle(ctx context.Context, material *model.Material, expectedVersion int64, reservationID string, status model.ReservationStatus, at time.Time) error {
	if s.SettleFn != nil {
		return s.SettleFn(ctx, material, expectedVersion, reservationID, status, at)
	}
	return s.ReservationRepository.Settle(ctx, material, expectedVersion, reservationID, status, at)
}

// ListOutstanding returns override result or delegates.
func (s *ReservationRepositoryStub) ListOutstanding(ctx context.Context, olderThan time.Time, limit int) ([]model.Reservation, error) {
	if s.ListOutstandingFn != nil {
		return s.ListOutstandingFn(ctx, olderThan, limit)
	}
	return s.ReservationRepository.ListOutstanding(ctx, olderThan, limit)
}

// OrderRepositoryStub delegates to the embedded repository unless an override
// is set.
type OrderRepositoryStub struct {
	repository.OrderRepository
	CreateBatchFn        func(context.Context, []*model.Order) error
	GetFn                func(context.Context, string) (*model.Order, error)
	GetByReservationFn   func(context.Context, string) (*model.Order, error)
	UpdateWithVersionFn  func(context.Context, *model.Order, int64) error
	ListByVendorFn       func(context.Context, string) ([]model.Order, error)
	ListByStatusBeforeFn func(context.Context, model.OrderStatus, time.Time, int) ([]model.Order, error)
}

// CreateBatch returns override result or delegates.
func (s *OrderRepositoryStub) CreateBatch(ctx context.Context, orders []*model.Order) error {
	if s.CreateBatchFn != nil {
		return s.CreateBatchFn(ctx, orders)
	}
	return s.OrderRepository.CreateBatch(ctx, orders)
}

// Get returns override result or delegates.
func (s *OrderRepositoryStub) Get(ctx context.Context, orderID string) (*model.Order, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, orderID)
	}
	return s.OrderRepository.Get(ctx, orderID)
}

// GetByReservation returns override result or delegates.
func (s *OrderRepositoryStub) GetByReservation(ctx context.Context, reservationID string) (*model.Order, error) {
	if s.GetByReservationFn != nil {
		return s.GetByReservationFn(ctx, reservationID)
	}
	return s.OrderRepository.GetByReservation(ctx, reservationID)
}

// UpdateWithVersion returns override result or delegates.
func (s *OrderRepositoryStub) UpdateWithVersion(ctx context.Context, order *model.Order, expectedVersion int64) error {
	if s.UpdateWithVersionFn != nil {
		return s.UpdateWithVersionFn(ctx, order, expectedVersion)
	}
	return s.OrderRepository.UpdateWithVersion(ctx, order, expectedVersion)
}

// ListByVendor returns override result or delegates.
func (s *OrderRepositoryStub) ListByVendor(ctx context.Context, vendorID string) ([]model.Order, error) {
	if s.ListByVendorFn != nil {
		return s.ListByVendorFn(ctx, vendorID)
	}
	return s.OrderRepository.ListByVendor(ctx, vendorID)
}

// ListByStatusBefore returns override result or delegates.
func (s *OrderRepositoryStub) ListByStatusBefore(ctx context.Context, status model.OrderStatus, before time.Time, limit int) ([]model.Order, error) {
	if s.ListByStatusBeforeFn != nil {
		return s.ListByStatusBeforeFn(ctx, status, before, limit)
	}
	return s.OrderRepository.ListByStatusBefore(ctx, status, before, limit)
}

var (
	_ repository.MaterialRepository    = (*MaterialRepositoryStub)(nil)
	_ repository.ReservationRepository = (*ReservationRepositoryStub)(nil)
	_ repository.OrderRepository       = (*OrderRepositoryStub)(nil)
)
