// Package memory implements the repositories on mutex-guarded maps. It backs
// the service when no database is configured and mirrors the postgres
// semantics closely enough to exercise concurrency properties in tests.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/fulfillment/internal/domain/errors"
	"github.com/polkiloo/fulfillment/internal/domain/model"
	"github.com/polkiloo/fulfillment/internal/domain/repository"
)

// Store keeps all records in process memory.
type Store struct {
	mu           sync.RWMutex
	materials    map[string]model.Material
	reservations map[string]model.Reservation
	orders       map[string]model.Order
	logger       *slog.Logger
}

type materialRepository struct {
	store *Store
}

type reservationRepository struct {
	store *Store
}

type orderRepository struct {
	store *Store
}

// New creates an empty store.
func New(logger *slog.Logger) *Store {
	return &Store{
		materials:    make(map[string]model.Material),
		reservations: make(map[string]model.Reservation),
		orders:       make(map[string]model.Order),
		logger:       logger,
	}
}

// Factory methods for domain repositories.
func (s *Store) Materials() repository.MaterialRepository {
	return &materialRepository{store: s}
}

func (s *Store) Reservations() repository.ReservationRepository {
	return &reservationRepository{store: s}
}

func (s *Store) Orders() repository.OrderRepository {
	return &orderRepository{store: s}
}

// HealthCheck always succeeds for the in-process store.
func (s *Store) HealthCheck(context.Context) error {
	return nil
}

// Close is a no-op kept for parity with the database backend.
func (s *Store) Close() {}

// --- MaterialRepository implementation ---

func (r *materialRepository) Create(_ context.Context, material *model.Material) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.materials[material.ID]; exists {
		return domainErrors.ErrAlreadyExists
	}
	r.store.materials[material.ID] = *material
	return nil
}

func (r *materialRepository) Get(_ context.Context, materialID string) (*model.Material, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	m, ok := r.store.materials[materialID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &m, nil
}

func (r *materialRepository) ListBySupplier(_ context.Context, supplierID string) ([]model.Material, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []model.Material
	for _, m := range r.store.materials {
		if m.SupplierID == supplierID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *materialRepository) UpdateWithVersion(_ context.Context, material *model.Material, expectedVersion int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.putMaterialLocked(material, expectedVersion)
}

func (s *Store) putMaterialLocked(material *model.Material, expectedVersion int64) error {
	current, ok := s.materials[material.ID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if current.Version != expectedVersion {
		return domainErrors.ErrConflict
	}
	if material.AvailableQuantity < 0 || material.ReservedQuantity < 0 {
		return domainErrors.Validation("negative stock for material %s", material.ID)
	}
	s.materials[material.ID] = *material
	return nil
}

// --- ReservationRepository implementation ---

func (r *reservationRepository) Get(_ context.Context, reservationID string) (*model.Reservation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	res, ok := r.store.reservations[reservationID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &res, nil
}

func (r *reservationRepository) Apply(_ context.Context, material *model.Material, expectedVersion int64, reservation *model.Reservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.reservations[reservation.ID]; exists {
		return domainErrors.ErrAlreadyExists
	}
	if err := r.store.putMaterialLocked(material, expectedVersion); err != nil {
		return err
	}
	r.store.reservations[reservation.ID] = *reservation
	return nil
}

func (r *reservationRepository) Settle(_ context.Context, material *model.Material, expectedVersion int64, reservationID string, status model.ReservationStatus, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	res, ok := r.store.reservations[reservationID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if res.Status != model.ReservationReserved {
		return domainErrors.ErrConflict
	}
	if err := r.store.putMaterialLocked(material, expectedVersion); err != nil {
		return err
	}
	res.Status = status
	settled := at
	res.SettledAt = &settled
	r.store.reservations[reservationID] = res
	return nil
}

func (r *reservationRepository) ListOutstanding(_ context.Context, olderThan time.Time, limit int) ([]model.Reservation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []model.Reservation
	for _, res := range r.store.reservations {
		if res.Status == model.ReservationReserved && res.CreatedAt.Before(olderThan) {
			result = append(result, res)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- OrderRepository implementation ---

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.CreateBatch(ctx, []*model.Order{order})
}

func (r *orderRepository) CreateBatch(_ context.Context, orders []*model.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	seen := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		if _, exists := r.store.orders[o.ID]; exists {
			return domainErrors.ErrAlreadyExists
		}
		if _, dup := seen[o.ID]; dup {
			return domainErrors.ErrAlreadyExists
		}
		seen[o.ID] = struct{}{}
	}
	for _, o := range orders {
		r.store.orders[o.ID] = o.Clone()
	}
	return nil
}

func (r *orderRepository) Get(_ context.Context, orderID string) (*model.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	o, ok := r.store.orders[orderID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	clone := o.Clone()
	return &clone, nil
}

func (r *orderRepository) GetByReservation(_ context.Context, reservationID string) (*model.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, o := range r.store.orders {
		if o.ReservationID == reservationID {
			clone := o.Clone()
			return &clone, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (r *orderRepository) UpdateWithVersion(_ context.Context, order *model.Order, expectedVersion int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.orders[order.ID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if current.Version != expectedVersion {
		return domainErrors.ErrConflict
	}
	if len(order.History) < len(current.History) {
		return domainErrors.Validation("status history of order %s cannot shrink", order.ID)
	}
	r.store.orders[order.ID] = order.Clone()
	return nil
}

func (r *orderRepository) ListByVendor(_ context.Context, vendorID string) ([]model.Order, error) {
	return r.filter(func(o model.Order) bool { return o.VendorID == vendorID }, 0, false), nil
}

func (r *orderRepository) ListBySupplier(_ context.Context, supplierID string) ([]model.Order, error) {
	return r.filter(func(o model.Order) bool { return o.SupplierID == supplierID }, 0, false), nil
}

func (r *orderRepository) ListByStatus(_ context.Context, status model.OrderStatus) ([]model.Order, error) {
	return r.filter(func(o model.Order) bool { return o.Status == status }, 0, false), nil
}

func (r *orderRepository) ListByStatusBefore(_ context.Context, status model.OrderStatus, before time.Time, limit int) ([]model.Order, error) {
	return r.filter(func(o model.Order) bool {
		return o.Status == status && o.CreatedAt.Before(before)
	}, limit, true), nil
}

func (r *orderRepository) filter(match func(model.Order) bool, limit int, oldestFirst bool) []model.Order {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []model.Order
	for _, o := range r.store.orders {
		if match(o) {
			result = append(result, o.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt) != oldestFirst
		}
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
