package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/polkiloo/fulfillment/internal/domain/errors"
	"github.com/polkiloo/fulfillment/internal/domain/model"
	"github.com/polkiloo/fulfillment/internal/domain/repository"
)

const defaultReserveRetries = 5

// StockLedger is the reservation contract the order flows depend on.
type StockLedger interface {
	Reserve(ctx context.Context, materialID string, quantity int64) (model.ReservationToken, error)
	Commit(ctx context.Context, token model.ReservationToken) error
	Release(ctx context.Context, token model.ReservationToken) error
}

// InventoryLedger owns every change of material stock. Each change is a
// compare-and-swap on the material version so concurrent callers never
// oversell.
type InventoryLedger struct {
	materials    repository.MaterialRepository
	reservations repository.ReservationRepository
	retries      int
	now          func() time.Time
	logger       *slog.Logger
}

// NewInventoryLedger constructs InventoryLedger. retries bounds the attempts of
// every compare-and-swap loop.
func NewInventoryLedger(materials repository.MaterialRepository, reservations repository.ReservationRepository, retries int, logger *slog.Logger) *InventoryLedger {
	if retries <= 0 {
		retries = defaultReserveRetries
	}
	return &InventoryLedger{
		materials:    materials,
		reservations: reservations,
		retries:      retries,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
}

// Reserve moves quantity from available to reserved and returns the handle
// binding it. A shortage fails with InsufficientStockError and changes nothing.
func (l *InventoryLedger) Reserve(ctx context.Context, materialID string, quantity int64) (token model.ReservationToken, err error) {
	ctx, span := tracer.Start(ctx, "InventoryLedger.Reserve", trace.WithAttributes(
		attribute.String("material.id", materialID),
		attribute.Int64("quantity", quantity),
	))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(materialID) == "" {
		return model.ReservationToken{}, domainErrors.Validation("material id is required")
	}
	if quantity <= 0 {
		return model.ReservationToken{}, domainErrors.Validation("quantity must be positive, got %d", quantity)
	}

	for attempt := 0; attempt < l.retries; attempt++ {
		material, err := l.materials.Get(ctx, materialID)
		if err != nil {
			return model.ReservationToken{}, domainErrors.Persistence("get material", err)
		}
		if material.AvailableQuantity < quantity {
			return model.ReservationToken{}, &domainErrors.InsufficientStockError{MaterialIDs: []string{materialID}}
		}

		now := l.now()
		expected := material.Version
		material.AvailableQuantity -= quantity
		material.ReservedQuantity += quantity
		material.Version++
		material.UpdatedAt = now

		reservation := &model.Reservation{
			ID:         uuid.NewString(),
			MaterialID: materialID,
			SupplierID: material.SupplierID,
			Quantity:   quantity,
			UnitPrice:  material.PricePerUnit,
			Status:     model.ReservationReserved,
			CreatedAt:  now,
		}

		err = l.reservations.Apply(ctx, material, expected, reservation)
		if err == nil {
			span.SetAttributes(attribute.String("reservation.id", reservation.ID), attribute.Int("attempts", attempt+1))
			return reservation.Token(), nil
		}
		if !errors.Is(err, domainErrors.ErrConflict) {
			return model.ReservationToken{}, domainErrors.Persistence("apply reservation", err)
		}
	}

	return model.ReservationToken{}, fmt.Errorf("%w: stock of material %s kept changing", domainErrors.ErrConflict, materialID)
}

// Commit turns the reserved quantity into a permanent deduction.
func (l *InventoryLedger) Commit(ctx context.Context, token model.ReservationToken) (err error) {
	ctx, span := tracer.Start(ctx, "InventoryLedger.Commit", trace.WithAttributes(attribute.String("reservation.id", token.ID)))
	defer func() { endSpan(span, err) }()
	return l.settle(ctx, token, model.ReservationCommitted)
}

// Release returns the reserved quantity to available stock.
func (l *InventoryLedger) Release(ctx context.Context, token model.ReservationToken) (err error) {
	ctx, span := tracer.Start(ctx, "InventoryLedger.Release", trace.WithAttributes(attribute.String("reservation.id", token.ID)))
	defer func() { endSpan(span, err) }()
	return l.settle(ctx, token, model.ReservationReleased)
}

func (l *InventoryLedger) settle(ctx context.Context, token model.ReservationToken, status model.ReservationStatus) error {
	if token.ID == "" {
		return domainErrors.Validation("reservation token is empty")
	}

	reservation, err := l.reservations.Get(ctx, token.ID)
	if err != nil {
		return domainErrors.Persistence("get reservation", err)
	}
	if reservation.MaterialID != token.MaterialID || reservation.Quantity != token.Quantity {
		return domainErrors.Validation("token does not match reservation %s", token.ID)
	}

	for attempt := 0; attempt < l.retries; attempt++ {
		if reservation.Status != model.ReservationReserved {
			return fmt.Errorf("%w: reservation %s already %s", domainErrors.ErrConflict, reservation.ID, reservation.Status)
		}

		material, err := l.materials.Get(ctx, reservation.MaterialID)
		if err != nil {
			return domainErrors.Persistence("get material", err)
		}

		now := l.now()
		expected := material.Version
		material.ReservedQuantity -= reservation.Quantity
		if status == model.ReservationReleased {
			material.AvailableQuantity += reservation.Quantity
		}
		material.Version++
		material.UpdatedAt = now

		err = l.reservations.Settle(ctx, material, expected, reservation.ID, status, now)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domainErrors.ErrConflict) {
			return domainErrors.Persistence("settle reservation", err)
		}

		// Either the stock moved or someone settled the reservation first.
		if reservation, err = l.reservations.Get(ctx, token.ID); err != nil {
			return domainErrors.Persistence("get reservation", err)
		}
	}

	return fmt.Errorf("%w: stock of material %s kept changing", domainErrors.ErrConflict, token.MaterialID)
}

// RegisterMaterial creates a stock record owned by the supplier.
func (l *InventoryLedger) RegisterMaterial(ctx context.Context, actor model.Actor, name string, price decimal.Decimal, quantity int64) (*model.Material, error) {
	if actor.Role != model.RoleSupplier || actor.ID == "" {
		return nil, domainErrors.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainErrors.Validation("material name is required")
	}
	if price.IsNegative() {
		return nil, domainErrors.Validation("price must not be negative")
	}
	if quantity < 0 {
		return nil, domainErrors.Validation("quantity must not be negative, got %d", quantity)
	}

	now := l.now()
	material := &model.Material{
		ID:                uuid.NewString(),
		SupplierID:        actor.ID,
		Name:              name,
		PricePerUnit:      price,
		AvailableQuantity: quantity,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := l.materials.Create(ctx, material); err != nil {
		return nil, domainErrors.Persistence("create material", err)
	}
	l.logger.InfoContext(ctx, "material registered",
		slog.String("material_id", material.ID),
		slog.String("supplier_id", actor.ID),
		slog.Int64("quantity", quantity),
	)
	return material, nil
}

// Restock adds quantity to available stock.
func (l *InventoryLedger) Restock(ctx context.Context, actor model.Actor, materialID string, quantity int64) (*model.Material, error) {
	if quantity <= 0 {
		return nil, domainErrors.Validation("quantity must be positive, got %d", quantity)
	}
	return l.mutate(ctx, actor, materialID, func(m *model.Material) {
		m.AvailableQuantity += quantity
	})
}

// Reprice changes the unit price used by future reservations. Placed orders
// keep their snapshot.
func (l *InventoryLedger) Reprice(ctx context.Context, actor model.Actor, materialID string, price decimal.Decimal) (*model.Material, error) {
	if price.IsNegative() {
		return nil, domainErrors.Validation("price must not be negative")
	}
	return l.mutate(ctx, actor, materialID, func(m *model.Material) {
		m.PricePerUnit = price
	})
}

func (l *InventoryLedger) mutate(ctx context.Context, actor model.Actor, materialID string, apply func(*model.Material)) (*model.Material, error) {
	for attempt := 0; attempt < l.retries; attempt++ {
		material, err := l.materials.Get(ctx, materialID)
		if err != nil {
			return nil, domainErrors.Persistence("get material", err)
		}
		if actor.Role != model.RoleSupplier || material.SupplierID != actor.ID {
			return nil, domainErrors.ErrForbidden
		}

		expected := material.Version
		apply(material)
		material.Version++
		material.UpdatedAt = l.now()

		err = l.materials.UpdateWithVersion(ctx, material, expected)
		if err == nil {
			return material, nil
		}
		if !errors.Is(err, domainErrors.ErrConflict) {
			return nil, domainErrors.Persistence("update material", err)
		}
	}
	return nil, fmt.Errorf("%w: material %s kept changing", domainErrors.ErrConflict, materialID)
}

// Material returns a stock record.
func (l *InventoryLedger) Material(ctx context.Context, materialID string) (*model.Material, error) {
	material, err := l.materials.Get(ctx, materialID)
	if err != nil {
		return nil, domainErrors.Persistence("get material", err)
	}
	return material, nil
}

// Materials lists the stock records of a supplier.
func (l *InventoryLedger) Materials(ctx context.Context, supplierID string) ([]model.Material, error) {
	materials, err := l.materials.ListBySupplier(ctx, supplierID)
	if err != nil {
		return nil, domainErrors.Persistence("list materials", err)
	}
	return materials, nil
}
