package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/polkiloo/fulfillment/internal/domain/errors"
	"github.com/polkiloo/fulfillment/internal/domain/model"
	"github.com/polkiloo/fulfillment/internal/domain/repository"
)

// NotificationEmitter receives every persisted status change.
type NotificationEmitter interface {
	Notify(ctx context.Context, orderID string, previous, current model.OrderStatus) error
}

// OrderCache keeps read copies of orders.
type OrderCache interface {
	Get(ctx context.Context, orderID string) (*model.Order, bool, error)
	Set(ctx context.Context, order *model.Order) error
	Invalidate(ctx context.Context, orderID string) error
}

type edge struct {
	from model.OrderStatus
	to   model.OrderStatus
}

// transitions maps every legal edge to the only role allowed to take it.
var transitions = map[edge]model.Role{
	{model.OrderStatusPending, model.OrderStatusAccepted}:         model.RoleSupplier,
	{model.OrderStatusPending, model.OrderStatusRejected}:         model.RoleSupplier,
	{model.OrderStatusAccepted, model.OrderStatusPreparing}:       model.RoleSupplier,
	{model.OrderStatusPreparing, model.OrderStatusPacked}:         model.RoleSupplier,
	{model.OrderStatusPacked, model.OrderStatusInTransit}:         model.RoleSupplier,
	{model.OrderStatusInTransit, model.OrderStatusOutForDelivery}: model.RoleSupplier,
	{model.OrderStatusOutForDelivery, model.OrderStatusDelivered}: model.RoleSupplier,
	{model.OrderStatusPending, model.OrderStatusCancelled}:        model.RoleVendor,
	{model.OrderStatusAccepted, model.OrderStatusCancelled}:       model.RoleVendor,
	{model.OrderStatusPending, model.OrderStatusExpired}:          model.RoleSystem,
}

// CanTransition reports whether role may move an order from one status to another.
func CanTransition(from, to model.OrderStatus, role model.Role) bool {
	allowed, ok := transitions[edge{from, to}]
	return ok && allowed == role
}

// canReach reports whether role owns any edge that ends in to.
func canReach(to model.OrderStatus, role model.Role) bool {
	for e, allowed := range transitions {
		if e.to == to && allowed == role {
			return true
		}
	}
	return false
}

func requiresReason(status model.OrderStatus) bool {
	return status == model.OrderStatusRejected || status == model.OrderStatusCancelled
}

// OrderStateMachine applies role-gated status transitions with optimistic
// concurrency and drives the ledger side effects of terminal states.
type OrderStateMachine struct {
	orders  repository.OrderRepository
	ledger  StockLedger
	emitter NotificationEmitter
	cache   OrderCache
	now     func() time.Time
	logger  *slog.Logger
}

// NewOrderStateMachine constructs OrderStateMachine.
func NewOrderStateMachine(orders repository.OrderRepository, ledger StockLedger, emitter NotificationEmitter, cache OrderCache, logger *slog.Logger) *OrderStateMachine {
	return &OrderStateMachine{
		orders:  orders,
		ledger:  ledger,
		emitter: emitter,
		cache:   cache,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger,
	}
}

// ApplyTransition moves the order to target on behalf of actor. A transition
// that loses a race against another one for the same version fails with
// ErrConflict; callers reload and decide again.
func (m *OrderStateMachine) ApplyTransition(ctx context.Context, orderID string, target model.OrderStatus, actor model.Actor, note string) (result *model.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderStateMachine.ApplyTransition", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.target_status", string(target)),
		attribute.String("actor.role", string(actor.Role)),
	))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(orderID) == "" {
		return nil, domainErrors.Validation("order id is required")
	}
	if !target.Valid() {
		return nil, domainErrors.Validation("unknown status %q", target)
	}
	if !actor.Role.Valid() || actor.ID == "" {
		return nil, domainErrors.Validation("unknown actor role %q", actor.Role)
	}

	order, err := m.orders.Get(ctx, orderID)
	if err != nil {
		return nil, domainErrors.Persistence("get order", err)
	}

	if !isParty(actor, order) {
		return nil, fmt.Errorf("%w: %s %s is not a party to order %s", domainErrors.ErrUnauthorizedTransition, actor.Role, actor.ID, orderID)
	}
	if !canReach(target, actor.Role) {
		return nil, fmt.Errorf("%w: %s cannot move orders to %s", domainErrors.ErrUnauthorizedTransition, actor.Role, target)
	}
	if order.Status == target {
		return nil, fmt.Errorf("%w: order %s is already %s", domainErrors.ErrConflict, orderID, target)
	}
	if order.Status.Terminal() || !CanTransition(order.Status, target, actor.Role) {
		return nil, fmt.Errorf("%w: %s cannot move order from %s to %s", domainErrors.ErrUnauthorizedTransition, actor.Role, order.Status, target)
	}
	note = strings.TrimSpace(note)
	if requiresReason(target) && note == "" {
		return nil, domainErrors.Validation("a reason is required to move an order to %s", target)
	}

	previous := order.Status
	expected := order.Version
	now := m.now()

	updated := order.Clone()
	updated.Status = target
	updated.Version++
	updated.UpdatedAt = now
	updated.History = append(updated.History, model.StatusEntry{
		Status:    target,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Note:      note,
		At:        now,
	})

	if err := m.orders.UpdateWithVersion(ctx, &updated, expected); err != nil {
		return nil, domainErrors.Persistence("update order", err)
	}

	// The transition is durable from here on; follow-ups must not be cut short
	// by the caller going away.
	detached := context.WithoutCancel(ctx)
	m.settleStock(detached, &updated)

	m.refreshCache(detached, &updated)
	if err := m.emitter.Notify(detached, updated.ID, previous, target); err != nil {
		m.logger.ErrorContext(ctx, "status change notification failed",
			slog.String("order_id", updated.ID),
			slog.String("previous", string(previous)),
			slog.String("current", string(target)),
			slog.String("error", err.Error()),
		)
	}

	m.logger.InfoContext(ctx, "order transitioned",
		slog.String("order_id", updated.ID),
		slog.String("previous", string(previous)),
		slog.String("current", string(target)),
		slog.String("actor_id", actor.ID),
		slog.Int64("version", updated.Version),
	)
	return &updated, nil
}

// refreshCache writes the new version through so a reader holding an older
// copy cannot put it back. If the write fails the entry is dropped instead.
func (m *OrderStateMachine) refreshCache(ctx context.Context, order *model.Order) {
	err := m.cache.Set(ctx, order)
	if err == nil {
		return
	}
	m.logger.WarnContext(ctx, "order cache write-through failed", slog.String("order_id", order.ID), slog.String("error", err.Error()))
	if err := m.cache.Invalidate(ctx, order.ID); err != nil {
		m.logger.WarnContext(ctx, "order cache invalidation failed", slog.String("order_id", order.ID), slog.String("error", err.Error()))
	}
}

func (m *OrderStateMachine) settleStock(ctx context.Context, order *model.Order) {
	var (
		err    error
		action string
	)
	switch {
	case order.Status.ReleasesStock():
		action = "release"
		err = m.ledger.Release(ctx, order.Token())
	case order.Status == model.OrderStatusDelivered:
		action = "commit"
		err = m.ledger.Commit(ctx, order.Token())
	default:
		return
	}

	switch {
	case err == nil:
	case errors.Is(err, domainErrors.ErrConflict):
		m.logger.InfoContext(ctx, "reservation already settled",
			slog.String("order_id", order.ID),
			slog.String("reservation_id", order.ReservationID),
		)
	default:
		m.logger.ErrorContext(ctx, "reservation settlement deferred to reconciler",
			slog.String("order_id", order.ID),
			slog.String("reservation_id", order.ReservationID),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}

// StalePending lists pending orders created before the given instant.
func (m *OrderStateMachine) StalePending(ctx context.Context, before time.Time, limit int) ([]model.Order, error) {
	orders, err := m.orders.ListByStatusBefore(ctx, model.OrderStatusPending, before, limit)
	if err != nil {
		return nil, domainErrors.Persistence("list pending orders", err)
	}
	return orders, nil
}

// ExpirePending moves a pending order to expired as the system actor. An order
// that left pending in the meantime is skipped.
func (m *OrderStateMachine) ExpirePending(ctx context.Context, order model.Order) error {
	_, err := m.ApplyTransition(ctx, order.ID, model.OrderStatusExpired, model.SystemActor, "pending order expired")
	if errors.Is(err, domainErrors.ErrConflict) || errors.Is(err, domainErrors.ErrUnauthorizedTransition) {
		return nil
	}
	return err
}

func isParty(actor model.Actor, order *model.Order) bool {
	switch actor.Role {
	case model.RoleVendor:
		return order.VendorID == actor.ID
	case model.RoleSupplier:
		return order.SupplierID == actor.ID
	case model.RoleSystem:
		return true
	}
	return false
}
