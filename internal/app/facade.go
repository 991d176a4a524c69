package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/fulfillment/internal/domain/model"
	"github.com/polkiloo/fulfillment/internal/usecase"
)

// HealthChecker reports whether storage is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// FulfillmentFacade exposes use cases to the HTTP layer and background workers.
type FulfillmentFacade struct {
	auth       *usecase.AuthUseCase
	ledger     *usecase.InventoryLedger
	machine    *usecase.OrderStateMachine
	checkout   *usecase.CheckoutOrchestrator
	queries    *usecase.OrderQueryUseCase
	reconciler *usecase.Reconciler
	health     HealthChecker
}

// NewFulfillmentFacade constructs FulfillmentFacade.
func NewFulfillmentFacade(
	auth *usecase.AuthUseCase,
	ledger *usecase.InventoryLedger,
	machine *usecase.OrderStateMachine,
	checkout *usecase.CheckoutOrchestrator,
	queries *usecase.OrderQueryUseCase,
	reconciler *usecase.Reconciler,
	health HealthChecker,
) *FulfillmentFacade {
	return &FulfillmentFacade{
		auth:       auth,
		ledger:     ledger,
		machine:    machine,
		checkout:   checkout,
		queries:    queries,
		reconciler: reconciler,
		health:     health,
	}
}

func (f *FulfillmentFacade) ParseToken(token string) (model.Actor, error) {
	return f.auth.ParseToken(token)
}

func (f *FulfillmentFacade) Checkout(ctx context.Context, vendorID string, items []model.CartItem) (*model.CheckoutResult, error) {
	return f.checkout.Checkout(ctx, vendorID, items)
}

func (f *FulfillmentFacade) Transition(ctx context.Context, actor model.Actor, orderID string, target model.OrderStatus, note string) (*model.Order, error) {
	return f.machine.ApplyTransition(ctx, orderID, target, actor, note)
}

func (f *FulfillmentFacade) Order(ctx context.Context, actor model.Actor, orderID string) (*model.Order, error) {
	return f.queries.Get(ctx, actor, orderID)
}

func (f *FulfillmentFacade) Orders(ctx context.Context, actor model.Actor, status model.OrderStatus) ([]model.Order, error) {
	return f.queries.List(ctx, actor, status)
}

func (f *FulfillmentFacade) RegisterMaterial(ctx context.Context, actor model.Actor, name string, price decimal.Decimal, quantity int64) (*model.Material, error) {
	return f.ledger.RegisterMaterial(ctx, actor, name, price, quantity)
}

func (f *FulfillmentFacade) Material(ctx context.Context, materialID string) (*model.Material, error) {
	return f.ledger.Material(ctx, materialID)
}

func (f *FulfillmentFacade) Materials(ctx context.Context, supplierID string) ([]model.Material, error) {
	return f.ledger.Materials(ctx, supplierID)
}

func (f *FulfillmentFacade) Restock(ctx context.Context, actor model.Actor, materialID string, quantity int64) (*model.Material, error) {
	return f.ledger.Restock(ctx, actor, materialID, quantity)
}

func (f *FulfillmentFacade) Reprice(ctx context.Context, actor model.Actor, materialID string, price decimal.Decimal) (*model.Material, error) {
	return f.ledger.Reprice(ctx, actor, materialID, price)
}

func (f *FulfillmentFacade) HealthCheck(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}

func (f *FulfillmentFacade) StalePending(ctx context.Context, before time.Time, limit int) ([]model.Order, error) {
	return f.machine.StalePending(ctx, before, limit)
}

func (f *FulfillmentFacade) ExpirePending(ctx context.Context, order model.Order) error {
	return f.machine.ExpirePending(ctx, order)
}

func (f *FulfillmentFacade) Outstanding(ctx context.Context, limit int) ([]model.Reservation, error) {
	return f.reconciler.Outstanding(ctx, limit)
}

func (f *FulfillmentFacade) Reconcile(ctx context.Context, reservation model.Reservation) error {
	return f.reconciler.Reconcile(ctx, reservation)
}
