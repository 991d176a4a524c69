package test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/fulfillment/internal/domain/model"
)

// TransitionCall stores information about Transition invocations.
type TransitionCall struct {
	Actor   model.Actor
	OrderID string
	Target  model.OrderStatus
	Note    string
}

// FulfillmentFacadeStub provides controllable behaviour for HTTP handlers.
type FulfillmentFacadeStub struct {
	ParseFn            func(string) (model.Actor, error)
	CheckoutFn         func(context.Context, string, []model.CartItem) (*model.CheckoutResult, error)
	TransitionFn       func(context.Context, model.Actor, string, model.OrderStatus, string) (*model.Order, error)
	OrderFn            func(context.Context, model.Actor, string) (*model.Order, error)
	OrdersFn           func(context.Context, model.Actor, model.OrderStatus) ([]model.Order, error)
	RegisterMaterialFn func(context.Context, model.Actor, string, decimal.Decimal, int64) (*model.Material, error)
	MaterialFn         func(context.Context, string) (*model.Material, error)
	MaterialsFn        func(context.Context, string) ([]model.Material, error)
	RestockFn          func(context.Context, model.Actor, string, int64) (*model.Material, error)
	RepriceFn          func(context.Context, model.Actor, string, decimal.Decimal) (*model.Material, error)
	HealthErr          error

	mu          sync.Mutex
	Transitions []TransitionCall
}

// ParseToken treats the token as "role:id" unless overridden.
func (s *FulfillmentFacadeStub) ParseToken(token string) (model.Actor, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	if role, id, ok := strings.Cut(token, ":"); ok {
		return model.Actor{Role: model.Role(role), ID: id}, nil
	}
	return model.Actor{ID: token, Role: model.RoleVendor}, nil
}

// Checkout delegates to override or places one order per item.
func (s *FulfillmentFacadeStub) Checkout(ctx context.Context, vendorID string, items []model.CartItem) (*model.CheckoutResult, error) {
	if s.CheckoutFn != nil {
		return s.CheckoutFn(ctx, vendorID, items)
	}
	result := &model.CheckoutResult{}
	for i, item := range items {
		result.Orders = append(result.Orders, model.Order{
			ID:         fmt.Sprintf("order-%d", i+1),
			VendorID:   vendorID,
			SupplierID: item.SupplierID,
			MaterialID: item.MaterialID,
			Quantity:   item.Quantity,
			Status:     model.OrderStatusPending,
			Version:    1,
		})
	}
	return result, nil
}

// Transition records the call and returns the moved order.
func (s *FulfillmentFacadeStub) Transition(ctx context.Context, actor model.Actor, orderID string, target model.OrderStatus, note string) (*model.Order, error) {
	s.mu.Lock()
	s.Transitions = append(s.Transitions, TransitionCall{Actor: actor, OrderID: orderID, Target: target, Note: note})
	s.mu.Unlock()
	if s.TransitionFn != nil {
		return s.TransitionFn(ctx, actor, orderID, target, note)
	}
	return &model.Order{ID: orderID, Status: target, Version: 2}, nil
}

// Recorded returns a copy of transition calls.
func (s *FulfillmentFacadeStub) Recorded() []TransitionCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TransitionCall(nil), s.Transitions...)
}

// Order returns override result or a pending order.
func (s *FulfillmentFacadeStub) Order(ctx context.Context, actor model.Actor, orderID string) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, actor, orderID)
	}
	return &model.Order{ID: orderID, VendorID: actor.ID, Status: model.OrderStatusPending, Version: 1}, nil
}

// Orders returns override result or nothing.
func (s *FulfillmentFacadeStub) Orders(ctx context.Context, actor model.Actor, status model.OrderStatus) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, actor, status)
	}
	return nil, nil
}

// RegisterMaterial returns override result or echoes the input.
func (s *FulfillmentFacadeStub) RegisterMaterial(ctx context.Context, actor model.Actor, name string, price decimal.Decimal, quantity int64) (*model.Material, error) {
	if s.RegisterMaterialFn != nil {
		return s.RegisterMaterialFn(ctx, actor, name, price, quantity)
	}
	return &model.Material{ID: "m1", SupplierID: actor.ID, Name: name, PricePerUnit: price, AvailableQuantity: quantity, Version: 1}, nil
}

// Material returns override result or a default record.
func (s *FulfillmentFacadeStub) Material(ctx context.Context, materialID string) (*model.Material, error) {
	if s.MaterialFn != nil {
		return s.MaterialFn(ctx, materialID)
	}
	return &model.Material{ID: materialID, Version: 1}, nil
}

// Materials returns override result or nothing.
func (s *FulfillmentFacadeStub) Materials(ctx context.Context, supplierID string) ([]model.Material, error) {
	if s.MaterialsFn != nil {
		return s.MaterialsFn(ctx, supplierID)
	}
	return nil, nil
}

// Restock returns override result or a record holding quantity.
func (s *FulfillmentFacadeStub) Restock(ctx context.Context, actor model.Actor, materialID string, quantity int64) (*model.Material, error) {
	if s.RestockFn != nil {
		return s.RestockFn(ctx, actor, materialID, quantity)
	}
	return &model.Material{ID: materialID, SupplierID: actor.ID, AvailableQuantity: quantity, Version: 2}, nil
}

// Reprice returns override result or a record with the price.
func (s *FulfillmentFacadeStub) Reprice(ctx context.Context, actor model.Actor, materialID string, price decimal.Decimal) (*model.Material, error) {
	if s.RepriceFn != nil {
		return s.RepriceFn(ctx, actor, materialID, price)
	}
	return &model.Material{ID: materialID, SupplierID: actor.ID, PricePerUnit: price, Version: 2}, nil
}

// HealthCheck returns the configured error.
func (s *FulfillmentFacadeStub) HealthCheck(context.Context) error {
	return s.HealthErr
}

// SourceStub feeds worker pools from queued batches and records handled items.
type SourceStub[T any] struct {
	Batches  [][]T
	FetchFn  func(context.Context, int) ([]T, error)
	HandleFn func(context.Context, T) error
	Handled  []T
	mu       sync.Mutex
	calls    int32
}

// Lock exposes internal mutex for external synchronization.
func (s *SourceStub[T]) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *SourceStub[T]) Unlock() { s.mu.Unlock() }

// Fetch returns the next queued batch.
func (s *SourceStub[T]) Fetch(ctx context.Context, limit int) ([]T, error) {
	if s.FetchFn != nil {
		return s.FetchFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.calls, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// Handle records the item.
func (s *SourceStub[T]) Handle(ctx context.Context, item T) error {
	s.mu.Lock()
	s.Handled = append(s.Handled, item)
	s.mu.Unlock()
	if s.HandleFn != nil {
		return s.HandleFn(ctx, item)
	}
	return nil
}

// HandledCount returns how many items were handled so far.
func (s *SourceStub[T]) HandledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Handled)
}
