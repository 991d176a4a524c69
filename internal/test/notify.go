package test

import (
	"context"
	"sync"

	"github.com/polkiloo/fulfillment/internal/domain/model"
)

// EmitterRecorder records status changes and optionally fails.
type EmitterRecorder struct {
	mu      sync.Mutex
	Changes []model.StatusChange
	Err     error
}

// Notify stores the change.
func (e *EmitterRecorder) Notify(_ context.Context, orderID string, previous, current model.OrderStatus) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Changes = append(e.Changes, model.StatusChange{OrderID: orderID, Previous: previous, Current: current})
	return e.Err
}

// Recorded returns a copy of the recorded changes.
func (e *EmitterRecorder) Recorded() []model.StatusChange {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.StatusChange(nil), e.Changes...)
}

// OrderCacheStub is an in-process order cache with injectable failures.
type OrderCacheStub struct {
	mu          sync.Mutex
	Orders      map[string]model.Order
	GetErr      error
	SetErr      error
	Invalidated []string
}

// Get returns a cached copy.
func (c *OrderCacheStub) Get(_ context.Context, orderID string) (*model.Order, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return nil, false, c.GetErr
	}
	o, ok := c.Orders[orderID]
	if !ok {
		return nil, false, nil
	}
	clone := o.Clone()
	return &clone, true, nil
}

// Set stores a copy unless the cached one is at least as new.
func (c *OrderCacheStub) Set(_ context.Context, order *model.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SetErr != nil {
		return c.SetErr
	}
	if c.Orders == nil {
		c.Orders = make(map[string]model.Order)
	}
	if cached, ok := c.Orders[order.ID]; ok && cached.Version >= order.Version {
		return nil
	}
	c.Orders[order.ID] = order.Clone()
	return nil
}

// Invalidate drops the entry.
func (c *OrderCacheStub) Invalidate(_ context.Context, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Invalidated = append(c.Invalidated, orderID)
	delete(c.Orders, orderID)
	return nil
}

// LedgerStub overrides stock settlement.
type LedgerStub struct {
	ReserveFn func(context.Context, string, int64) (model.ReservationToken, error)
	CommitFn  func(context.Context, model.ReservationToken) error
	ReleaseFn func(context.Context, model.ReservationToken) error
}

// Reserve delegates to the override.
func (l LedgerStub) Reserve(ctx context.Context, materialID string, quantity int64) (model.ReservationToken, error) {
	if l.ReserveFn != nil {
		return l.ReserveFn(ctx, materialID, quantity)
	}
	return model.ReservationToken{ID: "r-" + materialID, MaterialID: materialID, Quantity: quantity}, nil
}

// Commit delegates to the override.
func (l LedgerStub) Commit(ctx context.Context, token model.ReservationToken) error {
	if l.CommitFn != nil {
		return l.CommitFn(ctx, token)
	}
	return nil
}

// Release delegates to the override.
func (l LedgerStub) Release(ctx context.Context, token model.ReservationToken) error {
	if l.ReleaseFn != nil {
		return l.ReleaseFn(ctx, token)
	}
	return nil
}
