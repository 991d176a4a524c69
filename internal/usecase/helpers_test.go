package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/fulfillment/internal/domain/model"
	"github.com/polkiloo/fulfillment/internal/storage/memory"
	testhelpers "github.com/polkiloo/fulfillment/internal/test"
)

var (
	vendor   = model.Actor{ID: "vendor-1", Role: model.RoleVendor}
	supplier = model.Actor{ID: "supplier-1", Role: model.RoleSupplier}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fixture struct {
	store    *memory.Store
	ledger   *InventoryLedger
	machine  *OrderStateMachine
	checkout *CheckoutOrchestrator
	emitter  *testhelpers.EmitterRecorder
	cache    *testhelpers.OrderCacheStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New(discardLogger())
	ledger := NewInventoryLedger(store.Materials(), store.Reservations(), 0, discardLogger())
	emitter := &testhelpers.EmitterRecorder{}
	cache := &testhelpers.OrderCacheStub{}
	return &fixture{
		store:    store,
		ledger:   ledger,
		machine:  NewOrderStateMachine(store.Orders(), ledger, emitter, cache, discardLogger()),
		checkout: NewCheckoutOrchestrator(store.Materials(), store.Orders(), ledger, discardLogger()),
		emitter:  emitter,
		cache:    cache,
	}
}

func (f *fixture) material(t *testing.T, owner model.Actor, price string, quantity int64) *model.Material {
	t.Helper()
	m, err := f.ledger.RegisterMaterial(context.Background(), owner, testhelpers.RandomASCIIString(4, 12), decimal.RequireFromString(price), quantity)
	if err != nil {
		t.Fatalf("register material: %v", err)
	}
	return m
}

func (f *fixture) stock(t *testing.T, materialID string) model.Material {
	t.Helper()
	m, err := f.store.Materials().Get(context.Background(), materialID)
	if err != nil {
		t.Fatalf("get material: %v", err)
	}
	return *m
}

func (f *fixture) order(t *testing.T, m *model.Material, quantity int64) model.Order {
	t.Helper()
	result, err := f.checkout.Checkout(context.Background(), vendor.ID, []model.CartItem{
		{MaterialID: m.ID, SupplierID: m.SupplierID, Quantity: quantity},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	return result.Orders[0]
}

func (f *fixture) reservation(t *testing.T, id string) model.Reservation {
	t.Helper()
	res, err := f.store.Reservations().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get reservation: %v", err)
	}
	return *res
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
