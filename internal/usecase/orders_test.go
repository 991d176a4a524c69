package usecase

import (
	"context"
	"errors"
	"testing"

	domainErrors "github.com/polkiloo/fulfillment/internal/domain/errors"
	"github.com/polkiloo/fulfillment/internal/domain/model"
	testhelpers "github.com/polkiloo/fulfillment/internal/test"
)

func TestOrderQueryGetReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	order := placeAt(t, f, model.OrderStatusPending)
	queries := NewOrderQueryUseCase(f.store.Orders(), f.cache, discardLogger())

	got, err := queries.Get(context.Background(), vendor, order.ID)
	if err != nil || got.ID != order.ID {
		t.Fatalf("get: %+v %v", got, err)
	}
	if _, ok := f.cache.Orders[order.ID]; !ok {
		t.Fatal("expected order to be cached")
	}

	cached := f.cache.Orders[order.ID]
	cached.Quantity = 99
	f.cache.Orders[order.ID] = cached
	got, err = queries.Get(context.Background(), supplier, order.ID)
	if err != nil || got.Quantity != 99 {
		t.Fatalf("expected cached copy, got %+v %v", got, err)
	}
}

func TestOrderQueryGetDoesNotCacheOverNewerTransition(t *testing.T) {
	f := newFixture(t)
	order := placeAt(t, f, model.OrderStatusPending)
	ctx := context.Background()

	// The transition lands between the repository read and the cache write.
	interleaved := false
	orders := &testhelpers.OrderRepositoryStub{
		OrderRepository: f.store.Orders(),
		GetFn: func(ctx context.Context, id string) (*model.Order, error) {
			read, err := f.store.Orders().Get(ctx, id)
			if err != nil || interleaved {
				return read, err
			}
			interleaved = true
			if _, err := f.machine.ApplyTransition(ctx, id, model.OrderStatusAccepted, supplier, ""); err != nil {
				t.Fatalf("apply: %v", err)
			}
			return read, nil
		},
	}
	queries := NewOrderQueryUseCase(orders, f.cache, discardLogger())

	first, err := queries.Get(ctx, vendor, order.ID)
	if err != nil || first.Status != model.OrderStatusPending || first.Version != 1 {
		t.Fatalf("first read: %+v %v", first, err)
	}
	got, err := queries.Get(ctx, vendor, order.ID)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if got.Status != model.OrderStatusAccepted || got.Version != 2 {
		t.Fatalf("stale order served from cache: status=%s version=%d", got.Status, got.Version)
	}
}

func TestOrderQueryGetFallsBackWhenCacheFails(t *testing.T) {
	f := newFixture(t)
	order := placeAt(t, f, model.OrderStatusPending)
	f.cache.GetErr = errors.New("redis down")
	f.cache.SetErr = errors.New("redis down")
	queries := NewOrderQueryUseCase(f.store.Orders(), f.cache, discardLogger())

	got, err := queries.Get(context.Background(), vendor, order.ID)
	if err != nil || got.ID != order.ID {
		t.Fatalf("expected repository read, got %+v %v", got, err)
	}
}

func TestOrderQueryGetAccessControl(t *testing.T) {
	f := newFixture(t)
	order := placeAt(t, f, model.OrderStatusPending)
	queries := NewOrderQueryUseCase(f.store.Orders(), f.cache, discardLogger())
	ctx := context.Background()

	for _, actor := range []model.Actor{
		{ID: "vendor-2", Role: model.RoleVendor},
		{ID: "supplier-2", Role: model.RoleSupplier},
		model.SystemActor,
	} {
		if _, err := queries.Get(ctx, actor, order.ID); !errors.Is(err, domainErrors.ErrForbidden) {
			t.Fatalf("expected forbidden for %+v, got %v", actor, err)
		}
	}
	if _, err := queries.Get(ctx, vendor, ""); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := queries.Get(ctx, vendor, "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOrderQueryList(t *testing.T) {
	f := newFixture(t)
	pending := placeAt(t, f, model.OrderStatusPending)
	accepted := placeAt(t, f, model.OrderStatusAccepted)
	queries := NewOrderQueryUseCase(f.store.Orders(), f.cache, discardLogger())
	ctx := context.Background()

	all, err := queries.List(ctx, vendor, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("list: %+v %v", all, err)
	}
	bySupplier, err := queries.List(ctx, supplier, model.OrderStatusAccepted)
	if err != nil || len(bySupplier) != 1 || bySupplier[0].ID != accepted.ID {
		t.Fatalf("filtered list: %+v %v", bySupplier, err)
	}
	onlyPending, _ := queries.List(ctx, vendor, model.OrderStatusPending)
	if len(onlyPending) != 1 || onlyPending[0].ID != pending.ID {
		t.Fatalf("unexpected pending list %+v", onlyPending)
	}
	if other, _ := queries.List(ctx, model.Actor{ID: "vendor-2", Role: model.RoleVendor}, ""); len(other) != 0 {
		t.Fatalf("foreign vendor sees orders: %+v", other)
	}

	if _, err := queries.List(ctx, vendor, "shipped"); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := queries.List(ctx, model.SystemActor, ""); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	orders := &testhelpers.OrderRepositoryStub{ListByVendorFn: func(context.Context, string) ([]model.Order, error) {
		return nil, errors.New("timeout")
	}}
	broken := NewOrderQueryUseCase(orders, f.cache, discardLogger())
	if _, err := broken.List(ctx, vendor, ""); !errors.Is(err, domainErrors.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}
