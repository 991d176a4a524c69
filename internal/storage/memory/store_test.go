package memory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	domainErrors "github.com/polkiloo/fulfillment/internal/domain/errors"
	"github.com/polkiloo/fulfillment/internal/domain/model"
)

func newTestStore() *Store {
	return New(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestRepositoryFactories(t *testing.T) {
	store := newTestStore()
	if _, ok := store.Materials().(*materialRepository); !ok {
		t.Fatalf("unexpected material repo type")
	}
	if _, ok := store.Reservations().(*reservationRepository); !ok {
		t.Fatalf("unexpected reservation repo type")
	}
	if _, ok := store.Orders().(*orderRepository); !ok {
		t.Fatalf("unexpected order repo type")
	}
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected health error: %v", err)
	}
	store.Close()
}

func TestMaterialRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore().Materials()

	m := &model.Material{ID: "m1", SupplierID: "s1", AvailableQuantity: 10, Version: 1}
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Create(ctx, m); !errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	next := *m
	next.AvailableQuantity = 12
	next.Version = 2
	if err := repo.UpdateWithVersion(ctx, &next, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.UpdateWithVersion(ctx, &next, 1); !errors.Is(err, domainErrors.ErrConflict) {
		t.Fatalf("expected conflict on stale version, got %v", err)
	}

	negative := next
	negative.AvailableQuantity = -1
	negative.Version = 3
	if err := repo.UpdateWithVersion(ctx, &negative, 2); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected validation error for negative stock, got %v", err)
	}

	got, err := repo.Get(ctx, "m1")
	if err != nil || got.AvailableQuantity != 12 || got.Version != 2 {
		t.Fatalf("unexpected material %+v err=%v", got, err)
	}

	list, err := repo.ListBySupplier(ctx, "s1")
	if err != nil || len(list) != 1 {
		t.Fatalf("unexpected list %v err=%v", list, err)
	}
}

func TestReservationApplyAndSettle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	_ = store.Materials().Create(ctx, &model.Material{ID: "m1", AvailableQuantity: 10, Version: 1})
	repo := store.Reservations()

	reserved := &model.Material{ID: "m1", AvailableQuantity: 6, ReservedQuantity: 4, Version: 2}
	res := &model.Reservation{ID: "r1", MaterialID: "m1", Quantity: 4, Status: model.ReservationReserved, CreatedAt: time.Unix(100, 0)}
	if err := repo.Apply(ctx, reserved, 1, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Apply(ctx, reserved, 2, res); !errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected duplicate reservation error, got %v", err)
	}
	other := &model.Reservation{ID: "r2", MaterialID: "m1", Quantity: 1, Status: model.ReservationReserved}
	if err := repo.Apply(ctx, reserved, 1, other); !errors.Is(err, domainErrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := repo.Get(ctx, "r2"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("conflicting apply must not insert reservation, got %v", err)
	}

	outstanding, err := repo.ListOutstanding(ctx, time.Unix(200, 0), 10)
	if err != nil || len(outstanding) != 1 {
		t.Fatalf("expected one outstanding reservation, got %v err=%v", outstanding, err)
	}

	released := &model.Material{ID: "m1", AvailableQuantity: 10, Version: 3}
	if err := repo.Settle(ctx, released, 2, "r1", model.ReservationReleased, time.Unix(300, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again := &model.Material{ID: "m1", AvailableQuantity: 14, Version: 4}
	if err := repo.Settle(ctx, again, 3, "r1", model.ReservationReleased, time.Unix(300, 0)); !errors.Is(err, domainErrors.ErrConflict) {
		t.Fatalf("expected conflict for settled reservation, got %v", err)
	}
	if err := repo.Settle(ctx, again, 3, "missing", model.ReservationReleased, time.Unix(300, 0)); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	got, _ := repo.Get(ctx, "r1")
	if got.Status != model.ReservationReleased || got.SettledAt == nil {
		t.Fatalf("unexpected reservation %+v", got)
	}
	m, _ := store.Materials().Get(ctx, "m1")
	if m.AvailableQuantity != 10 || m.ReservedQuantity != 0 {
		t.Fatalf("unexpected material after release %+v", m)
	}
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore().Orders()
	base := time.Unix(1000, 0)

	orders := []*model.Order{
		{ID: "o1", VendorID: "v1", SupplierID: "s1", ReservationID: "r1", Status: model.OrderStatusPending, Version: 1, CreatedAt: base,
			History: []model.StatusEntry{{Status: model.OrderStatusPending}}},
		{ID: "o2", VendorID: "v1", SupplierID: "s2", ReservationID: "r2", Status: model.OrderStatusPending, Version: 1, CreatedAt: base.Add(time.Minute),
			History: []model.StatusEntry{{Status: model.OrderStatusPending}}},
	}
	if err := repo.CreateBatch(ctx, orders); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dup := []*model.Order{{ID: "o3"}, {ID: "o1"}}
	if err := repo.CreateBatch(ctx, dup); !errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	if _, err := repo.Get(ctx, "o3"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("failed batch must not persist any order, got %v", err)
	}

	got, err := repo.Get(ctx, "o1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got.History[0].Note = "mutated"
	again, _ := repo.Get(ctx, "o1")
	if again.History[0].Note != "" {
		t.Fatal("repository returned shared history")
	}

	next := got.Clone()
	next.Status = model.OrderStatusAccepted
	next.History = append(next.History, model.StatusEntry{Status: model.OrderStatusAccepted})
	next.Version = 2
	if err := repo.UpdateWithVersion(ctx, &next, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.UpdateWithVersion(ctx, &next, 1); !errors.Is(err, domainErrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	shrunk := next.Clone()
	shrunk.History = shrunk.History[:1]
	if err := repo.UpdateWithVersion(ctx, &shrunk, 2); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected validation error for shrinking history, got %v", err)
	}
	if err := repo.UpdateWithVersion(ctx, &model.Order{ID: "missing"}, 1); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	byRes, err := repo.GetByReservation(ctx, "r2")
	if err != nil || byRes.ID != "o2" {
		t.Fatalf("unexpected order by reservation %+v err=%v", byRes, err)
	}
	if _, err := repo.GetByReservation(ctx, "none"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	vendorOrders, _ := repo.ListByVendor(ctx, "v1")
	if len(vendorOrders) != 2 || vendorOrders[0].ID != "o2" {
		t.Fatalf("expected newest first, got %+v", vendorOrders)
	}
	supplierOrders, _ := repo.ListBySupplier(ctx, "s1")
	if len(supplierOrders) != 1 || supplierOrders[0].Status != model.OrderStatusAccepted {
		t.Fatalf("unexpected supplier orders %+v", supplierOrders)
	}
	pending, _ := repo.ListByStatus(ctx, model.OrderStatusPending)
	if len(pending) != 1 || pending[0].ID != "o2" {
		t.Fatalf("unexpected pending orders %+v", pending)
	}
	stale, _ := repo.ListByStatusBefore(ctx, model.OrderStatusPending, base.Add(30*time.Second), 10)
	if len(stale) != 0 {
		t.Fatalf("expected no stale pending orders, got %+v", stale)
	}
	stale, _ = repo.ListByStatusBefore(ctx, model.OrderStatusPending, base.Add(time.Hour), 1)
	if len(stale) != 1 || stale[0].ID != "o2" {
		t.Fatalf("unexpected stale orders %+v", stale)
	}
}

func TestListLimitNonPositiveIsUnlimited(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore().Orders()
	base := time.Unix(1000, 0)

	var orders []*model.Order
	for i, id := range []string{"o1", "o2", "o3"} {
		orders = append(orders, &model.Order{ID: id, ReservationID: "r" + id, Status: model.OrderStatusPending, Version: 1,
			CreatedAt: base.Add(time.Duration(i) * time.Minute), History: []model.StatusEntry{{Status: model.OrderStatusPending}}})
	}
	if err := repo.CreateBatch(ctx, orders); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		limit int
		want  int
	}{
		{limit: 2, want: 2},
		{limit: 0, want: 3},
		{limit: -1, want: 3},
	}
	for _, tc := range cases {
		got, err := repo.ListByStatusBefore(ctx, model.OrderStatusPending, base.Add(time.Hour), tc.limit)
		if err != nil || len(got) != tc.want {
			t.Fatalf("limit %d: want %d orders, got %d err=%v", tc.limit, tc.want, len(got), err)
		}
		if got[0].ID != "o1" {
			t.Fatalf("limit %d: expected oldest first, got %s", tc.limit, got[0].ID)
		}
	}
}
