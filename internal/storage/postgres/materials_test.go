package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmockv3 "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/fulfillment/internal/domain/errors"
	"github.com/polkiloo/fulfillment/internal/domain/model"
)

var materialRowColumns = []string{"id", "supplier_id", "name", "price_per_unit", "available_quantity", "reserved_quantity", "version", "created_at", "updated_at"}

func TestMaterialRepositoryCreate(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &materialRepository{storage: storage}

	now := time.Now()
	m := &model.Material{ID: "m1", SupplierID: "s1", Name: "cement", PricePerUnit: decimal.RequireFromString("2.50"),
		AvailableQuantity: 10, Version: 1, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO materials").
		WithArgs("m1", "s1", "cement", pgxmockv3.AnyArg(), int64(10), int64(0), int64(1), now, now).
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	if err := repo.Create(context.Background(), m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectExec("INSERT INTO materials").WillReturnError(&pgconn.PgError{Code: "23505"})
	if err := repo.Create(context.Background(), m); !errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	mock.ExpectExec("INSERT INTO materials").WillReturnError(errors.New("other"))
	if err := repo.Create(context.Background(), m); err == nil || errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected raw error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestMaterialRepositoryGetAndList(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &materialRepository{storage: storage}

	now := time.Now()
	mock.ExpectQuery("SELECT id, supplier_id, name, price_per_unit").WithArgs("m1").WillReturnRows(
		pgxmockv3.NewRows(materialRowColumns).AddRow("m1", "s1", "cement", decimal.RequireFromString("2.5"), int64(4), int64(6), int64(3), now, now))
	m, err := repo.Get(context.Background(), "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.AvailableQuantity != 4 || m.ReservedQuantity != 6 || m.Version != 3 || !m.PricePerUnit.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("unexpected material %+v", m)
	}

	mock.ExpectQuery("SELECT id, supplier_id, name, price_per_unit").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mock.ExpectQuery("SELECT id, supplier_id, name, price_per_unit").WithArgs("err").WillReturnError(errors.New("fail"))
	if _, err := repo.Get(context.Background(), "err"); err == nil {
		t.Fatal("expected error")
	}

	mock.ExpectQuery("FROM materials WHERE supplier_id=").WithArgs("s1").WillReturnRows(
		pgxmockv3.NewRows(materialRowColumns).
			AddRow("m1", "s1", "cement", decimal.RequireFromString("2.5"), int64(4), int64(6), int64(3), now, now).
			AddRow("m2", "s1", "sand", decimal.NewFromInt(1), int64(9), int64(0), int64(1), now, now))
	list, err := repo.ListBySupplier(context.Background(), "s1")
	if err != nil || len(list) != 2 {
		t.Fatalf("unexpected list %v err=%v", list, err)
	}

	mock.ExpectQuery("FROM materials WHERE supplier_id=").WithArgs("s2").WillReturnError(errors.New("query"))
	if _, err := repo.ListBySupplier(context.Background(), "s2"); err == nil {
		t.Fatal("expected error")
	}

	mock.ExpectQuery("FROM materials WHERE supplier_id=").WithArgs("s3").WillReturnRows(
		pgxmockv3.NewRows(materialRowColumns).AddRow("m1", "s1", "cement", decimal.RequireFromString("2.5"), "bad", int64(6), int64(3), now, now))
	if _, err := repo.ListBySupplier(context.Background(), "s3"); err == nil {
		t.Fatal("expected scan error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestMaterialRepositoryListRowsError(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &materialRepository{storage: storage}

	mock.ExpectQuery("FROM materials WHERE supplier_id=").WithArgs("s1").WillReturnRows(failingRows("rows err"))

	if _, err := repo.ListBySupplier(context.Background(), "s1"); err == nil || err.Error() != "rows err" {
		t.Fatalf("expected rows err, got %v", err)
	}
}

func TestMaterialRepositoryUpdateWithVersion(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &materialRepository{storage: storage}

	now := time.Now()
	m := &model.Material{ID: "m1", Name: "cement", PricePerUnit: decimal.NewFromInt(3), AvailableQuantity: 12, Version: 2, UpdatedAt: now}

	mock.ExpectExec("UPDATE materials SET").
		WithArgs("m1", int64(1), "cement", pgxmockv3.AnyArg(), int64(12), int64(0), int64(2), now).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	if err := repo.UpdateWithVersion(context.Background(), m, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectExec("UPDATE materials SET").WillReturnResult(pgxmockv3.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT 1 FROM materials WHERE id=").WithArgs("m1").WillReturnRows(pgxmockv3.NewRows([]string{"one"}).AddRow(1))
	if err := repo.UpdateWithVersion(context.Background(), m, 1); !errors.Is(err, domainErrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	mock.ExpectExec("UPDATE materials SET").WillReturnResult(pgxmockv3.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT 1 FROM materials WHERE id=").WithArgs("m1").WillReturnError(pgx.ErrNoRows)
	if err := repo.UpdateWithVersion(context.Background(), m, 1); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mock.ExpectExec("UPDATE materials SET").WillReturnError(errors.New("update"))
	if err := repo.UpdateWithVersion(context.Background(), m, 1); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
