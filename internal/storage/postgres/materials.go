package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/fulfillment/internal/domain/errors"
	"github.com/polkiloo/fulfillment/internal/domain/model"
)

const (
	materialColumns = `id, supplier_id, name, price_per_unit, available_quantity, reserved_quantity, version, created_at, updated_at`
	materialExists  = `SELECT 1 FROM materials WHERE id=$1`
	updateMaterial  = `UPDATE materials SET name=$3, price_per_unit=$4, available_quantity=$5, reserved_quantity=$6, version=$7, updated_at=$8
                      WHERE id=$1 AND version=$2`
)

func (r *materialRepository) Create(ctx context.Context, m *model.Material) error {
	const query = `INSERT INTO materials (` + materialColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.storage.pool.Exec(ctx, query,
		m.ID, m.SupplierID, m.Name, m.PricePerUnit, m.AvailableQuantity, m.ReservedQuantity, m.Version, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *materialRepository) Get(ctx context.Context, materialID string) (*model.Material, error) {
	const query = `SELECT ` + materialColumns + ` FROM materials WHERE id=$1`
	m, err := scanMaterial(r.storage.pool.QueryRow(ctx, query, materialID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *materialRepository) ListBySupplier(ctx context.Context, supplierID string) ([]model.Material, error) {
	const query = `SELECT ` + materialColumns + ` FROM materials WHERE supplier_id=$1 ORDER BY created_at, id`
	rows, err := r.storage.pool.Query(ctx, query, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *materialRepository) UpdateWithVersion(ctx context.Context, m *model.Material, expectedVersion int64) error {
	return writeMaterial(ctx, r.storage.pool, m, expectedVersion)
}

func writeMaterial(ctx context.Context, q querier, m *model.Material, expectedVersion int64) error {
	tag, err := q.Exec(ctx, updateMaterial,
		m.ID, expectedVersion, m.Name, m.PricePerUnit, m.AvailableQuantity, m.ReservedQuantity, m.Version, m.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return missingOrConflict(ctx, q, materialExists, m.ID)
	}
	return nil
}

func scanMaterial(row pgx.Row) (*model.Material, error) {
	var m model.Material
	err := row.Scan(&m.ID, &m.SupplierID, &m.Name, &m.PricePerUnit, &m.AvailableQuantity, &m.ReservedQuantity, &m.Version, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
