package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/fulfillment/internal/domain/errors"
	"github.com/polkiloo/fulfillment/internal/domain/model"
)

const (
	reservationColumns = `id, material_id, supplier_id, quantity, unit_price, status, created_at, settled_at`
	reservationExists  = `SELECT 1 FROM reservations WHERE id=$1`
)

func (r *reservationRepository) Get(ctx context.Context, reservationID string) (*model.Reservation, error) {
	const query = `SELECT ` + reservationColumns + ` FROM reservations WHERE id=$1`
	res, err := scanReservation(r.storage.pool.QueryRow(ctx, query, reservationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

func (r *reservationRepository) Apply(ctx context.Context, m *model.Material, expectedVersion int64, res *model.Reservation) error {
	const insert = `INSERT INTO reservations (` + reservationColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if err := writeMaterial(ctx, tx, m, expectedVersion); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, insert,
			res.ID, res.MaterialID, res.SupplierID, res.Quantity, res.UnitPrice, res.Status, res.CreatedAt, res.SettledAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domainErrors.ErrAlreadyExists
			}
			return err
		}
		return nil
	})
}

func (r *reservationRepository) Settle(ctx context.Context, m *model.Material, expectedVersion int64, reservationID string, status model.ReservationStatus, at time.Time) error {
	const settle = `UPDATE reservations SET status=$2, settled_at=$3 WHERE id=$1 AND status='reserved'`
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, settle, reservationID, status, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return missingOrConflict(ctx, tx, reservationExists, reservationID)
		}
		return writeMaterial(ctx, tx, m, expectedVersion)
	})
}

func (r *reservationRepository) ListOutstanding(ctx context.Context, olderThan time.Time, limit int) ([]model.Reservation, error) {
	const query = `SELECT ` + reservationColumns + ` FROM reservations
                   WHERE status='reserved' AND created_at < $1
                   ORDER BY created_at
                   LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, olderThan, limitArg(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(&res.ID, &res.MaterialID, &res.SupplierID, &res.Quantity, &res.UnitPrice, &res.Status, &res.CreatedAt, &res.SettledAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
