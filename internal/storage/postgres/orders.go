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
	orderColumns  = `id, vendor_id, supplier_id, material_id, reservation_id, quantity, unit_price, total_amount, status, version, created_at, updated_at`
	orderExists   = `SELECT 1 FROM orders WHERE id=$1`
	insertHistory = `INSERT INTO order_status_history (order_id, seq, status, actor_id, actor_role, note, at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	selectHistory = `SELECT order_id, status, actor_id, actor_role, note, at FROM order_status_history
                     WHERE order_id = ANY($1) ORDER BY order_id, seq`
)

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.CreateBatch(ctx, []*model.Order{order})
}

func (r *orderRepository) CreateBatch(ctx context.Context, orders []*model.Order) error {
	const insert = `INSERT INTO orders (` + orderColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		for _, o := range orders {
			_, err := tx.Exec(ctx, insert,
				o.ID, o.VendorID, o.SupplierID, o.MaterialID, o.ReservationID, o.Quantity,
				o.UnitPriceSnapshot, o.TotalAmount, o.Status, o.Version, o.CreatedAt, o.UpdatedAt)
			if err != nil {
				if isUniqueViolation(err) {
					return domainErrors.ErrAlreadyExists
				}
				return err
			}
			if err := appendHistory(ctx, tx, o.ID, o.History, 0); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *orderRepository) Get(ctx context.Context, orderID string) (*model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	return r.getOne(ctx, query, orderID)
}

func (r *orderRepository) GetByReservation(ctx context.Context, reservationID string) (*model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE reservation_id=$1`
	return r.getOne(ctx, query, reservationID)
}

func (r *orderRepository) getOne(ctx context.Context, query string, arg string) (*model.Order, error) {
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	orders := []model.Order{*order}
	if err := attachHistory(ctx, r.storage.pool, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *orderRepository) UpdateWithVersion(ctx context.Context, order *model.Order, expectedVersion int64) error {
	const update = `UPDATE orders SET status=$3, version=$4, updated_at=$5 WHERE id=$1 AND version=$2`
	if expectedVersion > int64(len(order.History)) {
		return domainErrors.Validation("status history of order %s cannot shrink", order.ID)
	}
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, update, order.ID, expectedVersion, order.Status, order.Version, order.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return missingOrConflict(ctx, tx, orderExists, order.ID)
		}
		return appendHistory(ctx, tx, order.ID, order.History, int(expectedVersion))
	})
}

func (r *orderRepository) ListByVendor(ctx context.Context, vendorID string) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE vendor_id=$1 ORDER BY created_at DESC, id`
	return r.list(ctx, query, vendorID)
}

func (r *orderRepository) ListBySupplier(ctx context.Context, supplierID string) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE supplier_id=$1 ORDER BY created_at DESC, id`
	return r.list(ctx, query, supplierID)
}

func (r *orderRepository) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE status=$1 ORDER BY created_at DESC, id`
	return r.list(ctx, query, status)
}

func (r *orderRepository) ListByStatusBefore(ctx context.Context, status model.OrderStatus, before time.Time, limit int) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE status=$1 AND created_at < $2 ORDER BY created_at, id LIMIT $3`
	return r.list(ctx, query, status, before, limitArg(limit))
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachHistory(ctx, r.storage.pool, result); err != nil {
		return nil, err
	}
	return result, nil
}

func appendHistory(ctx context.Context, q querier, orderID string, history []model.StatusEntry, from int) error {
	for i := from; i < len(history); i++ {
		e := history[i]
		if _, err := q.Exec(ctx, insertHistory, orderID, int64(i+1), e.Status, e.ActorID, e.ActorRole, e.Note, e.At); err != nil {
			return err
		}
	}
	return nil
}

func attachHistory(ctx context.Context, q querier, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := q.Query(ctx, selectHistory, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			e       model.StatusEntry
		)
		if err := rows.Scan(&orderID, &e.Status, &e.ActorID, &e.ActorRole, &e.Note, &e.At); err != nil {
			return err
		}
		if i, ok := index[orderID]; ok {
			orders[i].History = append(orders[i].History, e)
		}
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.VendorID, &o.SupplierID, &o.MaterialID, &o.ReservationID, &o.Quantity,
		&o.UnitPriceSnapshot, &o.TotalAmount, &o.Status, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
