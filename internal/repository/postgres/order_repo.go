package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/digistore/internal/errs"
	"github.com/and161185/digistore/internal/model"
)

// OrderRepo implements OrderRepository using PostgreSQL.
type OrderRepo struct{ db *DB }

// NewOrderRepo constructs an order repository.
func NewOrderRepo(db *DB) *OrderRepo { return &OrderRepo{db: db} }

const (
	selOrder = `
SELECT id, user_id, status, total_iqd, total_usd, created_at
FROM orders`

	selItems = `
SELECT id, order_id, item_type, product_id, service_id, package_id, title, quantity,
       unit_price_iqd, unit_price_usd, line_total_iqd, line_total_usd, service_request_id
FROM order_items
WHERE order_id = ANY($1)
ORDER BY order_id, position`

	selPayment = `
SELECT id, order_id, provider, provider_ref, status, amount_iqd, amount_usd, created_at, updated_at
FROM payments`
)

// Create inserts the order, its service requests, lines and payments atomically.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	const (
		insOrder = `
INSERT INTO orders (id, user_id, status, total_iqd, total_usd, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`
		insRequest = `
INSERT INTO service_requests (id, service_id, package_id, user_id, notes, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
		insItem = `
INSERT INTO order_items (id, order_id, position, item_type, product_id, service_id, package_id, title, quantity,
    unit_price_iqd, unit_price_usd, line_total_iqd, line_total_usd, service_request_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
		insPayment = `
INSERT INTO payments (id, order_id, provider, provider_ref, status, amount_iqd, amount_usd, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	)

	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insOrder,
			o.ID, o.UserID, o.Status, o.Total.IQD, o.Total.USD, o.CreatedAt); err != nil {
			return err
		}
		for i := range o.Items {
			it := &o.Items[i]
			if sr := it.ServiceRequest; sr != nil {
				if _, err := tx.Exec(ctx, insRequest,
					sr.ID, sr.ServiceID, sr.PackageID, sr.UserID, sr.Notes, sr.Status, sr.CreatedAt); err != nil {
					return err
				}
				it.ServiceRequestID = &sr.ID
			}
			if _, err := tx.Exec(ctx, insItem,
				it.ID, o.ID, i, it.ItemType, it.ProductID, it.ServiceID, it.PackageID, it.Title, it.Quantity,
				it.UnitPrice.IQD, it.UnitPrice.USD, it.LineTotal.IQD, it.LineTotal.USD, it.ServiceRequestID); err != nil {
				return err
			}
		}
		for _, p := range o.Payments {
			if _, err := tx.Exec(ctx, insPayment,
				p.ID, o.ID, p.Provider, p.ProviderRef, p.Status, p.Amount.IQD, p.Amount.USD, p.CreatedAt, p.UpdatedAt); err != nil {
				return err
			}
		}
		return nil
	})
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID loads any order by id.
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, selOrder+` WHERE id=$1`, id)
}

// GetForUser loads an order only when user_id matches.
func (r *OrderRepo) GetForUser(ctx context.Context, id, userID uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, selOrder+` WHERE id=$1 AND user_id=$2`, id, userID)
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx, selOrder+` WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

// ListAll returns a page of all orders, newest first.
func (r *OrderRepo) ListAll(ctx context.Context, limit, offset int) ([]model.Order, error) {
	return r.list(ctx, selOrder+` ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *OrderRepo) getOne(ctx context.Context, q string, args ...any) (*model.Order, error) {
	orders, err := r.list(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, errs.ErrNotFound
	}
	return &orders[0], nil
}

func (r *OrderRepo) list(ctx context.Context, q string, args ...any) ([]model.Order, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var out []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.Total.IQD, &o.Total.USD, &o.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	if err := r.loadChildren(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadChildren fills Items and Payments of orders with two batched queries.
func (r *OrderRepo) loadChildren(ctx context.Context, orders []model.Order) error {
	ids := make([]uuid.UUID, len(orders))
	idx := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		idx[o.ID] = i
	}

	rows, err := r.db.Pool.Query(ctx, selItems, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemType, &it.ProductID, &it.ServiceID, &it.PackageID,
			&it.Title, &it.Quantity, &it.UnitPrice.IQD, &it.UnitPrice.USD, &it.LineTotal.IQD, &it.LineTotal.USD,
			&it.ServiceRequestID); err != nil {
			rows.Close()
			return err
		}
		if i, ok := idx[it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.Pool.Query(ctx, selPayment+` WHERE order_id = ANY($1) ORDER BY created_at`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return err
		}
		if i, ok := idx[p.OrderID]; ok {
			orders[i].Payments = append(orders[i].Payments, *p)
		}
	}
	return rows.Err()
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	if err := row.Scan(&p.ID, &p.OrderID, &p.Provider, &p.ProviderRef, &p.Status,
		&p.Amount.IQD, &p.Amount.USD, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
