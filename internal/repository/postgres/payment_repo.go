package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/digistore/internal/errs"
	"github.com/and161185/digistore/internal/model"
)

// PaymentRepo implements PaymentRepository using PostgreSQL.
type PaymentRepo struct{ db *DB }

// NewPaymentRepo constructs a payment repository.
func NewPaymentRepo(db *DB) *PaymentRepo { return &PaymentRepo{db: db} }

// GetByID loads a payment by id.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	return scanPayment(r.db.Pool.QueryRow(ctx, selPayment+` WHERE id=$1`, id))
}

// Confirm settles the payment under a row lock so concurrent confirmations
// serialize; the loser observes Succeeded and returns without side effects.
func (r *PaymentRepo) Confirm(ctx context.Context, id uuid.UUID) (res model.ConfirmResult, err error) {
	const (
		selOrderStatus = `SELECT status FROM orders WHERE id=$1`
		updPayment     = `UPDATE payments SET status=$2, updated_at=now() WHERE id=$1 RETURNING updated_at`
		updOrder       = `UPDATE orders SET status=$2 WHERE id=$1`
		updRequests    = `
UPDATE service_requests SET status=$2
WHERE id IN (
    SELECT service_request_id FROM order_items
    WHERE order_id=$1 AND item_type=$3 AND service_request_id IS NOT NULL
)`
	)

	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		p, err := scanPayment(tx.QueryRow(ctx, selPayment+` WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		if p.Status == model.PaymentSucceeded {
			var st model.OrderStatus
			if err := tx.QueryRow(ctx, selOrderStatus, p.OrderID).Scan(&st); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return errs.ErrNotFound
				}
				return err
			}
			res = model.ConfirmResult{Payment: *p, OrderStatus: st}
			return nil
		}

		if err := tx.QueryRow(ctx, updPayment, id, model.PaymentSucceeded).Scan(&p.UpdatedAt); err != nil {
			return err
		}
		p.Status = model.PaymentSucceeded

		tag, err := tx.Exec(ctx, updOrder, p.OrderID, model.OrderPaid)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		if _, err := tx.Exec(ctx, updRequests, p.OrderID, model.ServiceRequestPaid, model.ItemService); err != nil {
			return err
		}

		res = model.ConfirmResult{Payment: *p, OrderStatus: model.OrderPaid, Changed: true}
		return nil
	})
	if err != nil {
		return model.ConfirmResult{}, err
	}
	return res, nil
}
