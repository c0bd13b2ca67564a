package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/digistore/internal/errs"
	"github.com/and161185/digistore/internal/model"
)

// DeliveryRepo implements DeliveryRepository using PostgreSQL.
type DeliveryRepo struct{ db *DB }

// NewDeliveryRepo constructs a delivery repository.
func NewDeliveryRepo(db *DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

// GetAsset loads the asset attached to a product.
func (r *DeliveryRepo) GetAsset(ctx context.Context, productID uuid.UUID) (*model.ProductAsset, error) {
	const q = `
SELECT id, product_id, storage_type, external_url, local_path, instructions, support_contact
FROM product_assets WHERE product_id=$1`
	var a model.ProductAsset
	err := r.db.Pool.QueryRow(ctx, q, productID).
		Scan(&a.ID, &a.ProductID, &a.StorageType, &a.ExternalURL, &a.LocalPath, &a.Instructions, &a.SupportContact)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CreateToken inserts a new download grant.
func (r *DeliveryRepo) CreateToken(ctx context.Context, t *model.DownloadToken) error {
	const q = `
INSERT INTO download_tokens (id, order_id, product_id, user_id, token, expires_at, is_used, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.db.Pool.Exec(ctx, q, t.ID, t.OrderID, t.ProductID, t.UserID, t.Token, t.ExpiresAt, t.IsUsed, t.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetToken loads a grant by token value.
func (r *DeliveryRepo) GetToken(ctx context.Context, token string) (*model.DownloadToken, error) {
	const q = `
SELECT id, order_id, product_id, user_id, token, expires_at, is_used, created_at
FROM download_tokens WHERE token=$1`
	var t model.DownloadToken
	err := r.db.Pool.QueryRow(ctx, q, token).
		Scan(&t.ID, &t.OrderID, &t.ProductID, &t.UserID, &t.Token, &t.ExpiresAt, &t.IsUsed, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// MarkUsed flips is_used only if the grant is still unused and unexpired.
func (r *DeliveryRepo) MarkUsed(ctx context.Context, token string, now time.Time) error {
	const q = `
UPDATE download_tokens SET is_used=true
WHERE token=$1 AND is_used=false AND expires_at >= $2`
	tag, err := r.db.Pool.Exec(ctx, q, token, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrConflict
	}
	return nil
}
