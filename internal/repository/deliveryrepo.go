package repository

import (
	"context"
	"time"

	"github.com/and161185/digistore/internal/model"
	"github.com/gofrs/uuid/v5"
)

// DeliveryRepository stores product assets and download grants.
type DeliveryRepository interface {
	// GetAsset returns the asset attached to a product or errs.ErrNotFound.
	GetAsset(ctx context.Context, productID uuid.UUID) (*model.ProductAsset, error)
	// CreateToken persists a new download grant.
	CreateToken(ctx context.Context, t *model.DownloadToken) error
	// GetToken loads a grant by its token value.
	GetToken(ctx context.Context, token string) (*model.DownloadToken, error)
	// MarkUsed atomically flips is_used for an unused, unexpired grant.
	// It returns errs.ErrConflict when the grant was already used or expired meanwhile.
	MarkUsed(ctx context.Context, token string, now time.Time) error
}
