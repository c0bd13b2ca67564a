package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/digistore/internal/model"
)

// CatalogReader is the read-only view of the catalog that checkout consumes.
// Every lookup only returns published items.
type CatalogReader interface {
	// FindPurchasableProduct returns a published product or errs.ErrNotFound.
	FindPurchasableProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// FindPurchasableProducts resolves many ids at once; missing or unpublished ids are absent from the map.
	FindPurchasableProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error)
	// FindPackageAndService returns a package of a published service or errs.ErrNotFound.
	FindPackageAndService(ctx context.Context, serviceID, packageID uuid.UUID) (*model.Service, *model.ServicePackage, error)
}
