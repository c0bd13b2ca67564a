package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/digistore/internal/errs"
	"github.com/and161185/digistore/internal/model"
)

// CatalogRepo implements CatalogReader using PostgreSQL.
type CatalogRepo struct{ db *DB }

// NewCatalogRepo constructs a catalog reader.
func NewCatalogRepo(db *DB) *CatalogRepo { return &CatalogRepo{db: db} }

const selProduct = `
SELECT id, title, price_iqd, price_usd, is_published
FROM products`

// FindPurchasableProduct returns a published product by id.
func (r *CatalogRepo) FindPurchasableProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	row := r.db.Pool.QueryRow(ctx, selProduct+` WHERE id=$1 AND is_published`, id)
	var p model.Product
	if err := row.Scan(&p.ID, &p.Title, &p.Price.IQD, &p.Price.USD, &p.IsPublished); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindPurchasableProducts resolves a batch of ids in one query.
func (r *CatalogRepo) FindPurchasableProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	out := make(map[uuid.UUID]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Pool.Query(ctx, selProduct+` WHERE id = ANY($1) AND is_published`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price.IQD, &p.Price.USD, &p.IsPublished); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// FindPackageAndService returns the package together with its published service.
func (r *CatalogRepo) FindPackageAndService(
	ctx context.Context, serviceID, packageID uuid.UUID,
) (*model.Service, *model.ServicePackage, error) {
	const q = `
SELECT s.id, s.title, s.is_published, p.id, p.title, p.price_iqd, p.price_usd
FROM service_packages p
JOIN services s ON s.id = p.service_id
WHERE s.id=$1 AND p.id=$2 AND s.is_published`
	var (
		s   model.Service
		pkg model.ServicePackage
	)
	err := r.db.Pool.QueryRow(ctx, q, serviceID, packageID).
		Scan(&s.ID, &s.Title, &s.IsPublished, &pkg.ID, &pkg.Title, &pkg.Price.IQD, &pkg.Price.USD)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, errs.ErrNotFound
		}
		return nil, nil, err
	}
	pkg.ServiceID = s.ID
	return &s, &pkg, nil
}
