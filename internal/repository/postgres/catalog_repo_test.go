package postgres

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/digistore/internal/errs"
)

var productCols = []string{"id", "title", "price_iqd", "price_usd", "is_published"}

func TestCatalogRepo_FindPurchasableProduct(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewCatalogRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	price := money(15000, 11)

	mock.ExpectQuery(`SELECT id, title, price_iqd, price_usd, is_published FROM products WHERE id=\$1 AND is_published`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(id, "Preset pack", price.IQD, price.USD, true))
	p, err := r.FindPurchasableProduct(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Preset pack", p.Title)
	require.True(t, p.Price.Equal(price))

	mock.ExpectQuery(`FROM products WHERE id=\$1 AND is_published`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.FindPurchasableProduct(ctx, id)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCatalogRepo_FindPurchasableProducts_Batch(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewCatalogRepo(db)
	ctx := context.Background()

	got, err := r.FindPurchasableProducts(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, got)

	a := uuid.Must(uuid.NewV4())
	b := uuid.Must(uuid.NewV4())
	ids := []uuid.UUID{a, b}
	price := money(1000, 1)
	mock.ExpectQuery(`FROM products WHERE id = ANY\(\$1\) AND is_published`).
		WithArgs(ids).
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(a, "A", price.IQD, price.USD, true))

	got, err = r.FindPurchasableProducts(ctx, ids)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Contains(t, got, a)
	require.NotContains(t, got, b)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepo_FindPackageAndService(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewCatalogRepo(db)
	ctx := context.Background()
	sid := uuid.Must(uuid.NewV4())
	pid := uuid.Must(uuid.NewV4())
	price := money(250000, 190)

	mock.ExpectQuery(`FROM service_packages p JOIN services s ON s.id = p.service_id WHERE s.id=\$1 AND p.id=\$2 AND s.is_published`).
		WithArgs(sid, pid).
		WillReturnRows(pgxmock.NewRows([]string{"s.id", "s.title", "s.is_published", "p.id", "p.title", "p.price_iqd", "p.price_usd"}).
			AddRow(sid, "Branding", true, pid, "Gold", price.IQD, price.USD))
	s, pkg, err := r.FindPackageAndService(ctx, sid, pid)
	require.NoError(t, err)
	require.Equal(t, "Branding", s.Title)
	require.Equal(t, sid, pkg.ServiceID)
	require.True(t, pkg.Price.Equal(price))

	mock.ExpectQuery(`FROM service_packages p`).
		WithArgs(sid, pid).
		WillReturnError(pgx.ErrNoRows)
	_, _, err = r.FindPackageAndService(ctx, sid, pid)
	require.ErrorIs(t, err, errs.ErrNotFound)
}
