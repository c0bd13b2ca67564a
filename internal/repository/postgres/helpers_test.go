package postgres

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/and161185/digistore/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func money(iqd, usd int64) model.Money {
	return model.NewMoney(decimal.NewFromInt(iqd), decimal.NewFromInt(usd))
}
