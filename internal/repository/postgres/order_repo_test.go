package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/digistore/internal/errs"
	"github.com/and161185/digistore/internal/model"
)

var (
	orderCols = []string{"id", "user_id", "status", "total_iqd", "total_usd", "created_at"}
	itemCols  = []string{"id", "order_id", "item_type", "product_id", "service_id", "package_id", "title", "quantity",
		"unit_price_iqd", "unit_price_usd", "line_total_iqd", "line_total_usd", "service_request_id"}
	paymentCols = []string{"id", "order_id", "provider", "provider_ref", "status",
		"amount_iqd", "amount_usd", "created_at", "updated_at"}
)

func anyArgs(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = pgxmock.AnyArg()
	}
	return out
}

func serviceOrder(t *testing.T) *model.Order {
	t.Helper()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	uid := uuid.Must(uuid.NewV4())
	sid := uuid.Must(uuid.NewV4())
	pkg := uuid.Must(uuid.NewV4())
	price := money(250000, 190)

	line := model.NewLine(uuid.Must(uuid.NewV4()), model.ItemService, "Branding - Gold", price, 1)
	line.ServiceID, line.PackageID = &sid, &pkg
	line.ServiceRequest = &model.ServiceRequest{
		ID: uuid.Must(uuid.NewV4()), ServiceID: sid, PackageID: pkg, UserID: &uid,
		Notes: "logo", Status: model.ServiceRequestPending, CreatedAt: now,
	}
	o := &model.Order{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    &uid,
		Status:    model.OrderPendingPayment,
		Items:     []model.OrderItem{line},
		CreatedAt: now,
	}
	o.Total = model.SumLines(o.Items)
	o.Payments = []model.Payment{{
		ID: uuid.Must(uuid.NewV4()), Provider: "WhatsApp", Status: model.PaymentPending,
		Amount: o.Total, CreatedAt: now, UpdatedAt: now,
	}}
	return o
}

func TestOrderRepo_Create_WritesAggregateInOneTx(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewOrderRepo(db)
	o := serviceOrder(t)
	sr := o.Items[0].ServiceRequest

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO orders \(id, user_id, status, total_iqd, total_usd, created_at\)`).
		WithArgs(o.ID, o.UserID, o.Status, o.Total.IQD, o.Total.USD, o.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO service_requests`).
		WithArgs(sr.ID, sr.ServiceID, sr.PackageID, sr.UserID, sr.Notes, sr.Status, sr.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO order_items`).
		WithArgs(anyArgs(14)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO payments`).
		WithArgs(anyArgs(9)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, r.Create(context.Background(), o))
	require.NotNil(t, o.Items[0].ServiceRequestID)
	require.Equal(t, sr.ID, *o.Items[0].ServiceRequestID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_Create_RollsBackOnPaymentFailure(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewOrderRepo(db)
	o := serviceOrder(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO orders`).WithArgs(anyArgs(6)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO service_requests`).WithArgs(anyArgs(7)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO order_items`).WithArgs(anyArgs(14)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO payments`).WithArgs(anyArgs(9)...).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := r.Create(context.Background(), o)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_GetForUser_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewOrderRepo(db)
	id := uuid.Must(uuid.NewV4())
	other := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM orders WHERE id=\$1 AND user_id=\$2`).
		WithArgs(id, other).
		WillReturnRows(pgxmock.NewRows(orderCols))

	_, err := r.GetForUser(context.Background(), id, other)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_ListByUser_LoadsChildren(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewOrderRepo(db)
	ctx := context.Background()

	uid := uuid.Must(uuid.NewV4())
	o1 := uuid.Must(uuid.NewV4())
	o2 := uuid.Must(uuid.NewV4())
	prod := uuid.Must(uuid.NewV4())
	price := money(5000, 4)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM orders WHERE user_id=\$1 ORDER BY created_at DESC`).
		WithArgs(uid).
		WillReturnRows(pgxmock.NewRows(orderCols).
			AddRow(o1, &uid, model.OrderPaid, price.IQD, price.USD, now).
			AddRow(o2, &uid, model.OrderPendingPayment, price.IQD, price.USD, now.Add(-time.Hour)))
	mock.ExpectQuery(`FROM order_items WHERE order_id = ANY\(\$1\) ORDER BY order_id, position`).
		WithArgs([]uuid.UUID{o1, o2}).
		WillReturnRows(pgxmock.NewRows(itemCols).
			AddRow(uuid.Must(uuid.NewV4()), o1, model.ItemDigitalProduct, &prod, nil, nil, "Preset pack", 1,
				price.IQD, price.USD, price.IQD, price.USD, nil))
	mock.ExpectQuery(`FROM payments WHERE order_id = ANY\(\$1\) ORDER BY created_at`).
		WithArgs([]uuid.UUID{o1, o2}).
		WillReturnRows(pgxmock.NewRows(paymentCols).
			AddRow(uuid.Must(uuid.NewV4()), o1, "Mock", "mock-1", model.PaymentSucceeded, price.IQD, price.USD, now, now).
			AddRow(uuid.Must(uuid.NewV4()), o2, "WhatsApp", "", model.PaymentPending, price.IQD, price.USD, now, now))

	got, err := r.ListByUser(ctx, uid)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, got[0].Items, 1)
	require.Equal(t, prod, *got[0].Items[0].ProductID)
	require.Nil(t, got[0].Items[0].ServiceID)
	require.Empty(t, got[1].Items)
	require.Equal(t, model.PaymentSucceeded, got[0].Payments[0].Status)
	require.Equal(t, "WhatsApp", got[1].Payments[0].Provider)
	require.True(t, got[0].IsOwnedBy(uid))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_ListAll_Empty(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewOrderRepo(db)

	mock.ExpectQuery(`FROM orders ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(50, 0).
		WillReturnRows(pgxmock.NewRows(orderCols))

	got, err := r.ListAll(context.Background(), 50, 0)
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
