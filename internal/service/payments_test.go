package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/digistore/internal/errs"
	"github.com/and161185/digistore/internal/model"
)

func TestConfirm_CascadesOnceAndIsIdempotent(t *testing.T) {
	t.Parallel()
	sh := newShop(t)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())

	o, err := sh.orders.CheckoutService(ctx, &uid, sh.svc, sh.pkg, "")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	payID := o.Payments[0].ID

	res, err := sh.payments.Confirm(ctx, payID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !res.Changed || res.Payment.Status != model.PaymentSucceeded || res.OrderStatus != model.OrderPaid {
		t.Fatalf("unexpected result: %+v", res)
	}
	sr := sh.store.requests[*o.Items[0].ServiceRequestID]
	if sr.Status != model.ServiceRequestPaid {
		t.Fatalf("service request status = %s, want Paid", sr.Status)
	}

	res, err = sh.payments.Confirm(ctx, payID)
	if err != nil {
		t.Fatalf("second Confirm: %v", err)
	}
	if res.Changed || res.OrderStatus != model.OrderPaid {
		t.Fatalf("second confirm must be a no-op: %+v", res)
	}
	if sh.store.requestCascades != 1 {
		t.Fatalf("cascades = %d, want 1", sh.store.requestCascades)
	}
}

func TestConfirm_Rejections(t *testing.T) {
	t.Parallel()
	sh := newShop(t)
	ctx := context.Background()

	if _, err := sh.payments.Confirm(ctx, uuid.Must(uuid.NewV4())); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	// an instant payment that is somehow still pending cannot be confirmed by hand
	o, err := sh.orders.CheckoutProduct(ctx, nil, sh.p1, 1)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	stored := sh.store.orders[o.ID]
	stored.Payments[0].Status = model.PaymentPending
	stored.Status = model.OrderPendingPayment
	if _, err := sh.payments.Confirm(ctx, o.Payments[0].ID); !errors.Is(err, errs.ErrInvalidRequest) {
		t.Fatalf("want ErrInvalidRequest for instant provider, got %v", err)
	}

	stored.Payments[0].Provider = "Stripe"
	if _, err := sh.payments.Confirm(ctx, o.Payments[0].ID); !errors.Is(err, errs.ErrInvalidRequest) {
		t.Fatalf("want ErrInvalidRequest for unknown provider, got %v", err)
	}
}

func TestConfirm_SucceededInstantPaymentIsNoop(t *testing.T) {
	t.Parallel()
	sh := newShop(t)
	ctx := context.Background()

	o, err := sh.orders.CheckoutProduct(ctx, nil, sh.p1, 1)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	res, err := sh.payments.Confirm(ctx, o.Payments[0].ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if res.Changed {
		t.Fatalf("already settled payment must not change")
	}
}
