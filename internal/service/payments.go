package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/digistore/internal/errs"
	"github.com/and161185/digistore/internal/model"
	"github.com/and161185/digistore/internal/payment"
	"github.com/and161185/digistore/internal/repository"
)

// PaymentService confirms pending payments. Admin only.
type PaymentService interface {
	Confirm(ctx context.Context, paymentID uuid.UUID) (model.ConfirmResult, error)
}

// ProviderLookup resolves a provider by its stored tag.
type ProviderLookup interface {
	Lookup(name string) (payment.Provider, error)
}

type PaymentServiceImpl struct {
	payments  repository.PaymentRepository
	providers ProviderLookup
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(payments repository.PaymentRepository, providers ProviderLookup) *PaymentServiceImpl {
	return &PaymentServiceImpl{payments: payments, providers: providers}
}

// Confirm settles a pending payment and cascades the order and any linked
// service request to Paid. Confirming a settled payment changes nothing.
func (s *PaymentServiceImpl) Confirm(ctx context.Context, paymentID uuid.UUID) (model.ConfirmResult, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return model.ConfirmResult{}, err
	}
	if p.Status != model.PaymentSucceeded {
		prov, err := s.providers.Lookup(p.Provider)
		if err != nil {
			return model.ConfirmResult{}, err
		}
		if !prov.ManualConfirm() {
			return model.ConfirmResult{}, fmt.Errorf("provider %s has no manual confirmation: %w", p.Provider, errs.ErrInvalidRequest)
		}
	}
	return s.payments.Confirm(ctx, paymentID)
}
