package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/digistore/internal/model"
)

// OrderRepository persists order aggregates.
type OrderRepository interface {
	// Create writes the order with its lines, service requests and payments in one transaction.
	Create(ctx context.Context, o *model.Order) error
	// GetByID loads an order with lines and payments regardless of owner.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	// GetForUser loads an order only if userID owns it.
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*model.Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	// ListAll returns a page of all orders, newest first.
	ListAll(ctx context.Context, limit, offset int) ([]model.Order, error)
}

// PaymentRepository manages payment state transitions.
type PaymentRepository interface {
	// GetByID loads a payment.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	// Confirm settles a payment and cascades the order and linked service
	// requests to Paid in one transaction. An already settled payment is
	// returned unchanged with Changed=false.
	Confirm(ctx context.Context, id uuid.UUID) (model.ConfirmResult, error)
}
