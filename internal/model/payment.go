package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// PaymentStatus is the settlement state of a payment attempt.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentSucceeded PaymentStatus = "Succeeded"
	PaymentFailed    PaymentStatus = "Failed"
)

// Payment is one payment attempt against an order.
type Payment struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Provider    string
	ProviderRef string
	Status      PaymentStatus
	Amount      Money
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ConfirmResult reports the outcome of a manual payment confirmation.
type ConfirmResult struct {
	Payment     Payment
	OrderStatus OrderStatus
	// Changed is false when the payment was already settled.
	Changed bool
}
