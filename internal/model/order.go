package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "PendingPayment"
	OrderPaid           OrderStatus = "Paid"
	OrderCancelled      OrderStatus = "Cancelled"
)

// ItemType discriminates what an order line sells.
type ItemType string

const (
	ItemDigitalProduct ItemType = "DigitalProduct"
	ItemService        ItemType = "Service"
)

// Order is the purchase aggregate: lines, payments and the captured totals.
type Order struct {
	ID        uuid.UUID
	UserID    *uuid.UUID // nil for guest checkout
	Status    OrderStatus
	Total     Money
	Items     []OrderItem
	Payments  []Payment
	CreatedAt time.Time
}

// OrderItem is one line of an order with prices captured at checkout time.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ItemType  ItemType
	ProductID *uuid.UUID
	ServiceID *uuid.UUID
	PackageID *uuid.UUID
	Title     string
	Quantity  int
	UnitPrice Money
	LineTotal Money

	ServiceRequestID *uuid.UUID
	// ServiceRequest is set on creation only, so the repository can insert it
	// together with the line.
	ServiceRequest *ServiceRequest
}

// NewLine builds an order line, clamping quantity to at least one and
// computing the line total from the unit price.
func NewLine(id uuid.UUID, typ ItemType, title string, unit Money, qty int) OrderItem {
	if qty < 1 {
		qty = 1
	}
	return OrderItem{
		ID:        id,
		ItemType:  typ,
		Title:     title,
		Quantity:  qty,
		UnitPrice: unit,
		LineTotal: unit.Mul(qty),
	}
}

// SumLines returns the sum of line totals.
func SumLines(items []OrderItem) Money {
	var total Money
	for _, it := range items {
		total = total.Add(it.LineTotal)
	}
	return total
}

// IsOwnedBy reports whether the order belongs to the given user. Guest orders belong to nobody.
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.UserID != nil && *o.UserID == userID
}

// DigitalItem returns the first digital-product line, or the one for productID when set.
func (o *Order) DigitalItem(productID *uuid.UUID) (OrderItem, bool) {
	for _, it := range o.Items {
		if it.ItemType != ItemDigitalProduct || it.ProductID == nil {
			continue
		}
		if productID == nil || *it.ProductID == *productID {
			return it, true
		}
	}
	return OrderItem{}, false
}

// CartItem is one requested line of a cart checkout.
type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// ServiceRequestStatus is the lifecycle of a purchased service engagement.
type ServiceRequestStatus string

const (
	ServiceRequestPending ServiceRequestStatus = "Pending"
	ServiceRequestPaid    ServiceRequestStatus = "Paid"
)

// ServiceRequest tracks delivery of a purchased service package.
type ServiceRequest struct {
	ID        uuid.UUID
	ServiceID uuid.UUID
	PackageID uuid.UUID
	UserID    *uuid.UUID
	Notes     string
	Status    ServiceRequestStatus
	CreatedAt time.Time
}
