// Package convert maps domain types to the JSON wire types of the REST API
// and back. The CLI decodes responses into the same types.
package convert

import (
	"fmt"
	"time"

	u "github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/and161185/digistore/internal/errs"
	model "github.com/and161185/digistore/internal/model"
)

// --- requests (client -> server) ---

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CheckoutRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CartRequest struct {
	Items []CartLine `json:"items"`
}

type ServiceCheckoutRequest struct {
	ServiceID string `json:"serviceId"`
	PackageID string `json:"packageId"`
	Notes     string `json:"notes,omitempty"`
}

// --- responses (server -> client) ---

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

type OrderItem struct {
	ID               string          `json:"id"`
	ItemType         string          `json:"itemType"`
	ProductID        *string         `json:"productId,omitempty"`
	ServiceID        *string         `json:"serviceId,omitempty"`
	PackageID        *string         `json:"packageId,omitempty"`
	Title            string          `json:"title"`
	Quantity         int             `json:"quantity"`
	UnitPriceIQD     decimal.Decimal `json:"unitPriceIqd"`
	UnitPriceUSD     decimal.Decimal `json:"unitPriceUsd"`
	LineTotalIQD     decimal.Decimal `json:"lineTotalIqd"`
	LineTotalUSD     decimal.Decimal `json:"lineTotalUsd"`
	ServiceRequestID *string         `json:"serviceRequestId,omitempty"`
}

type Payment struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"orderId"`
	Provider    string          `json:"provider"`
	ProviderRef string          `json:"providerRef,omitempty"`
	Status      string          `json:"status"`
	AmountIQD   decimal.Decimal `json:"amountIqd"`
	AmountUSD   decimal.Decimal `json:"amountUsd"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type Order struct {
	ID        string          `json:"id"`
	UserID    *string         `json:"userId"`
	Status    string          `json:"status"`
	TotalIQD  decimal.Decimal `json:"totalIqd"`
	TotalUSD  decimal.Decimal `json:"totalUsd"`
	CreatedAt time.Time       `json:"createdAt"`
	Items     []OrderItem     `json:"items"`
	Payments  []Payment       `json:"payments"`
}

type Download struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Access struct {
	OrderID        string    `json:"orderId"`
	ProductID      string    `json:"productId"`
	OrderStatus    string    `json:"orderStatus"`
	Ready          bool      `json:"ready"`
	Message        string    `json:"message,omitempty"`
	Instructions   string    `json:"instructions,omitempty"`
	SupportContact string    `json:"supportContact,omitempty"`
	Download       *Download `json:"download,omitempty"`
}

type ConfirmResult struct {
	Payment     Payment `json:"payment"`
	OrderStatus string  `json:"orderStatus"`
	Changed     bool    `json:"changed"`
}

// --- helpers ---

func idPtr(id *u.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// ParseID parses a path or body identifier; bad input is an invalid request.
func ParseID(s string) (u.UUID, error) {
	id, err := u.FromString(s)
	if err != nil {
		return u.Nil, fmt.Errorf("invalid id %q: %w", s, errs.ErrInvalidRequest)
	}
	return id, nil
}

// --- domain -> wire ---

// ToUser converts a domain user, dropping credentials.
func ToUser(m model.User) User {
	return User{ID: m.ID.String(), Email: m.Email, DisplayName: m.DisplayName, Role: string(m.Role)}
}

// ToAuthResponse pairs an issued token with its user.
func ToAuthResponse(t model.Tokens, m model.User) AuthResponse {
	return AuthResponse{Token: t.AccessToken, ExpiresAt: t.ExpiresAt, User: ToUser(m)}
}

// ToPayment converts a domain payment.
func ToPayment(p model.Payment) Payment {
	return Payment{
		ID:          p.ID.String(),
		OrderID:     p.OrderID.String(),
		Provider:    p.Provider,
		ProviderRef: p.ProviderRef,
		Status:      string(p.Status),
		AmountIQD:   p.Amount.IQD,
		AmountUSD:   p.Amount.USD,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToOrder converts an order with its lines and payments.
func ToOrder(o model.Order) Order {
	out := Order{
		ID:        o.ID.String(),
		UserID:    idPtr(o.UserID),
		Status:    string(o.Status),
		TotalIQD:  o.Total.IQD,
		TotalUSD:  o.Total.USD,
		CreatedAt: o.CreatedAt,
		Items:     make([]OrderItem, 0, len(o.Items)),
		Payments:  make([]Payment, 0, len(o.Payments)),
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, OrderItem{
			ID:               it.ID.String(),
			ItemType:         string(it.ItemType),
			ProductID:        idPtr(it.ProductID),
			ServiceID:        idPtr(it.ServiceID),
			PackageID:        idPtr(it.PackageID),
			Title:            it.Title,
			Quantity:         it.Quantity,
			UnitPriceIQD:     it.UnitPrice.IQD,
			UnitPriceUSD:     it.UnitPrice.USD,
			LineTotalIQD:     it.LineTotal.IQD,
			LineTotalUSD:     it.LineTotal.USD,
			ServiceRequestID: idPtr(it.ServiceRequestID),
		})
	}
	for _, p := range o.Payments {
		out.Payments = append(out.Payments, ToPayment(p))
	}
	return out
}

// ToOrders converts a list of orders; never returns nil.
func ToOrders(in []model.Order) []Order {
	out := make([]Order, 0, len(in))
	for _, o := range in {
		out = append(out, ToOrder(o))
	}
	return out
}

// ToAccess converts a delivery grant. Download is set only when ready.
func ToAccess(g model.AccessGrant) Access {
	a := Access{
		OrderID:        g.OrderID.String(),
		ProductID:      g.ProductID.String(),
		OrderStatus:    string(g.OrderStatus),
		Ready:          g.Ready,
		Message:        g.Message,
		Instructions:   g.Instructions,
		SupportContact: g.SupportContact,
	}
	if g.Ready {
		a.Download = &Download{Token: g.Token, URL: g.DownloadURL, ExpiresAt: g.ExpiresAt}
	}
	return a
}

// ToConfirmResult converts the outcome of a payment confirmation.
func ToConfirmResult(r model.ConfirmResult) ConfirmResult {
	return ConfirmResult{Payment: ToPayment(r.Payment), OrderStatus: string(r.OrderStatus), Changed: r.Changed}
}

// --- wire -> domain ---

// FromCartRequest converts cart lines to domain items.
func FromCartRequest(in CartRequest) ([]model.CartItem, error) {
	out := make([]model.CartItem, 0, len(in.Items))
	for i, l := range in.Items {
		id, err := ParseID(l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		out = append(out, model.CartItem{ProductID: id, Quantity: l.Quantity})
	}
	return out, nil
}
