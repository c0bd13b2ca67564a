package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/digistore/internal/errs"
	"github.com/and161185/digistore/internal/model"
	"github.com/and161185/digistore/internal/payment"
	"github.com/and161185/digistore/internal/repository"
)

// Paging limits for the admin listing.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// OrderService builds and reads orders.
type OrderService interface {
	// CheckoutProduct buys quantity units of one product. buyer is nil for guests.
	CheckoutProduct(ctx context.Context, buyer *uuid.UUID, productID uuid.UUID, quantity int) (*model.Order, error)
	// CheckoutCart buys every purchasable product of the cart.
	CheckoutCart(ctx context.Context, buyer *uuid.UUID, items []model.CartItem) (*model.Order, error)
	// CheckoutService buys a service package and opens a service request.
	CheckoutService(ctx context.Context, buyer *uuid.UUID, serviceID, packageID uuid.UUID, notes string) (*model.Order, error)
	// MyOrders lists orders owned by userID.
	MyOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	// OrderByID returns an order owned by userID.
	OrderByID(ctx context.Context, id, userID uuid.UUID) (*model.Order, error)
	// AllOrders lists every order. Admin only.
	AllOrders(ctx context.Context, limit, offset int) ([]model.Order, error)
}

type OrderServiceImpl struct {
	catalog  repository.CatalogReader
	orders   repository.OrderRepository
	checkout payment.Provider
	service  payment.Provider
	now      func() time.Time
}

// NewOrderService constructs OrderService. checkout settles product orders,
// service settles service-package orders.
func NewOrderService(
	catalog repository.CatalogReader,
	orders repository.OrderRepository,
	checkout, service payment.Provider,
) *OrderServiceImpl {
	return &OrderServiceImpl{
		catalog:  catalog,
		orders:   orders,
		checkout: checkout,
		service:  service,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *OrderServiceImpl) WithClock(now func() time.Time) *OrderServiceImpl {
	s.now = now
	return s
}

// CheckoutProduct creates an order with a single digital product line.
func (s *OrderServiceImpl) CheckoutProduct(ctx context.Context, buyer *uuid.UUID, productID uuid.UUID, quantity int) (*model.Order, error) {
	p, err := s.catalog.FindPurchasableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	line, err := productLine(p, quantity)
	if err != nil {
		return nil, err
	}
	return s.place(ctx, buyer, []model.OrderItem{line}, s.checkout)
}

// CheckoutCart resolves all products in one lookup and drops the ones that are
// missing or unpublished. An empty result is rejected.
func (s *OrderServiceImpl) CheckoutCart(ctx context.Context, buyer *uuid.UUID, items []model.CartItem) (*model.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("empty cart: %w", errs.ErrInvalidRequest)
	}

	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}

	products, err := s.catalog.FindPurchasableProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]model.OrderItem, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		line, err := productLine(&p, it.Quantity)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no valid items: %w", errs.ErrInvalidRequest)
	}
	return s.place(ctx, buyer, lines, s.checkout)
}

// CheckoutService creates an order for one service package with a linked request.
func (s *OrderServiceImpl) CheckoutService(
	ctx context.Context, buyer *uuid.UUID, serviceID, packageID uuid.UUID, notes string,
) (*model.Order, error) {
	svc, pkg, err := s.catalog.FindPackageAndService(ctx, serviceID, packageID)
	if err != nil {
		return nil, err
	}
	lineID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	reqID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	line := model.NewLine(lineID, model.ItemService, svc.Title+" - "+pkg.Title, pkg.Price, 1)
	line.ServiceID = &svc.ID
	line.PackageID = &pkg.ID
	line.ServiceRequest = &model.ServiceRequest{
		ID:        reqID,
		ServiceID: svc.ID,
		PackageID: pkg.ID,
		UserID:    buyer,
		Notes:     notes,
		Status:    model.ServiceRequestPending,
	}
	return s.place(ctx, buyer, []model.OrderItem{line}, s.service)
}

// MyOrders returns the caller's orders.
func (s *OrderServiceImpl) MyOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// OrderByID returns an order only if the caller owns it.
func (s *OrderServiceImpl) OrderByID(ctx context.Context, id, userID uuid.UUID) (*model.Order, error) {
	return s.orders.GetForUser(ctx, id, userID)
}

// AllOrders lists orders of every user.
func (s *OrderServiceImpl) AllOrders(ctx context.Context, limit, offset int) ([]model.Order, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.ListAll(ctx, limit, offset)
}

func productLine(p *model.Product, quantity int) (model.OrderItem, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return model.OrderItem{}, err
	}
	line := model.NewLine(id, model.ItemDigitalProduct, p.Title, p.Price, quantity)
	pid := p.ID
	line.ProductID = &pid
	return line, nil
}

// place assembles the order, lets the provider settle it and persists the
// order with its payment in one write.
func (s *OrderServiceImpl) place(ctx context.Context, buyer *uuid.UUID, lines []model.OrderItem, prov payment.Provider) (*model.Order, error) {
	if prov == nil {
		return nil, errors.New("no payment provider configured")
	}
	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	payID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := s.now()

	o := &model.Order{
		ID:        orderID,
		UserID:    buyer,
		Status:    model.OrderPendingPayment,
		Items:     lines,
		CreatedAt: now,
	}
	for i := range o.Items {
		o.Items[i].OrderID = orderID
	}
	o.Total = model.SumLines(o.Items)

	st, err := prov.Settle(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("settle with %s: %w", prov.Name(), err)
	}
	if st.Status == model.PaymentSucceeded {
		o.Status = model.OrderPaid
	}
	for i := range o.Items {
		if sr := o.Items[i].ServiceRequest; sr != nil {
			sr.CreatedAt = now
			if o.Status == model.OrderPaid {
				sr.Status = model.ServiceRequestPaid
			}
		}
	}
	o.Payments = []model.Payment{{
		ID:          payID,
		OrderID:     orderID,
		Provider:    prov.Name(),
		ProviderRef: st.Reference,
		Status:      st.Status,
		Amount:      o.Total,
		CreatedAt:   now,
		UpdatedAt:   now,
	}}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}
