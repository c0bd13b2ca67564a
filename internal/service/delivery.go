package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/and161185/digistore/internal/crypto"
	"github.com/and161185/digistore/internal/errs"
	"github.com/and161185/digistore/internal/model"
	"github.com/and161185/digistore/internal/repository"
)

// DefaultDownloadTTL is the lifetime of a download grant.
const DefaultDownloadTTL = 10 * time.Minute

// DownloadPath is the route prefix of download links.
const DownloadPath = "/api/downloads/"

// DeliveryService hands out and redeems single-use download grants.
type DeliveryService interface {
	// RequestAccess reports delivery state for an owned order and mints a grant
	// when the order is paid and has an asset. productID picks the digital line
	// and may be nil.
	RequestAccess(ctx context.Context, orderID, userID uuid.UUID, productID *uuid.UUID) (model.AccessGrant, error)
	// Redeem consumes a grant and returns the redirect target.
	Redeem(ctx context.Context, token string, userID uuid.UUID) (string, error)
}

type DeliveryServiceImpl struct {
	orders   repository.OrderRepository
	delivery repository.DeliveryRepository
	baseURL  string
	ttl      time.Duration
	now      func() time.Time
	newToken func() (string, error)
}

// NewDeliveryService constructs DeliveryService. baseURL prefixes download links.
func NewDeliveryService(
	orders repository.OrderRepository,
	delivery repository.DeliveryRepository,
	baseURL string,
	ttl time.Duration,
) *DeliveryServiceImpl {
	if ttl <= 0 {
		ttl = DefaultDownloadTTL
	}
	return &DeliveryServiceImpl{
		orders:   orders,
		delivery: delivery,
		baseURL:  strings.TrimRight(baseURL, "/"),
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: pkgcrypto.RandToken,
	}
}

// WithClock overrides the time source.
func (s *DeliveryServiceImpl) WithClock(now func() time.Time) *DeliveryServiceImpl {
	s.now = now
	return s
}

// RequestAccess returns the delivery state of an order's digital product.
func (s *DeliveryServiceImpl) RequestAccess(
	ctx context.Context, orderID, userID uuid.UUID, productID *uuid.UUID,
) (model.AccessGrant, error) {
	o, err := s.orders.GetForUser(ctx, orderID, userID)
	if err != nil {
		return model.AccessGrant{}, err
	}
	item, ok := o.DigitalItem(productID)
	if !ok {
		return model.AccessGrant{}, fmt.Errorf("no digital product in order: %w", errs.ErrNotFound)
	}

	g := model.AccessGrant{
		OrderID:     o.ID,
		ProductID:   *item.ProductID,
		OrderStatus: o.Status,
	}
	if o.Status != model.OrderPaid {
		g.Message = "Payment is not confirmed yet."
		return g, nil
	}

	asset, err := s.delivery.GetAsset(ctx, g.ProductID)
	if errors.Is(err, errs.ErrNotFound) {
		g.Message = "The file is not available yet. Please contact support."
		return g, nil
	}
	if err != nil {
		return model.AccessGrant{}, err
	}
	g.Instructions = asset.Instructions
	g.SupportContact = asset.SupportContact

	tok, err := s.mint(ctx, o, g.ProductID, userID)
	if err != nil {
		return model.AccessGrant{}, err
	}
	g.Ready = true
	g.Message = "Your download is ready."
	g.Token = tok.Token
	g.ExpiresAt = tok.ExpiresAt
	g.DownloadURL = s.baseURL + DownloadPath + tok.Token
	return g, nil
}

// mint persists a fresh grant. Failures are retryable for the caller.
func (s *DeliveryServiceImpl) mint(ctx context.Context, o *model.Order, productID, userID uuid.UUID) (*model.DownloadToken, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("mint download token: %v: %w", err, errs.ErrUnavailable)
	}
	val, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("mint download token: %v: %w", err, errs.ErrUnavailable)
	}
	now := s.now()
	t := &model.DownloadToken{
		ID:        id,
		OrderID:   o.ID,
		ProductID: productID,
		UserID:    userID,
		Token:     val,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.delivery.CreateToken(ctx, t); err != nil {
		return nil, fmt.Errorf("store download token: %v: %w", err, errs.ErrUnavailable)
	}
	return t, nil
}

// Redeem validates a grant, marks it used and returns the asset URL.
func (s *DeliveryServiceImpl) Redeem(ctx context.Context, token string, userID uuid.UUID) (string, error) {
	if token == "" {
		return "", errs.ErrNotFound
	}
	t, err := s.delivery.GetToken(ctx, token)
	if err != nil {
		return "", err
	}
	if t.UserID != userID {
		return "", errs.ErrForbidden
	}
	now := s.now()
	if t.Expired(now) {
		return "", errs.ErrExpired
	}

	o, err := s.orders.GetByID(ctx, t.OrderID)
	if err != nil {
		return "", err
	}
	if o.Status != model.OrderPaid {
		return "", fmt.Errorf("order not paid: %w", errs.ErrInvalidRequest)
	}
	if t.IsUsed {
		return "", fmt.Errorf("download token already used: %w", errs.ErrConflict)
	}

	asset, err := s.delivery.GetAsset(ctx, t.ProductID)
	if err != nil {
		return "", err
	}
	switch asset.StorageType {
	case model.StorageExternalURL:
		if asset.ExternalURL == "" {
			return "", fmt.Errorf("asset has no url: %w", errs.ErrNotFound)
		}
		if err := s.delivery.MarkUsed(ctx, t.Token, now); err != nil {
			return "", err
		}
		return asset.ExternalURL, nil
	case model.StorageLocalFile:
		return "", fmt.Errorf("local file delivery: %w", errs.ErrNotImplemented)
	default:
		return "", fmt.Errorf("storage type %q: %w", asset.StorageType, errs.ErrNotImplemented)
	}
}
