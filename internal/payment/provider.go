// Package payment contains the payment providers an order can be settled with.
package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/digistore/internal/errs"
	"github.com/and161185/digistore/internal/model"
)

// Provider tags.
const (
	TagMock     = "Mock"
	TagWhatsApp = "WhatsApp"
)

// Settlement is what a provider reports for a freshly created payment.
type Settlement struct {
	Status    model.PaymentStatus
	Reference string
}

// Provider attaches a payment to an order at checkout time.
type Provider interface {
	// Name returns the tag stored in payments.provider.
	Name() string
	// Settle decides the initial payment state for the order.
	Settle(ctx context.Context, o *model.Order) (Settlement, error)
	// ManualConfirm reports whether an administrator may confirm pending payments.
	ManualConfirm() bool
}

// Instant settles every payment at creation.
type Instant struct{ Tag string }

func (p Instant) Name() string { return p.Tag }

func (p Instant) Settle(_ context.Context, o *model.Order) (Settlement, error) {
	return Settlement{
		Status:    model.PaymentSucceeded,
		Reference: strings.ToLower(p.Tag) + "-" + o.ID.String(),
	}, nil
}

func (Instant) ManualConfirm() bool { return false }

// Manual leaves the payment pending until an administrator confirms it,
// e.g. after the buyer paid over a messenger.
type Manual struct{ Tag string }

func (p Manual) Name() string { return p.Tag }

func (Manual) Settle(context.Context, *model.Order) (Settlement, error) {
	return Settlement{Status: model.PaymentPending}, nil
}

func (Manual) ManualConfirm() bool { return true }

// Registry resolves providers by tag, ignoring case.
type Registry struct {
	byName map[string]Provider
}

// NewRegistry builds a registry from providers; later duplicates win.
func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{byName: make(map[string]Provider, len(ps))}
	for _, p := range ps {
		r.byName[strings.ToLower(p.Name())] = p
	}
	return r
}

// DefaultRegistry knows the Mock and WhatsApp providers.
func DefaultRegistry() *Registry {
	return NewRegistry(Instant{Tag: TagMock}, Manual{Tag: TagWhatsApp})
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (Provider, error) {
	p, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown payment provider %q: %w", name, errs.ErrInvalidRequest)
	}
	return p, nil
}
