package service

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/digistore/internal/errs"
	"github.com/and161185/digistore/internal/limiter"
	"github.com/and161185/digistore/internal/model"
	"github.com/and161185/digistore/internal/repository"
)

type fakeUsers struct {
	byEmail map[string]*model.User

	createErr  error
	getErr     error
	setRoleErr error

	setRoleCalls int
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byEmail == nil {
		f.byEmail = map[string]*model.User{}
	}
	if _, exists := f.byEmail[u.Email]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	f.byEmail[u.Email] = &cpy
	return nil
}
func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}
func (f *fakeUsers) SetRole(_ context.Context, id uuid.UUID, role model.Role) error {
	f.setRoleCalls++
	if f.setRoleErr != nil {
		return f.setRoleErr
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			u.Role = role
			return nil
		}
	}
	return errs.ErrNotFound
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
	lastEmail    string
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, email string, _ []byte) (bool, time.Duration, error) {
	l.allowCalls++
	l.lastEmail = email
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

type fakeCatalog struct {
	products map[uuid.UUID]model.Product
	services map[uuid.UUID]model.Service
	packages map[uuid.UUID]model.ServicePackage

	batchErr   error
	batchCalls int
}

var _ repository.CatalogReader = (*fakeCatalog)(nil)

func (f *fakeCatalog) FindPurchasableProduct(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := f.products[id]
	if !ok || !p.IsPublished {
		return nil, errs.ErrNotFound
	}
	return &p, nil
}
func (f *fakeCatalog) FindPurchasableProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	f.batchCalls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := map[uuid.UUID]model.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok && p.IsPublished {
			out[id] = p
		}
	}
	return out, nil
}
func (f *fakeCatalog) FindPackageAndService(_ context.Context, serviceID, packageID uuid.UUID) (*model.Service, *model.ServicePackage, error) {
	s, ok := f.services[serviceID]
	if !ok || !s.IsPublished {
		return nil, nil, errs.ErrNotFound
	}
	p, ok := f.packages[packageID]
	if !ok || p.ServiceID != serviceID {
		return nil, nil, errs.ErrNotFound
	}
	return &s, &p, nil
}

// fakeStore backs orders, payments and delivery with one mutex so the
// confirm cascade and single-use redeem behave like the SQL versions.
type fakeStore struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]*model.Order
	requests map[uuid.UUID]*model.ServiceRequest
	assets   map[uuid.UUID]model.ProductAsset
	tokens   map[string]*model.DownloadToken

	createErr      error
	createTokenErr error

	requestCascades int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   map[uuid.UUID]*model.Order{},
		requests: map[uuid.UUID]*model.ServiceRequest{},
		assets:   map[uuid.UUID]model.ProductAsset{},
		tokens:   map[string]*model.DownloadToken{},
	}
}

type fakeOrders struct{ *fakeStore }
type fakePayments struct{ *fakeStore }
type fakeDelivery struct{ *fakeStore }

var (
	_ repository.OrderRepository    = fakeOrders{}
	_ repository.PaymentRepository  = fakePayments{}
	_ repository.DeliveryRepository = fakeDelivery{}
)

func cloneOrder(o *model.Order) *model.Order {
	c := *o
	c.Items = append([]model.OrderItem(nil), o.Items...)
	c.Payments = append([]model.Payment(nil), o.Payments...)
	return &c
}

func (f fakeOrders) Create(_ context.Context, o *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.orders[o.ID]; ok {
		return errs.ErrAlreadyExists
	}
	for i := range o.Items {
		if sr := o.Items[i].ServiceRequest; sr != nil {
			c := *sr
			f.requests[sr.ID] = &c
			o.Items[i].ServiceRequestID = &sr.ID
		}
	}
	f.orders[o.ID] = cloneOrder(o)
	return nil
}
func (f fakeOrders) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneOrder(o), nil
}
func (f fakeOrders) GetForUser(ctx context.Context, id, userID uuid.UUID) (*model.Order, error) {
	o, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(userID) {
		return nil, errs.ErrNotFound
	}
	return o, nil
}
func (f fakeOrders) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Order
	for _, o := range f.orders {
		if o.IsOwnedBy(userID) {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}
func (f fakeOrders) ListAll(_ context.Context, limit, offset int) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Order
	for _, o := range f.orders {
		out = append(out, *cloneOrder(o))
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakePayments) find(id uuid.UUID) (*model.Order, int) {
	for _, o := range f.orders {
		for i := range o.Payments {
			if o.Payments[i].ID == id {
				return o, i
			}
		}
	}
	return nil, -1
}
func (f fakePayments) GetByID(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, i := f.find(id)
	if o == nil {
		return nil, errs.ErrNotFound
	}
	p := o.Payments[i]
	return &p, nil
}
func (f fakePayments) Confirm(_ context.Context, id uuid.UUID) (model.ConfirmResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, i := f.find(id)
	if o == nil {
		return model.ConfirmResult{}, errs.ErrNotFound
	}
	p := &o.Payments[i]
	if p.Status == model.PaymentSucceeded {
		return model.ConfirmResult{Payment: *p, OrderStatus: o.Status}, nil
	}
	p.Status = model.PaymentSucceeded
	o.Status = model.OrderPaid
	for _, it := range o.Items {
		if it.ItemType == model.ItemService && it.ServiceRequestID != nil {
			if sr, ok := f.requests[*it.ServiceRequestID]; ok {
				sr.Status = model.ServiceRequestPaid
				f.requestCascades++
			}
		}
	}
	return model.ConfirmResult{Payment: *p, OrderStatus: o.Status, Changed: true}, nil
}

func (f fakeDelivery) GetAsset(_ context.Context, productID uuid.UUID) (*model.ProductAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assets[productID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &a, nil
}
func (f fakeDelivery) CreateToken(_ context.Context, t *model.DownloadToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createTokenErr != nil {
		return f.createTokenErr
	}
	if _, ok := f.tokens[t.Token]; ok {
		return errs.ErrAlreadyExists
	}
	c := *t
	f.tokens[t.Token] = &c
	return nil
}
func (f fakeDelivery) GetToken(_ context.Context, token string) (*model.DownloadToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *t
	return &c, nil
}
func (f fakeDelivery) MarkUsed(_ context.Context, token string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok || t.IsUsed || now.After(t.ExpiresAt) {
		return errs.ErrConflict
	}
	t.IsUsed = true
	return nil
}
