// Package service contains application services for accounts, checkout,
// payment confirmation and digital delivery.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/and161185/digistore/internal/crypto"
	"github.com/and161185/digistore/internal/errs"
	"github.com/and161185/digistore/internal/identity"
	"github.com/and161185/digistore/internal/limiter"
	"github.com/and161185/digistore/internal/model"
	"github.com/and161185/digistore/internal/repository"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

// AuthService defines account operations.
type AuthService interface {
	// Register creates a new user and signs them in.
	Register(ctx context.Context, email, password, displayName string) (model.Tokens, model.User, error)
	// LoginWithIP applies lockout by (email, ip) and authenticates the user.
	LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error)
	// Me loads the stored account of an authenticated caller.
	Me(ctx context.Context, userID uuid.UUID) (model.User, error)
}

// TokenIssuer signs identity assertions.
type TokenIssuer interface {
	Issue(u model.User) (model.Tokens, error)
}

type AuthServiceImpl struct {
	users      repository.UserRepository
	issuer     TokenIssuer
	lim        limiter.Limiter
	adminEmail string
}

// NewAuthService constructs AuthService with required dependencies.
// adminEmail may be empty to disable promotion.
func NewAuthService(users repository.UserRepository, issuer TokenIssuer, lim limiter.Limiter, adminEmail string) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Nop{}
	}
	return &AuthServiceImpl{users: users, issuer: issuer, lim: lim, adminEmail: adminEmail}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user record with a per-user salt.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password, displayName string) (model.Tokens, model.User, error) {
	email = NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		return model.Tokens{}, model.User{}, fmt.Errorf("email: %w", errs.ErrInvalidRequest)
	}
	if len(password) < MinPasswordLen {
		return model.Tokens{}, model.User{}, fmt.Errorf("password shorter than %d: %w", MinPasswordLen, errs.ErrInvalidRequest)
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	pw, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}

	u := model.User{
		ID:          uid,
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
		PwdHash:     pw.Key,
		SaltAuth:    pw.Salt,
		Role:        identity.PromoteRole(s.adminEmail, email, model.RoleUser),
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return model.Tokens{}, model.User{}, err
	}

	tok, err := s.issuer.Issue(u)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tok, u, nil
}

// LoginWithIP authenticates with lockout by (email, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error) {
	email = NormalizeEmail(email)
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !(pkgcrypto.Password{Salt: u.SaltAuth, Key: u.PwdHash}).Matches(password) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		// unknown email and wrong password look the same
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, email, ipHash)

	if role := identity.PromoteRole(s.adminEmail, u.Email, u.Role); role != u.Role {
		if err := s.users.SetRole(ctx, u.ID, role); err != nil {
			return model.Tokens{}, model.User{}, err
		}
		u.Role = role
	}

	tok, err := s.issuer.Issue(*u)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tok, *u, nil
}

// Me returns the caller's stored account.
func (s *AuthServiceImpl) Me(ctx context.Context, userID uuid.UUID) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	return *u, nil
}
