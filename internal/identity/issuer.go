package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/digistore/internal/errs"
	"github.com/and161185/digistore/internal/model"
)

// DefaultTTL is the lifetime of an identity assertion.
const DefaultTTL = 7 * 24 * time.Hour

const leeway = 30 * time.Second

// Issuer signs and verifies HS256 identity assertions.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewIssuer constructs an Issuer. A non-positive ttl falls back to DefaultTTL.
func NewIssuer(key []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{key: key, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue creates a signed assertion for the user.
func (i *Issuer) Issue(u model.User) (model.Tokens, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := jwt.MapClaims{
		"sub":     u.ID.String(),
		"email":   u.Email,
		"name":    u.DisplayName,
		ClaimRole: string(u.Role),
		"iat":     jwt.NewNumericDate(now),
		"exp":     jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}

// Verify checks signature and expiry and returns the identity. Any malformed
// or invalid assertion yields errs.ErrUnauthorized.
func (i *Issuer) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("empty token: %w", errs.ErrUnauthorized)
	}
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.key, nil
	},
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("invalid token: %w", errs.ErrUnauthorized)
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return Identity{}, fmt.Errorf("bad subject: %w", errs.ErrUnauthorized)
	}
	id, err := uuid.FromString(sub)
	if err != nil || id == uuid.Nil {
		return Identity{}, fmt.Errorf("bad subject: %w", errs.ErrUnauthorized)
	}

	return Identity{
		UserID: id,
		Email:  claimString(claims["email"]),
		Name:   claimString(claims["name"]),
		Role:   ExtractRole(claims),
	}, nil
}
