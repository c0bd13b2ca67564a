package httpserver

import (
	"context"

	"github.com/and161185/digistore/internal/identity"
)

type ctxKey string

const identityKey ctxKey = "ds.identity"

// WithIdentity stores the verified caller in context.
func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromCtx fetches the verified caller from context.
func IdentityFromCtx(ctx context.Context) (identity.Identity, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return identity.Identity{}, false
	}
	id, ok := v.(identity.Identity)
	return id, ok
}
