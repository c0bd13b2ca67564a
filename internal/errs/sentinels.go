// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing or invalid identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates a valid identity acting on something it does not own.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidRequest indicates a request that failed validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrConflict indicates the entity is in a state that does not allow the operation.
	ErrConflict = errors.New("conflict")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrExpired indicates a time-limited grant was used after its expiry.
	ErrExpired = errors.New("expired")

	// ErrNotImplemented indicates a known but unsupported code path.
	ErrNotImplemented = errors.New("not implemented")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates a transient failure; the caller may retry.
	ErrUnavailable = errors.New("temporarily unavailable")
)
