// Package identity issues and verifies signed identity assertions and resolves
// the caller's role from them.
package identity

import (
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/digistore/internal/model"
)

// Identity is the verified content of an identity assertion.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Role   string
}

// IsAdmin reports whether the identity carries the administrator role.
func (i Identity) IsAdmin() bool { return IsAdminRole(i.Role) }

// IsAdminRole compares a role value with "admin", ignoring case and surrounding space.
func IsAdminRole(role string) bool {
	return strings.EqualFold(strings.TrimSpace(role), "admin")
}

// PromoteRole returns the role a user should hold after logging in with email.
// Only the configured admin email is promoted; everyone else keeps their role.
// Calling it again with its own result is a no-op.
func PromoteRole(adminEmail, email string, current model.Role) model.Role {
	if adminEmail == "" || current == model.RoleAdmin {
		return current
	}
	if strings.EqualFold(strings.TrimSpace(adminEmail), strings.TrimSpace(email)) {
		return model.RoleAdmin
	}
	return current
}
