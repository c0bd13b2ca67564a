package identity

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claim names the role may be carried under, in lookup order.
const (
	ClaimRole           = "role"
	ClaimRoleNamespaced = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
	ClaimRoles          = "roles"
)

// RoleExtractor returns the role found in claims, or "" when it has none.
type RoleExtractor func(claims jwt.MapClaims) string

var roleExtractors = []RoleExtractor{
	fromClaim(ClaimRole),
	fromClaim(ClaimRoleNamespaced),
	fromClaim(ClaimRoles),
}

// ExtractRole runs the extractors in order and returns the first non-empty role.
func ExtractRole(claims jwt.MapClaims) string {
	for _, ex := range roleExtractors {
		if r := ex(claims); r != "" {
			return r
		}
	}
	return ""
}

func fromClaim(name string) RoleExtractor {
	return func(claims jwt.MapClaims) string {
		return claimString(claims[name])
	}
}

// claimString accepts a plain string or an array whose first element is the value.
func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []string:
		if len(t) > 0 {
			return strings.TrimSpace(t[0])
		}
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
