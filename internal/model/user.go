package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is the stored authorization role of an account.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// User represents an account stored on the server. The password is never stored in plaintext.
type User struct {
	ID          uuid.UUID // PK
	Email       string    // unique, lower-cased
	DisplayName string
	PwdHash     []byte // Argon2id(password, SaltAuth)
	SaltAuth    []byte // per-user auth salt
	Role        Role
	CreatedAt   time.Time
}

// Tokens collects an issued identity assertion.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time
}
