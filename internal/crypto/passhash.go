// Package crypto derives password hashes and opaque random tokens.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// argon2id cost for account passwords.
const (
	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024 // KiB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32

	// SaltLen is the per-account salt size in bytes.
	SaltLen = 16
)

// Password is a stored credential: the argon2id key and the salt it was derived with.
type Password struct {
	Salt []byte
	Key  []byte
}

// RandBytes returns n bytes from crypto/rand.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// HashPassword derives a Password from plain with a fresh salt.
func HashPassword(plain string) (Password, error) {
	salt, err := RandBytes(SaltLen)
	if err != nil {
		return Password{}, err
	}
	return Password{Salt: salt, Key: derive(plain, salt)}, nil
}

// Matches reports whether plain derives to p.Key. A Password without a key
// (e.g. a zero value for an unknown account) never matches.
func (p Password) Matches(plain string) bool {
	if len(p.Key) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(derive(plain, p.Salt), p.Key) == 1
}

func derive(plain string, salt []byte) []byte {
	return argon2.IDKey([]byte(plain), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}
