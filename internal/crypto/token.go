package crypto

import "encoding/base64"

// TokenBytes is the entropy of an opaque download token.
const TokenBytes = 32

// RandToken returns a URL-safe opaque token with TokenBytes of entropy.
func RandToken() (string, error) {
	b, err := RandBytes(TokenBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
