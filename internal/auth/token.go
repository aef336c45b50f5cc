package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewToken returns a fresh opaque session token. The token combines a
// random UUID with additional random bytes so it carries well over 128
// bits of entropy.
func NewToken() (string, error) {
	extra := make([]byte, 16)
	if _, err := rand.Read(extra); err != nil {
		return "", err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String() + hex.EncodeToString(extra), nil
}

// HashToken computes the keyed hash of a token for storage and lookup.
// The raw token is held only by the client; a leaked sessions table does
// not expose live tokens.
func HashToken(secret []byte, token string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
