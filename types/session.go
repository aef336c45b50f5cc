package types

import "time"

// Session binds an opaque client token to an authenticated user until
// logout or expiry. Only the HMAC of the token is ever stored; the raw
// token lives exclusively on the client.
type Session struct {
	// TokenHash is the HMAC-SHA256 of the client token, hex encoded.
	TokenHash string `json:"-" db:"token_hash"`

	// UserID identifies the user this session is bound to.
	UserID int `json:"user_id" db:"user_id"`

	// CreatedAt is the timestamp when the session was issued.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// ExpiresAt is the timestamp after which the session is invalid.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
