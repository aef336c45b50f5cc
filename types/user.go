package types

import "time"

// User represents a registered account in the system.
// It contains identity, profile, and audit metadata.
type User struct {
	// ID is the unique identifier of the user, assigned by the store.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address, unique across all accounts.
	Email string `json:"email" db:"email"`

	// FavoriteColor is an optional free-form profile attribute.
	FavoriteColor string `json:"favorite_color" db:"favorite_color"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	// It is set once at insert and never updated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
