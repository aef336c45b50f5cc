package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// DuplicateError is returned when an insert or update violates a unique
// constraint. Field names the colliding column.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s", e.Field)
}

// uniqueViolation is the SQLSTATE class for unique constraint violations.
const uniqueViolation = "23505"

// constraint-name to column mapping for the users table.
var uniqueConstraints = map[string]string{
	"users_username_key": "username",
	"users_email_key":    "email",
}

// mapUniqueViolation converts a driver unique-violation error into a
// DuplicateError. Other errors pass through unchanged; uniqueness is
// enforced only by the database constraint, never by a prior lookup.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return err
	}
	field, ok := uniqueConstraints[pqErr.Constraint]
	if !ok {
		field = pqErr.Constraint
	}
	return &DuplicateError{Field: field}
}
