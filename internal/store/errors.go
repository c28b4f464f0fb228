package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or update violates a unique
// constraint, such as a duplicate contact or user email.
var ErrConflict = errors.New("conflict")

const uniqueViolation = "23505"

// translateError maps driver-level uniqueness violations to ErrConflict
// so handlers can surface a clean 409 instead of a 500.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}
