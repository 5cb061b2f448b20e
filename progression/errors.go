package progression

import (
	"errors"
	"fmt"
)

// InvalidInputError rejects malformed activity data before anything is written.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

// PersistenceError wraps a store failure. The wrapped error is kept as-is.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// CatalogInconsistencyError describes broken catalog data. It is logged, never
// returned from user-facing operations.
type CatalogInconsistencyError struct {
	Entity Kind
	ID     string
	Reason string
}

func (e *CatalogInconsistencyError) Error() string {
	return fmt.Sprintf("catalog inconsistency: %s %q: %s", e.Entity, e.ID, e.Reason)
}

// ErrNotFound is returned by catalog lookups for unknown ids.
var ErrNotFound = errors.New("not found")

func IsInvalidInput(err error) bool {
	var e *InvalidInputError
	return errors.As(err, &e)
}

func IsPersistence(err error) bool {
	var e *PersistenceError
	return errors.As(err, &e)
}
