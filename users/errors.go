package users

import (
	"errors"
	"strings"

	"go.uber.org/multierr"
)

var (
	ErrNotFound         = errors.New("user not found")
	ErrDuplicateEmail   = errors.New("email already exists")
	ErrInvalidID        = errors.New("invalid user id")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// MissingFieldsError reports required fields absent from a create request.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// ConstraintError aggregates every schema constraint violated by a record.
type ConstraintError struct {
	err error
}

func NewConstraintError(violations ...error) *ConstraintError {
	return &ConstraintError{err: multierr.Combine(violations...)}
}

func (e *ConstraintError) Error() string {
	return "validation error: " + e.err.Error()
}

func (e *ConstraintError) Unwrap() error { return e.err }

// Messages returns the individual field-level violation messages.
func (e *ConstraintError) Messages() []string {
	errs := multierr.Errors(e.err)
	msgs := make([]string, len(errs))

	for i, err := range errs {
		msgs[i] = err.Error()
	}

	return msgs
}
