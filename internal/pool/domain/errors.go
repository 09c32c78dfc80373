package domain

import "errors"

var (
	// ErrUnauthenticated is returned when an operation needs a viewer and none is present.
	ErrUnauthenticated = errors.New("session required")
	// ErrPoolNotFound is returned when a pool does not exist or the caller may not see or act on it.
	// The two cases are deliberately indistinguishable.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrWithdrawalNotFound is returned when a withdrawal id is unknown within a visible pool.
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")
	// ErrInvalidTransition is returned when a withdrawal cannot move to the requested state.
	ErrInvalidTransition = errors.New("invalid withdrawal transition")
	// ErrVersionConflict is returned when a pool was modified since it was read.
	ErrVersionConflict = errors.New("pool was modified concurrently")
	// ErrAlreadyExists is returned when creating a pool whose id is taken.
	ErrAlreadyExists = errors.New("pool already exists")
)

// ValidationError reports a bad input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Invalid returns a *ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
