package domain

import "errors"

// Business error kinds. Operations wrap one of these with context, so
// callers match them with errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflict          = errors.New("conflict")
)

// Infrastructure error kinds. These are not business outcomes.
var (
	// ErrLockTimeout is returned when an exclusive account lock could not
	// be obtained in time. The operation had no effect and may be retried.
	ErrLockTimeout = errors.New("timed out waiting for account lock")

	// ErrAccountNumberExhausted is returned when every generated account
	// number collided with an existing one.
	ErrAccountNumberExhausted = errors.New("could not generate a unique account number")
)

// IsRetryable reports whether err is a transient failure that left the
// ledger unchanged
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
