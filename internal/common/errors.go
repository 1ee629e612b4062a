// Package common holds the error types, logging setup and retry policy
// shared by the vault packages.
package common

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a fingerprint matches no ledger entry.
	ErrNotFound = errors.New("not found")
	// ErrDatabaseCorrupted means a stored row can no longer be decoded.
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// ErrMissingConfig and ErrInvalidConfig report unusable settings.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError carries a short message for the terminal alongside the
// underlying cause, which is only logged at debug level.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.UserMessage
	}
	return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError wraps err with a message meant for the person running vault.
func NewUserError(userMessage string, err error) error {
	return &UserError{UserMessage: userMessage, Err: err}
}

// IsRetryable reports whether err is lock contention or a timeout worth
// another attempt. Errors marked with Permanent are never retried.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrBusy) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}
	return false
}
