// Package common defines shared sentinel errors used across the identity
// subsystem. Callers should use errors.Is to match these values; conflict
// errors carry a human-readable reason wrapped around the sentinel.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Validation errors: caller bug, never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUserNotExists means an operation referenced a user id that does
	// not resolve to a user row.
	ErrUserNotExists = errors.New("user does not exist")

	// ErrUserUpdateConflict means an email change or merge precondition
	// was violated (suppressed user, cross-provider collision, ...).
	ErrUserUpdateConflict = errors.New("user update conflict")

	// Generic internal failure surfaced by services.
	ErrInternal = errors.New("internal error")

	// Account-link token errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
