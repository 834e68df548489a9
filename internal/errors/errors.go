// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors should be used by use cases
// and mapped to appropriate HTTP status codes by handlers.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., a concurrent
	// writer won a conditional update).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	// Deliberately vague: session-absent and token-mismatch map here identically
	// so callers cannot enumerate sessions.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authenticated caller doesn't have permission.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState indicates an operation is not allowed in the entity's
	// current lifecycle state (e.g., registering an already-active session).
	ErrInvalidState = errors.New("invalid state")

	// ErrIntegrity indicates an AEAD authentication failure. Fatal to the blob
	// in question; never retried, never silently recovered.
	ErrIntegrity = errors.New("integrity failure")

	// ErrExpired indicates a time-bounded artifact (sealed payload, sidecar
	// token) is past its freshness window. Distinct from ErrIntegrity: the data
	// is intact but stale, resolved by re-registering or refreshing.
	ErrExpired = errors.New("expired")

	// ErrPartialFailure indicates a batch operation where some items failed.
	// Always accompanied by a structured per-item report.
	ErrPartialFailure = errors.New("partial failure")

	// ErrRateLimited indicates the caller exceeded the allowed request rate.
	ErrRateLimited = errors.New("rate limited")
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
