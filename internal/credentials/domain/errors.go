package domain

import (
	"github.com/sidevault/sidevault/internal/errors"
)

var (
	// ErrCredentialNotFound indicates no credential exists for the (user, provider).
	ErrCredentialNotFound = errors.Wrap(errors.ErrNotFound, "credential not found")

	// ErrNoCredentials indicates the user has no stored credentials at all.
	ErrNoCredentials = errors.Wrap(errors.ErrNotFound, "no credentials stored for user")

	// ErrAllDecryptFailed indicates every stored credential failed to decrypt.
	// Individual failures are skipped and counted; only total failure is fatal.
	ErrAllDecryptFailed = errors.Wrap(errors.ErrIntegrity, "all stored credentials failed to decrypt")

	// ErrScheduleInPast indicates a rotation was scheduled for a past instant.
	ErrScheduleInPast = errors.Wrap(errors.ErrInvalidInput, "rotation schedule must be in the future")
)
