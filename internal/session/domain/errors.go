package domain

import (
	"github.com/sidevault/sidevault/internal/errors"
)

var (
	// ErrSessionNotFound indicates no session exists with the given id.
	ErrSessionNotFound = errors.Wrap(errors.ErrNotFound, "session not found")

	// ErrInvalidSessionOrToken is returned for any authentication failure
	// during registration or sidecar calls. Deliberately unspecific so a
	// caller cannot probe which part was wrong.
	ErrInvalidSessionOrToken = errors.Wrap(errors.ErrUnauthorized, "invalid session or token")

	// ErrInvalidStateTransition indicates the session's current status does
	// not permit the requested transition.
	ErrInvalidStateTransition = errors.Wrap(errors.ErrInvalidState, "invalid session state transition")

	// ErrAlreadyRegistered indicates a second registration attempt for a
	// session that already left the creating state.
	ErrAlreadyRegistered = errors.Wrap(errors.ErrConflict, "session already registered")

	// ErrSidecarTokenExpired indicates the sidecar token outlived its TTL.
	ErrSidecarTokenExpired = errors.Wrap(errors.ErrExpired, "sidecar token expired")
)
