// Package domain defines sandbox session entities and their lifecycle.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a sandbox session.
type Status string

// Session lifecycle states. A session starts in StatusCreating, becomes
// StatusActive on successful sidecar registration, and may bounce between
// active and idle until it reaches a terminal state.
const (
	StatusCreating Status = "creating"
	StatusActive   Status = "active"
	StatusIdle     Status = "idle"
	StatusStopped  Status = "stopped"
	StatusError    Status = "error"
)

// validTransitions maps each status to the statuses it may move to.
// StatusStopped and StatusError are terminal.
var validTransitions = map[Status][]Status{
	StatusCreating: {StatusActive, StatusStopped, StatusError},
	StatusActive:   {StatusIdle, StatusStopped, StatusError},
	StatusIdle:     {StatusActive, StatusStopped, StatusError},
	StatusStopped:  {},
	StatusError:    {},
}

// CanTransition reports whether a session may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// Session is one sandboxed agent run. The registration token authenticates
// the sidecar's one-shot handshake; the sidecar token authenticates every
// call the sidecar makes afterwards. Only hashes of either are stored.
type Session struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Status Status

	// RegistrationTokenHash is the Argon2id hash of the single-use
	// registration token issued at session creation.
	RegistrationTokenHash string

	// Sidecar key material recorded at registration.
	SidecarPublicKey string
	SidecarKeyID     string

	// OrchestratorPublicKey and OrchestratorKeyID record the most recent
	// ephemeral key pair used to seal credentials toward this session's
	// sidecar. The private half is destroyed after sealing.
	OrchestratorPublicKey string
	OrchestratorKeyID     string

	// Sidecar auth token verification material. The plaintext token is
	// returned exactly once, in the registration response.
	SidecarTokenHash     string
	SidecarTokenNonce    string
	SidecarTokenIssuedAt *time.Time

	// OpencodePort is the sandbox port handed to the sidecar at registration.
	OpencodePort int

	RegisteredAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
