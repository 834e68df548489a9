// Package service provides session-scoped services: registration token
// hashing, sidecar auth tokens, and sandbox runtime lookups.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/session/domain"
)

// RegistrationTokenService issues and verifies single-use registration tokens.
// Tokens are hashed with Argon2id before storage; the plaintext exists only in
// the session-creation response.
type RegistrationTokenService interface {
	Generate() (plainToken string, tokenHash string, err error)
	Compare(plainToken string, tokenHash string) bool
}

// SidecarTokenService issues and verifies sidecar auth tokens. Verification is
// a constant-time hash comparison plus a TTL check against IssuedAt.
type SidecarTokenService interface {
	Generate() (plainToken string, tokenHash string, nonce string, err error)
	Verify(session *domain.Session, plainToken string, now time.Time) error
}

// SandboxDriver resolves runtime facts about a session's sandbox. The static
// implementation serves single-host deployments; a scheduler-backed one can
// replace it without touching the registration flow.
type SandboxDriver interface {
	OpencodePort(ctx context.Context, sessionID uuid.UUID) (int, error)
}
