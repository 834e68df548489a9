// Package usecase implements session lifecycle management and the sidecar
// registration handshake, including sealed credential delivery.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/exchange"
	"github.com/sidevault/sidevault/internal/session/domain"
)

// SessionRepository persists sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error

	// Get returns the session or ErrSessionNotFound.
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error)

	// Activate atomically moves the session from creating to active while
	// recording the registration outcome. The conditional write guarantees
	// exactly one concurrent registration wins; losers get ErrAlreadyRegistered.
	Activate(ctx context.Context, session *domain.Session) error

	// UpdateStatus conditionally moves the session from one status to
	// another. Returns ErrInvalidStateTransition when the row is no longer in
	// the from status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) error

	// UpdateKeyExchange records fresh key material after a provider-key refresh.
	UpdateKeyExchange(
		ctx context.Context,
		id uuid.UUID,
		sidecarPublicKey, sidecarKeyID, orchestratorPublicKey, orchestratorKeyID string,
	) error
}

// CreateSessionOutput carries the new session plus the plaintext registration
// token, which is never derivable again.
type CreateSessionOutput struct {
	Session           *domain.Session
	RegistrationToken string
}

// SessionUseCase manages the session lifecycle outside of registration.
type SessionUseCase interface {
	Create(ctx context.Context, userID uuid.UUID) (*CreateSessionOutput, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error)

	// Stop, Idle, Resume and MarkError transition the session through its
	// state machine; each validates the current status first.
	Stop(ctx context.Context, id uuid.UUID) error
	Idle(ctx context.Context, id uuid.UUID) error
	Resume(ctx context.Context, id uuid.UUID) error
	MarkError(ctx context.Context, id uuid.UUID) error
}

// RegisterSidecarInput is the sidecar's one-shot registration request.
type RegisterSidecarInput struct {
	SessionID         uuid.UUID
	RegistrationToken string
	// PublicKey is the sidecar's base64-encoded uncompressed P-256 point.
	PublicKey string
	KeyID     string
}

// RegisterSidecarOutput is everything the sidecar needs to operate: its auth
// token, the orchestrator's ephemeral public key, the sandbox port, and the
// user's provider credentials sealed to the sidecar's key.
type RegisterSidecarOutput struct {
	SidecarAuthToken      string
	OrchestratorPublicKey string
	OrchestratorKeyID     string
	OpencodePort          int
	// CredentialCount is the number of provider secrets inside the sealed
	// payload; credentials that failed to decrypt are not counted.
	CredentialCount       int
	EncryptedProviderKeys *exchange.SealedPayload
}

// RefreshProviderKeysInput requests a re-delivery of provider credentials to
// an already registered sidecar, e.g. after credential rotation.
type RefreshProviderKeysInput struct {
	SessionID uuid.UUID
	// SidecarAuthToken authenticates the caller.
	SidecarAuthToken string
	// PublicKey and KeyID are the sidecar's fresh ephemeral key for this
	// delivery; reusing the registration key is rejected upstream by key id
	// bookkeeping on the sidecar side, not here.
	PublicKey string
	KeyID     string
	// Providers optionally narrows the delivery to the named providers.
	// Empty means every stored credential.
	Providers []string
}

// RefreshProviderKeysOutput carries the re-sealed credentials. A new
// orchestrator key pair is generated per refresh.
type RefreshProviderKeysOutput struct {
	OrchestratorPublicKey string
	OrchestratorKeyID     string
	CredentialCount       int
	EncryptedProviderKeys *exchange.SealedPayload
	DeliveredAt           time.Time
}

// RegistrationUseCase implements the sidecar handshake and key re-delivery.
type RegistrationUseCase interface {
	RegisterSidecar(ctx context.Context, input *RegisterSidecarInput) (*RegisterSidecarOutput, error)
	RefreshProviderKeys(ctx context.Context, input *RefreshProviderKeysInput) (*RefreshProviderKeysOutput, error)
}
