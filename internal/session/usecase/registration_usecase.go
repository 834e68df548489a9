package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	credentialsUsecase "github.com/sidevault/sidevault/internal/credentials/usecase"
	"github.com/sidevault/sidevault/internal/exchange"
	"github.com/sidevault/sidevault/internal/session/domain"
	"github.com/sidevault/sidevault/internal/session/service"
)

// registrationUseCase implements the sidecar handshake.
type registrationUseCase struct {
	sessionRepo       SessionRepository
	credentials       credentialsUsecase.CredentialUseCase
	registrationToken service.RegistrationTokenService
	sidecarToken      service.SidecarTokenService
	sandbox           service.SandboxDriver
	sealer            *exchange.Sealer
}

// NewRegistrationUseCase creates a RegistrationUseCase.
func NewRegistrationUseCase(
	sessionRepo SessionRepository,
	credentials credentialsUsecase.CredentialUseCase,
	registrationToken service.RegistrationTokenService,
	sidecarToken service.SidecarTokenService,
	sandbox service.SandboxDriver,
	sealer *exchange.Sealer,
) RegistrationUseCase {
	return &registrationUseCase{
		sessionRepo:       sessionRepo,
		credentials:       credentials,
		registrationToken: registrationToken,
		sidecarToken:      sidecarToken,
		sandbox:           sandbox,
		sealer:            sealer,
	}
}

// RegisterSidecar performs the one-shot registration handshake. Exactly one
// concurrent attempt can win; the conditional activation at the end is the
// arbiter. Authentication failures are uniformly ErrInvalidSessionOrToken so
// a caller cannot distinguish a bad token from a missing session. A user with
// no stored credentials cannot register: delivering credentials is the point
// of the handshake, so ErrNoCredentials propagates.
func (r *registrationUseCase) RegisterSidecar(
	ctx context.Context,
	input *RegisterSidecarInput,
) (*RegisterSidecarOutput, error) {
	if err := exchange.ValidatePublicKey(input.PublicKey); err != nil {
		return nil, err
	}
	if err := exchange.ValidateKeyID(input.KeyID); err != nil {
		return nil, err
	}

	session, err := r.sessionRepo.Get(ctx, input.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrInvalidSessionOrToken
		}
		return nil, err
	}
	// Token comparison comes before the status guard: a caller holding a bad
	// token must not learn whether the session is already registered.
	if !r.registrationToken.Compare(input.RegistrationToken, session.RegistrationTokenHash) {
		return nil, domain.ErrInvalidSessionOrToken
	}
	if session.Status != domain.StatusCreating {
		return nil, domain.ErrAlreadyRegistered
	}

	secrets, skipped, err := r.credentials.DecryptAll(ctx, session.UserID, nil)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		slog.Warn("credentials skipped during registration",
			"session_id", session.ID,
			"skipped", skipped,
		)
	}

	orchestratorKey, err := exchange.GenerateEphemeralKeyPair()
	if err != nil {
		return nil, err
	}
	defer orchestratorKey.Destroy()

	sealedPayload, err := r.sealer.PackageSecrets(
		secrets,
		input.PublicKey,
		orchestratorKey.PrivateKey,
		input.KeyID,
	)
	if err != nil {
		return nil, err
	}

	plainToken, tokenHash, nonce, err := r.sidecarToken.Generate()
	if err != nil {
		return nil, err
	}

	opencodePort, err := r.sandbox.OpencodePort(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session.Status = domain.StatusActive
	session.SidecarPublicKey = input.PublicKey
	session.SidecarKeyID = input.KeyID
	session.OrchestratorPublicKey = orchestratorKey.PublicKey
	session.OrchestratorKeyID = orchestratorKey.KeyID
	session.SidecarTokenHash = tokenHash
	session.SidecarTokenNonce = nonce
	session.SidecarTokenIssuedAt = &now
	session.OpencodePort = opencodePort
	session.RegisteredAt = &now
	session.UpdatedAt = now

	if err := r.sessionRepo.Activate(ctx, session); err != nil {
		return nil, err
	}

	return &RegisterSidecarOutput{
		SidecarAuthToken:      plainToken,
		OrchestratorPublicKey: orchestratorKey.PublicKey,
		OrchestratorKeyID:     orchestratorKey.KeyID,
		OpencodePort:          opencodePort,
		CredentialCount:       len(secrets),
		EncryptedProviderKeys: sealedPayload,
	}, nil
}

// RefreshProviderKeys re-delivers the user's credentials to an already
// registered sidecar, sealed to a fresh key pair on both ends. Used after
// credential rotation so the sandbox picks up new secrets without restarting.
func (r *registrationUseCase) RefreshProviderKeys(
	ctx context.Context,
	input *RefreshProviderKeysInput,
) (*RefreshProviderKeysOutput, error) {
	if err := exchange.ValidatePublicKey(input.PublicKey); err != nil {
		return nil, err
	}
	if err := exchange.ValidateKeyID(input.KeyID); err != nil {
		return nil, err
	}

	session, err := r.sessionRepo.Get(ctx, input.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrInvalidSessionOrToken
		}
		return nil, err
	}
	if session.Status != domain.StatusActive && session.Status != domain.StatusIdle {
		return nil, domain.ErrInvalidStateTransition
	}

	now := time.Now().UTC()
	if err := r.sidecarToken.Verify(session, input.SidecarAuthToken, now); err != nil {
		return nil, err
	}

	secrets, skipped, err := r.credentials.DecryptAll(ctx, session.UserID, input.Providers)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		slog.Warn("credentials skipped during key refresh",
			"session_id", session.ID,
			"skipped", skipped,
		)
	}

	// A fresh orchestrator key pair per delivery: compromise of one sealed
	// payload's key never exposes another delivery.
	orchestratorKey, err := exchange.GenerateEphemeralKeyPair()
	if err != nil {
		return nil, err
	}
	defer orchestratorKey.Destroy()

	sealedPayload, err := r.sealer.PackageSecrets(
		secrets,
		input.PublicKey,
		orchestratorKey.PrivateKey,
		input.KeyID,
	)
	if err != nil {
		return nil, err
	}

	err = r.sessionRepo.UpdateKeyExchange(
		ctx,
		session.ID,
		input.PublicKey,
		input.KeyID,
		orchestratorKey.PublicKey,
		orchestratorKey.KeyID,
	)
	if err != nil {
		return nil, err
	}

	return &RefreshProviderKeysOutput{
		OrchestratorPublicKey: orchestratorKey.PublicKey,
		OrchestratorKeyID:     orchestratorKey.KeyID,
		CredentialCount:       len(secrets),
		EncryptedProviderKeys: sealedPayload,
		DeliveredAt:           now,
	}, nil
}
