package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/credentials/domain"
	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
	cryptoService "github.com/sidevault/sidevault/internal/crypto/service"
)

// credentialUseCase implements CredentialUseCase on top of the envelope engine
// and the credential repository.
type credentialUseCase struct {
	credentialRepo CredentialRepository
	envelope       cryptoService.Envelope
}

// NewCredentialUseCase creates a CredentialUseCase.
func NewCredentialUseCase(
	credentialRepo CredentialRepository,
	envelope cryptoService.Envelope,
) CredentialUseCase {
	return &credentialUseCase{
		credentialRepo: credentialRepo,
		envelope:       envelope,
	}
}

// Store envelope-encrypts the plaintext and upserts the credential. The
// plaintext buffer is zeroed before returning, success or failure.
func (c *credentialUseCase) Store(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
	plaintext []byte,
) (*domain.Credential, error) {
	defer cryptoDomain.Zero(plaintext)

	credential := &domain.Credential{
		ID:       uuid.Must(uuid.NewV7()),
		UserID:   userID,
		Provider: provider,
	}

	secret, err := c.envelope.Encrypt(plaintext, credential.AAD())
	if err != nil {
		return nil, err
	}
	credential.Secret = *secret
	credential.CreatedAt = time.Now().UTC()
	credential.UpdatedAt = credential.CreatedAt

	if err := c.credentialRepo.Upsert(ctx, credential); err != nil {
		return nil, err
	}

	return credential, nil
}

// List returns the user's credentials ordered by provider.
func (c *credentialUseCase) List(ctx context.Context, userID uuid.UUID) ([]*domain.Credential, error) {
	return c.credentialRepo.ListByUser(ctx, userID)
}

// Delete removes the credential for (userID, provider).
func (c *credentialUseCase) Delete(ctx context.Context, userID uuid.UUID, provider string) error {
	return c.credentialRepo.Delete(ctx, userID, provider)
}

// DecryptAll decrypts the user's stored credentials into a provider→plaintext
// map. A credential that fails to decrypt is skipped and counted so one
// corrupt row never blocks delivery of the rest.
func (c *credentialUseCase) DecryptAll(
	ctx context.Context,
	userID uuid.UUID,
	providers []string,
) (map[string]string, int, error) {
	credentials, err := c.credentialRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	if len(providers) > 0 {
		credentials = filterByProvider(credentials, providers)
	}
	if len(credentials) == 0 {
		return nil, 0, domain.ErrNoCredentials
	}

	secrets := make(map[string]string, len(credentials))
	failed := 0
	for _, credential := range credentials {
		plaintext, err := c.envelope.Decrypt(&credential.Secret, credential.AAD())
		if err != nil {
			// Whatever the cause (tamper, retired master key, unsupported
			// version), one bad row never blocks the rest of the delivery.
			failed++
			continue
		}
		secrets[credential.Provider] = string(plaintext)
		cryptoDomain.Zero(plaintext)
	}

	if len(secrets) == 0 {
		return nil, failed, domain.ErrAllDecryptFailed
	}

	return secrets, failed, nil
}

func filterByProvider(credentials []*domain.Credential, providers []string) []*domain.Credential {
	wanted := make(map[string]struct{}, len(providers))
	for _, provider := range providers {
		wanted[provider] = struct{}{}
	}

	filtered := make([]*domain.Credential, 0, len(credentials))
	for _, credential := range credentials {
		if _, ok := wanted[credential.Provider]; ok {
			filtered = append(filtered, credential)
		}
	}
	return filtered
}
