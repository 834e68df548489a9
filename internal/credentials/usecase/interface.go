// Package usecase implements business logic for credential storage and key
// rotation: envelope encryption at rest, batch rotation with optional
// rollback, rotation schedules, and the append-only audit trail.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/credentials/domain"
	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
)

// CredentialRepository persists envelope-encrypted credentials.
type CredentialRepository interface {
	// Upsert creates the credential or replaces its secret in place.
	Upsert(ctx context.Context, credential *domain.Credential) error

	// Get returns the credential for (userID, provider) or ErrCredentialNotFound.
	Get(ctx context.Context, userID uuid.UUID, provider string) (*domain.Credential, error)

	// ListByUser returns all of a user's credentials ordered by provider.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Credential, error)

	// Delete removes the credential or returns ErrCredentialNotFound.
	Delete(ctx context.Context, userID uuid.UUID, provider string) error

	// UpdateSecret conditionally replaces the stored secret. The write only
	// lands if the row still carries expectedVersion; a conflicting writer
	// gets ErrConflict, never a silent overwrite.
	UpdateSecret(
		ctx context.Context,
		userID uuid.UUID,
		provider string,
		expectedVersion uint,
		secret *cryptoDomain.StoredSecret,
	) error
}

// RotationAuditRepository persists the append-only rotation audit trail.
type RotationAuditRepository interface {
	Create(ctx context.Context, entry *domain.RotationAuditEntry) error
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.RotationAuditEntry, error)
	ListByUserAndProvider(
		ctx context.Context,
		userID uuid.UUID,
		provider string,
		offset, limit int,
	) ([]*domain.RotationAuditEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RotationScheduleRepository persists pending rotation schedules.
type RotationScheduleRepository interface {
	// Upsert creates the schedule or updates RunAt for an existing
	// (user, provider) pair; there is never more than one pending schedule.
	Upsert(ctx context.Context, schedule *domain.RotationSchedule) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.RotationSchedule, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CredentialUseCase manages stored credentials.
type CredentialUseCase interface {
	// Store envelope-encrypts the plaintext and creates or replaces the
	// credential for (userID, provider).
	Store(ctx context.Context, userID uuid.UUID, provider string, plaintext []byte) (*domain.Credential, error)

	// List returns credential metadata for the user (never plaintext).
	List(ctx context.Context, userID uuid.UUID) ([]*domain.Credential, error)

	// Delete removes the credential.
	Delete(ctx context.Context, userID uuid.UUID, provider string) error

	// DecryptAll decrypts every stored credential for the user into a
	// provider→plaintext map. Individual decrypt failures are skipped and
	// counted via failed; ErrNoCredentials if none are stored and
	// ErrAllDecryptFailed if every one fails. Callers must zero the returned
	// values as soon as they are sealed onward.
	DecryptAll(ctx context.Context, userID uuid.UUID, providers []string) (secrets map[string]string, failed int, err error)
}

// RotateAllInput configures a batch rotation.
type RotateAllInput struct {
	UserID uuid.UUID
	// Providers restricts the batch; empty means every stored credential.
	Providers []string
	// RollbackOnFailure reverts all successful rotations in the batch when
	// any single provider fails. Default (false) is best-effort.
	RollbackOnFailure bool
}

// ProviderRotationResult reports one provider's outcome inside a batch.
type ProviderRotationResult struct {
	Provider   string `json:"provider"`
	Success    bool   `json:"success"`
	OldVersion uint   `json:"old_version"`
	NewVersion uint   `json:"new_version"`
	Error      string `json:"error,omitempty"`
}

// RotateAllResult is the structured report of a batch rotation. Returned even
// under partial failure; callers inspect Failed rather than an error value.
type RotateAllResult struct {
	Results    []ProviderRotationResult `json:"results"`
	Succeeded  int                      `json:"succeeded"`
	Failed     int                      `json:"failed"`
	RolledBack bool                     `json:"rolled_back"`
}

// RotationUseCase re-wraps stored credentials to higher key versions.
type RotationUseCase interface {
	// RotateOne rotates a single credential and always appends an audit
	// entry, including on failure. targetVersion 0 means current+1.
	RotateOne(ctx context.Context, userID uuid.UUID, provider string, targetVersion uint) (*domain.RotationAuditEntry, error)

	// RotateAll rotates a user's credentials with bounded concurrency.
	RotateAll(ctx context.Context, input RotateAllInput) (*RotateAllResult, error)

	// ScheduleRotation upserts the pending schedule for (userID, provider).
	ScheduleRotation(ctx context.Context, userID uuid.UUID, provider string, runAt time.Time) (*domain.RotationSchedule, error)

	// RunDueSchedules executes and clears schedules whose RunAt has passed.
	// Returns the number of schedules executed.
	RunDueSchedules(ctx context.Context, now time.Time, limit int) (int, error)

	// ListAudit returns audit entries newest-first, optionally filtered by provider.
	ListAudit(ctx context.Context, userID uuid.UUID, provider string, offset, limit int) ([]*domain.RotationAuditEntry, error)
}
