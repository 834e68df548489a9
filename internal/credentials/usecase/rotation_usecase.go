package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sidevault/sidevault/internal/credentials/domain"
	cryptoService "github.com/sidevault/sidevault/internal/crypto/service"
	"github.com/sidevault/sidevault/internal/database"
)

// rotationUseCase implements RotationUseCase.
type rotationUseCase struct {
	txManager      database.TxManager
	credentialRepo CredentialRepository
	auditRepo      RotationAuditRepository
	scheduleRepo   RotationScheduleRepository
	envelope       cryptoService.Envelope
	concurrency    int
}

// NewRotationUseCase creates a RotationUseCase. concurrency bounds the number
// of providers rotated in parallel during a batch.
func NewRotationUseCase(
	txManager database.TxManager,
	credentialRepo CredentialRepository,
	auditRepo RotationAuditRepository,
	scheduleRepo RotationScheduleRepository,
	envelope cryptoService.Envelope,
	concurrency int,
) RotationUseCase {
	if concurrency < 1 {
		concurrency = 1
	}
	return &rotationUseCase{
		txManager:      txManager,
		credentialRepo: credentialRepo,
		auditRepo:      auditRepo,
		scheduleRepo:   scheduleRepo,
		envelope:       envelope,
		concurrency:    concurrency,
	}
}

// RotateOne rotates a single credential to targetVersion (0 means current+1)
// and always appends an audit entry. The stored secret is only replaced if no
// concurrent writer bumped the version in between.
func (r *rotationUseCase) RotateOne(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
	targetVersion uint,
) (*domain.RotationAuditEntry, error) {
	credential, err := r.credentialRepo.Get(ctx, userID, provider)
	if err != nil {
		return nil, err
	}

	oldVersion := credential.Secret.KeyVersion
	rotated, rotateErr := r.envelope.Rotate(&credential.Secret, targetVersion, credential.AAD())

	entry := &domain.RotationAuditEntry{
		ID:         uuid.Must(uuid.NewV7()),
		UserID:     userID,
		Provider:   provider,
		OldVersion: oldVersion,
		NewVersion: oldVersion,
		CreatedAt:  time.Now().UTC(),
	}

	if rotateErr == nil {
		entry.Success = true
		entry.NewVersion = rotated.KeyVersion

		// The secret replacement and its success audit entry land atomically:
		// an audit entry claiming version N never exists without the secret
		// actually carrying version N.
		rotateErr = r.txManager.WithTx(ctx, func(ctx context.Context) error {
			if err := r.credentialRepo.UpdateSecret(ctx, userID, provider, oldVersion, rotated); err != nil {
				return err
			}
			return r.auditRepo.Create(ctx, entry)
		})
		if rotateErr == nil {
			return entry, nil
		}
	}

	entry.Success = false
	entry.NewVersion = oldVersion
	entry.Error = rotateErr.Error()

	// The audit trail has no gaps: failed attempts are recorded too, outside
	// any transaction so the entry survives the failure it describes.
	if auditErr := r.auditRepo.Create(ctx, entry); auditErr != nil {
		slog.Error("failed to write rotation audit entry",
			"user_id", userID,
			"provider", provider,
			"error", auditErr,
		)
	}

	return entry, rotateErr
}

// RotateAll rotates the user's credentials with bounded concurrency. The
// default mode is best-effort: failures are reported per provider and never
// abort the batch. With RollbackOnFailure set, any failure reverts every
// successful rotation in the batch via compensating writes.
func (r *rotationUseCase) RotateAll(ctx context.Context, input RotateAllInput) (*RotateAllResult, error) {
	credentials, err := r.credentialRepo.ListByUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(input.Providers) > 0 {
		credentials = filterByProvider(credentials, input.Providers)
	}
	if len(credentials) == 0 {
		return nil, domain.ErrNoCredentials
	}

	// Snapshot the pre-rotation secrets so a rollback can restore them.
	originals := make([]*domain.Credential, len(credentials))
	for i, credential := range credentials {
		originals[i] = &domain.Credential{
			ID:       credential.ID,
			UserID:   credential.UserID,
			Provider: credential.Provider,
			Secret:   *credential.Secret.Clone(),
		}
	}

	result := &RotateAllResult{
		Results: make([]ProviderRotationResult, len(credentials)),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)
	for i, credential := range credentials {
		group.Go(func() error {
			entry, err := r.RotateOne(groupCtx, credential.UserID, credential.Provider, 0)
			providerResult := ProviderRotationResult{
				Provider:   credential.Provider,
				OldVersion: credential.Secret.KeyVersion,
				NewVersion: credential.Secret.KeyVersion,
			}
			if entry != nil {
				providerResult.OldVersion = entry.OldVersion
				providerResult.NewVersion = entry.NewVersion
			}
			if err != nil {
				providerResult.Error = err.Error()
			} else {
				providerResult.Success = true
			}
			result.Results[i] = providerResult
			return nil
		})
	}
	// Workers never return errors; failures land in the per-provider results.
	_ = group.Wait()

	for _, providerResult := range result.Results {
		if providerResult.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	if result.Failed > 0 && input.RollbackOnFailure && result.Succeeded > 0 {
		r.rollback(ctx, originals, result)
	}

	return result, nil
}

// rollback restores the snapshotted secrets for every provider that rotated
// successfully. Each restore is conditional on the rotated version so a
// concurrent writer is never clobbered.
func (r *rotationUseCase) rollback(
	ctx context.Context,
	originals []*domain.Credential,
	result *RotateAllResult,
) {
	for i := range result.Results {
		providerResult := &result.Results[i]
		if !providerResult.Success {
			continue
		}

		original := originals[i]
		err := r.credentialRepo.UpdateSecret(
			ctx,
			original.UserID,
			original.Provider,
			providerResult.NewVersion,
			&original.Secret,
		)
		if err != nil {
			slog.Error("rotation rollback failed",
				"user_id", original.UserID,
				"provider", original.Provider,
				"error", err,
			)
			continue
		}

		// The compensating write is audited as a successful restore to the
		// prior version: Error stays empty because the restore itself worked.
		// The rotation that triggered it has its own failure entry, and the
		// version numbers running backwards mark this entry as a rollback.
		entry := &domain.RotationAuditEntry{
			ID:         uuid.Must(uuid.NewV7()),
			UserID:     original.UserID,
			Provider:   original.Provider,
			OldVersion: providerResult.NewVersion,
			NewVersion: original.Secret.KeyVersion,
			Success:    true,
			CreatedAt:  time.Now().UTC(),
		}
		if auditErr := r.auditRepo.Create(ctx, entry); auditErr != nil {
			slog.Error("failed to write rollback audit entry",
				"user_id", original.UserID,
				"provider", original.Provider,
				"error", auditErr,
			)
		}

		providerResult.Success = false
		providerResult.NewVersion = original.Secret.KeyVersion
		providerResult.Error = "rolled back after batch rotation failure"
		result.Succeeded--
		result.Failed++
	}
	result.RolledBack = true
}

// ScheduleRotation upserts the pending schedule for (userID, provider).
func (r *rotationUseCase) ScheduleRotation(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
	runAt time.Time,
) (*domain.RotationSchedule, error) {
	if runAt.Before(time.Now().UTC()) {
		return nil, domain.ErrScheduleInPast
	}

	// The credential must exist before a rotation can be scheduled for it.
	if _, err := r.credentialRepo.Get(ctx, userID, provider); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	schedule := &domain.RotationSchedule{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    userID,
		Provider:  provider,
		RunAt:     runAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.scheduleRepo.Upsert(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// RunDueSchedules executes schedules whose RunAt has passed. Each schedule is
// cleared whether its rotation succeeded or not; the attempt is in the audit
// trail either way and operators re-schedule from there.
func (r *rotationUseCase) RunDueSchedules(ctx context.Context, now time.Time, limit int) (int, error) {
	schedules, err := r.scheduleRepo.ListDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	executed := 0
	for _, schedule := range schedules {
		if _, err := r.RotateOne(ctx, schedule.UserID, schedule.Provider, 0); err != nil {
			slog.Error("scheduled rotation failed",
				"user_id", schedule.UserID,
				"provider", schedule.Provider,
				"error", err,
			)
		}
		if err := r.scheduleRepo.Delete(ctx, schedule.ID); err != nil {
			return executed, err
		}
		executed++
	}
	return executed, nil
}

// ListAudit returns audit entries newest-first, optionally filtered by provider.
func (r *rotationUseCase) ListAudit(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
	offset, limit int,
) ([]*domain.RotationAuditEntry, error) {
	if provider != "" {
		return r.auditRepo.ListByUserAndProvider(ctx, userID, provider, offset, limit)
	}
	return r.auditRepo.ListByUser(ctx, userID, offset, limit)
}
