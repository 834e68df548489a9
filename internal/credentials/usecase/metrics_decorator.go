package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/credentials/domain"
	"github.com/sidevault/sidevault/internal/metrics"
)

// credentialUseCaseWithMetrics decorates CredentialUseCase with metrics instrumentation.
type credentialUseCaseWithMetrics struct {
	next    CredentialUseCase
	metrics metrics.BusinessMetrics
}

// NewCredentialUseCaseWithMetrics wraps a CredentialUseCase with metrics recording.
func NewCredentialUseCaseWithMetrics(useCase CredentialUseCase, m metrics.BusinessMetrics) CredentialUseCase {
	return &credentialUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (c *credentialUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordOperation(ctx, "credentials", operation, status)
	c.metrics.RecordDuration(ctx, "credentials", operation, time.Since(start), status)
}

func (c *credentialUseCaseWithMetrics) Store(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
	plaintext []byte,
) (*domain.Credential, error) {
	start := time.Now()
	credential, err := c.next.Store(ctx, userID, provider, plaintext)
	c.record(ctx, "credential_store", start, err)
	return credential, err
}

func (c *credentialUseCaseWithMetrics) List(ctx context.Context, userID uuid.UUID) ([]*domain.Credential, error) {
	start := time.Now()
	credentials, err := c.next.List(ctx, userID)
	c.record(ctx, "credential_list", start, err)
	return credentials, err
}

func (c *credentialUseCaseWithMetrics) Delete(ctx context.Context, userID uuid.UUID, provider string) error {
	start := time.Now()
	err := c.next.Delete(ctx, userID, provider)
	c.record(ctx, "credential_delete", start, err)
	return err
}

func (c *credentialUseCaseWithMetrics) DecryptAll(
	ctx context.Context,
	userID uuid.UUID,
	providers []string,
) (map[string]string, int, error) {
	start := time.Now()
	secrets, failed, err := c.next.DecryptAll(ctx, userID, providers)
	c.record(ctx, "credential_decrypt_all", start, err)
	return secrets, failed, err
}

// rotationUseCaseWithMetrics decorates RotationUseCase with metrics instrumentation.
type rotationUseCaseWithMetrics struct {
	next    RotationUseCase
	metrics metrics.BusinessMetrics
}

// NewRotationUseCaseWithMetrics wraps a RotationUseCase with metrics recording.
func NewRotationUseCaseWithMetrics(useCase RotationUseCase, m metrics.BusinessMetrics) RotationUseCase {
	return &rotationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (r *rotationUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.metrics.RecordOperation(ctx, "rotation", operation, status)
	r.metrics.RecordDuration(ctx, "rotation", operation, time.Since(start), status)
}

func (r *rotationUseCaseWithMetrics) RotateOne(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
	targetVersion uint,
) (*domain.RotationAuditEntry, error) {
	start := time.Now()
	entry, err := r.next.RotateOne(ctx, userID, provider, targetVersion)
	r.record(ctx, "rotate_one", start, err)
	return entry, err
}

func (r *rotationUseCaseWithMetrics) RotateAll(ctx context.Context, input RotateAllInput) (*RotateAllResult, error) {
	start := time.Now()
	result, err := r.next.RotateAll(ctx, input)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case result.Failed > 0:
		status = "partial"
	}
	r.metrics.RecordOperation(ctx, "rotation", "rotate_all", status)
	r.metrics.RecordDuration(ctx, "rotation", "rotate_all", time.Since(start), status)

	return result, err
}

func (r *rotationUseCaseWithMetrics) ScheduleRotation(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
	runAt time.Time,
) (*domain.RotationSchedule, error) {
	start := time.Now()
	schedule, err := r.next.ScheduleRotation(ctx, userID, provider, runAt)
	r.record(ctx, "schedule_rotation", start, err)
	return schedule, err
}

func (r *rotationUseCaseWithMetrics) RunDueSchedules(ctx context.Context, now time.Time, limit int) (int, error) {
	start := time.Now()
	executed, err := r.next.RunDueSchedules(ctx, now, limit)
	r.record(ctx, "run_due_schedules", start, err)
	return executed, err
}

func (r *rotationUseCaseWithMetrics) ListAudit(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
	offset, limit int,
) ([]*domain.RotationAuditEntry, error) {
	start := time.Now()
	entries, err := r.next.ListAudit(ctx, userID, provider, offset, limit)
	r.record(ctx, "list_audit", start, err)
	return entries, err
}
