package commands

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/credentials/domain"
	credentialsUseCase "github.com/sidevault/sidevault/internal/credentials/usecase"
	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubRotationUseCase implements credentialsUseCase.RotationUseCase with
// function fields. Methods without a function panic so an unexpected call
// fails loudly.
type stubRotationUseCase struct {
	rotateOneFn func(ctx context.Context, userID uuid.UUID, provider string, targetVersion uint) (*domain.RotationAuditEntry, error)
	rotateAllFn func(ctx context.Context, input credentialsUseCase.RotateAllInput) (*credentialsUseCase.RotateAllResult, error)
	runDueFn    func(ctx context.Context, now time.Time, limit int) (int, error)
}

func (s *stubRotationUseCase) RotateOne(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
	targetVersion uint,
) (*domain.RotationAuditEntry, error) {
	if s.rotateOneFn == nil {
		panic("unexpected call to RotateOne")
	}
	return s.rotateOneFn(ctx, userID, provider, targetVersion)
}

func (s *stubRotationUseCase) RotateAll(
	ctx context.Context,
	input credentialsUseCase.RotateAllInput,
) (*credentialsUseCase.RotateAllResult, error) {
	if s.rotateAllFn == nil {
		panic("unexpected call to RotateAll")
	}
	return s.rotateAllFn(ctx, input)
}

func (s *stubRotationUseCase) ScheduleRotation(
	context.Context,
	uuid.UUID,
	string,
	time.Time,
) (*domain.RotationSchedule, error) {
	panic("ScheduleRotation is not exposed on the CLI")
}

func (s *stubRotationUseCase) RunDueSchedules(ctx context.Context, now time.Time, limit int) (int, error) {
	if s.runDueFn == nil {
		panic("unexpected call to RunDueSchedules")
	}
	return s.runDueFn(ctx, now, limit)
}

func (s *stubRotationUseCase) ListAudit(
	context.Context,
	uuid.UUID,
	string,
	int, int,
) ([]*domain.RotationAuditEntry, error) {
	panic("ListAudit is not exposed on the CLI")
}

// stubAuditRepo implements credentialsUseCase.RotationAuditRepository.
type stubAuditRepo struct {
	deleteOlderThanFn func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (s *stubAuditRepo) Create(context.Context, *domain.RotationAuditEntry) error {
	panic("unexpected call to Create")
}

func (s *stubAuditRepo) ListByUser(
	context.Context,
	uuid.UUID,
	int, int,
) ([]*domain.RotationAuditEntry, error) {
	panic("unexpected call to ListByUser")
}

func (s *stubAuditRepo) ListByUserAndProvider(
	context.Context,
	uuid.UUID,
	string,
	int, int,
) ([]*domain.RotationAuditEntry, error) {
	panic("unexpected call to ListByUserAndProvider")
}

func (s *stubAuditRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.deleteOlderThanFn == nil {
		panic("unexpected call to DeleteOlderThan")
	}
	return s.deleteOlderThanFn(ctx, cutoff)
}

// stubKMSService and stubKeeper fake the KMS layer for the master key command.
type stubKMSService struct {
	openKeeperFn func(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}

func (s *stubKMSService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	return s.openKeeperFn(ctx, keyURI)
}

type stubKeeper struct {
	encryptFn func(ctx context.Context, plaintext []byte) ([]byte, error)
	closed    bool
}

func (s *stubKeeper) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	return s.encryptFn(ctx, plaintext)
}

func (s *stubKeeper) Decrypt(context.Context, []byte) ([]byte, error) {
	panic("unexpected call to Decrypt")
}

func (s *stubKeeper) Close() error {
	s.closed = true
	return nil
}
