package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/metrics"
	"github.com/sidevault/sidevault/internal/session/domain"
)

// sessionUseCaseWithMetrics decorates SessionUseCase with metrics instrumentation.
type sessionUseCaseWithMetrics struct {
	next    SessionUseCase
	metrics metrics.BusinessMetrics
}

// NewSessionUseCaseWithMetrics wraps a SessionUseCase with metrics recording.
func NewSessionUseCaseWithMetrics(useCase SessionUseCase, m metrics.BusinessMetrics) SessionUseCase {
	return &sessionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *sessionUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "session", operation, status)
	s.metrics.RecordDuration(ctx, "session", operation, time.Since(start), status)
}

func (s *sessionUseCaseWithMetrics) Create(ctx context.Context, userID uuid.UUID) (*CreateSessionOutput, error) {
	start := time.Now()
	output, err := s.next.Create(ctx, userID)
	s.record(ctx, "session_create", start, err)
	return output, err
}

func (s *sessionUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	start := time.Now()
	session, err := s.next.Get(ctx, id)
	s.record(ctx, "session_get", start, err)
	return session, err
}

func (s *sessionUseCaseWithMetrics) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	start := time.Now()
	sessions, err := s.next.ListByUser(ctx, userID)
	s.record(ctx, "session_list", start, err)
	return sessions, err
}

func (s *sessionUseCaseWithMetrics) Stop(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := s.next.Stop(ctx, id)
	s.record(ctx, "session_stop", start, err)
	return err
}

func (s *sessionUseCaseWithMetrics) Idle(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := s.next.Idle(ctx, id)
	s.record(ctx, "session_idle", start, err)
	return err
}

func (s *sessionUseCaseWithMetrics) Resume(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := s.next.Resume(ctx, id)
	s.record(ctx, "session_resume", start, err)
	return err
}

func (s *sessionUseCaseWithMetrics) MarkError(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := s.next.MarkError(ctx, id)
	s.record(ctx, "session_mark_error", start, err)
	return err
}

// registrationUseCaseWithMetrics decorates RegistrationUseCase with metrics instrumentation.
type registrationUseCaseWithMetrics struct {
	next    RegistrationUseCase
	metrics metrics.BusinessMetrics
}

// NewRegistrationUseCaseWithMetrics wraps a RegistrationUseCase with metrics recording.
func NewRegistrationUseCaseWithMetrics(useCase RegistrationUseCase, m metrics.BusinessMetrics) RegistrationUseCase {
	return &registrationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (r *registrationUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.metrics.RecordOperation(ctx, "session", operation, status)
	r.metrics.RecordDuration(ctx, "session", operation, time.Since(start), status)
}

func (r *registrationUseCaseWithMetrics) RegisterSidecar(
	ctx context.Context,
	input *RegisterSidecarInput,
) (*RegisterSidecarOutput, error) {
	start := time.Now()
	output, err := r.next.RegisterSidecar(ctx, input)
	r.record(ctx, "sidecar_register", start, err)
	return output, err
}

func (r *registrationUseCaseWithMetrics) RefreshProviderKeys(
	ctx context.Context,
	input *RefreshProviderKeysInput,
) (*RefreshProviderKeysOutput, error) {
	start := time.Now()
	output, err := r.next.RefreshProviderKeys(ctx, input)
	r.record(ctx, "provider_keys_refresh", start, err)
	return output, err
}
