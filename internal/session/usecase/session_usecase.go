package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/session/domain"
	"github.com/sidevault/sidevault/internal/session/service"
)

// sessionUseCase implements SessionUseCase.
type sessionUseCase struct {
	sessionRepo       SessionRepository
	registrationToken service.RegistrationTokenService
}

// NewSessionUseCase creates a SessionUseCase.
func NewSessionUseCase(
	sessionRepo SessionRepository,
	registrationToken service.RegistrationTokenService,
) SessionUseCase {
	return &sessionUseCase{
		sessionRepo:       sessionRepo,
		registrationToken: registrationToken,
	}
}

// Create provisions a session in the creating state and issues its single-use
// registration token. The plaintext token appears only in the returned output.
func (s *sessionUseCase) Create(ctx context.Context, userID uuid.UUID) (*CreateSessionOutput, error) {
	plainToken, tokenHash, err := s.registrationToken.Generate()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:                    uuid.Must(uuid.NewV7()),
		UserID:                userID,
		Status:                domain.StatusCreating,
		RegistrationTokenHash: tokenHash,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return &CreateSessionOutput{
		Session:           session,
		RegistrationToken: plainToken,
	}, nil
}

// Get returns a session by id.
func (s *sessionUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.sessionRepo.Get(ctx, id)
}

// ListByUser returns all of a user's sessions.
func (s *sessionUseCase) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	return s.sessionRepo.ListByUser(ctx, userID)
}

// Stop moves the session to stopped from any non-terminal state.
func (s *sessionUseCase) Stop(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, domain.StatusStopped)
}

// Idle moves an active session to idle.
func (s *sessionUseCase) Idle(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, domain.StatusIdle)
}

// Resume moves an idle session back to active.
func (s *sessionUseCase) Resume(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, domain.StatusActive)
}

// MarkError moves the session to the error state from any non-terminal state.
func (s *sessionUseCase) MarkError(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, domain.StatusError)
}

// transition validates the state machine against the current status, then
// performs a conditional update so a concurrent transition cannot be lost.
func (s *sessionUseCase) transition(ctx context.Context, id uuid.UUID, to domain.Status) error {
	session, err := s.sessionRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !domain.CanTransition(session.Status, to) {
		return domain.ErrInvalidStateTransition
	}
	return s.sessionRepo.UpdateStatus(ctx, id, session.Status, to)
}
