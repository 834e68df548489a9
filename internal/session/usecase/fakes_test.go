package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/session/domain"
)

// memorySessionRepo is a map-backed SessionRepository enforcing the same
// conditional-update semantics as the SQL implementations.
type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[uuid.UUID]*domain.Session)}
}

func (m *memorySessionRepo) Create(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *session
	m.sessions[session.ID] = &clone
	return nil
}

func (m *memorySessionRepo) Get(_ context.Context, id uuid.UUID) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	clone := *session
	return &clone, nil
}

func (m *memorySessionRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sessions []*domain.Session
	for _, session := range m.sessions {
		if session.UserID == userID {
			clone := *session
			sessions = append(sessions, &clone)
		}
	}
	return sessions, nil
}

func (m *memorySessionRepo) Activate(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.sessions[session.ID]
	if !ok || row.Status != domain.StatusCreating {
		return domain.ErrAlreadyRegistered
	}
	clone := *session
	clone.Status = domain.StatusActive
	m.sessions[session.ID] = &clone
	return nil
}

func (m *memorySessionRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.sessions[id]
	if !ok || row.Status != from {
		return domain.ErrInvalidStateTransition
	}
	row.Status = to
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memorySessionRepo) UpdateKeyExchange(
	_ context.Context,
	id uuid.UUID,
	sidecarPublicKey, sidecarKeyID, orchestratorPublicKey, orchestratorKeyID string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	row.SidecarPublicKey = sidecarPublicKey
	row.SidecarKeyID = sidecarKeyID
	row.OrchestratorPublicKey = orchestratorPublicKey
	row.OrchestratorKeyID = orchestratorKeyID
	row.UpdatedAt = time.Now().UTC()
	return nil
}
