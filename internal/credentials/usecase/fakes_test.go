package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/credentials/domain"
	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
	apperrors "github.com/sidevault/sidevault/internal/errors"
)

// passthroughTxManager runs the function without a real transaction; the
// in-memory repositories apply writes immediately anyway.
type passthroughTxManager struct{}

func (passthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memoryCredentialRepo is a map-backed CredentialRepository. It enforces the
// same version guard as the SQL repositories so concurrency semantics can be
// tested without a database.
type memoryCredentialRepo struct {
	mu sync.Mutex
	// keyed by userID|provider
	rows map[string]*domain.Credential
	// failUpdateFor makes UpdateSecret fail for the given providers.
	failUpdateFor map[string]error
}

func newMemoryCredentialRepo() *memoryCredentialRepo {
	return &memoryCredentialRepo{
		rows:          make(map[string]*domain.Credential),
		failUpdateFor: make(map[string]error),
	}
}

func credentialKey(userID uuid.UUID, provider string) string {
	return userID.String() + "|" + provider
}

func (m *memoryCredentialRepo) Upsert(_ context.Context, credential *domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *credential
	clone.Secret = *credential.Secret.Clone()
	m.rows[credentialKey(credential.UserID, credential.Provider)] = &clone
	return nil
}

func (m *memoryCredentialRepo) Get(_ context.Context, userID uuid.UUID, provider string) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[credentialKey(userID, provider)]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	clone := *row
	clone.Secret = *row.Secret.Clone()
	return &clone, nil
}

func (m *memoryCredentialRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var credentials []*domain.Credential
	for _, row := range m.rows {
		if row.UserID != userID {
			continue
		}
		clone := *row
		clone.Secret = *row.Secret.Clone()
		credentials = append(credentials, &clone)
	}
	return credentials, nil
}

func (m *memoryCredentialRepo) Delete(_ context.Context, userID uuid.UUID, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := credentialKey(userID, provider)
	if _, ok := m.rows[key]; !ok {
		return domain.ErrCredentialNotFound
	}
	delete(m.rows, key)
	return nil
}

func (m *memoryCredentialRepo) UpdateSecret(
	_ context.Context,
	userID uuid.UUID,
	provider string,
	expectedVersion uint,
	secret *cryptoDomain.StoredSecret,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failUpdateFor[provider]; ok {
		return err
	}

	row, ok := m.rows[credentialKey(userID, provider)]
	if !ok {
		return domain.ErrCredentialNotFound
	}
	if row.Secret.KeyVersion != expectedVersion {
		return apperrors.Wrap(apperrors.ErrConflict, "credential version changed concurrently")
	}
	row.Secret = *secret.Clone()
	row.UpdatedAt = time.Now().UTC()
	return nil
}

// memoryAuditRepo is a slice-backed RotationAuditRepository.
type memoryAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.RotationAuditEntry
}

func newMemoryAuditRepo() *memoryAuditRepo {
	return &memoryAuditRepo{}
}

func (m *memoryAuditRepo) Create(_ context.Context, entry *domain.RotationAuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *entry
	m.entries = append(m.entries, &clone)
	return nil
}

func (m *memoryAuditRepo) ListByUser(
	_ context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*domain.RotationAuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []*domain.RotationAuditEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].UserID == userID {
			entries = append(entries, m.entries[i])
		}
	}
	return paginate(entries, offset, limit), nil
}

func (m *memoryAuditRepo) ListByUserAndProvider(
	_ context.Context,
	userID uuid.UUID,
	provider string,
	offset, limit int,
) ([]*domain.RotationAuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []*domain.RotationAuditEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].UserID == userID && m.entries[i].Provider == provider {
			entries = append(entries, m.entries[i])
		}
	}
	return paginate(entries, offset, limit), nil
}

func (m *memoryAuditRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []*domain.RotationAuditEntry
	var deleted int64
	for _, entry := range m.entries {
		if entry.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	m.entries = kept
	return deleted, nil
}

func paginate(entries []*domain.RotationAuditEntry, offset, limit int) []*domain.RotationAuditEntry {
	if offset >= len(entries) {
		return nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

// memoryScheduleRepo is a map-backed RotationScheduleRepository.
type memoryScheduleRepo struct {
	mu        sync.Mutex
	schedules map[string]*domain.RotationSchedule
}

func newMemoryScheduleRepo() *memoryScheduleRepo {
	return &memoryScheduleRepo{schedules: make(map[string]*domain.RotationSchedule)}
}

func (m *memoryScheduleRepo) Upsert(_ context.Context, schedule *domain.RotationSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := credentialKey(schedule.UserID, schedule.Provider)
	if existing, ok := m.schedules[key]; ok {
		existing.RunAt = schedule.RunAt
		existing.UpdatedAt = schedule.UpdatedAt
		return nil
	}
	clone := *schedule
	m.schedules[key] = &clone
	return nil
}

func (m *memoryScheduleRepo) ListDue(
	_ context.Context,
	now time.Time,
	limit int,
) ([]*domain.RotationSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*domain.RotationSchedule
	for _, schedule := range m.schedules {
		if !schedule.RunAt.After(now) {
			clone := *schedule
			due = append(due, &clone)
		}
		if limit > 0 && len(due) == limit {
			break
		}
	}
	return due, nil
}

func (m *memoryScheduleRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, schedule := range m.schedules {
		if schedule.ID == id {
			delete(m.schedules, key)
			return nil
		}
	}
	return apperrors.ErrNotFound
}
