package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidevault/sidevault/internal/credentials/domain"
	"github.com/sidevault/sidevault/internal/testutil"
)

// Integration tests against a real database. They skip when no test database
// is reachable; the sqlmock tests cover the SQL shape either way.

func TestPostgreSQLCredentialRepository_Integration(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLCredentialRepository(db)
	ctx := context.Background()

	credential := newTestCredential()

	t.Run("upsert and get round trip", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, credential))

		got, err := repo.Get(ctx, credential.UserID, credential.Provider)
		require.NoError(t, err)
		assert.Equal(t, credential.ID, got.ID)
		assert.Equal(t, credential.Secret.Ciphertext, got.Secret.Ciphertext)
		assert.Equal(t, credential.Secret.KeyVersion, got.Secret.KeyVersion)
		assert.Equal(t, credential.Secret.MasterKeyID, got.Secret.MasterKeyID)
	})

	t.Run("upsert replaces the secret in place", func(t *testing.T) {
		replacement := *credential
		replacement.Secret = *credential.Secret.Clone()
		replacement.Secret.Ciphertext = []byte("replacement-ciphertext")
		replacement.Secret.KeyVersion = 2
		replacement.UpdatedAt = time.Now().UTC()

		require.NoError(t, repo.Upsert(ctx, &replacement))

		got, err := repo.Get(ctx, credential.UserID, credential.Provider)
		require.NoError(t, err)
		assert.Equal(t, []byte("replacement-ciphertext"), got.Secret.Ciphertext)
		assert.Equal(t, uint(2), got.Secret.KeyVersion)

		credentials, err := repo.ListByUser(ctx, credential.UserID)
		require.NoError(t, err)
		assert.Len(t, credentials, 1)
	})

	t.Run("update secret enforces the version guard", func(t *testing.T) {
		rotated := credential.Secret.Clone()
		rotated.KeyVersion = 3
		rotated.Ciphertext = []byte("rotated-ciphertext")

		// Stored version is 2 after the replacement above; expecting 1 must fail.
		err := repo.UpdateSecret(ctx, credential.UserID, credential.Provider, 1, rotated)
		require.Error(t, err)

		require.NoError(t, repo.UpdateSecret(ctx, credential.UserID, credential.Provider, 2, rotated))

		got, err := repo.Get(ctx, credential.UserID, credential.Provider)
		require.NoError(t, err)
		assert.Equal(t, uint(3), got.Secret.KeyVersion)
	})

	t.Run("delete removes the credential", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, credential.UserID, credential.Provider))

		_, err := repo.Get(ctx, credential.UserID, credential.Provider)
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound)

		assert.ErrorIs(
			t,
			repo.Delete(ctx, credential.UserID, credential.Provider),
			domain.ErrCredentialNotFound,
		)
	})
}

func TestPostgreSQLRotationAuditRepository_Integration(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLRotationAuditRepository(db)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	newEntry := func(provider string, success bool, createdAt time.Time) *domain.RotationAuditEntry {
		return &domain.RotationAuditEntry{
			ID:         uuid.Must(uuid.NewV7()),
			UserID:     userID,
			Provider:   provider,
			OldVersion: 1,
			NewVersion: 2,
			Success:    success,
			CreatedAt:  createdAt,
		}
	}

	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, newEntry("openai", true, now.Add(-2*time.Hour))))
	require.NoError(t, repo.Create(ctx, newEntry("anthropic", false, now.Add(-time.Hour))))
	require.NoError(t, repo.Create(ctx, newEntry("openai", true, now)))

	t.Run("list by user is newest first", func(t *testing.T) {
		entries, err := repo.ListByUser(ctx, userID, 0, 50)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "openai", entries[0].Provider)
		assert.Equal(t, "anthropic", entries[1].Provider)
	})

	t.Run("list filtered by provider with pagination", func(t *testing.T) {
		entries, err := repo.ListByUserAndProvider(ctx, userID, "openai", 1, 50)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.WithinDuration(t, now.Add(-2*time.Hour), entries[0].CreatedAt, time.Second)
	})

	t.Run("delete older than removes only old entries", func(t *testing.T) {
		deleted, err := repo.DeleteOlderThan(ctx, now.Add(-90*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		entries, err := repo.ListByUser(ctx, userID, 0, 50)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})
}

func TestPostgreSQLRotationScheduleRepository_Integration(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLRotationScheduleRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	schedule := &domain.RotationSchedule{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    uuid.Must(uuid.NewV7()),
		Provider:  "openai",
		RunAt:     now.Add(-time.Minute),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Upsert(ctx, schedule))

	t.Run("upsert replaces the run time for the same user and provider", func(t *testing.T) {
		updated := *schedule
		updated.ID = uuid.Must(uuid.NewV7())
		updated.RunAt = now.Add(time.Hour)
		updated.UpdatedAt = now.Add(time.Second)
		require.NoError(t, repo.Upsert(ctx, &updated))

		due, err := repo.ListDue(ctx, now, 10)
		require.NoError(t, err)
		assert.Empty(t, due)

		due, err = repo.ListDue(ctx, now.Add(2*time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, due, 1)
	})

	t.Run("delete clears the schedule", func(t *testing.T) {
		due, err := repo.ListDue(ctx, now.Add(2*time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, due, 1)

		require.NoError(t, repo.Delete(ctx, due[0].ID))

		due, err = repo.ListDue(ctx, now.Add(2*time.Hour), 10)
		require.NoError(t, err)
		assert.Empty(t, due)
	})
}

func TestMySQLCredentialRepository_Integration(t *testing.T) {
	testutil.SkipIfNoMySQL(t)
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewMySQLCredentialRepository(db)
	ctx := context.Background()

	credential := newTestCredential()
	require.NoError(t, repo.Upsert(ctx, credential))

	got, err := repo.Get(ctx, credential.UserID, credential.Provider)
	require.NoError(t, err)
	assert.Equal(t, credential.ID, got.ID)
	assert.Equal(t, credential.Secret.Ciphertext, got.Secret.Ciphertext)

	rotated := credential.Secret.Clone()
	rotated.KeyVersion = 2
	require.NoError(
		t,
		repo.UpdateSecret(ctx, credential.UserID, credential.Provider, credential.Secret.KeyVersion, rotated),
	)

	got, err = repo.Get(ctx, credential.UserID, credential.Provider)
	require.NoError(t, err)
	assert.Equal(t, uint(2), got.Secret.KeyVersion)

	require.NoError(t, repo.Delete(ctx, credential.UserID, credential.Provider))
	_, err = repo.Get(ctx, credential.UserID, credential.Provider)
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}
