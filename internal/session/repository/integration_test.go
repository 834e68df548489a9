package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidevault/sidevault/internal/session/domain"
	"github.com/sidevault/sidevault/internal/testutil"
)

// Integration tests against a real database. They skip when no test database
// is reachable; the sqlmock tests cover the SQL shape either way.

func TestPostgreSQLSessionRepository_Integration(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLSessionRepository(db)
	ctx := context.Background()

	session := newTestSession()
	require.NoError(t, repo.Create(ctx, session))

	t.Run("get round trip", func(t *testing.T) {
		got, err := repo.Get(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.UserID, got.UserID)
		assert.Equal(t, domain.StatusCreating, got.Status)
		assert.Equal(t, session.RegistrationTokenHash, got.RegistrationTokenHash)
		assert.Nil(t, got.RegisteredAt)
	})

	t.Run("activate flips creating to active exactly once", func(t *testing.T) {
		now := time.Now().UTC()
		activated := *session
		activated.SidecarPublicKey = "BPubKeyBase64"
		activated.SidecarKeyID = "sidecar-key-1"
		activated.OrchestratorPublicKey = "BOrchPubKey1"
		activated.OrchestratorKeyID = "orch-key-1"
		activated.SidecarTokenHash = "$argon2id$v=19$m=65536,t=2,p=1$salt$token"
		activated.SidecarTokenNonce = "nonce-1"
		activated.SidecarTokenIssuedAt = &now
		activated.OpencodePort = 4096
		activated.RegisteredAt = &now
		activated.UpdatedAt = now

		require.NoError(t, repo.Activate(ctx, &activated))

		got, err := repo.Get(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusActive, got.Status)
		assert.Equal(t, "sidecar-key-1", got.SidecarKeyID)
		assert.Equal(t, "BOrchPubKey1", got.OrchestratorPublicKey)
		require.NotNil(t, got.RegisteredAt)
		assert.WithinDuration(t, now, *got.RegisteredAt, time.Second)

		// A second registration attempt loses the conditional write.
		assert.ErrorIs(t, repo.Activate(ctx, &activated), domain.ErrAlreadyRegistered)
	})

	t.Run("update status enforces the from-status guard", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, session.ID, domain.StatusActive, domain.StatusIdle))

		err := repo.UpdateStatus(ctx, session.ID, domain.StatusActive, domain.StatusStopped)
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

		got, err := repo.Get(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusIdle, got.Status)
	})

	t.Run("update key exchange records fresh key material", func(t *testing.T) {
		err := repo.UpdateKeyExchange(ctx, session.ID, "BFreshPubKey", "sidecar-key-2", "BOrchPubKey2", "orch-key-2")
		require.NoError(t, err)

		got, err := repo.Get(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, "BFreshPubKey", got.SidecarPublicKey)
		assert.Equal(t, "sidecar-key-2", got.SidecarKeyID)
		assert.Equal(t, "BOrchPubKey2", got.OrchestratorPublicKey)
		assert.Equal(t, "orch-key-2", got.OrchestratorKeyID)
	})

	t.Run("list by user is newest first", func(t *testing.T) {
		second := newTestSession()
		second.UserID = session.UserID
		second.CreatedAt = time.Now().UTC().Add(time.Second)
		require.NoError(t, repo.Create(ctx, second))

		sessions, err := repo.ListByUser(ctx, session.UserID)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, second.ID, sessions[0].ID)
	})

	t.Run("get missing session", func(t *testing.T) {
		missing := newTestSession()
		_, err := repo.Get(ctx, missing.ID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestMySQLSessionRepository_Integration(t *testing.T) {
	testutil.SkipIfNoMySQL(t)
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewMySQLSessionRepository(db)
	ctx := context.Background()

	session := newTestSession()
	require.NoError(t, repo.Create(ctx, session))

	got, err := repo.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, got.UserID)
	assert.Equal(t, domain.StatusCreating, got.Status)

	require.NoError(t, repo.UpdateStatus(ctx, session.ID, domain.StatusCreating, domain.StatusStopped))

	got, err = repo.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStopped, got.Status)
}
