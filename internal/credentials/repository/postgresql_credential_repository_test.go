package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidevault/sidevault/internal/credentials/domain"
	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
	apperrors "github.com/sidevault/sidevault/internal/errors"
)

func newTestCredential() *domain.Credential {
	now := time.Now().UTC()
	return &domain.Credential{
		ID:       uuid.Must(uuid.NewV7()),
		UserID:   uuid.Must(uuid.NewV7()),
		Provider: "openai",
		Secret: cryptoDomain.StoredSecret{
			Ciphertext:     []byte("ciphertext"),
			Nonce:          []byte("nonce-12byte"),
			Tag:            []byte("tag-16-bytes----"),
			WrappedDataKey: []byte("wrapped-data-key"),
			DataKeyNonce:   []byte("dk-nonce-12b"),
			DataKeyTag:     []byte("dk-tag-16-bytes-"),
			KeyVersion:     1,
			MasterKeyID:    "mk1",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func credentialColumns() []string {
	return []string{
		"id", "user_id", "provider", "ciphertext", "nonce", "tag",
		"wrapped_data_key", "data_key_nonce", "data_key_tag",
		"key_version", "master_key_id", "created_at", "updated_at",
	}
}

func credentialRow(credential *domain.Credential) *sqlmock.Rows {
	return sqlmock.NewRows(credentialColumns()).AddRow(
		credential.ID,
		credential.UserID,
		credential.Provider,
		credential.Secret.Ciphertext,
		credential.Secret.Nonce,
		credential.Secret.Tag,
		credential.Secret.WrappedDataKey,
		credential.Secret.DataKeyNonce,
		credential.Secret.DataKeyTag,
		credential.Secret.KeyVersion,
		credential.Secret.MasterKeyID,
		credential.CreatedAt,
		credential.UpdatedAt,
	)
}

func TestPostgreSQLCredentialRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLCredentialRepository(db)
	credential := newTestCredential()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO credentials")).
		WithArgs(
			credential.ID,
			credential.UserID,
			credential.Provider,
			credential.Secret.Ciphertext,
			credential.Secret.Nonce,
			credential.Secret.Tag,
			credential.Secret.WrappedDataKey,
			credential.Secret.DataKeyNonce,
			credential.Secret.DataKeyTag,
			credential.Secret.KeyVersion,
			credential.Secret.MasterKeyID,
			credential.CreatedAt,
			credential.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Upsert(context.Background(), credential)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLCredentialRepository_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		repo := NewPostgreSQLCredentialRepository(db)
		credential := newTestCredential()

		mock.ExpectQuery(regexp.QuoteMeta("FROM credentials")).
			WithArgs(credential.UserID, credential.Provider).
			WillReturnRows(credentialRow(credential))

		got, err := repo.Get(context.Background(), credential.UserID, credential.Provider)
		require.NoError(t, err)
		assert.Equal(t, credential.ID, got.ID)
		assert.Equal(t, credential.Secret, got.Secret)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		repo := NewPostgreSQLCredentialRepository(db)
		userID := uuid.Must(uuid.NewV7())

		mock.ExpectQuery(regexp.QuoteMeta("FROM credentials")).
			WithArgs(userID, "openai").
			WillReturnRows(sqlmock.NewRows(credentialColumns()))

		_, err = repo.Get(context.Background(), userID, "openai")
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLCredentialRepository_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLCredentialRepository(db)
	first := newTestCredential()
	second := newTestCredential()
	second.UserID = first.UserID
	second.Provider = "anthropic"

	rows := credentialRow(first)
	rows.AddRow(
		second.ID, second.UserID, second.Provider,
		second.Secret.Ciphertext, second.Secret.Nonce, second.Secret.Tag,
		second.Secret.WrappedDataKey, second.Secret.DataKeyNonce, second.Secret.DataKeyTag,
		second.Secret.KeyVersion, second.Secret.MasterKeyID,
		second.CreatedAt, second.UpdatedAt,
	)

	mock.ExpectQuery(regexp.QuoteMeta("FROM credentials")).
		WithArgs(first.UserID).
		WillReturnRows(rows)

	credentials, err := repo.ListByUser(context.Background(), first.UserID)
	require.NoError(t, err)
	require.Len(t, credentials, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLCredentialRepository_Delete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		repo := NewPostgreSQLCredentialRepository(db)
		userID := uuid.Must(uuid.NewV7())

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM credentials")).
			WithArgs(userID, "openai").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Delete(context.Background(), userID, "openai"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		repo := NewPostgreSQLCredentialRepository(db)
		userID := uuid.Must(uuid.NewV7())

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM credentials")).
			WithArgs(userID, "openai").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.Delete(context.Background(), userID, "openai")
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
	})
}

func TestPostgreSQLCredentialRepository_UpdateSecret(t *testing.T) {
	secret := &newTestCredential().Secret
	rotated := secret.Clone()
	rotated.KeyVersion = 2

	t.Run("updates when version matches", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		repo := NewPostgreSQLCredentialRepository(db)
		userID := uuid.Must(uuid.NewV7())

		mock.ExpectExec(regexp.QuoteMeta("UPDATE credentials SET")).
			WithArgs(
				rotated.Ciphertext, rotated.Nonce, rotated.Tag,
				rotated.WrappedDataKey, rotated.DataKeyNonce, rotated.DataKeyTag,
				rotated.KeyVersion, rotated.MasterKeyID, sqlmock.AnyArg(),
				userID, "openai", uint(1),
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.UpdateSecret(context.Background(), userID, "openai", 1, rotated)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict when version changed", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		repo := NewPostgreSQLCredentialRepository(db)
		userID := uuid.Must(uuid.NewV7())
		existing := newTestCredential()
		existing.UserID = userID

		mock.ExpectExec(regexp.QuoteMeta("UPDATE credentials SET")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		// The repository re-reads the row to distinguish conflict from deletion.
		mock.ExpectQuery(regexp.QuoteMeta("FROM credentials")).
			WithArgs(userID, "openai").
			WillReturnRows(credentialRow(existing))

		err = repo.UpdateSecret(context.Background(), userID, "openai", 1, rotated)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found when row is gone", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		repo := NewPostgreSQLCredentialRepository(db)
		userID := uuid.Must(uuid.NewV7())

		mock.ExpectExec(regexp.QuoteMeta("UPDATE credentials SET")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("FROM credentials")).
			WithArgs(userID, "openai").
			WillReturnRows(sqlmock.NewRows(credentialColumns()))

		err = repo.UpdateSecret(context.Background(), userID, "openai", 1, rotated)
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
	})
}
