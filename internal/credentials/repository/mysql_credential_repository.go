package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/credentials/domain"
	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
	"github.com/sidevault/sidevault/internal/database"
	apperrors "github.com/sidevault/sidevault/internal/errors"
)

// MySQLCredentialRepository implements Credential persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLCredentialRepository struct {
	db *sql.DB
}

// NewMySQLCredentialRepository creates a MySQL credential repository.
func NewMySQLCredentialRepository(db *sql.DB) *MySQLCredentialRepository {
	return &MySQLCredentialRepository{db: db}
}

// Upsert creates the credential or replaces its secret for (user_id, provider).
func (m *MySQLCredentialRepository) Upsert(ctx context.Context, credential *domain.Credential) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO credentials (id, user_id, provider, ciphertext, nonce, tag,
				wrapped_data_key, data_key_nonce, data_key_tag, key_version, master_key_id,
				created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				ciphertext = VALUES(ciphertext),
				nonce = VALUES(nonce),
				tag = VALUES(tag),
				wrapped_data_key = VALUES(wrapped_data_key),
				data_key_nonce = VALUES(data_key_nonce),
				data_key_tag = VALUES(data_key_tag),
				key_version = VALUES(key_version),
				master_key_id = VALUES(master_key_id),
				updated_at = VALUES(updated_at)`

	id, err := credential.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal credential id")
	}
	userID, err := credential.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		userID,
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
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert credential")
	}
	return nil
}

// Get retrieves the credential for (user_id, provider).
func (m *MySQLCredentialRepository) Get(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
) (*domain.Credential, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, user_id, provider, ciphertext, nonce, tag,
				wrapped_data_key, data_key_nonce, data_key_tag, key_version, master_key_id,
				created_at, updated_at
			  FROM credentials
			  WHERE user_id = ? AND provider = ?`

	userIDBytes, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	var (
		credential domain.Credential
		rawID      []byte
		rawUserID  []byte
	)
	err = querier.QueryRowContext(ctx, query, userIDBytes, provider).Scan(
		&rawID,
		&rawUserID,
		&credential.Provider,
		&credential.Secret.Ciphertext,
		&credential.Secret.Nonce,
		&credential.Secret.Tag,
		&credential.Secret.WrappedDataKey,
		&credential.Secret.DataKeyNonce,
		&credential.Secret.DataKeyTag,
		&credential.Secret.KeyVersion,
		&credential.Secret.MasterKeyID,
		&credential.CreatedAt,
		&credential.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get credential")
	}

	if credential.ID, err = uuid.FromBytes(rawID); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse credential id")
	}
	if credential.UserID, err = uuid.FromBytes(rawUserID); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse user id")
	}

	return &credential, nil
}

// ListByUser retrieves all credentials for a user ordered by provider.
func (m *MySQLCredentialRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Credential, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, user_id, provider, ciphertext, nonce, tag,
				wrapped_data_key, data_key_nonce, data_key_tag, key_version, master_key_id,
				created_at, updated_at
			  FROM credentials
			  WHERE user_id = ?
			  ORDER BY provider ASC`

	userIDBytes, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	rows, err := querier.QueryContext(ctx, query, userIDBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}
	defer func() { _ = rows.Close() }()

	var credentials []*domain.Credential
	for rows.Next() {
		var (
			credential domain.Credential
			rawID      []byte
			rawUserID  []byte
		)
		err := rows.Scan(
			&rawID,
			&rawUserID,
			&credential.Provider,
			&credential.Secret.Ciphertext,
			&credential.Secret.Nonce,
			&credential.Secret.Tag,
			&credential.Secret.WrappedDataKey,
			&credential.Secret.DataKeyNonce,
			&credential.Secret.DataKeyTag,
			&credential.Secret.KeyVersion,
			&credential.Secret.MasterKeyID,
			&credential.CreatedAt,
			&credential.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan credential")
		}
		if credential.ID, err = uuid.FromBytes(rawID); err != nil {
			return nil, apperrors.Wrap(err, "failed to parse credential id")
		}
		if credential.UserID, err = uuid.FromBytes(rawUserID); err != nil {
			return nil, apperrors.Wrap(err, "failed to parse user id")
		}
		credentials = append(credentials, &credential)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate credentials")
	}

	return credentials, nil
}

// Delete removes the credential for (user_id, provider).
func (m *MySQLCredentialRepository) Delete(ctx context.Context, userID uuid.UUID, provider string) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM credentials WHERE user_id = ? AND provider = ?`

	userIDBytes, err := userID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	result, err := querier.ExecContext(ctx, query, userIDBytes, provider)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete credential")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}

// UpdateSecret conditionally replaces the stored secret guarded by key_version.
func (m *MySQLCredentialRepository) UpdateSecret(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
	expectedVersion uint,
	secret *cryptoDomain.StoredSecret,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE credentials SET
				ciphertext = ?,
				nonce = ?,
				tag = ?,
				wrapped_data_key = ?,
				data_key_nonce = ?,
				data_key_tag = ?,
				key_version = ?,
				master_key_id = ?,
				updated_at = ?
			  WHERE user_id = ? AND provider = ? AND key_version = ?`

	userIDBytes, err := userID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	result, err := querier.ExecContext(
		ctx,
		query,
		secret.Ciphertext,
		secret.Nonce,
		secret.Tag,
		secret.WrappedDataKey,
		secret.DataKeyNonce,
		secret.DataKeyTag,
		secret.KeyVersion,
		secret.MasterKeyID,
		time.Now().UTC(),
		userIDBytes,
		provider,
		expectedVersion,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update credential secret")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		if _, getErr := m.Get(ctx, userID, provider); getErr != nil {
			return getErr
		}
		return apperrors.Wrap(apperrors.ErrConflict, "credential version changed concurrently")
	}
	return nil
}
