// Package repository implements persistence for credentials, rotation audit
// entries, and rotation schedules on PostgreSQL and MySQL.
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

// PostgreSQLCredentialRepository implements Credential persistence for PostgreSQL.
type PostgreSQLCredentialRepository struct {
	db *sql.DB
}

// NewPostgreSQLCredentialRepository creates a PostgreSQL credential repository.
func NewPostgreSQLCredentialRepository(db *sql.DB) *PostgreSQLCredentialRepository {
	return &PostgreSQLCredentialRepository{db: db}
}

// Upsert creates the credential or replaces its secret for (user_id, provider).
func (p *PostgreSQLCredentialRepository) Upsert(ctx context.Context, credential *domain.Credential) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO credentials (id, user_id, provider, ciphertext, nonce, tag,
				wrapped_data_key, data_key_nonce, data_key_tag, key_version, master_key_id,
				created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			  ON CONFLICT (user_id, provider) DO UPDATE SET
				ciphertext = EXCLUDED.ciphertext,
				nonce = EXCLUDED.nonce,
				tag = EXCLUDED.tag,
				wrapped_data_key = EXCLUDED.wrapped_data_key,
				data_key_nonce = EXCLUDED.data_key_nonce,
				data_key_tag = EXCLUDED.data_key_tag,
				key_version = EXCLUDED.key_version,
				master_key_id = EXCLUDED.master_key_id,
				updated_at = EXCLUDED.updated_at`

	_, err := querier.ExecContext(
		ctx,
		query,
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
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert credential")
	}
	return nil
}

// Get retrieves the credential for (user_id, provider).
func (p *PostgreSQLCredentialRepository) Get(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
) (*domain.Credential, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, provider, ciphertext, nonce, tag,
				wrapped_data_key, data_key_nonce, data_key_tag, key_version, master_key_id,
				created_at, updated_at
			  FROM credentials
			  WHERE user_id = $1 AND provider = $2`

	var credential domain.Credential
	err := querier.QueryRowContext(ctx, query, userID, provider).Scan(
		&credential.ID,
		&credential.UserID,
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

	return &credential, nil
}

// ListByUser retrieves all credentials for a user ordered by provider.
func (p *PostgreSQLCredentialRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Credential, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, provider, ciphertext, nonce, tag,
				wrapped_data_key, data_key_nonce, data_key_tag, key_version, master_key_id,
				created_at, updated_at
			  FROM credentials
			  WHERE user_id = $1
			  ORDER BY provider ASC`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}
	defer func() { _ = rows.Close() }()

	var credentials []*domain.Credential
	for rows.Next() {
		var credential domain.Credential
		err := rows.Scan(
			&credential.ID,
			&credential.UserID,
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
		credentials = append(credentials, &credential)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate credentials")
	}

	return credentials, nil
}

// Delete removes the credential for (user_id, provider).
func (p *PostgreSQLCredentialRepository) Delete(ctx context.Context, userID uuid.UUID, provider string) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM credentials WHERE user_id = $1 AND provider = $2`

	result, err := querier.ExecContext(ctx, query, userID, provider)
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

// UpdateSecret conditionally replaces the stored secret. The key_version guard
// makes concurrent rotations fail with ErrConflict instead of overwriting.
func (p *PostgreSQLCredentialRepository) UpdateSecret(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
	expectedVersion uint,
	secret *cryptoDomain.StoredSecret,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE credentials SET
				ciphertext = $1,
				nonce = $2,
				tag = $3,
				wrapped_data_key = $4,
				data_key_nonce = $5,
				data_key_tag = $6,
				key_version = $7,
				master_key_id = $8,
				updated_at = $9
			  WHERE user_id = $10 AND provider = $11 AND key_version = $12`

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
		userID,
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
		// Either the row is gone or another writer changed the version.
		if _, getErr := p.Get(ctx, userID, provider); getErr != nil {
			return getErr
		}
		return apperrors.Wrap(apperrors.ErrConflict, "credential version changed concurrently")
	}
	return nil
}
