// Package repository implements session persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/database"
	apperrors "github.com/sidevault/sidevault/internal/errors"
	"github.com/sidevault/sidevault/internal/session/domain"
)

// PostgreSQLSessionRepository implements Session persistence for PostgreSQL.
type PostgreSQLSessionRepository struct {
	db *sql.DB
}

// NewPostgreSQLSessionRepository creates a PostgreSQL session repository.
func NewPostgreSQLSessionRepository(db *sql.DB) *PostgreSQLSessionRepository {
	return &PostgreSQLSessionRepository{db: db}
}

const postgresSessionColumns = `id, user_id, status, registration_token_hash,
	sidecar_public_key, sidecar_key_id, orchestrator_public_key, orchestrator_key_id,
	sidecar_token_hash, sidecar_token_nonce, sidecar_token_issued_at,
	opencode_port, registered_at, created_at, updated_at`

// Create inserts a new session.
func (p *PostgreSQLSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO sessions (` + postgresSessionColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := querier.ExecContext(
		ctx,
		query,
		session.ID,
		session.UserID,
		session.Status,
		session.RegistrationTokenHash,
		session.SidecarPublicKey,
		session.SidecarKeyID,
		session.OrchestratorPublicKey,
		session.OrchestratorKeyID,
		session.SidecarTokenHash,
		session.SidecarTokenNonce,
		session.SidecarTokenIssuedAt,
		session.OpencodePort,
		session.RegisteredAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

// Get retrieves a session by id.
func (p *PostgreSQLSessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresSessionColumns + ` FROM sessions WHERE id = $1`

	var session domain.Session
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.Status,
		&session.RegistrationTokenHash,
		&session.SidecarPublicKey,
		&session.SidecarKeyID,
		&session.OrchestratorPublicKey,
		&session.OrchestratorKeyID,
		&session.SidecarTokenHash,
		&session.SidecarTokenNonce,
		&session.SidecarTokenIssuedAt,
		&session.OpencodePort,
		&session.RegisteredAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get session")
	}

	return &session, nil
}

// ListByUser retrieves a user's sessions newest-first.
func (p *PostgreSQLSessionRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Session, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresSessionColumns + `
			  FROM sessions
			  WHERE user_id = $1
			  ORDER BY created_at DESC`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list sessions")
	}
	defer func() { _ = rows.Close() }()

	var sessions []*domain.Session
	for rows.Next() {
		var session domain.Session
		err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.Status,
			&session.RegistrationTokenHash,
			&session.SidecarPublicKey,
			&session.SidecarKeyID,
			&session.OrchestratorPublicKey,
			&session.OrchestratorKeyID,
			&session.SidecarTokenHash,
			&session.SidecarTokenNonce,
			&session.SidecarTokenIssuedAt,
			&session.OpencodePort,
			&session.RegisteredAt,
			&session.CreatedAt,
			&session.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan session")
		}
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate sessions")
	}

	return sessions, nil
}

// Activate atomically flips the session from creating to active and records
// the registration outcome. The status guard makes concurrent registrations
// race safely: exactly one attempt updates the row.
func (p *PostgreSQLSessionRepository) Activate(ctx context.Context, session *domain.Session) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE sessions SET
				status = $1,
				sidecar_public_key = $2,
				sidecar_key_id = $3,
				orchestrator_public_key = $4,
				orchestrator_key_id = $5,
				sidecar_token_hash = $6,
				sidecar_token_nonce = $7,
				sidecar_token_issued_at = $8,
				opencode_port = $9,
				registered_at = $10,
				updated_at = $11
			  WHERE id = $12 AND status = $13`

	result, err := querier.ExecContext(
		ctx,
		query,
		domain.StatusActive,
		session.SidecarPublicKey,
		session.SidecarKeyID,
		session.OrchestratorPublicKey,
		session.OrchestratorKeyID,
		session.SidecarTokenHash,
		session.SidecarTokenNonce,
		session.SidecarTokenIssuedAt,
		session.OpencodePort,
		session.RegisteredAt,
		session.UpdatedAt,
		session.ID,
		domain.StatusCreating,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to activate session")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return domain.ErrAlreadyRegistered
	}
	return nil
}

// UpdateStatus conditionally moves the session from one status to another.
func (p *PostgreSQLSessionRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.Status,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE sessions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	result, err := querier.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return apperrors.Wrap(err, "failed to update session status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return domain.ErrInvalidStateTransition
	}
	return nil
}

// UpdateKeyExchange records fresh key material after a provider-key refresh.
func (p *PostgreSQLSessionRepository) UpdateKeyExchange(
	ctx context.Context,
	id uuid.UUID,
	sidecarPublicKey, sidecarKeyID, orchestratorPublicKey, orchestratorKeyID string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE sessions SET
				sidecar_public_key = $1,
				sidecar_key_id = $2,
				orchestrator_public_key = $3,
				orchestrator_key_id = $4,
				updated_at = $5
			  WHERE id = $6`

	result, err := querier.ExecContext(
		ctx, query,
		sidecarPublicKey, sidecarKeyID, orchestratorPublicKey, orchestratorKeyID, time.Now().UTC(), id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update session key exchange")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
