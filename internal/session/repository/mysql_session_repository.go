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

// MySQLSessionRepository implements Session persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLSessionRepository struct {
	db *sql.DB
}

// NewMySQLSessionRepository creates a MySQL session repository.
func NewMySQLSessionRepository(db *sql.DB) *MySQLSessionRepository {
	return &MySQLSessionRepository{db: db}
}

const mysqlSessionColumns = `id, user_id, status, registration_token_hash,
	sidecar_public_key, sidecar_key_id, orchestrator_public_key, orchestrator_key_id,
	sidecar_token_hash, sidecar_token_nonce, sidecar_token_issued_at,
	opencode_port, registered_at, created_at, updated_at`

// Create inserts a new session.
func (m *MySQLSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO sessions (` + mysqlSessionColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := session.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session id")
	}
	userID, err := session.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		userID,
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
func (m *MySQLSessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlSessionColumns + ` FROM sessions WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal session id")
	}

	session, err := scanMySQLSession(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get session")
	}
	return session, nil
}

// ListByUser retrieves a user's sessions newest-first.
func (m *MySQLSessionRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Session, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlSessionColumns + `
			  FROM sessions
			  WHERE user_id = ?
			  ORDER BY created_at DESC`

	userIDBytes, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	rows, err := querier.QueryContext(ctx, query, userIDBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list sessions")
	}
	defer func() { _ = rows.Close() }()

	var sessions []*domain.Session
	for rows.Next() {
		session, err := scanMySQLSession(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan session")
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate sessions")
	}

	return sessions, nil
}

// Activate atomically flips the session from creating to active.
func (m *MySQLSessionRepository) Activate(ctx context.Context, session *domain.Session) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE sessions SET
				status = ?,
				sidecar_public_key = ?,
				sidecar_key_id = ?,
				orchestrator_public_key = ?,
				orchestrator_key_id = ?,
				sidecar_token_hash = ?,
				sidecar_token_nonce = ?,
				sidecar_token_issued_at = ?,
				opencode_port = ?,
				registered_at = ?,
				updated_at = ?
			  WHERE id = ? AND status = ?`

	idBytes, err := session.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session id")
	}

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
		idBytes,
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
func (m *MySQLSessionRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.Status,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE sessions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session id")
	}

	result, err := querier.ExecContext(ctx, query, to, time.Now().UTC(), idBytes, from)
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
func (m *MySQLSessionRepository) UpdateKeyExchange(
	ctx context.Context,
	id uuid.UUID,
	sidecarPublicKey, sidecarKeyID, orchestratorPublicKey, orchestratorKeyID string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE sessions SET
				sidecar_public_key = ?,
				sidecar_key_id = ?,
				orchestrator_public_key = ?,
				orchestrator_key_id = ?,
				updated_at = ?
			  WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session id")
	}

	result, err := querier.ExecContext(
		ctx, query,
		sidecarPublicKey, sidecarKeyID, orchestratorPublicKey, orchestratorKeyID, time.Now().UTC(), idBytes,
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

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanMySQLSession(s scanner) (*domain.Session, error) {
	var (
		session   domain.Session
		rawID     []byte
		rawUserID []byte
	)
	err := s.Scan(
		&rawID,
		&rawUserID,
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
		return nil, err
	}

	if session.ID, err = uuid.FromBytes(rawID); err != nil {
		return nil, err
	}
	if session.UserID, err = uuid.FromBytes(rawUserID); err != nil {
		return nil, err
	}
	return &session, nil
}
