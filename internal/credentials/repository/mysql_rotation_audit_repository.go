package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/credentials/domain"
	"github.com/sidevault/sidevault/internal/database"
	apperrors "github.com/sidevault/sidevault/internal/errors"
)

// MySQLRotationAuditRepository implements the rotation audit trail for MySQL.
type MySQLRotationAuditRepository struct {
	db *sql.DB
}

// NewMySQLRotationAuditRepository creates a MySQL rotation audit repository.
func NewMySQLRotationAuditRepository(db *sql.DB) *MySQLRotationAuditRepository {
	return &MySQLRotationAuditRepository{db: db}
}

// Create appends an audit entry.
func (m *MySQLRotationAuditRepository) Create(ctx context.Context, entry *domain.RotationAuditEntry) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO rotation_audit_logs (id, user_id, provider, old_version, new_version, success, error, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := entry.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit entry id")
	}
	userID, err := entry.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		userID,
		entry.Provider,
		entry.OldVersion,
		entry.NewVersion,
		entry.Success,
		entry.Error,
		entry.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create rotation audit entry")
	}
	return nil
}

// ListByUser retrieves a user's audit entries newest-first.
func (m *MySQLRotationAuditRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*domain.RotationAuditEntry, error) {
	userIDBytes, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `SELECT id, user_id, provider, old_version, new_version, success, error, created_at
			  FROM rotation_audit_logs
			  WHERE user_id = ?
			  ORDER BY created_at DESC
			  LIMIT ? OFFSET ?`

	return m.list(ctx, query, userIDBytes, limit, offset)
}

// ListByUserAndProvider retrieves audit entries for one provider newest-first.
func (m *MySQLRotationAuditRepository) ListByUserAndProvider(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
	offset, limit int,
) ([]*domain.RotationAuditEntry, error) {
	userIDBytes, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `SELECT id, user_id, provider, old_version, new_version, success, error, created_at
			  FROM rotation_audit_logs
			  WHERE user_id = ? AND provider = ?
			  ORDER BY created_at DESC
			  LIMIT ? OFFSET ?`

	return m.list(ctx, query, userIDBytes, provider, limit, offset)
}

// DeleteOlderThan removes audit entries created before the cutoff.
func (m *MySQLRotationAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM rotation_audit_logs WHERE created_at < ?`

	result, err := querier.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete old rotation audit entries")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get rows affected")
	}
	return affected, nil
}

func (m *MySQLRotationAuditRepository) list(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.RotationAuditEntry, error) {
	querier := database.GetTx(ctx, m.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rotation audit entries")
	}
	defer func() { _ = rows.Close() }()

	var entries []*domain.RotationAuditEntry
	for rows.Next() {
		var (
			entry     domain.RotationAuditEntry
			rawID     []byte
			rawUserID []byte
		)
		err := rows.Scan(
			&rawID,
			&rawUserID,
			&entry.Provider,
			&entry.OldVersion,
			&entry.NewVersion,
			&entry.Success,
			&entry.Error,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan rotation audit entry")
		}
		if entry.ID, err = uuid.FromBytes(rawID); err != nil {
			return nil, apperrors.Wrap(err, "failed to parse audit entry id")
		}
		if entry.UserID, err = uuid.FromBytes(rawUserID); err != nil {
			return nil, apperrors.Wrap(err, "failed to parse user id")
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate rotation audit entries")
	}

	return entries, nil
}
