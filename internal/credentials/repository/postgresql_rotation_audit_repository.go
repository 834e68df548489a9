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

// PostgreSQLRotationAuditRepository implements the rotation audit trail for PostgreSQL.
type PostgreSQLRotationAuditRepository struct {
	db *sql.DB
}

// NewPostgreSQLRotationAuditRepository creates a PostgreSQL rotation audit repository.
func NewPostgreSQLRotationAuditRepository(db *sql.DB) *PostgreSQLRotationAuditRepository {
	return &PostgreSQLRotationAuditRepository{db: db}
}

// Create appends an audit entry. Entries are never updated or deleted
// individually; retention is handled by DeleteOlderThan.
func (p *PostgreSQLRotationAuditRepository) Create(ctx context.Context, entry *domain.RotationAuditEntry) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO rotation_audit_logs (id, user_id, provider, old_version, new_version, success, error, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.UserID,
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
func (p *PostgreSQLRotationAuditRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*domain.RotationAuditEntry, error) {
	query := `SELECT id, user_id, provider, old_version, new_version, success, error, created_at
			  FROM rotation_audit_logs
			  WHERE user_id = $1
			  ORDER BY created_at DESC
			  OFFSET $2 LIMIT $3`

	return p.list(ctx, query, userID, offset, limit)
}

// ListByUserAndProvider retrieves audit entries for one provider newest-first.
func (p *PostgreSQLRotationAuditRepository) ListByUserAndProvider(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
	offset, limit int,
) ([]*domain.RotationAuditEntry, error) {
	query := `SELECT id, user_id, provider, old_version, new_version, success, error, created_at
			  FROM rotation_audit_logs
			  WHERE user_id = $1 AND provider = $2
			  ORDER BY created_at DESC
			  OFFSET $3 LIMIT $4`

	return p.list(ctx, query, userID, provider, offset, limit)
}

// DeleteOlderThan removes audit entries created before the cutoff and returns
// the number of rows deleted.
func (p *PostgreSQLRotationAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM rotation_audit_logs WHERE created_at < $1`

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

func (p *PostgreSQLRotationAuditRepository) list(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.RotationAuditEntry, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rotation audit entries")
	}
	defer func() { _ = rows.Close() }()

	var entries []*domain.RotationAuditEntry
	for rows.Next() {
		var entry domain.RotationAuditEntry
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
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
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate rotation audit entries")
	}

	return entries, nil
}
