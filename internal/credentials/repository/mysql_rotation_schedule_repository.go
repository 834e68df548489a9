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

// MySQLRotationScheduleRepository implements rotation schedule persistence for MySQL.
type MySQLRotationScheduleRepository struct {
	db *sql.DB
}

// NewMySQLRotationScheduleRepository creates a MySQL rotation schedule repository.
func NewMySQLRotationScheduleRepository(db *sql.DB) *MySQLRotationScheduleRepository {
	return &MySQLRotationScheduleRepository{db: db}
}

// Upsert creates the schedule or moves run_at for an existing (user_id, provider).
func (m *MySQLRotationScheduleRepository) Upsert(ctx context.Context, schedule *domain.RotationSchedule) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO rotation_schedules (id, user_id, provider, run_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				run_at = VALUES(run_at),
				updated_at = VALUES(updated_at)`

	id, err := schedule.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal schedule id")
	}
	userID, err := schedule.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		userID,
		schedule.Provider,
		schedule.RunAt,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert rotation schedule")
	}
	return nil
}

// ListDue retrieves schedules whose run_at has passed, oldest first.
func (m *MySQLRotationScheduleRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*domain.RotationSchedule, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, user_id, provider, run_at, created_at, updated_at
			  FROM rotation_schedules
			  WHERE run_at <= ?
			  ORDER BY run_at ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due rotation schedules")
	}
	defer func() { _ = rows.Close() }()

	var schedules []*domain.RotationSchedule
	for rows.Next() {
		var (
			schedule  domain.RotationSchedule
			rawID     []byte
			rawUserID []byte
		)
		err := rows.Scan(
			&rawID,
			&rawUserID,
			&schedule.Provider,
			&schedule.RunAt,
			&schedule.CreatedAt,
			&schedule.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan rotation schedule")
		}
		if schedule.ID, err = uuid.FromBytes(rawID); err != nil {
			return nil, apperrors.Wrap(err, "failed to parse schedule id")
		}
		if schedule.UserID, err = uuid.FromBytes(rawUserID); err != nil {
			return nil, apperrors.Wrap(err, "failed to parse user id")
		}
		schedules = append(schedules, &schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate rotation schedules")
	}

	return schedules, nil
}

// Delete removes a schedule by id.
func (m *MySQLRotationScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM rotation_schedules WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal schedule id")
	}

	result, err := querier.ExecContext(ctx, query, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete rotation schedule")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
