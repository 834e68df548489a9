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

// PostgreSQLRotationScheduleRepository implements rotation schedule persistence for PostgreSQL.
type PostgreSQLRotationScheduleRepository struct {
	db *sql.DB
}

// NewPostgreSQLRotationScheduleRepository creates a PostgreSQL rotation schedule repository.
func NewPostgreSQLRotationScheduleRepository(db *sql.DB) *PostgreSQLRotationScheduleRepository {
	return &PostgreSQLRotationScheduleRepository{db: db}
}

// Upsert creates the schedule or moves run_at for an existing (user_id, provider).
func (p *PostgreSQLRotationScheduleRepository) Upsert(ctx context.Context, schedule *domain.RotationSchedule) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO rotation_schedules (id, user_id, provider, run_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (user_id, provider) DO UPDATE SET
				run_at = EXCLUDED.run_at,
				updated_at = EXCLUDED.updated_at`

	_, err := querier.ExecContext(
		ctx,
		query,
		schedule.ID,
		schedule.UserID,
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
func (p *PostgreSQLRotationScheduleRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*domain.RotationSchedule, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, provider, run_at, created_at, updated_at
			  FROM rotation_schedules
			  WHERE run_at <= $1
			  ORDER BY run_at ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due rotation schedules")
	}
	defer func() { _ = rows.Close() }()

	var schedules []*domain.RotationSchedule
	for rows.Next() {
		var schedule domain.RotationSchedule
		err := rows.Scan(
			&schedule.ID,
			&schedule.UserID,
			&schedule.Provider,
			&schedule.RunAt,
			&schedule.CreatedAt,
			&schedule.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan rotation schedule")
		}
		schedules = append(schedules, &schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate rotation schedules")
	}

	return schedules, nil
}

// Delete removes a schedule by id.
func (p *PostgreSQLRotationScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM rotation_schedules WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, id)
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
