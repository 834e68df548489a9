package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	credentialsUseCase "github.com/sidevault/sidevault/internal/credentials/usecase"
)

// RunScheduledRotations executes every rotation schedule whose run time has
// passed, up to limit schedules per invocation. Meant to be run periodically
// from cron or a scheduler.
func RunScheduledRotations(
	ctx context.Context,
	rotationUseCase credentialsUseCase.RotationUseCase,
	logger *slog.Logger,
	out io.Writer,
	limit int,
) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be a positive number, got: %d", limit)
	}

	logger.Info("running due rotation schedules", slog.Int("limit", limit))

	executed, err := rotationUseCase.RunDueSchedules(ctx, time.Now().UTC(), limit)
	if err != nil {
		return fmt.Errorf("failed to run due schedules: %w", err)
	}

	fmt.Fprintf(out, "Executed %d scheduled rotation(s)\n", executed)
	logger.Info("scheduled rotations completed", slog.Int("executed", executed))
	return nil
}
