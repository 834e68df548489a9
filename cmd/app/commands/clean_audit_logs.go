package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	credentialsUseCase "github.com/sidevault/sidevault/internal/credentials/usecase"
)

// RunCleanAuditLogs deletes rotation audit entries older than the specified
// number of days.
func RunCleanAuditLogs(
	ctx context.Context,
	auditRepo credentialsUseCase.RotationAuditRepository,
	logger *slog.Logger,
	out io.Writer,
	days int,
	format string,
) error {
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	logger.Info("cleaning rotation audit logs",
		slog.Int("days", days),
		slog.Time("cutoff", cutoff),
	)

	count, err := auditRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete audit logs: %w", err)
	}

	if format == "json" {
		if err := writeJSON(out, map[string]any{"count": count, "days": days}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Successfully deleted %d audit log entr(ies) older than %d day(s)\n", count, days)
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Int("days", days),
	)
	return nil
}
