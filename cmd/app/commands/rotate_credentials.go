package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	credentialsUseCase "github.com/sidevault/sidevault/internal/credentials/usecase"
)

// RunRotateCredentials rotates a user's credentials from the command line.
// With a provider it rotates that single credential; without one it rotates
// every credential the user has, optionally rolling the batch back when any
// provider fails.
func RunRotateCredentials(
	ctx context.Context,
	rotationUseCase credentialsUseCase.RotationUseCase,
	logger *slog.Logger,
	out io.Writer,
	userIDStr, provider string,
	rollbackOnFailure bool,
	format string,
) error {
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userIDStr, err)
	}

	logger.Info("rotating credentials",
		slog.String("user_id", userID.String()),
		slog.String("provider", provider),
		slog.Bool("rollback_on_failure", rollbackOnFailure),
	)

	if provider != "" {
		entry, err := rotationUseCase.RotateOne(ctx, userID, provider, 0)
		if err != nil {
			return fmt.Errorf("failed to rotate %s: %w", provider, err)
		}
		return outputRotateOne(out, format, provider, entry.OldVersion, entry.NewVersion)
	}

	result, err := rotationUseCase.RotateAll(ctx, credentialsUseCase.RotateAllInput{
		UserID:            userID,
		RollbackOnFailure: rollbackOnFailure,
	})
	if err != nil {
		return fmt.Errorf("failed to rotate credentials: %w", err)
	}
	return outputRotateAll(out, format, result)
}

func outputRotateOne(out io.Writer, format, provider string, oldVersion, newVersion uint) error {
	if format == "json" {
		return writeJSON(out, map[string]any{
			"provider":    provider,
			"old_version": oldVersion,
			"new_version": newVersion,
		})
	}
	fmt.Fprintf(out, "Rotated %s: version %d -> %d\n", provider, oldVersion, newVersion)
	return nil
}

func outputRotateAll(out io.Writer, format string, result *credentialsUseCase.RotateAllResult) error {
	if format == "json" {
		payload := map[string]any{
			"succeeded":   result.Succeeded,
			"failed":      result.Failed,
			"rolled_back": result.RolledBack,
		}
		providers := make([]map[string]any, 0, len(result.Results))
		for _, r := range result.Results {
			providers = append(providers, map[string]any{
				"provider":    r.Provider,
				"success":     r.Success,
				"old_version": r.OldVersion,
				"new_version": r.NewVersion,
				"error":       r.Error,
			})
		}
		payload["results"] = providers
		return writeJSON(out, payload)
	}

	fmt.Fprintf(out, "Rotation finished: %d succeeded, %d failed", result.Succeeded, result.Failed)
	if result.RolledBack {
		fmt.Fprint(out, " (rolled back)")
	}
	fmt.Fprintln(out)
	for _, r := range result.Results {
		if r.Success {
			fmt.Fprintf(out, "  %s: version %d -> %d\n", r.Provider, r.OldVersion, r.NewVersion)
		} else {
			fmt.Fprintf(out, "  %s: FAILED (%s)\n", r.Provider, r.Error)
		}
	}
	return nil
}

func writeJSON(out io.Writer, payload any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
