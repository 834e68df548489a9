// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/sidevault/sidevault/cmd/app/commands"
	"github.com/sidevault/sidevault/internal/app"
	"github.com/sidevault/sidevault/internal/config"
	cryptoService "github.com/sidevault/sidevault/internal/crypto/service"
)

const version = "1.0.0"

// withContainer runs fn with a fully wired container and shuts it down after.
func withContainer(fn func(ctx context.Context, container *app.Container, logger *slog.Logger) error) func(context.Context, *cli.Command) error {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg := config.Load()
		container := app.NewContainer(cfg)
		logger := container.Logger()
		defer func() {
			if err := container.Shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown container", slog.Any("error", err))
			}
		}()
		return fn(ctx, container, logger)
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "sidevault",
		Usage:   "Session provisioning and credential vault for coding-agent sandboxes",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP servers (API, ops, metrics)",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "create-master-key",
				Usage: "Generate a new KMS-wrapped master key for envelope encryption",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "id",
						Aliases: []string{"i"},
						Value:   "",
						Usage:   "Master key ID (e.g., prod-master-key-2026)",
					},
					&cli.StringFlag{
						Name:  "kms-provider",
						Usage: "KMS provider (localsecrets, gcpkms, awskms, azurekeyvault, hashivault)",
					},
					&cli.StringFlag{
						Name:  "kms-key-uri",
						Usage: "KMS key URI used to wrap the master key",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateMasterKey(
						ctx,
						cryptoService.NewKMSService(),
						os.Stdout,
						cmd.String("id"),
						cmd.String("kms-provider"),
						cmd.String("kms-key-uri"),
					)
				},
			},
			{
				Name:  "rotate-credentials",
				Usage: "Rotate a user's provider credentials to fresh data keys",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Required: true,
						Usage:    "User ID (UUID)",
					},
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   "Rotate only this provider (omit to rotate all)",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the whole batch when any provider fails",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(func(ctx context.Context, container *app.Container, logger *slog.Logger) error {
						rotationUseCase, err := container.RotationUseCase()
						if err != nil {
							return fmt.Errorf("failed to initialize rotation use case: %w", err)
						}
						return commands.RunRotateCredentials(
							ctx,
							rotationUseCase,
							logger,
							os.Stdout,
							cmd.String("user"),
							cmd.String("provider"),
							cmd.Bool("rollback"),
							cmd.String("format"),
						)
					})(ctx, cmd)
				},
			},
			{
				Name:  "run-scheduled-rotations",
				Usage: "Execute rotation schedules whose run time has passed",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Value:   100,
						Usage:   "Maximum number of schedules to execute",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(func(ctx context.Context, container *app.Container, logger *slog.Logger) error {
						rotationUseCase, err := container.RotationUseCase()
						if err != nil {
							return fmt.Errorf("failed to initialize rotation use case: %w", err)
						}
						return commands.RunScheduledRotations(
							ctx,
							rotationUseCase,
							logger,
							os.Stdout,
							cmd.Int("limit"),
						)
					})(ctx, cmd)
				},
			},
			{
				Name:  "clean-audit-logs",
				Usage: "Delete rotation audit entries older than the given number of days",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "days",
						Aliases:  []string{"d"},
						Required: true,
						Usage:    "Delete audit entries older than this many days",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(func(ctx context.Context, container *app.Container, logger *slog.Logger) error {
						auditRepo, err := container.RotationAuditRepository()
						if err != nil {
							return fmt.Errorf("failed to initialize audit repository: %w", err)
						}
						return commands.RunCleanAuditLogs(
							ctx,
							auditRepo,
							logger,
							os.Stdout,
							cmd.Int("days"),
							cmd.String("format"),
						)
					})(ctx, cmd)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
