package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"pipehub/internal/infra/db"
	"pipehub/internal/observability/logging"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "manage the database schema",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStorage(ctx, c, func(s *storage) error {
						if err := db.MigrateUp(ctx, s.migrateDB, s.driver); err != nil {
							return err
						}
						v, err := db.SchemaVersion(ctx, s.migrateDB, s.driver)
						if err != nil {
							return err
						}
						slog.Info("database migrated", slog.Int64("version", v))
						return nil
					})
				},
			},
			{
				Name:  "status",
				Usage: "print the applied state of every migration",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStorage(ctx, c, func(s *storage) error {
						return db.MigrateStatus(ctx, s.migrateDB, s.driver)
					})
				},
			},
		},
	}
}

// withStorage loads the config, opens the database and runs fn.
func withStorage(ctx context.Context, c *cli.Command, fn func(*storage) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	slog.SetDefault(logging.NewLogger(cfg.Log.Level, cfg.Log.Format))

	s, err := openStorage(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("error", err))
		}
	}()
	return fn(s)
}
