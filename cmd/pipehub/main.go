package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"pipehub/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		slog.Error("pipehub failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// newApp builds the command tree. Output of the key commands goes to w.
func newApp(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "pipehub",
		Usage:   "relay messages from one callback URL to WeCom and Telegram",
		Version: version,
		Writer:  w,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Sources: cli.EnvVars(config.EnvPrefix + "CONFIG"),
				Usage:   "YAML config file",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "HTTP listen address (overrides server.addr)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides log.level)",
			},
			&cli.StringFlag{
				Name:  "database-driver",
				Usage: "postgres or sqlite (overrides database.driver)",
			},
			&cli.StringFlag{
				Name:  "database-dsn",
				Usage: "database DSN or SQLite file (overrides database.dsn)",
			},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server (default)",
				Action: serveAction,
			},
			migrateCommand(),
			keyCommand(),
		},
	}
}

// loadConfig layers defaults, the config file, PIPEHUB_* variables and flags.
func loadConfig(c *cli.Command) (*config.Config, error) {
	overrides := []config.Override{}
	if v := c.String("addr"); v != "" {
		overrides = append(overrides, func(cfg *config.Config) { cfg.Server.Addr = v })
	}
	if v := c.String("log-level"); v != "" {
		overrides = append(overrides, func(cfg *config.Config) { cfg.Log.Level = v })
	}
	if v := c.String("database-driver"); v != "" {
		overrides = append(overrides, func(cfg *config.Config) { cfg.Database.Driver = v })
	}
	if v := c.String("database-dsn"); v != "" {
		overrides = append(overrides, func(cfg *config.Config) { cfg.Database.DSN = v })
	}

	cfg, err := config.Load(c.String("config"), overrides...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
