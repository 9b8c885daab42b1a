package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"pipehub/internal/config"
	"pipehub/internal/infra/adapter/persistence/postgres"
	"pipehub/internal/infra/adapter/persistence/sqlite"
	"pipehub/internal/infra/db"
	"pipehub/internal/repository"
	"pipehub/internal/resilience/circuitbreaker"
)

// storage is the opened configuration store for one driver.
type storage struct {
	driver   string
	tenants  repository.TenantRepository
	channels repository.ChannelRepository

	// migrateDB receives schema migrations; healthDB is pinged by /health.
	migrateDB *sql.DB
	healthDB  *sql.DB

	// breaker is set for Postgres only.
	breaker *circuitbreaker.DBCircuitBreaker

	closer io.Closer
}

func (s *storage) Close() error {
	return s.closer.Close()
}

// openStorage connects to the configured driver and builds its repositories.
func openStorage(ctx context.Context, cfg config.DatabaseConfig) (*storage, error) {
	switch cfg.Driver {
	case db.DriverPostgres:
		conn, err := db.OpenPostgres(ctx, cfg.DSN, cfg.Pool)
		if err != nil {
			return nil, err
		}
		breaker := circuitbreaker.NewDBCircuitBreaker(conn)
		return &storage{
			driver:    cfg.Driver,
			tenants:   postgres.NewTenantRepo(breaker),
			channels:  postgres.NewChannelRepo(breaker),
			migrateDB: conn,
			healthDB:  conn,
			breaker:   breaker,
			closer:    conn,
		}, nil

	case db.DriverSQLite:
		file, err := db.OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		writer, err := file.WriteSQLDB()
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("sqlite writer: %w", err)
		}
		reader, err := file.ReadSQLDB()
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("sqlite reader: %w", err)
		}
		slog.Info("sqlite database opened", slog.String("path", cfg.DSN))
		return &storage{
			driver:    cfg.Driver,
			tenants:   sqlite.NewTenantRepo(file),
			channels:  sqlite.NewChannelRepo(file),
			migrateDB: writer,
			healthDB:  reader,
			closer:    file,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
