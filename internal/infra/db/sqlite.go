package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	gormdriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// SQLite is a file database opened twice: a read pool sized to the CPU count
// and a single-connection writer. SQLite allows one writer at a time, so
// serialising writes in the pool avoids SQLITE_BUSY under load.
type SQLite struct {
	R *gorm.DB
	W *gorm.DB
}

// Tx is a transaction handle passed to ReadTX and WriteTX callbacks.
type Tx struct {
	*gorm.DB
}

type txFunc func(tx *Tx) error

// ReadTX runs fn in a read-only transaction on the reader pool.
func (s *SQLite) ReadTX(ctx context.Context, fn txFunc) error {
	return s.R.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Tx{DB: tx})
	}, &sql.TxOptions{ReadOnly: true})
}

// WriteTX runs fn in a transaction on the writer connection.
func (s *SQLite) WriteTX(ctx context.Context, fn txFunc) error {
	return s.W.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Tx{DB: tx})
	})
}

// WriteSQLDB returns the writer's underlying *sql.DB, used for migrations.
func (s *SQLite) WriteSQLDB() (*sql.DB, error) {
	return s.W.DB()
}

// ReadSQLDB returns the reader's underlying *sql.DB, used for health checks.
func (s *SQLite) ReadSQLDB() (*sql.DB, error) {
	return s.R.DB()
}

// Close closes both pools and returns the first error.
func (s *SQLite) Close() error {
	var firstErr error
	for _, g := range []*gorm.DB{s.R, s.W} {
		if err := closeGORM(g); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ io.Closer = (*SQLite)(nil)

// OpenSQLite opens the database file at path with a reader pool and a writer
// connection. Pragmas are set through the DSN so every pooled connection gets them.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, ErrEmptyDSN
	}

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)
	gormCfg := func() *gorm.Config {
		return &gorm.Config{PrepareStmt: true, Logger: gormLogger}
	}

	reader, err := gorm.Open(gormdriver.Dialector{DriverName: "sqlite", DSN: buildDSN(path, true)}, gormCfg())
	if err != nil {
		return nil, fmt.Errorf("open read db: %w", err)
	}
	writer, err := gorm.Open(gormdriver.Dialector{DriverName: "sqlite", DSN: buildDSN(path, false)}, gormCfg())
	if err != nil {
		_ = closeGORM(reader)
		return nil, fmt.Errorf("open write db: %w", err)
	}

	rdb, err := reader.DB()
	if err != nil {
		_ = closeGORM(reader)
		_ = closeGORM(writer)
		return nil, fmt.Errorf("reader sql db: %w", err)
	}
	wdb, err := writer.DB()
	if err != nil {
		_ = closeGORM(reader)
		_ = closeGORM(writer)
		return nil, fmt.Errorf("writer sql db: %w", err)
	}

	rdb.SetMaxOpenConns(runtime.NumCPU())
	rdb.SetMaxIdleConns(runtime.NumCPU())
	rdb.SetConnMaxLifetime(0)
	rdb.SetConnMaxIdleTime(0)

	wdb.SetMaxOpenConns(1)
	wdb.SetMaxIdleConns(1)
	wdb.SetConnMaxLifetime(0)
	wdb.SetConnMaxIdleTime(0)

	return &SQLite{R: reader, W: writer}, nil
}

// buildDSN appends the per-connection pragmas to path. The reader is marked
// query_only so a stray write through it fails instead of racing the writer.
func buildDSN(path string, readOnly bool) string {
	pragmas := []string{
		"journal_mode(WAL)",
		"synchronous(NORMAL)",
		"temp_store(MEMORY)",
		"foreign_keys(1)",
		"busy_timeout(5000)",
		"trusted_schema(OFF)",
	}
	if readOnly {
		pragmas = append(pragmas, "query_only(1)")
	} else {
		pragmas = append(pragmas, "query_only(0)")
	}

	params := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

func closeGORM(g *gorm.DB) error {
	if g == nil {
		return nil
	}
	sqlDB, err := g.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
