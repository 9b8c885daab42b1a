package postgres

import (
	"context"
	"database/sql"
)

// Querier is the subset of *sql.DB the repositories use. It is satisfied by
// *sql.DB, *sql.Tx and circuitbreaker.DBCircuitBreaker.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
