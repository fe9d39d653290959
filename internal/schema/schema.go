package schema

import (
	"context"
	"database/sql"
)

// Querier is the subset of database/sql operations the engine needs.
// Both *sql.DB and *sql.Tx implement it, so introspection and DDL can run
// either inside a step transaction or on a bare connection.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect answers questions about live schema state for one database engine.
// Every migration step decides from these answers immediately before acting,
// never from cached state, which is what makes steps safe to re-run.
type Dialect interface {
	// Name returns the driver name for logging.
	Name() string
	// TableExists reports whether a table is present in the live schema.
	TableExists(ctx context.Context, q Querier, table string) (bool, error)
	// Columns returns the set of column names of a table. The table must exist.
	Columns(ctx context.Context, q Querier, table string) (map[string]bool, error)
	// IndexNames returns the names of explicitly created indexes on a table.
	IndexNames(ctx context.Context, q Querier, table string) ([]string, error)
	// SupportsDropColumn reports whether the engine can drop a column in
	// place. When false, column removal goes through the rebuild protocol.
	SupportsDropColumn() bool
	// PrepareSession configures the connection for a migration session.
	PrepareSession(ctx context.Context, db *sql.DB) error
}

// HasColumn is a convenience guard used at the top of steps.
func HasColumn(ctx context.Context, d Dialect, q Querier, table, column string) (bool, error) {
	cols, err := d.Columns(ctx, q, table)
	if err != nil {
		return false, err
	}
	return cols[column], nil
}
