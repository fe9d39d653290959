package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresDialect introspects schema state via information_schema and
// pg_indexes. PostgreSQL drops columns in place, so the rebuild protocol
// degrades to plain ALTER TABLE ... DROP COLUMN statements.
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

// Name returns the driver name for logging
func (d *PostgresDialect) Name() string {
	return "postgres"
}

// TableExists checks information_schema for the table in the current schema
func (d *PostgresDialect) TableExists(ctx context.Context, q Querier, table string) (bool, error) {
	row := q.QueryRowContext(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1", table)
	var name string
	err := row.Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return true, nil
}

// Columns returns the column name set from information_schema
func (d *PostgresDialect) Columns(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1", table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", table, err)
	}
	return cols, nil
}

// IndexNames returns index names from pg_indexes, excluding the implicit
// primary key index which follows the table automatically.
func (d *PostgresDialect) IndexNames(ctx context.Context, q Querier, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT indexname FROM pg_indexes WHERE schemaname = current_schema() AND tablename = $1 AND indexname NOT LIKE '%_pkey' ORDER BY indexname", table)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan index of %s: %w", table, err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SupportsDropColumn reports true: no rebuild needed for column removal
func (d *PostgresDialect) SupportsDropColumn() bool {
	return true
}

// PrepareSession is a no-op for PostgreSQL
func (d *PostgresDialect) PrepareSession(_ context.Context, _ *sql.DB) error {
	return nil
}
