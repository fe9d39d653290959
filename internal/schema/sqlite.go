package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SqliteDialect introspects schema state via sqlite_master and PRAGMA
// table_info. SQLite cannot drop columns in place (on the versions the
// engine targets), so column removal uses the rebuild protocol.
type SqliteDialect struct{}

// NewSqliteDialect creates a new SQLite dialect
func NewSqliteDialect() *SqliteDialect {
	return &SqliteDialect{}
}

// Name returns the driver name for logging
func (d *SqliteDialect) Name() string {
	return "sqlite"
}

// TableExists checks sqlite_master for the table
func (d *SqliteDialect) TableExists(ctx context.Context, q Querier, table string) (bool, error) {
	row := q.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table)
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

// Columns returns the column name set from PRAGMA table_info
func (d *SqliteDialect) Columns(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	// PRAGMA does not accept bound parameters; table names come from the
	// static step definitions, never from user input.
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", table, err)
	}
	return cols, nil
}

// IndexNames returns explicitly created index names from sqlite_master.
// Auto-generated indexes (sqlite_autoindex_*) carry a NULL sql column and
// are excluded: they follow the table automatically.
func (d *SqliteDialect) IndexNames(ctx context.Context, q Querier, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=? AND sql IS NOT NULL ORDER BY name", table)
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

// SupportsDropColumn reports false: column removal rebuilds the table
func (d *SqliteDialect) SupportsDropColumn() bool {
	return false
}

// PrepareSession disables foreign key enforcement for the migration
// session. The rebuild protocol drops and recreates parent tables, and the
// pragma is a no-op inside a transaction, so it must be set on the pooled
// connection before any step begins. The pool is pinned to one connection.
func (d *SqliteDialect) PrepareSession(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("failed to disable foreign keys: %w", err)
	}
	return nil
}
