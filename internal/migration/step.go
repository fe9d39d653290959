package migration

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/winebox/dbmigrate/internal/schema"
)

// Cursor is the execution scope handed to a step: the step's transaction
// plus live schema introspection. Steps must decide from introspection
// immediately before acting (is the column already there, does the table
// exist) so that a re-run after a partial failure is a silent no-op for
// the portions already applied.
type Cursor struct {
	Tx     *sql.Tx
	Schema schema.Dialect
}

// Exec runs a statement on the step transaction.
func (c *Cursor) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.Tx.ExecContext(ctx, query, args...)
	return err
}

// HasTable reports whether a table exists in the live schema.
func (c *Cursor) HasTable(ctx context.Context, table string) (bool, error) {
	return c.Schema.TableExists(ctx, c.Tx, table)
}

// Columns returns the live column set of a table.
func (c *Cursor) Columns(ctx context.Context, table string) (map[string]bool, error) {
	return c.Schema.Columns(ctx, c.Tx, table)
}

// HasColumn reports whether a table currently has a column.
func (c *Cursor) HasColumn(ctx context.Context, table, column string) (bool, error) {
	return schema.HasColumn(ctx, c.Schema, c.Tx, table, column)
}

// Step is one immutable migration unit moving the schema between two
// adjacent versions. Forward steps satisfy Target == Source+1, revert
// steps Target == Source-1. Revert steps document destructive data loss in
// their description.
type Step interface {
	Source() int
	Target() int
	Description() string
	// Migrate applies the step. It must guard every mutation with a live
	// schema check so re-running is safe.
	Migrate(ctx context.Context, cur *Cursor) error
	// Validate checks the step's post-condition against live schema state.
	Validate(ctx context.Context, cur *Cursor) (bool, error)
}

// IsForward reports whether the step raises the schema version.
func IsForward(s Step) bool { return s.Target() > s.Source() }

// StepName derives the canonical identifier recorded in the version
// tracker, e.g. "migrate_0_to_1" or "revert_2_to_1".
func StepName(s Step) string {
	if IsForward(s) {
		return fmt.Sprintf("migrate_%d_to_%d", s.Source(), s.Target())
	}
	return fmt.Sprintf("revert_%d_to_%d", s.Source(), s.Target())
}
