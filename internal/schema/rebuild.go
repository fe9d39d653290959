package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/winebox/dbmigrate/internal/common"
)

// RebuildPlan describes a copy-transform-swap rebuild of one table, used
// when the engine cannot drop or alter a column in place.
//
// Columns lists exactly the columns carried into the rebuilt table; the
// copy never uses SELECT *, so columns slated for removal cannot leak
// through. Primary keys and any identifiers referenced by other tables
// must appear in Columns so identity survives the rebuild.
type RebuildPlan struct {
	// Table is the name of the table being rebuilt.
	Table string
	// CreateBody is the parenthesized column/constraint definition list of
	// the final table shape, without the CREATE TABLE prefix.
	CreateBody string
	// Columns are the retained columns, copied verbatim old -> new.
	Columns []string
	// DropColumns names the columns being removed. Engines with in-place
	// column drops use this instead of the full rebuild.
	DropColumns []string
	// Indexes are the CREATE INDEX statements to recreate after the swap;
	// a rename does not carry indexes over.
	Indexes []string
}

// Rebuild removes columns from a table, preserving all rows.
//
// On engines that support it, this is a sequence of ALTER TABLE ... DROP
// COLUMN statements. Otherwise it runs the rebuild protocol:
//
//  1. CREATE TABLE <table>_new with the final shape
//  2. INSERT INTO <table>_new(cols) SELECT cols FROM <table>
//  3. DROP TABLE <table>
//  4. ALTER TABLE <table>_new RENAME TO <table>
//  5. recreate every index from the plan
//
// Callers run this inside the step transaction, which is the strongest
// scope SQLite offers. A crash between steps 3 and 5 requires manual
// recovery from a pre-rebuild snapshot; that is a documented operational
// risk of engines without transactional DDL catalogs.
func Rebuild(ctx context.Context, d Dialect, q Querier, plan RebuildPlan) error {
	logger := common.GetLogger().WithComponent("rebuild")

	if d.SupportsDropColumn() && len(plan.DropColumns) > 0 {
		for _, col := range plan.DropColumns {
			stmt := fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s", plan.Table, col)
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to drop column %s.%s: %w", plan.Table, col, err)
			}
		}
		logger.Debug("dropped columns in place", "table", plan.Table, "columns", plan.DropColumns)
		return nil
	}

	tmp := plan.Table + "_new"
	cols := strings.Join(plan.Columns, ", ")

	// Leftover temp table from an interrupted earlier run would block the
	// CREATE; clear it so the rebuild is safe to retry.
	if _, err := q.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", tmp)); err != nil {
		return fmt.Errorf("failed to clear temp table %s: %w", tmp, err)
	}

	if _, err := q.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s %s", tmp, plan.CreateBody)); err != nil {
		return fmt.Errorf("failed to create temp table %s: %w", tmp, err)
	}

	copyStmt := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", tmp, cols, cols, plan.Table)
	if _, err := q.ExecContext(ctx, copyStmt); err != nil {
		return fmt.Errorf("failed to copy rows into %s: %w", tmp, err)
	}

	if _, err := q.ExecContext(ctx, fmt.Sprintf("DROP TABLE %s", plan.Table)); err != nil {
		return fmt.Errorf("failed to drop original table %s: %w", plan.Table, err)
	}

	if _, err := q.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tmp, plan.Table)); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", tmp, plan.Table, err)
	}

	for _, idx := range plan.Indexes {
		if _, err := q.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to recreate index on %s: %w", plan.Table, err)
		}
	}

	logger.Debug("table rebuilt", "table", plan.Table, "retained_columns", len(plan.Columns))
	return nil
}
