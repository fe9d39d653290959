package steps

import (
	"context"
	"fmt"

	"github.com/winebox/dbmigrate/internal/migration"
)

// addXWinesTables is the 2->3 forward step: reference tables for the
// external X-Wines dataset, used for wine autocomplete and auto-fill. The
// step guarantees the schema shape only; the bulk data load is a separate
// operator action (see the xwines package).
type addXWinesTables struct{}

func (addXWinesTables) Source() int { return 2 }
func (addXWinesTables) Target() int { return 3 }
func (addXWinesTables) Description() string {
	return "Add X-Wines dataset tables for wine autocomplete and reference data"
}

func (addXWinesTables) Migrate(ctx context.Context, cur *migration.Cursor) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS xwines_wines (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			wine_type TEXT NOT NULL,
			elaborate TEXT,
			grapes TEXT,
			harmonize TEXT,
			abv REAL,
			body TEXT,
			acidity TEXT,
			country_code TEXT,
			country TEXT,
			region_id INTEGER,
			region_name TEXT,
			winery_id INTEGER,
			winery_name TEXT,
			website TEXT,
			vintages TEXT,
			avg_rating REAL,
			rating_count INTEGER DEFAULT 0
		)`,
		"CREATE INDEX IF NOT EXISTS idx_xwines_name ON xwines_wines(name)",
		"CREATE INDEX IF NOT EXISTS idx_xwines_winery ON xwines_wines(winery_name)",
		"CREATE INDEX IF NOT EXISTS idx_xwines_country ON xwines_wines(country_code)",
		"CREATE INDEX IF NOT EXISTS idx_xwines_type ON xwines_wines(wine_type)",
		`CREATE TABLE IF NOT EXISTS xwines_metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if err := cur.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (addXWinesTables) Validate(ctx context.Context, cur *migration.Cursor) (bool, error) {
	for _, table := range []string{"xwines_wines", "xwines_metadata"} {
		exists, err := cur.HasTable(ctx, table)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	cols, err := cur.Columns(ctx, "xwines_wines")
	if err != nil {
		return false, err
	}
	required := []string{
		"id", "name", "wine_type", "grapes", "abv", "body",
		"country", "region_name", "winery_name", "avg_rating", "rating_count",
	}
	for _, c := range required {
		if !cols[c] {
			return false, nil
		}
	}
	return true, nil
}

// removeXWinesTables is the 3->2 revert step. All loaded dataset rows are
// deleted with the tables.
type removeXWinesTables struct{}

func (removeXWinesTables) Source() int { return 3 }
func (removeXWinesTables) Target() int { return 2 }
func (removeXWinesTables) Description() string {
	return "Remove X-Wines dataset tables (loaded dataset rows are lost)"
}

func (removeXWinesTables) Migrate(ctx context.Context, cur *migration.Cursor) error {
	// Indexes are dropped with their tables.
	for _, table := range []string{"xwines_wines", "xwines_metadata"} {
		if err := cur.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return err
		}
	}
	return nil
}

func (removeXWinesTables) Validate(ctx context.Context, cur *migration.Cursor) (bool, error) {
	for _, table := range []string{"xwines_wines", "xwines_metadata"} {
		exists, err := cur.HasTable(ctx, table)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}
	return true, nil
}
