package steps

import (
	"context"
	"fmt"

	"github.com/winebox/dbmigrate/internal/migration"
	"github.com/winebox/dbmigrate/internal/schema"
)

// taxonomyTables are the reference tables added in version 2, ordered so
// that tables with foreign keys come after the tables they reference.
var taxonomyTables = []string{
	"wine_types",
	"grape_varieties",
	"regions",
	"classifications",
	"wine_grapes",
	"wine_scores",
}

// wineTaxonomyColumns are the columns version 2 adds to the wines table.
var wineTaxonomyColumns = []struct {
	name string
	def  string
}{
	{"wine_type_id", "TEXT REFERENCES wine_types(id) ON DELETE SET NULL"},
	{"wine_subtype", "TEXT"},
	{"appellation_id", "CHAR(36) REFERENCES regions(id) ON DELETE SET NULL"},
	{"classification_id", "CHAR(36) REFERENCES classifications(id) ON DELETE SET NULL"},
	{"price_tier", "TEXT"},
	{"drink_window_start", "INTEGER"},
	{"drink_window_end", "INTEGER"},
	{"producer_type", "TEXT"},
}

// addWineTaxonomy is the 1->2 forward step: wine taxonomy reference tables
// (types, grapes, hierarchical regions, classifications), the wine_grapes
// junction table, wine_scores, and the taxonomy columns on wines.
type addWineTaxonomy struct{}

func (addWineTaxonomy) Source() int { return 1 }
func (addWineTaxonomy) Target() int { return 2 }
func (addWineTaxonomy) Description() string {
	return "Add wine taxonomy tables and wine table extensions"
}

func (addWineTaxonomy) Migrate(ctx context.Context, cur *migration.Cursor) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wine_types (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS grape_varieties (
			id CHAR(36) PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			color TEXT NOT NULL,
			category TEXT,
			origin_country TEXT
		)`,
		"CREATE INDEX IF NOT EXISTS ix_grape_varieties_name ON grape_varieties(name)",
		// regions is hierarchical: parent_id is a nullable self-reference.
		// Cycle checking is the application layer's job, not a constraint.
		`CREATE TABLE IF NOT EXISTS regions (
			id CHAR(36) PRIMARY KEY,
			name TEXT NOT NULL,
			display_name TEXT NOT NULL,
			parent_id CHAR(36),
			country TEXT,
			level INTEGER NOT NULL,
			FOREIGN KEY (parent_id) REFERENCES regions(id) ON DELETE SET NULL
		)`,
		"CREATE INDEX IF NOT EXISTS ix_regions_name ON regions(name)",
		"CREATE INDEX IF NOT EXISTS ix_regions_parent_id ON regions(parent_id)",
		"CREATE INDEX IF NOT EXISTS ix_regions_country ON regions(country)",
		`CREATE TABLE IF NOT EXISTS classifications (
			id CHAR(36) PRIMARY KEY,
			name TEXT NOT NULL,
			display_name TEXT NOT NULL,
			country TEXT NOT NULL,
			system TEXT NOT NULL,
			level INTEGER
		)`,
		"CREATE INDEX IF NOT EXISTS ix_classifications_name ON classifications(name)",
		"CREATE INDEX IF NOT EXISTS ix_classifications_country ON classifications(country)",
		"CREATE INDEX IF NOT EXISTS ix_classifications_system ON classifications(system)",
		`CREATE TABLE IF NOT EXISTS wine_grapes (
			id CHAR(36) PRIMARY KEY,
			wine_id CHAR(36) NOT NULL,
			grape_variety_id CHAR(36) NOT NULL,
			percentage REAL,
			FOREIGN KEY (wine_id) REFERENCES wines(id) ON DELETE CASCADE,
			FOREIGN KEY (grape_variety_id) REFERENCES grape_varieties(id) ON DELETE CASCADE,
			UNIQUE(wine_id, grape_variety_id)
		)`,
		"CREATE INDEX IF NOT EXISTS ix_wine_grapes_wine_id ON wine_grapes(wine_id)",
		"CREATE INDEX IF NOT EXISTS ix_wine_grapes_grape_variety_id ON wine_grapes(grape_variety_id)",
		`CREATE TABLE IF NOT EXISTS wine_scores (
			id CHAR(36) PRIMARY KEY,
			wine_id CHAR(36) NOT NULL,
			source TEXT NOT NULL,
			score INTEGER NOT NULL,
			score_type TEXT NOT NULL,
			review_date DATE,
			reviewer TEXT,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP NOT NULL,
			FOREIGN KEY (wine_id) REFERENCES wines(id) ON DELETE CASCADE
		)`,
		"CREATE INDEX IF NOT EXISTS ix_wine_scores_wine_id ON wine_scores(wine_id)",
		"CREATE INDEX IF NOT EXISTS ix_wine_scores_source ON wine_scores(source)",
	}
	for _, stmt := range stmts {
		if err := cur.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	existing, err := cur.Columns(ctx, "wines")
	if err != nil {
		return err
	}
	for _, col := range wineTaxonomyColumns {
		if existing[col.name] {
			continue
		}
		if err := cur.Exec(ctx, fmt.Sprintf("ALTER TABLE wines ADD COLUMN %s %s", col.name, col.def)); err != nil {
			return err
		}
	}

	for _, stmt := range []string{
		"CREATE INDEX IF NOT EXISTS ix_wines_wine_type_id ON wines(wine_type_id)",
		"CREATE INDEX IF NOT EXISTS ix_wines_appellation_id ON wines(appellation_id)",
		"CREATE INDEX IF NOT EXISTS ix_wines_classification_id ON wines(classification_id)",
	} {
		if err := cur.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (addWineTaxonomy) Validate(ctx context.Context, cur *migration.Cursor) (bool, error) {
	for _, table := range taxonomyTables {
		exists, err := cur.HasTable(ctx, table)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	cols, err := cur.Columns(ctx, "wines")
	if err != nil {
		return false, err
	}
	for _, col := range wineTaxonomyColumns {
		if !cols[col.name] {
			return false, nil
		}
	}
	return true, nil
}

// removeWineTaxonomy is the 2->1 revert step. All taxonomy table data is
// deleted and the taxonomy columns on wines are removed via rebuild; the
// original wine rows survive with their version-1 columns intact.
type removeWineTaxonomy struct{}

func (removeWineTaxonomy) Source() int { return 2 }
func (removeWineTaxonomy) Target() int { return 1 }
func (removeWineTaxonomy) Description() string {
	return "Remove wine taxonomy tables and wine table extensions (taxonomy data is lost)"
}

func (removeWineTaxonomy) Migrate(ctx context.Context, cur *migration.Cursor) error {
	// Junction and score tables first: they reference the reference tables.
	for _, table := range []string{"wine_grapes", "wine_scores", "wine_types", "grape_varieties", "classifications", "regions"} {
		if err := cur.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return err
		}
	}

	cols, err := cur.Columns(ctx, "wines")
	if err != nil {
		return err
	}
	hasTaxonomy := false
	dropCols := make([]string, 0, len(wineTaxonomyColumns))
	for _, col := range wineTaxonomyColumns {
		dropCols = append(dropCols, col.name)
		if cols[col.name] {
			hasTaxonomy = true
		}
	}
	if !hasTaxonomy {
		return nil
	}
	return schema.Rebuild(ctx, cur.Schema, cur.Tx, schema.RebuildPlan{
		Table:      "wines",
		CreateBody: winesBaseBody,
		Columns: []string{
			"id", "name", "winery", "vintage", "grape_variety", "region", "country",
			"alcohol_percentage", "front_label_text", "back_label_text",
			"front_label_image_path", "back_label_image_path", "created_at", "updated_at",
		},
		DropColumns: dropCols,
		Indexes:     winesIndexes,
	})
}

func (removeWineTaxonomy) Validate(ctx context.Context, cur *migration.Cursor) (bool, error) {
	for _, table := range taxonomyTables {
		exists, err := cur.HasTable(ctx, table)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}
	cols, err := cur.Columns(ctx, "wines")
	if err != nil {
		return false, err
	}
	for _, c := range []string{"id", "name", "winery", "vintage", "grape_variety", "region", "country"} {
		if !cols[c] {
			return false, nil
		}
	}
	for _, col := range wineTaxonomyColumns {
		if cols[col.name] {
			return false, nil
		}
	}
	return true, nil
}
