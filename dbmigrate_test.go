package dbmigrate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func testMigrator(t *testing.T) *Migrator {
	t.Helper()
	return &Migrator{
		Store: StoreConfig{
			Driver: DriverSqlite,
			Sqlite: SqliteConfig{Path: filepath.Join(t.TempDir(), "winebox.db")},
		},
	}
}

func TestMaxVersion(t *testing.T) {
	if got := MaxVersion(); got != 4 {
		t.Fatalf("MaxVersion() = %d, want 4", got)
	}
}

func TestMigratorLifecycle(t *testing.T) {
	m := testMigrator(t)
	ctx := context.Background()

	cur, err := m.CurrentVersion(ctx)
	if err != nil {
		t.Fatalf("CurrentVersion on fresh database: %v", err)
	}
	if cur != 0 {
		t.Fatalf("fresh database version = %d, want 0", cur)
	}

	applied, err := m.MigrateAll(ctx)
	if err != nil {
		t.Fatalf("MigrateAll: %v", err)
	}
	if len(applied) != MaxVersion() {
		t.Fatalf("applied %d steps, want %d", len(applied), MaxVersion())
	}

	cur, err = m.CurrentVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cur != MaxVersion() {
		t.Errorf("version after MigrateAll = %d, want %d", cur, MaxVersion())
	}

	recs, err := m.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(recs) != MaxVersion() {
		t.Fatalf("history has %d records, want %d", len(recs), MaxVersion())
	}
	for i, r := range recs {
		if r.Version != i+1 {
			t.Errorf("history[%d].Version = %d", i, r.Version)
		}
	}

	applied, err = m.RevertTo(ctx, 2)
	if err != nil {
		t.Fatalf("RevertTo(2): %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("revert applied %d steps, want 2", len(applied))
	}
	cur, err = m.CurrentVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cur != 2 {
		t.Errorf("version after RevertTo(2) = %d, want 2", cur)
	}
}

func TestMigratorStatus(t *testing.T) {
	m := testMigrator(t)
	ctx := context.Background()

	if _, err := m.MigrateTo(ctx, 1); err != nil {
		t.Fatal(err)
	}

	st, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.CurrentVersion != 1 || st.LatestVersion != MaxVersion() {
		t.Errorf("Status = %d/%d, want 1/%d", st.CurrentVersion, st.LatestVersion, MaxVersion())
	}
	if len(st.Pending) != MaxVersion()-1 {
		t.Fatalf("Status has %d pending steps, want %d", len(st.Pending), MaxVersion()-1)
	}
	if st.Pending[0].Source != 1 || st.Pending[0].Target != 2 {
		t.Errorf("first pending step = %d->%d", st.Pending[0].Source, st.Pending[0].Target)
	}
}

func TestMigratorStatusIsReadOnly(t *testing.T) {
	m := testMigrator(t)
	ctx := context.Background()

	if _, err := m.Status(ctx); err != nil {
		t.Fatal(err)
	}
	// Status on a fresh database must not create application tables.
	recs, err := m.History(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("Status wrote history records: %+v", recs)
	}
}

func TestLoadXWinesRequiresDatasetTables(t *testing.T) {
	m := testMigrator(t)
	ctx := context.Background()

	if _, err := m.MigrateTo(ctx, 2); err != nil {
		t.Fatal(err)
	}
	_, err := m.LoadXWines(ctx, "wines.csv", "", "")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("LoadXWines below version 3 = %v, want *ConfigurationError", err)
	}
}
