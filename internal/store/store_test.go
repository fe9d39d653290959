package store

import (
	"context"
	"path/filepath"
	"testing"
)

// helper to open a store over a temporary sqlite file
func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "winebox.db")
	cfg := Config{Driver: DriverSqlite, Sqlite: SqliteConfig{Path: path}}
	st, err := Open(cfg)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenAndEmptyState(t *testing.T) {
	st := openTempStore(t)
	ctx := context.Background()

	// Ensure is idempotent
	if err := st.Ensure(ctx); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	v, err := st.CurrentVersion(ctx, st.DB)
	if err != nil {
		t.Fatalf("CurrentVersion error: %v", err)
	}
	if v != 0 {
		t.Fatalf("expected CurrentVersion=0, got %d", v)
	}
	recs, err := st.History(ctx)
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty history, got %v", recs)
	}
}

func TestRecordAppliedAndCurrentVersion(t *testing.T) {
	st := openTempStore(t)
	ctx := context.Background()

	// Record out of order; current is the max
	for _, v := range []int{1, 3, 2} {
		rec := Record{
			Version:       v,
			MigrateScript: "migrate",
			RevertScript:  "revert",
			Description:   "test",
		}
		if err := st.RecordApplied(ctx, st.DB, rec); err != nil {
			t.Fatalf("RecordApplied(%d) err: %v", v, err)
		}
	}
	// Re-recording the same version is a no-op, not an error
	if err := st.RecordApplied(ctx, st.DB, Record{Version: 2, MigrateScript: "m", RevertScript: "r", Description: "d"}); err != nil {
		t.Fatalf("re-RecordApplied err: %v", err)
	}

	cur, err := st.CurrentVersion(ctx, st.DB)
	if err != nil {
		t.Fatalf("CurrentVersion err: %v", err)
	}
	if cur != 3 {
		t.Fatalf("CurrentVersion=%d, want 3", cur)
	}

	recs, err := st.History(ctx)
	if err != nil {
		t.Fatalf("History err: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("history length=%d, want 3", len(recs))
	}
	for i, r := range recs {
		if r.Version != i+1 {
			t.Fatalf("history not sorted ascending: %v", recs)
		}
		if r.AppliedAt == "" {
			t.Fatalf("record %d missing applied_at", r.Version)
		}
	}
	// The first insert for version 2 wins over the re-record
	if recs[1].Description != "test" {
		t.Fatalf("re-record overwrote version 2: %+v", recs[1])
	}
}

func TestRemoveVersion(t *testing.T) {
	st := openTempStore(t)
	ctx := context.Background()

	for _, v := range []int{1, 2} {
		rec := Record{Version: v, MigrateScript: "m", RevertScript: "r", Description: "d"}
		if err := st.RecordApplied(ctx, st.DB, rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.RemoveVersion(ctx, st.DB, 2); err != nil {
		t.Fatalf("RemoveVersion err: %v", err)
	}
	cur, err := st.CurrentVersion(ctx, st.DB)
	if err != nil {
		t.Fatal(err)
	}
	if cur != 1 {
		t.Fatalf("CurrentVersion=%d after remove, want 1", cur)
	}
	// Removing an absent version is not an error
	if err := st.RemoveVersion(ctx, st.DB, 99); err != nil {
		t.Fatalf("RemoveVersion(99) err: %v", err)
	}
}

func TestCurrentVersionWithoutTable(t *testing.T) {
	st := openTempStore(t)
	ctx := context.Background()

	if _, err := st.DB.ExecContext(ctx, "DROP TABLE "+st.Table); err != nil {
		t.Fatal(err)
	}
	v, err := st.CurrentVersion(ctx, st.DB)
	if err != nil {
		t.Fatalf("CurrentVersion without table err: %v", err)
	}
	if v != 0 {
		t.Fatalf("CurrentVersion=%d without table, want 0", v)
	}
}

func TestCustomTableName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winebox.db")
	cfg := Config{Driver: DriverSqlite, Sqlite: SqliteConfig{Path: path}, TableName: "my_versions"}
	st, err := Open(cfg)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	exists, err := st.Dialect.TableExists(ctx, st.DB, "my_versions")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("custom tracker table was not created")
	}
}

func TestConfigRejectsUnknownDriver(t *testing.T) {
	cfg := Config{Driver: "oracle"}
	if _, err := Open(cfg); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
