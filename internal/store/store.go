package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/winebox/dbmigrate/internal/common"
	"github.com/winebox/dbmigrate/internal/schema"
)

// Store persists the tracked schema version inside the target database.
//
// Table schema_version(version INTEGER PRIMARY KEY, migrate_script,
// revert_script, description, applied_at). The current version is the
// highest recorded one; an absent or empty table means version 0. Each row
// names the forward step that produced it and the revert step that undoes
// it, so an operator can read the undo path straight from the database.
type Store struct {
	DB      *sql.DB
	Dialect schema.Dialect
	Table   string
}

// Record is one applied-version row of the tracker table.
type Record struct {
	Version       int
	MigrateScript string
	RevertScript  string
	Description   string
	AppliedAt     string
}

// Open connects the configured database and ensures the tracker table.
func Open(cfg Config) (*Store, error) {
	dialect, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}
	db, err := cfg.Connect()
	if err != nil {
		return nil, err
	}
	st := &Store{DB: db, Dialect: dialect, Table: cfg.tableName()}
	if err := st.Ensure(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger := common.GetLogger().WithStore(dialect.Name())
	logger.Debug("version store opened", "table", st.Table)
	return st, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// ph returns the bind placeholder for the i-th (1-based) parameter.
func (s *Store) ph(i int) string {
	if s.Dialect.Name() == "postgres" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// Ensure creates the version tracker table if it does not exist.
func (s *Store) Ensure(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version INTEGER PRIMARY KEY,
		migrate_script TEXT NOT NULL,
		revert_script TEXT NOT NULL,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`, s.Table)
	if _, err := s.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure %s table: %w", s.Table, err)
	}
	return nil
}

// CurrentVersion returns the highest recorded version, or 0 when the
// tracker table is missing or empty.
func (s *Store) CurrentVersion(ctx context.Context, q schema.Querier) (int, error) {
	exists, err := s.Dialect.TableExists(ctx, q, s.Table)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	row := q.QueryRowContext(ctx, fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", s.Table))
	var v int
	if err := row.Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read current version: %w", err)
	}
	return v, nil
}

// RecordApplied inserts the tracker row for a successfully applied forward
// step. It must be the last write of the step so a crash mid-step leaves
// the recorded version behind, never ahead, of the live schema.
func (s *Store) RecordApplied(ctx context.Context, q schema.Querier, rec Record) error {
	appliedAt := rec.AppliedAt
	if appliedAt == "" {
		appliedAt = time.Now().UTC().Format(time.RFC3339)
	}
	stmt := fmt.Sprintf(
		"INSERT INTO %s (version, migrate_script, revert_script, description, applied_at) VALUES (%s, %s, %s, %s, %s) ON CONFLICT (version) DO NOTHING",
		s.Table, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5))
	if _, err := q.ExecContext(ctx, stmt,
		rec.Version, rec.MigrateScript, rec.RevertScript, rec.Description, appliedAt); err != nil {
		return fmt.Errorf("failed to record version %d: %w", rec.Version, err)
	}
	return nil
}

// RemoveVersion deletes the tracker row for a version that has just been
// reverted away from.
func (s *Store) RemoveVersion(ctx context.Context, q schema.Querier, version int) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE version = %s", s.Table, s.ph(1))
	if _, err := q.ExecContext(ctx, stmt, version); err != nil {
		return fmt.Errorf("failed to remove version %d: %w", version, err)
	}
	return nil
}

// History returns all tracker rows ordered by version.
func (s *Store) History(ctx context.Context) ([]Record, error) {
	q := fmt.Sprintf("SELECT version, migrate_script, revert_script, description, applied_at FROM %s ORDER BY version", s.Table)
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list migration history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Version, &r.MigrateScript, &r.RevertScript, &r.Description, &r.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return recs, nil
}
