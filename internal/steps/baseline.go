package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/winebox/dbmigrate/internal/common"
	"github.com/winebox/dbmigrate/internal/schema"
	"github.com/winebox/dbmigrate/internal/store"
)

// Version 0 is the base schema the application creates on first boot:
// the users and wines tables. EnsureBaseline brings a fresh database to
// that shape so the forward chain has something to stand on.

const usersBaseBody = `(
	id CHAR(36) PRIMARY KEY,
	username VARCHAR(50) NOT NULL UNIQUE,
	email VARCHAR(255) UNIQUE,
	hashed_password VARCHAR(255) NOT NULL,
	is_active BOOLEAN DEFAULT 1 NOT NULL,
	is_admin BOOLEAN DEFAULT 0 NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP NOT NULL,
	last_login DATETIME
)`

const winesBaseBody = `(
	id CHAR(36) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	winery VARCHAR(255),
	vintage INTEGER,
	grape_variety VARCHAR(255),
	region VARCHAR(255),
	country VARCHAR(255),
	alcohol_percentage REAL,
	front_label_text TEXT NOT NULL DEFAULT '',
	back_label_text TEXT,
	front_label_image_path VARCHAR(512) NOT NULL,
	back_label_image_path VARCHAR(512),
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP NOT NULL
)`

var usersIndexes = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS ix_users_username ON users (username)",
	"CREATE UNIQUE INDEX IF NOT EXISTS ix_users_email ON users (email)",
}

var winesIndexes = []string{
	"CREATE INDEX IF NOT EXISTS ix_wines_name ON wines(name)",
	"CREATE INDEX IF NOT EXISTS ix_wines_winery ON wines(winery)",
	"CREATE INDEX IF NOT EXISTS ix_wines_vintage ON wines(vintage)",
	"CREATE INDEX IF NOT EXISTS ix_wines_grape_variety ON wines(grape_variety)",
	"CREATE INDEX IF NOT EXISTS ix_wines_region ON wines(region)",
	"CREATE INDEX IF NOT EXISTS ix_wines_country ON wines(country)",
}

// EnsureBaseline idempotently creates the version-0 tables and indexes.
func EnsureBaseline(ctx context.Context, q schema.Querier) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS users " + usersBaseBody,
		"CREATE TABLE IF NOT EXISTS wines " + winesBaseBody,
	}
	stmts = append(stmts, usersIndexes...)
	stmts = append(stmts, winesIndexes...)
	for _, stmt := range stmts {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure baseline schema: %w", err)
		}
	}
	return nil
}

// DetectVersion inspects live schema to infer the version of a database
// that predates the version tracker. A users table carrying the version-1
// columns means at least version 1; no users table means version 0.
func DetectVersion(ctx context.Context, d schema.Dialect, q schema.Querier) (int, error) {
	exists, err := d.TableExists(ctx, q, "users")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	cols, err := d.Columns(ctx, q, "users")
	if err != nil {
		return 0, err
	}
	if cols["full_name"] && cols["anthropic_api_key"] {
		return 1, nil
	}
	return 0, nil
}

// Bootstrap initializes the version tracker for an existing database whose
// schema predates it. When the detected version is above the recorded one,
// a bootstrapped record is inserted so the runner starts from the right
// place. Returns the version the tracker reflects afterwards.
func Bootstrap(ctx context.Context, st *store.Store) (int, error) {
	cur, err := st.CurrentVersion(ctx, st.DB)
	if err != nil {
		return 0, err
	}
	if cur > 0 {
		return cur, nil
	}
	detected, err := DetectVersion(ctx, st.Dialect, st.DB)
	if err != nil {
		return 0, err
	}
	if detected == 0 {
		return 0, nil
	}
	logger := common.GetLogger().WithComponent("bootstrap")
	logger.Info("bootstrapping version tracker from live schema", "detected", detected)
	rec := store.Record{
		Version:       1,
		MigrateScript: "migrate_0_to_1",
		RevertScript:  "revert_1_to_0",
		Description:   "Add full_name and anthropic_api_key to users table (bootstrapped)",
		AppliedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	if err := st.RecordApplied(ctx, st.DB, rec); err != nil {
		return 0, err
	}
	return detected, nil
}
