// Package dbmigrate walks the WineBox database schema between versions.
//
// The schema history is a single linear chain of integer versions. Each
// step moves between adjacent versions, checks live schema state before
// every mutation so re-runs are safe, and the tracked version is advanced
// only after the step's post-condition validates. Migrations are a
// one-shot operational task: run before starting the service, never
// concurrently with application traffic or with another migration process.
package dbmigrate

import (
	"context"

	"github.com/winebox/dbmigrate/internal/common"
	imig "github.com/winebox/dbmigrate/internal/migration"
	"github.com/winebox/dbmigrate/internal/steps"
	"github.com/winebox/dbmigrate/internal/store"
	"github.com/winebox/dbmigrate/internal/xwines"
)

// Re-export commonly used types for public API

// StoreConfig selects and configures the target database.
type StoreConfig = store.Config

// SqliteConfig configures the sqlite driver.
type SqliteConfig = store.SqliteConfig

// PostgresConfig configures the postgres driver.
type PostgresConfig = store.PostgresConfig

// Record is one applied-version row of the tracker table.
type Record = store.Record

// AppliedStep summarizes one successfully executed step.
type AppliedStep = imig.AppliedStep

// ConfigurationError is a fatal pre-execution error.
type ConfigurationError = imig.ConfigurationError

// ExecutionError is a fatal mid-step error.
type ExecutionError = imig.ExecutionError

// ValidationError reports a step whose post-condition check failed.
type ValidationError = imig.ValidationError

// ErrPathNotFound reports a gap in the step chain.
var ErrPathNotFound = imig.ErrPathNotFound

// XWinesLoader bulk-loads the X-Wines reference dataset.
type XWinesLoader = xwines.Loader

const (
	DriverSqlite   = store.DriverSqlite
	DriverPostgres = store.DriverPostgres
)

// Migrator is the embedded entry point: configure the store, then call
// MigrateTo / MigrateAll / RevertTo. Each call opens its own session and
// closes it when done.
type Migrator struct {
	Store  StoreConfig
	Logger *common.Logger
}

// MaxVersion returns the highest version reachable by forward steps.
func MaxVersion() int {
	reg, err := steps.NewRegistry()
	if err != nil {
		// The static step set is validated by tests; a broken chain is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return reg.MaxVersion()
}

func (m *Migrator) session() (*store.Store, *imig.Runner, error) {
	st, err := store.Open(m.Store)
	if err != nil {
		return nil, nil, err
	}
	reg, err := steps.NewRegistry()
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return st, &imig.Runner{Store: st, Registry: reg, Logger: m.Logger}, nil
}

// MigrateTo walks the schema forward to targetVersion, creating the
// version-0 baseline and bootstrapping the tracker for pre-tracker
// databases first.
func (m *Migrator) MigrateTo(ctx context.Context, targetVersion int) ([]AppliedStep, error) {
	st, r, err := m.session()
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()
	if err := steps.EnsureBaseline(ctx, st.DB); err != nil {
		return nil, err
	}
	if _, err := steps.Bootstrap(ctx, st); err != nil {
		return nil, err
	}
	return r.MigrateTo(ctx, targetVersion)
}

// MigrateAll walks the schema forward to the highest known version.
func (m *Migrator) MigrateAll(ctx context.Context) ([]AppliedStep, error) {
	st, r, err := m.session()
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()
	if err := steps.EnsureBaseline(ctx, st.DB); err != nil {
		return nil, err
	}
	if _, err := steps.Bootstrap(ctx, st); err != nil {
		return nil, err
	}
	return r.MigrateAll(ctx)
}

// RevertTo walks the schema backward to targetVersion. Revert steps are
// destructive at the data level.
func (m *Migrator) RevertTo(ctx context.Context, targetVersion int) ([]AppliedStep, error) {
	st, r, err := m.session()
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()
	if _, err := steps.Bootstrap(ctx, st); err != nil {
		return nil, err
	}
	return r.RevertTo(ctx, targetVersion)
}

// CurrentVersion reads the tracked schema version. Applications call this
// at boot to confirm the schema matches what they expect before serving.
// For databases predating the tracker the version is inferred from live
// schema without writing anything.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	st, _, err := m.session()
	if err != nil {
		return 0, err
	}
	defer func() { _ = st.Close() }()
	cur, err := st.CurrentVersion(ctx, st.DB)
	if err != nil || cur > 0 {
		return cur, err
	}
	return steps.DetectVersion(ctx, st.Dialect, st.DB)
}

// LoadXWines bulk-loads the X-Wines reference dataset into the tables
// created by the 2->3 step. The schema must already be at version 3 or
// later.
func (m *Migrator) LoadXWines(ctx context.Context, winesPath, ratingsPath, manifestPath string) (int, error) {
	st, _, err := m.session()
	if err != nil {
		return 0, err
	}
	defer func() { _ = st.Close() }()
	exists, err := st.Dialect.TableExists(ctx, st.DB, "xwines_wines")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, &ConfigurationError{Reason: "xwines_wines table missing, migrate to version 3 or later first"}
	}
	loader := &xwines.Loader{}
	return loader.LoadFiles(ctx, st.DB, winesPath, ratingsPath, manifestPath)
}

// Status describes where the database stands relative to the step chain.
type Status struct {
	CurrentVersion int
	LatestVersion  int
	// Pending lists the forward steps between current and latest.
	Pending []AppliedStep
}

// Status reports the current and latest versions and the forward steps
// still to apply. Read-only.
func (m *Migrator) Status(ctx context.Context) (*Status, error) {
	st, r, err := m.session()
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()
	cur, err := st.CurrentVersion(ctx, st.DB)
	if err != nil {
		return nil, err
	}
	if cur == 0 {
		if cur, err = steps.DetectVersion(ctx, st.Dialect, st.DB); err != nil {
			return nil, err
		}
	}
	out := &Status{CurrentVersion: cur, LatestVersion: r.Registry.MaxVersion()}
	if cur < out.LatestVersion {
		path, err := r.Registry.Path(cur, out.LatestVersion)
		if err != nil {
			return nil, err
		}
		for _, s := range path {
			out.Pending = append(out.Pending, AppliedStep{Source: s.Source(), Target: s.Target(), Description: s.Description()})
		}
	}
	return out, nil
}

// History returns every applied-version record in the tracker.
func (m *Migrator) History(ctx context.Context) ([]Record, error) {
	st, _, err := m.session()
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()
	return st.History(ctx)
}
