package migration

import (
	"context"
	"fmt"

	"github.com/winebox/dbmigrate/internal/common"
	"github.com/winebox/dbmigrate/internal/store"
)

// Runner orchestrates a migration session: it resolves the step path,
// executes each step inside its own transaction, validates it, and
// advances the tracked version as the last write before commit.
//
// A session is single-threaded and owns the database connection for its
// duration. The engine takes no distributed lock; running two sessions
// against the same database concurrently is the caller's contract to
// prevent.
type Runner struct {
	Store    *store.Store
	Registry *Registry
	Logger   *common.Logger
}

// AppliedStep summarizes one successfully executed step for reporting.
type AppliedStep struct {
	Source      int
	Target      int
	Description string
}

func (r *Runner) logger() *common.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return common.GetLogger()
}

// CurrentVersion reads the tracked version from the target database.
func (r *Runner) CurrentVersion(ctx context.Context) (int, error) {
	return r.Store.CurrentVersion(ctx, r.Store.DB)
}

// MigrateTo walks the schema forward to targetVersion. The target must not
// be below the current version; use RevertTo to walk backward.
func (r *Runner) MigrateTo(ctx context.Context, targetVersion int) ([]AppliedStep, error) {
	cur, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	if targetVersion < cur {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("target version %d is below current version %d, use revert", targetVersion, cur),
		}
	}
	return r.run(ctx, cur, targetVersion)
}

// MigrateAll walks the schema forward to the highest known version.
func (r *Runner) MigrateAll(ctx context.Context) ([]AppliedStep, error) {
	return r.MigrateTo(ctx, r.Registry.MaxVersion())
}

// RevertTo walks the schema backward to targetVersion. Revert steps can
// destroy data; the schema shape is reversible, removed column and table
// contents are not.
func (r *Runner) RevertTo(ctx context.Context, targetVersion int) ([]AppliedStep, error) {
	cur, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	if targetVersion > cur {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("target version %d is above current version %d, use migrate", targetVersion, cur),
		}
	}
	return r.run(ctx, cur, targetVersion)
}

// prepare ensures the tracker table, configures the session, and reads the
// current version.
func (r *Runner) prepare(ctx context.Context) (int, error) {
	if err := r.Store.Ensure(ctx); err != nil {
		return 0, err
	}
	if err := r.Store.Dialect.PrepareSession(ctx, r.Store.DB); err != nil {
		return 0, err
	}
	return r.Store.CurrentVersion(ctx, r.Store.DB)
}

// run executes the resolved path step by step, halting on the first
// failure. Steps already reflected in the live schema no-op internally, so
// re-invoking after a partial failure resumes from the recorded version
// without duplicate-column or duplicate-table errors.
func (r *Runner) run(ctx context.Context, current, target int) ([]AppliedStep, error) {
	path, err := r.Registry.Path(current, target)
	if err != nil {
		return nil, err
	}
	logger := r.logger().WithComponent("runner")
	if len(path) == 0 {
		logger.Info("already at target version", "version", target)
		return nil, nil
	}
	logger.Info("migration path resolved", "from", current, "to", target, "steps", len(path))

	applied := make([]AppliedStep, 0, len(path))
	for _, s := range path {
		if err := ctx.Err(); err != nil {
			return applied, fmt.Errorf("migration session canceled before step %s: %w", StepName(s), err)
		}
		if err := r.runStep(ctx, s); err != nil {
			logger.Error("migration halted", "step", StepName(s), "error", err)
			return applied, err
		}
		applied = append(applied, AppliedStep{Source: s.Source(), Target: s.Target(), Description: s.Description()})
	}
	logger.Info("migration complete", "version", target, "steps_applied", len(applied))
	return applied, nil
}

// runStep executes one step in its own transaction. On success the version
// record is written after validation, inside the same transaction, so it
// is the last write to commit. A validation failure commits the step's
// schema changes without the version record: the documented policy is to
// leave the post-migrate state visible for the operator rather than
// attempt a rollback of schema mutations that may not be cleanly
// reversible.
func (r *Runner) runStep(ctx context.Context, s Step) error {
	logger := r.logger().WithStep(s.Source(), s.Target())
	logger.Info("applying step", "description", s.Description())

	tx, err := r.Store.DB.BeginTx(ctx, nil)
	if err != nil {
		return &ExecutionError{Source: s.Source(), Target: s.Target(), Description: s.Description(),
			Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	cur := &Cursor{Tx: tx, Schema: r.Store.Dialect}

	if err := s.Migrate(ctx, cur); err != nil {
		_ = tx.Rollback()
		return &ExecutionError{Source: s.Source(), Target: s.Target(), Description: s.Description(), Err: err}
	}

	ok, err := s.Validate(ctx, cur)
	if err != nil {
		_ = tx.Rollback()
		return &ExecutionError{Source: s.Source(), Target: s.Target(), Description: s.Description(),
			Err: fmt.Errorf("validation errored: %w", err)}
	}
	if !ok {
		// Keep the post-migrate state for inspection, but do not advance
		// the tracked version.
		if cerr := tx.Commit(); cerr != nil {
			logger.Error("failed to preserve post-migrate state", "error", cerr)
		}
		return &ValidationError{Source: s.Source(), Target: s.Target(), Description: s.Description()}
	}

	if IsForward(s) {
		rec := store.Record{
			Version:       s.Target(),
			MigrateScript: StepName(s),
			RevertScript:  fmt.Sprintf("revert_%d_to_%d", s.Target(), s.Source()),
			Description:   s.Description(),
		}
		if err := r.Store.RecordApplied(ctx, tx, rec); err != nil {
			_ = tx.Rollback()
			return &ExecutionError{Source: s.Source(), Target: s.Target(), Description: s.Description(), Err: err}
		}
	} else {
		if err := r.Store.RemoveVersion(ctx, tx, s.Source()); err != nil {
			_ = tx.Rollback()
			return &ExecutionError{Source: s.Source(), Target: s.Target(), Description: s.Description(), Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &ExecutionError{Source: s.Source(), Target: s.Target(), Description: s.Description(),
			Err: fmt.Errorf("failed to commit: %w", err)}
	}
	logger.Info("step applied", "description", s.Description())
	return nil
}
