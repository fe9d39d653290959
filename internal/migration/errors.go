package migration

import (
	"errors"
	"fmt"
)

// ErrPathNotFound reports a gap in the step chain: some intermediate step
// between the current and target versions is not registered. This is a
// configuration integrity failure and is surfaced before any database
// mutation.
var ErrPathNotFound = errors.New("no migration path between versions")

// ConfigurationError is a fatal pre-execution error: a gap in the step
// chain, a duplicate step for a version pair, or an unknown target version.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("migration configuration error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("migration configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ExecutionError is a fatal mid-step error: a database operation failed
// while the step was applying. The recorded version is not advanced and
// the database may be left in the step's in-progress state; the runner
// halts so an operator can inspect before retrying.
type ExecutionError struct {
	Source      int
	Target      int
	Description string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("step %d->%d (%s) failed: %v", e.Source, e.Target, e.Description, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ValidationError is a fatal post-step error: Migrate completed without
// error but Validate returned false. The recorded version is not advanced
// and the post-migrate schema state is left in place for inspection; the
// engine deliberately does not attempt a rollback of the applied changes.
type ValidationError struct {
	Source      int
	Target      int
	Description string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %d->%d (%s) validation failed", e.Source, e.Target, e.Description)
}
