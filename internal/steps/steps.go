// Package steps defines the WineBox schema step set: the version-0
// baseline plus every forward and revert step between adjacent versions.
// Steps are enumerated statically so the whole migration graph is known
// before execution, and every step re-checks live schema state before each
// mutation so it can be re-run safely after a partial failure.
package steps

import (
	"github.com/winebox/dbmigrate/internal/migration"
)

// All returns every known step, both directions.
func All() []migration.Step {
	return []migration.Step{
		addUserSettings{},
		removeUserSettings{},
		addWineTaxonomy{},
		removeWineTaxonomy{},
		addXWinesTables{},
		removeXWinesTables{},
		addEmailVerification{},
		removeEmailVerification{},
	}
}

// NewRegistry builds the registry over the full step set.
func NewRegistry() (*migration.Registry, error) {
	return migration.NewRegistry(All()...)
}
