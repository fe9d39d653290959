package steps

import (
	"context"

	"github.com/winebox/dbmigrate/internal/migration"
	"github.com/winebox/dbmigrate/internal/schema"
)

// addUserSettings is the 0->1 forward step: nullable full_name and
// anthropic_api_key columns on the users table. Existing rows keep NULLs.
type addUserSettings struct{}

func (addUserSettings) Source() int { return 0 }
func (addUserSettings) Target() int { return 1 }
func (addUserSettings) Description() string {
	return "Add full_name and anthropic_api_key to users table"
}

func (addUserSettings) Migrate(ctx context.Context, cur *migration.Cursor) error {
	cols, err := cur.Columns(ctx, "users")
	if err != nil {
		return err
	}
	if !cols["full_name"] {
		if err := cur.Exec(ctx, "ALTER TABLE users ADD COLUMN full_name VARCHAR(255)"); err != nil {
			return err
		}
	}
	if !cols["anthropic_api_key"] {
		if err := cur.Exec(ctx, "ALTER TABLE users ADD COLUMN anthropic_api_key VARCHAR(255)"); err != nil {
			return err
		}
	}
	return nil
}

func (addUserSettings) Validate(ctx context.Context, cur *migration.Cursor) (bool, error) {
	cols, err := cur.Columns(ctx, "users")
	if err != nil {
		return false, err
	}
	return cols["full_name"] && cols["anthropic_api_key"], nil
}

// removeUserSettings is the 1->0 revert step. Data in the removed columns
// is lost; the users table is rebuilt because the engine may not support
// dropping columns in place.
type removeUserSettings struct{}

func (removeUserSettings) Source() int { return 1 }
func (removeUserSettings) Target() int { return 0 }
func (removeUserSettings) Description() string {
	return "Remove full_name and anthropic_api_key from users table (column data is lost)"
}

func (removeUserSettings) Migrate(ctx context.Context, cur *migration.Cursor) error {
	cols, err := cur.Columns(ctx, "users")
	if err != nil {
		return err
	}
	if !cols["full_name"] && !cols["anthropic_api_key"] {
		// Already removed, nothing to do.
		return nil
	}
	return schema.Rebuild(ctx, cur.Schema, cur.Tx, schema.RebuildPlan{
		Table:      "users",
		CreateBody: usersBaseBody,
		Columns: []string{
			"id", "username", "email", "hashed_password",
			"is_active", "is_admin", "created_at", "updated_at", "last_login",
		},
		DropColumns: []string{"full_name", "anthropic_api_key"},
		Indexes:     usersIndexes,
	})
}

func (removeUserSettings) Validate(ctx context.Context, cur *migration.Cursor) (bool, error) {
	cols, err := cur.Columns(ctx, "users")
	if err != nil {
		return false, err
	}
	if cols["full_name"] || cols["anthropic_api_key"] {
		return false, nil
	}
	for _, c := range []string{"id", "username", "email", "hashed_password", "is_active", "is_admin", "created_at", "updated_at", "last_login"} {
		if !cols[c] {
			return false, nil
		}
	}
	return true, nil
}
