package steps

import (
	"context"

	"github.com/winebox/dbmigrate/internal/migration"
	"github.com/winebox/dbmigrate/internal/schema"
)

// usersV3Body is the users table shape at version 3: the base shape plus
// the version-1 settings columns.
const usersV3Body = `(
	id CHAR(36) PRIMARY KEY,
	username VARCHAR(50) NOT NULL UNIQUE,
	email VARCHAR(255) UNIQUE,
	full_name VARCHAR(255),
	hashed_password VARCHAR(255) NOT NULL,
	anthropic_api_key VARCHAR(255),
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP NOT NULL,
	last_login TIMESTAMP
)`

// addEmailVerification is the 3->4 forward step: an is_verified flag on
// users. New registrations default to unverified; rows that exist when the
// step runs are grandfathered in as verified.
type addEmailVerification struct{}

func (addEmailVerification) Source() int { return 3 }
func (addEmailVerification) Target() int { return 4 }
func (addEmailVerification) Description() string {
	return "Add is_verified field to users table for email verification"
}

func (addEmailVerification) Migrate(ctx context.Context, cur *migration.Cursor) error {
	has, err := cur.HasColumn(ctx, "users", "is_verified")
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	if err := cur.Exec(ctx, "ALTER TABLE users ADD COLUMN is_verified BOOLEAN NOT NULL DEFAULT FALSE"); err != nil {
		return err
	}
	return cur.Exec(ctx, "UPDATE users SET is_verified = TRUE")
}

func (addEmailVerification) Validate(ctx context.Context, cur *migration.Cursor) (bool, error) {
	return cur.HasColumn(ctx, "users", "is_verified")
}

// removeEmailVerification is the 4->3 revert step. Verification state is
// lost; the users table is rebuilt without the column.
type removeEmailVerification struct{}

func (removeEmailVerification) Source() int { return 4 }
func (removeEmailVerification) Target() int { return 3 }
func (removeEmailVerification) Description() string {
	return "Remove is_verified field from users table (verification state is lost)"
}

func (removeEmailVerification) Migrate(ctx context.Context, cur *migration.Cursor) error {
	has, err := cur.HasColumn(ctx, "users", "is_verified")
	if err != nil {
		return err
	}
	if !has {
		return nil
	}
	return schema.Rebuild(ctx, cur.Schema, cur.Tx, schema.RebuildPlan{
		Table:      "users",
		CreateBody: usersV3Body,
		Columns: []string{
			"id", "username", "email", "full_name", "hashed_password", "anthropic_api_key",
			"is_active", "is_admin", "created_at", "updated_at", "last_login",
		},
		DropColumns: []string{"is_verified"},
		Indexes:     usersIndexes,
	})
}

func (removeEmailVerification) Validate(ctx context.Context, cur *migration.Cursor) (bool, error) {
	cols, err := cur.Columns(ctx, "users")
	if err != nil {
		return false, err
	}
	if cols["is_verified"] {
		return false, nil
	}
	for _, c := range []string{"id", "username", "email", "hashed_password", "is_active", "is_admin"} {
		if !cols[c] {
			return false, nil
		}
	}
	return true, nil
}
