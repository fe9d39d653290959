package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/winebox/dbmigrate"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Migrate up to a target version (default: latest)",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := buildMigrator()
		if err != nil {
			return err
		}
		ctx := context.Background()
		to := viper.GetInt("to_up")

		var applied []dbmigrate.AppliedStep
		if to < 0 {
			applied, err = m.MigrateAll(ctx)
		} else {
			applied, err = m.MigrateTo(ctx, to)
		}
		printApplied(applied)
		if err != nil {
			return err
		}
		cur, verr := m.CurrentVersion(ctx)
		if verr != nil {
			return verr
		}
		if len(applied) == 0 {
			fmt.Printf("Already at version %d. Nothing to do.\n", cur)
		} else {
			fmt.Printf("Successfully migrated to version %d (%d step(s) applied).\n", cur, len(applied))
		}
		return nil
	},
}
