package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert down to a target version",
	Long: `Revert down to a target version.

WARNING: revert steps remove tables and columns. The schema shape is
restored but the data those tables and columns held is lost.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := buildMigrator()
		if err != nil {
			return err
		}
		ctx := context.Background()
		to := viper.GetInt("to_down")
		if to < 0 {
			return fmt.Errorf("target version cannot be negative")
		}

		fmt.Println("WARNING: reverting may result in data loss!")
		applied, err := m.RevertTo(ctx, to)
		printApplied(applied)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Printf("Already at version %d. Nothing to do.\n", to)
		} else {
			fmt.Printf("Successfully reverted to version %d (%d step(s) applied).\n", to, len(applied))
		}
		return nil
	},
}
