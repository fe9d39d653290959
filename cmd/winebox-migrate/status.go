package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current schema version and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := buildMigrator()
		if err != nil {
			return err
		}
		st, err := m.Status(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Current version: %d\n", st.CurrentVersion)
		fmt.Printf("Latest version:  %d\n", st.LatestVersion)
		if len(st.Pending) == 0 {
			fmt.Println("\nDatabase is up to date.")
			return nil
		}
		fmt.Println("\nPending migrations:")
		for _, s := range st.Pending {
			fmt.Printf("  %d -> %d  %s\n", s.Source, s.Target, s.Description)
		}
		return nil
	},
}
