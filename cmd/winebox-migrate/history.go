package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show applied migration history",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := buildMigrator()
		if err != nil {
			return err
		}
		recs, err := m.History(context.Background())
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No migrations have been applied.")
			return nil
		}
		fmt.Printf("%-10s %-25s %s\n", "Version", "Applied At", "Description")
		for _, r := range recs {
			fmt.Printf("%-10d %-25s %s\n", r.Version, r.AppliedAt, r.Description)
		}
		return nil
	},
}
