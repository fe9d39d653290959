package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var xwinesCmd = &cobra.Command{
	Use:   "xwines",
	Short: "Bulk-load the X-Wines reference dataset",
	Long: `Bulk-load the X-Wines reference dataset into the xwines_wines table.

The schema must already be at version 3 or later. The engine records the
dataset version and row count in xwines_metadata; the content itself is
external reference data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := buildMigrator()
		if err != nil {
			return err
		}
		winesPath, _ := cmd.Flags().GetString("wines")
		ratingsPath, _ := cmd.Flags().GetString("ratings")
		manifestPath, _ := cmd.Flags().GetString("manifest")

		count, err := m.LoadXWines(context.Background(), winesPath, ratingsPath, manifestPath)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d wines.\n", count)
		return nil
	},
}
