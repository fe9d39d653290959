package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/winebox/dbmigrate"
	"github.com/winebox/dbmigrate/internal/common"
)

// defaultDBPath matches where the application keeps its database.
const defaultDBPath = "data/winebox.db"

var rootCmd = &cobra.Command{
	Use:   "winebox-migrate",
	Short: "Versioned schema migrations for the WineBox database",
	Long: `winebox-migrate walks the WineBox database schema between versions.

Run it before starting the service; never concurrently with application
traffic or with another migration process against the same database.`,
	SilenceUsage: true,
}

func init() {
	v := viper.GetViper()
	v.SetDefault("config", "")
	v.SetDefault("database", defaultDBPath)
	v.SetDefault("log_level", "info")

	// Environment variables: WINEBOX_MIGRATE_CONFIG, WINEBOX_MIGRATE_DATABASE, ...
	v.SetEnvPrefix("WINEBOX_MIGRATE")
	v.AutomaticEnv()

	rootCmd.PersistentFlags().String("config", v.GetString("config"), "path to a config yaml")
	rootCmd.PersistentFlags().StringP("database", "d", v.GetString("database"), "path to the sqlite database file")
	rootCmd.PersistentFlags().String("log-level", v.GetString("log_level"), "log level (error, warn, info, debug)")

	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("database", rootCmd.PersistentFlags().Lookup("database"))
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	upCmd.Flags().Int("to", -1, "target version to migrate up to (default: latest)")
	_ = v.BindPFlag("to_up", upCmd.Flags().Lookup("to"))
	downCmd.Flags().Int("to", -1, "target version to revert down to (required)")
	_ = downCmd.MarkFlagRequired("to")
	_ = v.BindPFlag("to_down", downCmd.Flags().Lookup("to"))

	xwinesCmd.Flags().String("wines", "", "path to the X-Wines wines CSV (required)")
	xwinesCmd.Flags().String("ratings", "", "path to the X-Wines ratings CSV")
	xwinesCmd.Flags().String("manifest", "", "path to the dataset JSON manifest")
	_ = xwinesCmd.MarkFlagRequired("wines")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(xwinesCmd)
}

// buildMigrator assembles the migrator from the config document when one
// is given, otherwise from the --database flag.
func buildMigrator() (*dbmigrate.Migrator, error) {
	v := viper.GetViper()
	m := &dbmigrate.Migrator{}

	configPath := strings.TrimSpace(v.GetString("config"))
	if configPath != "" {
		var doc ConfigDoc
		if err := doc.Load(configPath); err != nil {
			return nil, err
		}
		m.Store = doc.Database
		m.Logger = doc.Logger()
	} else {
		m.Store = dbmigrate.StoreConfig{
			Driver: dbmigrate.DriverSqlite,
			Sqlite: dbmigrate.SqliteConfig{Path: v.GetString("database")},
		}
		m.Logger = common.NewLogger(common.ParseLogLevel(v.GetString("log_level")))
	}
	common.SetDefaultLogger(m.Logger)
	return m, nil
}

// printApplied summarizes the steps a run applied.
func printApplied(applied []dbmigrate.AppliedStep) {
	for _, s := range applied {
		fmt.Printf("  %d -> %d  %s\n", s.Source, s.Target, s.Description)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		common.GetLogger().Error("command failed", "error", err)
		os.Exit(1)
	}
}
