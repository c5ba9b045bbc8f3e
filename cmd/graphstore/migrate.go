package main

import (
	"github.com/spf13/cobra"

	"github.com/rpad300/godmode-sub011/internal/config"
	"github.com/rpad300/godmode-sub011/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithDefaults(configPath)
		if err != nil {
			return err
		}

		db, err := database.OpenWithConfig(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		migrator := database.NewMigrator(db)
		if err := migrator.Migrate(cmd.Context()); err != nil {
			return err
		}

		version, err := migrator.CurrentVersion(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("Database migrated to version %d\n", version)
		return nil
	},
}
