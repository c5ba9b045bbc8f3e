package main

import (
	"github.com/spf13/cobra"

	"github.com/rpad300/godmode-sub011/internal/config"
	"github.com/rpad300/godmode-sub011/internal/database"
	"github.com/rpad300/godmode-sub011/internal/graph"
)

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Verify the configured graph backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithDefaults(configPath)
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Logging)

		db, err := database.OpenWithConfig(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		factory := graph.NewFactory(logger)
		report := factory.TestConnection(cmd.Context(), cfg.Graph.Provider, graph.Config{
			GraphName: cfg.Graph.GraphName,
			ProjectID: cfg.Graph.ProjectID,
			Options:   cfg.Graph.Options,
			Client:    database.NewClient(db),
		})

		if !report.OK {
			cmd.Printf("Connection failed: %s\n", report.Error)
			return nil
		}
		cmd.Printf("Connection OK (%d ms)\n", report.LatencyMS)
		return nil
	},
}
