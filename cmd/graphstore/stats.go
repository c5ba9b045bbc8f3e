package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var statsProjectID string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show node and relationship counts for a graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, closeFn, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		stats, err := app.provider.GetStats(cmd.Context(), scopeFromFlag(statsProjectID))
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVarP(&statsProjectID, "project", "p", "", "Project id (default: shared graph)")
}
