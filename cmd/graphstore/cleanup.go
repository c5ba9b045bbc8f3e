package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpad300/godmode-sub011/internal/graph"
)

var cleanupProjectID string

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Merge duplicate meetings and remove orphaned relationships",
	Long: `Runs the graph hygiene pass: Meeting nodes sharing a source are
collapsed onto one survivor with their edges remapped, then
relationships whose endpoints no longer exist are deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, closeFn, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		relational, ok := app.provider.(*graph.RelationalProvider)
		if !ok {
			return fmt.Errorf("cleanup requires the relational provider (configured: %s)", app.cfg.Graph.Provider)
		}

		scope := scopeFromFlag(cleanupProjectID)
		report, err := relational.CleanupDuplicateMeetings(cmd.Context(), scope)
		if err != nil {
			return err
		}
		cmd.Printf("Merged %d duplicate meeting groups (%d nodes removed, %d edges remapped)\n",
			report.GroupsMerged, report.NodesRemoved, report.EdgesRemapped)

		orphans, err := relational.CleanupOrphanedRelationships(cmd.Context(), scope)
		if err != nil {
			return err
		}
		cmd.Printf("Removed %d orphaned relationships\n", orphans)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().StringVarP(&cleanupProjectID, "project", "p", "", "Project id (default: shared graph)")
}
