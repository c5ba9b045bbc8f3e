package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpad300/godmode-sub011/internal/graph"
)

var (
	queryProjectID string
	queryParams    []string
)

var queryCmd = &cobra.Command{
	Use:   "query <cypher>",
	Short: "Run a Cypher-subset query against a graph",
	Long: `Run a query against the shared graph or a project graph.

Only a constrained Cypher subset is recognized (MATCH by label with
property predicates, MERGE by id, DETACH DELETE, count aggregates,
RETURN 1). Unrecognized text yields an empty result marked unsupported
rather than an error.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, closeFn, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		params := make(map[string]any, len(queryParams))
		for _, pair := range queryParams {
			key, value, found := strings.Cut(pair, "=")
			if !found {
				return fmt.Errorf("invalid --param %q (expected key=value)", pair)
			}
			params[key] = value
		}

		result, err := app.provider.Query(cmd.Context(), scopeFromFlag(queryProjectID), args[0], params)
		if err != nil {
			return err
		}

		if result.Outcome == graph.OutcomeUnsupported {
			cmd.PrintErrln("Query not recognized by the Cypher subset; returning empty result")
		}
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVarP(&queryProjectID, "project", "p", "", "Project id (default: shared graph)")
	queryCmd.Flags().StringArrayVar(&queryParams, "param", nil, "Query parameter as key=value (repeatable)")
}
