package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rpad300/godmode-sub011/internal/config"
	"github.com/rpad300/godmode-sub011/internal/database"
	"github.com/rpad300/godmode-sub011/internal/graph"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "graphstore",
	Short: "Relational-backed property graph store",
	Long: `graphstore manages a property graph stored in conventional relational
tables: nodes and typed relationships partitioned into logical graphs,
with a shared partition for cross-project entities and one partition
per project.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "graphstore.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(testConnectionCmd)
	rootCmd.AddCommand(versionCmd)
}

// appContext bundles everything a subcommand needs.
type appContext struct {
	cfg      *config.Config
	db       *database.DB
	provider graph.GraphProvider
	logger   *slog.Logger
}

// setup loads configuration, opens the database, and connects the configured
// graph provider. Callers must invoke close when done.
func setup(ctx context.Context) (*appContext, func(), error) {
	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	db, err := database.OpenWithConfig(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	factory := graph.NewFactory(logger)
	provider, err := factory.CreateFromConfig(ctx, cfg.Graph, database.NewClient(db))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if provider == nil {
		db.Close()
		return nil, nil, fmt.Errorf("graph provider is disabled or unreachable (check the graph section of %s)", configPath)
	}

	app := &appContext{cfg: cfg, db: db, provider: provider, logger: logger}
	closeFn := func() {
		if err := provider.Close(context.Background()); err != nil {
			logger.Warn("failed to close graph provider", "error", err)
		}
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}
	return app, closeFn, nil
}

// newLogger builds the process logger from the logging config. The --verbose
// flag overrides the configured level.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// scopeFromFlag resolves the --project flag to a scope.
func scopeFromFlag(projectID string) graph.Scope {
	if projectID == "" {
		return graph.SharedScope()
	}
	return graph.ProjectScope(projectID)
}
