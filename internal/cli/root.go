// Package cli provides the command-line interface for naturewatch.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/robertsoden/naturewatch-go/internal/config"
	"github.com/robertsoden/naturewatch-go/internal/datapull"
	"github.com/robertsoden/naturewatch-go/internal/db"
	"github.com/robertsoden/naturewatch-go/internal/sources"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Shared state built in the persistent pre-run
	cfg          config.Config
	logger       *slog.Logger
	dbClient     *db.Client
	registry     *datapull.Registry
	routes       *datapull.Routes
	orchestrator *datapull.Orchestrator
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "naturewatch",
	Short: "Environmental data pulls for Ontario areas of interest",
	Long: `Naturewatch pulls environmental and social statistics for geographic
areas of interest, trying a local spatial database first and falling back
across external sources (iNaturalist, eBird, DataStream, Global Forest
Watch) when a source has no coverage.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		// CLI logs text to stderr only; the JSON file sink is for the server.
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		var err error
		if dbClient, err = db.Open(cfg.DatabaseURL, logger); err != nil {
			return fmt.Errorf("open database: %w", err)
		}

		routes = datapull.DefaultRoutes()
		if cfg.RoutesFile != "" {
			if err := routes.LoadFile(cfg.RoutesFile); err != nil {
				return fmt.Errorf("load routes: %w", err)
			}
		}

		registry = sources.NewRegistry(sources.Options{
			DB:                    dbClient.DB(),
			EBirdAPIKey:           cfg.EBirdAPIKey,
			EBirdRegion:           cfg.EBirdRegion,
			DataStreamAPIKey:      cfg.DataStreamAPIKey,
			GFWAPIKey:             cfg.GFWAPIKey,
			INatRequestsPerMinute: cfg.INatRequestsPerMinute,
			Timeout:               cfg.HTTPTimeout,
			Logger:                logger,
		})
		orchestrator = datapull.NewOrchestrator(registry, routes, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(areasCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(initDBCmd)
}
