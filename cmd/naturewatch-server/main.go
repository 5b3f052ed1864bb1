// Package main provides the entry point for the naturewatch MCP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robertsoden/naturewatch-go/internal/config"
	"github.com/robertsoden/naturewatch-go/internal/datapull"
	"github.com/robertsoden/naturewatch-go/internal/db"
	"github.com/robertsoden/naturewatch-go/internal/metrics"
	"github.com/robertsoden/naturewatch-go/internal/server"
	"github.com/robertsoden/naturewatch-go/internal/sources"
	"github.com/robertsoden/naturewatch-go/internal/tools"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()

	// Dual output: stderr text + file JSON. Stdout stays clean for the
	// MCP stdio transport.
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("naturewatch starting",
		"version", version,
		"ebird_region", cfg.EBirdRegion,
		"ebird_key_set", cfg.EBirdAPIKey != "",
		"datastream_key_set", cfg.DataStreamAPIKey != "",
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// The pool connects lazily, so a missing database degrades the spatial
	// handlers to unavailable instead of aborting start-up.
	dbClient, err := db.Open(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = dbClient.Close()
	}()

	routes := datapull.DefaultRoutes()
	if cfg.RoutesFile != "" {
		if err := routes.LoadFile(cfg.RoutesFile); err != nil {
			logger.Error("failed to load routes file", "file", cfg.RoutesFile, "error", err)
			os.Exit(1)
		}
	}

	registry := sources.NewRegistry(sources.Options{
		DB:                    dbClient.DB(),
		EBirdAPIKey:           cfg.EBirdAPIKey,
		EBirdRegion:           cfg.EBirdRegion,
		DataStreamAPIKey:      cfg.DataStreamAPIKey,
		GFWAPIKey:             cfg.GFWAPIKey,
		INatRequestsPerMinute: cfg.INatRequestsPerMinute,
		Timeout:               cfg.HTTPTimeout,
		Logger:                logger,
	})
	logger.Info("data sources registered", "handlers", registry.Names())

	collector := metrics.NewCollector()
	orchestrator := datapull.NewOrchestrator(registry, routes, logger, datapull.WithRecorder(collector))

	srv := server.New(version, logger)
	srv.Setup()

	deps := &tools.Dependencies{
		Orchestrator: orchestrator,
		Registry:     registry,
		Routes:       routes,
		DB:           dbClient,
		Metrics:      collector,
		Logger:       logger,
	}
	tools.RegisterAll(srv.MCPServer(), deps)

	logger.Info("server ready, awaiting connections")

	// Blocks until disconnect or context cancellation.
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
