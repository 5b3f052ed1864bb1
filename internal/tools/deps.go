// Package tools provides MCP tool handlers and registration.
package tools

import (
	"log/slog"

	"github.com/robertsoden/naturewatch-go/internal/datapull"
	"github.com/robertsoden/naturewatch-go/internal/db"
	"github.com/robertsoden/naturewatch-go/internal/metrics"
)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Orchestrator *datapull.Orchestrator
	Registry     *datapull.Registry
	Routes       *datapull.Routes
	DB           *db.Client
	Metrics      *metrics.Collector
	Logger       *slog.Logger
}
