package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ListSourcesInput defines the (empty) input schema for list_sources.
type ListSourcesInput struct{}

// sourcesSummary lists registered handlers in fallback priority order and
// the routing table entries that bypass them.
type sourcesSummary struct {
	Handlers     []string          `json:"handlers"`
	MetricRoutes map[string]string `json:"metric_routes"`
	SourceRoutes map[string]string `json:"source_routes"`
}

// NewListSourcesHandler creates the list_sources tool handler.
func NewListSourcesHandler(deps *Dependencies) mcp.ToolHandlerFor[ListSourcesInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListSourcesInput) (*mcp.CallToolResult, any, error) {
		metricRoutes, sourceRoutes := deps.Routes.Entries()
		return JSONResult(sourcesSummary{
			Handlers:     deps.Registry.Names(),
			MetricRoutes: metricRoutes,
			SourceRoutes: sourceRoutes,
		}), nil, nil
	}
}
