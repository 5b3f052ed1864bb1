package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	// Ping tool - test/placeholder
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ping",
		Description: "Test tool - responds with pong or echoes input",
	}, NewPingHandler(deps))

	// Pull tool - the fallback chain entry point
	mcp.AddTool(server, &mcp.Tool{
		Name:        "pull_data",
		Description: "Pull environmental or social statistics for an area of interest, falling back across data sources as needed",
	}, NewPullDataHandler(deps))

	// Area lookup - resolve a named area to its boundary
	mcp.AddTool(server, &mcp.Tool{
		Name:        "lookup_area",
		Description: "Resolve a named Ontario area (park, conservation authority or First Nation) to its boundary",
	}, NewLookupAreaHandler(deps))

	// Source listing - registered handlers and routing table
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_sources",
		Description: "List registered data sources in fallback priority order and the metric routing table",
	}, NewListSourcesHandler(deps))

	// Stats tool - in-memory pull metrics
	mcp.AddTool(server, &mcp.Tool{
		Name:        "stats",
		Description: "Report per-source pull attempt statistics since start-up",
	}, NewStatsHandler(deps))
}
