package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/robertsoden/naturewatch-go/internal/db"
)

// LookupAreaInput defines the input schema for the lookup_area tool.
type LookupAreaInput struct {
	Name string `json:"name" jsonschema:"required,Area name to resolve, matched case-insensitively and partially"`
}

// areaSummary is the lookup response: the resolved name plus its bounding
// box, without the full boundary geometry.
type areaSummary struct {
	Name   string  `json:"name"`
	Source string  `json:"source"`
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// NewLookupAreaHandler creates the lookup_area tool handler.
func NewLookupAreaHandler(deps *Dependencies) mcp.ToolHandlerFor[LookupAreaInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input LookupAreaInput) (*mcp.CallToolResult, any, error) {
		if input.Name == "" {
			return ErrorResult("Name cannot be empty", "Provide an area name like Algonquin"), nil, nil
		}
		if deps.DB == nil {
			return ErrorResult("Area lookup needs the spatial database", "Configure NATUREWATCH_DATABASE_URL"), nil, nil
		}

		aoi, err := deps.DB.LookupArea(ctx, input.Name)
		if err != nil {
			if errors.Is(err, db.ErrAreaNotFound) {
				return ErrorResult(fmt.Sprintf("No area matches %q", input.Name), "Try a shorter or different name"), nil, nil
			}
			deps.Logger.Error("area lookup failed", "name", input.Name, "error", err)
			return ErrorResult("Area lookup failed", "The spatial database may be unavailable"), nil, nil
		}

		bounds, err := aoi.Geometry.Bounds()
		if err != nil {
			deps.Logger.Error("stored area has invalid geometry", "name", aoi.Name, "error", err)
			return ErrorResult(fmt.Sprintf("Stored geometry for %q is invalid", aoi.Name), ""), nil, nil
		}

		return JSONResult(areaSummary{
			Name:   aoi.Name,
			Source: aoi.SourceID,
			MinLat: bounds.MinLat,
			MinLon: bounds.MinLon,
			MaxLat: bounds.MaxLat,
			MaxLon: bounds.MaxLon,
		}), nil, nil
	}
}
