package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/robertsoden/naturewatch-go/internal/datapull"
	"github.com/robertsoden/naturewatch-go/internal/db"
	"github.com/robertsoden/naturewatch-go/internal/geo"
)

const defaultLookbackDays = 30

// PullDataInput defines the input schema for the pull_data tool. Either a
// named area or an explicit GeoJSON geometry selects the AOI.
type PullDataInput struct {
	Area      string            `json:"area,omitempty" jsonschema:"Named area (park, conservation authority or First Nation), resolved via the spatial database"`
	Geometry  *geo.Geometry     `json:"geometry,omitempty" jsonschema:"Explicit GeoJSON Point, Polygon or MultiPolygon geometry (WGS84)"`
	Source    string            `json:"source,omitempty" jsonschema:"Dataset source name, e.g. eBird, iNaturalist, WaterAdvisories, DataStream"`
	Metric    string            `json:"metric,omitempty" jsonschema:"Metric name, e.g. tree_cover; routed metrics bypass regional sources"`
	StartDate string            `json:"start_date,omitempty" jsonschema:"Range start as YYYY-MM-DD, default 30 days before end"`
	EndDate   string            `json:"end_date,omitempty" jsonschema:"Range end as YYYY-MM-DD, default today"`
	Params    map[string]string `json:"params,omitempty" jsonschema:"Source-specific parameters, e.g. characteristic for DataStream or category for Infrastructure"`
}

// NewPullDataHandler creates the pull_data tool handler. It resolves the
// AOI, runs the fallback chain and returns the normalized result as JSON.
func NewPullDataHandler(deps *Dependencies) mcp.ToolHandlerFor[PullDataInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input PullDataInput) (*mcp.CallToolResult, any, error) {
		if input.Source == "" && input.Metric == "" {
			return ErrorResult("Either source or metric is required", "Name a dataset source like eBird or a metric like tree_cover"), nil, nil
		}

		aoi, errRes := resolveAOI(ctx, deps, input.Area, input.Geometry)
		if errRes != nil {
			return errRes, nil, nil
		}

		start, end, err := parseRange(input.StartDate, input.EndDate)
		if err != nil {
			return ErrorResult(err.Error(), "Dates use the YYYY-MM-DD format"), nil, nil
		}

		ds := datapull.Dataset{Source: input.Source, Metric: input.Metric, Params: input.Params}
		res, err := deps.Orchestrator.PullData(ctx, aoi, ds, start, end)
		if err != nil {
			deps.Logger.Error("pull failed", "source", input.Source, "metric", input.Metric, "error", err)
			if errors.Is(err, geo.ErrInvalidGeometry) {
				return ErrorResult("Invalid area geometry", "Provide a valid GeoJSON geometry or a known area name"), nil, nil
			}
			return ErrorResult(fmt.Sprintf("Data pull failed: %v", err), ""), nil, nil
		}

		deps.Logger.Info("pull completed", "area", aoi.Name, "source_used", res.SourceUsed, "records", res.DataPointsCount)
		return JSONResult(res), nil, nil
	}
}

// resolveAOI picks the explicit geometry when given, otherwise resolves
// the named area through the database.
func resolveAOI(ctx context.Context, deps *Dependencies, area string, geometry *geo.Geometry) (geo.AreaOfInterest, *mcp.CallToolResult) {
	if geometry != nil {
		name := area
		if name == "" {
			name = "custom area"
		}
		return geo.AreaOfInterest{Name: name, Geometry: *geometry}, nil
	}
	if area == "" {
		return geo.AreaOfInterest{}, ErrorResult("Either area or geometry is required", "Name an area like Algonquin or pass a GeoJSON geometry")
	}
	if deps.DB == nil {
		return geo.AreaOfInterest{}, ErrorResult("Named area lookup needs the spatial database", "Pass an explicit GeoJSON geometry instead")
	}

	aoi, err := deps.DB.LookupArea(ctx, area)
	if err != nil {
		if errors.Is(err, db.ErrAreaNotFound) {
			return geo.AreaOfInterest{}, ErrorResult(fmt.Sprintf("No area matches %q", area), "Use the lookup_area tool to find known area names")
		}
		deps.Logger.Error("area lookup failed", "area", area, "error", err)
		return geo.AreaOfInterest{}, ErrorResult("Area lookup failed", "The spatial database may be unavailable")
	}
	return aoi, nil
}

// parseRange applies the date defaults: end today, start 30 days earlier.
func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if endStr != "" {
		var err error
		if end, err = time.Parse("2006-01-02", endStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q", endStr)
		}
	}

	start := end.AddDate(0, 0, -defaultLookbackDays)
	if startStr != "" {
		var err error
		if start, err = time.Parse("2006-01-02", startStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q", startStr)
		}
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date %s is after end_date %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return start, end, nil
}
