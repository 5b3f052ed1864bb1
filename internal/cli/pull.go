package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/robertsoden/naturewatch-go/internal/datapull"
	"github.com/robertsoden/naturewatch-go/internal/geo"
)

var (
	pullArea   string
	pullBBox   string
	pullSource string
	pullMetric string
	pullStart  string
	pullEnd    string
	pullParams map[string]string
	pullJSON   bool
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull data for an area of interest",
	Long: `Pull data for an area of interest, trying sources in fallback order.

The area is either a named Ontario area resolved from the spatial database
or an explicit bounding box (min-lon,min-lat,max-lon,max-lat).

Examples:
  naturewatch pull --area Algonquin --source iNaturalist
  naturewatch pull --area "Curve Lake" --source WaterAdvisories --start 2020-01-01
  naturewatch pull --bbox="-78.5,45.5,-77.5,46.0" --source eBird
  naturewatch pull --area Algonquin --metric tree_cover --json
  naturewatch pull --area Kawartha --source DataStream --param characteristic="Total Phosphorus"`,
	RunE: runPull,
}

func init() {
	pullCmd.Flags().StringVarP(&pullArea, "area", "a", "", "named area of interest")
	pullCmd.Flags().StringVar(&pullBBox, "bbox", "", "bounding box as min-lon,min-lat,max-lon,max-lat")
	pullCmd.Flags().StringVarP(&pullSource, "source", "s", "", "dataset source (eBird, iNaturalist, DataStream, WaterAdvisories, ...)")
	pullCmd.Flags().StringVarP(&pullMetric, "metric", "m", "", "metric name (tree_cover, deforestation, ...)")
	pullCmd.Flags().StringVar(&pullStart, "start", "", "range start as YYYY-MM-DD (default 30 days before end)")
	pullCmd.Flags().StringVar(&pullEnd, "end", "", "range end as YYYY-MM-DD (default today)")
	pullCmd.Flags().StringToStringVar(&pullParams, "param", nil, "source-specific parameter (key=value, repeatable)")
	pullCmd.Flags().BoolVar(&pullJSON, "json", false, "print the full result as JSON")
}

func runPull(cmd *cobra.Command, args []string) error {
	if pullSource == "" && pullMetric == "" {
		return fmt.Errorf("either --source or --metric is required")
	}

	ctx := context.Background()
	aoi, err := resolvePullArea(ctx)
	if err != nil {
		return err
	}

	start, end, err := parsePullRange()
	if err != nil {
		return err
	}

	ds := datapull.Dataset{Source: pullSource, Metric: pullMetric, Params: pullParams}
	res, err := orchestrator.PullData(ctx, aoi, ds, start, end)
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}

	if pullJSON {
		raw, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	}

	fmt.Println(res.Message)
	if res.SourceUsed != "" {
		fmt.Printf("Source: %s, records: %d\n", res.SourceUsed, res.DataPointsCount)
	}
	for _, w := range res.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	if verbose {
		for i, rec := range res.Data {
			if i >= 10 {
				fmt.Printf("... and %d more\n", len(res.Data)-i)
				break
			}
			raw, _ := json.Marshal(rec)
			fmt.Println(string(raw))
		}
	}
	return nil
}

func resolvePullArea(ctx context.Context) (geo.AreaOfInterest, error) {
	switch {
	case pullBBox != "":
		bounds, err := parseBBox(pullBBox)
		if err != nil {
			return geo.AreaOfInterest{}, err
		}
		name := pullArea
		if name == "" {
			name = "custom area"
		}
		return geo.AreaOfInterest{Name: name, Geometry: geo.NewBoxPolygon(bounds)}, nil
	case pullArea != "":
		aoi, err := dbClient.LookupArea(ctx, pullArea)
		if err != nil {
			return geo.AreaOfInterest{}, fmt.Errorf("resolve area %q: %w", pullArea, err)
		}
		return aoi, nil
	default:
		return geo.AreaOfInterest{}, fmt.Errorf("either --area or --bbox is required")
	}
}

// parseBBox parses "min-lon,min-lat,max-lon,max-lat".
func parseBBox(s string) (geo.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.Bounds{}, fmt.Errorf("bbox needs four comma-separated values, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.Bounds{}, fmt.Errorf("bbox value %q is not a number", p)
		}
		vals[i] = v
	}
	return geo.Bounds{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}, nil
}

func parsePullRange() (time.Time, time.Time, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if pullEnd != "" {
		var err error
		if end, err = time.Parse("2006-01-02", pullEnd); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end %q", pullEnd)
		}
	}
	start := end.AddDate(0, 0, -30)
	if pullStart != "" {
		var err error
		if start, err = time.Parse("2006-01-02", pullStart); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start %q", pullStart)
		}
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("--start is after --end")
	}
	return start, end, nil
}
