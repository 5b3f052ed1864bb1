package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robertsoden/naturewatch-go/internal/datapull"
	"github.com/robertsoden/naturewatch-go/internal/geo"
)

const gfwBaseURL = "https://data-api.globalforestwatch.org"

// AnalyticsHandler calls the Global Forest Watch analytics service. The
// service accepts the AOI geometry directly and aggregates server-side,
// with near-universal coverage and no notion of a missing region, so it is
// registered last and acts as the terminal fallback for any dataset not
// otherwise satisfied. No per-region configuration is needed; the API key
// is optional.
type AnalyticsHandler struct {
	client  *apiClient
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

var _ datapull.Handler = (*AnalyticsHandler)(nil)

// NewAnalytics creates the global analytics handler.
func NewAnalytics(apiKey string, timeout time.Duration, logger *slog.Logger) *AnalyticsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsHandler{
		client:  newAPIClient(timeout, logger),
		apiKey:  apiKey,
		baseURL: gfwBaseURL,
		logger:  logger,
	}
}

// Name matches the routing-table target for forest-cover style metrics.
func (h *AnalyticsHandler) Name() string { return datapull.GlobalAnalyticsName }

// CanHandle accepts every dataset: the analytics service is the chain's
// last resort.
func (h *AnalyticsHandler) CanHandle(datapull.Dataset) bool { return true }

// gfwRequest is the analysis request body. The AOI geometry is passed
// through as GeoJSON; aggregation happens server-side.
type gfwRequest struct {
	Geometry     geo.Geometry `json:"geometry"`
	Dataset      string       `json:"dataset"`
	ContextLayer string       `json:"context_layer,omitempty"`
	StartDate    string       `json:"start_date"`
	EndDate      string       `json:"end_date"`
}

type gfwResponse struct {
	Status string           `json:"status"`
	Data   []map[string]any `json:"data"`
}

// Pull runs one server-side analysis over the AOI geometry.
func (h *AnalyticsHandler) Pull(ctx context.Context, aoi geo.AreaOfInterest, ds datapull.Dataset, start, end time.Time) (datapull.Result, error) {
	if _, err := aoi.Geometry.Bounds(); err != nil {
		return datapull.Result{}, err
	}

	name := ds.Source
	if name == "" {
		name = ds.Metric
	}
	if name == "" {
		name = "Tree cover"
	}

	body := gfwRequest{
		Geometry:     aoi.Geometry,
		Dataset:      name,
		ContextLayer: ds.Params["context_layer"],
		StartDate:    start.Format("2006-01-02"),
		EndDate:      end.Format("2006-01-02"),
	}

	header := http.Header{}
	if h.apiKey != "" {
		header.Set("X-Api-Key", h.apiKey)
	}

	var resp gfwResponse
	if err := h.client.postJSON(ctx, h.baseURL+"/analysis", header, body, &resp); err != nil {
		if ctx.Err() != nil {
			return datapull.Result{}, ctx.Err()
		}
		h.logger.Warn("GFW analysis failed", "dataset", name, "error", err)
		return datapull.Unavailable("GFW", err.Error()), nil
	}

	records := make([]datapull.Record, 0, len(resp.Data))
	for _, row := range resp.Data {
		records = append(records, datapull.Record(row))
	}

	if len(records) == 0 {
		return datapull.NoData("GFW", fmt.Sprintf("Global Forest Watch returned no data for %q over this area.", name)), nil
	}
	return datapull.Records("GFW", records,
		fmt.Sprintf("Retrieved %d data points from Global Forest Watch for %q.", len(records), name)), nil
}
