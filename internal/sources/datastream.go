package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/robertsoden/naturewatch-go/internal/datapull"
	"github.com/robertsoden/naturewatch-go/internal/geo"
	"github.com/robertsoden/naturewatch-go/internal/ratelimit"
)

const (
	datastreamBaseURL = "https://api.datastream.org/v1/odata/v4"

	// datastreamDefaultDOI is the PWQMN dataset on DataStream, the default
	// when the caller names no DOI.
	datastreamDefaultDOI = "10.25976/tnw0-3x43"

	datastreamPageSize = 1000
)

// DataStreamHandler pulls standardized water-quality observations from the
// DataStream OData v4 API, following server-driven paging links. Requires
// an API key.
type DataStreamHandler struct {
	client  *apiClient
	limiter *ratelimit.Limiter
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

var _ datapull.Handler = (*DataStreamHandler)(nil)

// NewDataStream creates the handler. An empty apiKey degrades it to
// permanently unavailable.
func NewDataStream(apiKey string, timeout time.Duration, logger *slog.Logger) *DataStreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataStreamHandler{
		client:  newAPIClient(timeout, logger),
		limiter: ratelimit.NewInterval(500 * time.Millisecond),
		apiKey:  apiKey,
		baseURL: datastreamBaseURL,
		logger:  logger,
	}
}

func (h *DataStreamHandler) Name() string { return "DataStream" }

func (h *DataStreamHandler) CanHandle(ds datapull.Dataset) bool {
	return ds.Source == "DataStream"
}

// Pull fetches observations for the dataset DOI, optionally narrowed to a
// characteristic (e.g. "Total Phosphorus") via dataset params. The OData
// filter is assembled from fixed templates; caller values go into quoted
// literals the provider treats as opaque strings, never into field names.
func (h *DataStreamHandler) Pull(ctx context.Context, aoi geo.AreaOfInterest, ds datapull.Dataset, start, end time.Time) (datapull.Result, error) {
	if h.apiKey == "" {
		return datapull.Unavailable("DataStream", "missing API key"), nil
	}

	doi := ds.Params["doi"]
	if doi == "" {
		doi = datastreamDefaultDOI
	}

	filters := []string{fmt.Sprintf("DOI eq '%s'", odataEscape(doi))}
	if c := ds.Params["characteristic"]; c != "" {
		filters = append(filters, fmt.Sprintf("CharacteristicName eq '%s'", odataEscape(c)))
	}
	filters = append(filters,
		"ActivityStartDate ge "+start.Format("2006-01-02"),
		"ActivityStartDate le "+end.Format("2006-01-02"),
	)

	q := url.Values{}
	q.Set("$filter", strings.Join(filters, " and "))
	q.Set("$top", fmt.Sprint(datastreamPageSize))

	header := http.Header{"X-Api-Key": []string{h.apiKey}}
	next := h.baseURL + "/Observations?" + q.Encode()

	var records []datapull.Record
	for next != "" {
		if err := h.limiter.Wait(ctx); err != nil {
			return datapull.Result{}, err
		}

		var page odataPage
		if err := h.client.getJSON(ctx, next, header, &page); err != nil {
			if ctx.Err() != nil {
				return datapull.Result{}, ctx.Err()
			}
			h.logger.Warn("DataStream request failed", "doi", doi, "error", err)
			return datapull.Unavailable("DataStream", err.Error()), nil
		}
		for _, row := range page.Value {
			records = append(records, datapull.Record(row))
		}
		next = page.NextLink // nextLink carries all query params
	}

	if len(records) == 0 {
		return datapull.NoData("DataStream", "No DataStream observations match the dataset and date range."), nil
	}
	return datapull.Records("DataStream", records,
		fmt.Sprintf("Retrieved %d water quality observations from DataStream (DOI %s).", len(records), doi)), nil
}

type odataPage struct {
	Value    []map[string]any `json:"value"`
	NextLink string           `json:"@odata.nextLink"`
}

// odataEscape doubles single quotes per OData string-literal rules.
func odataEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
