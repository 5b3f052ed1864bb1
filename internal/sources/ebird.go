package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/robertsoden/naturewatch-go/internal/datapull"
	"github.com/robertsoden/naturewatch-go/internal/geo"
	"github.com/robertsoden/naturewatch-go/internal/ratelimit"
)

const (
	ebirdBaseURL       = "https://api.ebird.org/v2"
	ebirdDefaultRegion = "CA-ON"
	ebirdMaxResults    = 1000

	// ebirdMaxBackDays is the provider's limit on the recent-observations
	// window.
	ebirdMaxBackDays = 30
)

// EBirdHandler pulls recent bird observations from the eBird API 2.0. The
// API is region-scoped rather than bbox-scoped, so results are filtered to
// the AOI bounds client-side. Requires an API key; without one the handler
// reports unavailable immediately, making no network call.
type EBirdHandler struct {
	client  *apiClient
	limiter *ratelimit.Limiter
	apiKey  string
	region  string
	baseURL string
	logger  *slog.Logger
}

var _ datapull.Handler = (*EBirdHandler)(nil)

// NewEBird creates the handler. An empty region defaults to Ontario
// (CA-ON); an empty apiKey leaves the handler registered but permanently
// unavailable, which is the degraded mode for a missing optional
// credential.
func NewEBird(apiKey, region string, timeout time.Duration, logger *slog.Logger) *EBirdHandler {
	if region == "" {
		region = ebirdDefaultRegion
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EBirdHandler{
		client:  newAPIClient(timeout, logger),
		limiter: ratelimit.NewInterval(time.Second),
		apiKey:  apiKey,
		region:  region,
		baseURL: ebirdBaseURL,
		logger:  logger,
	}
}

func (h *EBirdHandler) Name() string { return "eBird" }

func (h *EBirdHandler) CanHandle(ds datapull.Dataset) bool {
	return ds.Source == "eBird"
}

// Pull fetches recent observations for the configured region and keeps
// those inside the AOI bounds.
func (h *EBirdHandler) Pull(ctx context.Context, aoi geo.AreaOfInterest, ds datapull.Dataset, start, end time.Time) (datapull.Result, error) {
	if h.apiKey == "" {
		return datapull.Unavailable("eBird", "missing API key"), nil
	}

	bounds, err := aoi.Geometry.Bounds()
	if err != nil {
		return datapull.Result{}, err
	}

	back := int(end.Sub(start).Hours() / 24)
	if back < 1 {
		back = 1
	}
	if back > ebirdMaxBackDays {
		back = ebirdMaxBackDays
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return datapull.Result{}, err
	}

	q := url.Values{}
	q.Set("back", strconv.Itoa(back))
	q.Set("maxResults", strconv.Itoa(ebirdMaxResults))
	header := http.Header{"X-Ebirdapitoken": []string{h.apiKey}}

	var observations []ebirdObservation
	endpoint := fmt.Sprintf("%s/data/obs/%s/recent?%s", h.baseURL, url.PathEscape(h.region), q.Encode())
	if err := h.client.getJSON(ctx, endpoint, header, &observations); err != nil {
		if ctx.Err() != nil {
			return datapull.Result{}, ctx.Err()
		}
		h.logger.Warn("eBird request failed", "region", h.region, "error", err)
		return datapull.Unavailable("eBird", err.Error()), nil
	}

	var records []datapull.Record
	for _, obs := range observations {
		if !bounds.Contains(obs.Lat, obs.Lng) {
			continue
		}
		records = append(records, transformEBirdObservation(obs))
	}

	if len(records) == 0 {
		return datapull.NoData("eBird", "No eBird observations in the area for the requested date range."), nil
	}
	return datapull.Records("eBird", records,
		fmt.Sprintf("Retrieved %d bird observations from eBird.", len(records))), nil
}

type ebirdObservation struct {
	SubID        string  `json:"subId"`
	SpeciesCode  string  `json:"speciesCode"`
	ComName      string  `json:"comName"`
	SciName      string  `json:"sciName"`
	ObsDt        string  `json:"obsDt"`
	HowMany      *int    `json:"howMany"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	LocName      string  `json:"locName"`
	LocID        string  `json:"locId"`
	ObsValid     bool    `json:"obsValid"`
	ObsReviewed  bool    `json:"obsReviewed"`
	LocPrivate   bool    `json:"locationPrivate"`
}

func transformEBirdObservation(obs ebirdObservation) datapull.Record {
	rec := datapull.Record{
		"source":               "eBird",
		"observation_id":       obs.SubID,
		"species_code":         obs.SpeciesCode,
		"common_name":          obs.ComName,
		"scientific_name":      obs.SciName,
		"observation_datetime": obs.ObsDt,
		"location":             geo.NewPoint(obs.Lng, obs.Lat),
		"location_name":        obs.LocName,
		"location_id":          obs.LocID,
		"valid":                obs.ObsValid,
		"reviewed":             obs.ObsReviewed,
		"url":                  fmt.Sprintf("https://ebird.org/checklist/%s", obs.SubID),
	}
	if obs.HowMany != nil {
		rec["count"] = *obs.HowMany
	}
	return rec
}
