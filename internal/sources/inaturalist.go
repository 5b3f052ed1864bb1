package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/robertsoden/naturewatch-go/internal/datapull"
	"github.com/robertsoden/naturewatch-go/internal/geo"
	"github.com/robertsoden/naturewatch-go/internal/ratelimit"
)

const (
	inatBaseURL    = "https://api.inaturalist.org/v1"
	inatPerPage    = 200
	inatMaxResults = 1000

	// inatDefaultPerMinute is the polite request budget for the public
	// iNaturalist API.
	inatDefaultPerMinute = 60
)

// INaturalistHandler pulls citizen-science observations from the
// iNaturalist API v1. It needs no credential, so it also serves as the
// regional fallback for other biodiversity datasets (eBird, GBIF) when
// their primary handlers cannot deliver.
type INaturalistHandler struct {
	client  *apiClient
	limiter *ratelimit.Limiter
	baseURL string
	logger  *slog.Logger
}

var _ datapull.Handler = (*INaturalistHandler)(nil)

// NewINaturalist creates the handler. requestsPerMinute <= 0 applies the
// default budget.
func NewINaturalist(requestsPerMinute int, timeout time.Duration, logger *slog.Logger) *INaturalistHandler {
	if requestsPerMinute <= 0 {
		requestsPerMinute = inatDefaultPerMinute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &INaturalistHandler{
		client:  newAPIClient(timeout, logger),
		limiter: ratelimit.PerMinute(requestsPerMinute),
		baseURL: inatBaseURL,
		logger:  logger,
	}
}

func (h *INaturalistHandler) Name() string { return "iNaturalist" }

// CanHandle accepts the biodiversity observation sources. eBird and GBIF
// datasets are claimed as well: iNaturalist carries overlapping species
// observations and fills in when those sources are unavailable.
func (h *INaturalistHandler) CanHandle(ds datapull.Dataset) bool {
	switch ds.Source {
	case "iNaturalist", "GBIF", "eBird":
		return true
	}
	return false
}

// Pull fetches research-grade observations inside the AOI bounding box,
// paging until the provider runs out of results or the result cap is hit.
func (h *INaturalistHandler) Pull(ctx context.Context, aoi geo.AreaOfInterest, ds datapull.Dataset, start, end time.Time) (datapull.Result, error) {
	bounds, err := aoi.Geometry.Bounds()
	if err != nil {
		return datapull.Result{}, err
	}

	q := url.Values{}
	q.Set("swlat", formatCoord(bounds.MinLat))
	q.Set("swlng", formatCoord(bounds.MinLon))
	q.Set("nelat", formatCoord(bounds.MaxLat))
	q.Set("nelng", formatCoord(bounds.MaxLon))
	q.Set("quality_grade", "research")
	q.Set("geo", "true")
	q.Set("per_page", strconv.Itoa(inatPerPage))
	q.Set("d1", start.Format("2006-01-02"))
	q.Set("d2", end.Format("2006-01-02"))
	if ds.Source == "eBird" {
		// Bird datasets served here are narrowed to avian taxa.
		q.Set("iconic_taxa", "Aves")
	}

	var records []datapull.Record
	for page := 1; len(records) < inatMaxResults; page++ {
		if err := h.limiter.Wait(ctx); err != nil {
			return datapull.Result{}, err
		}
		q.Set("page", strconv.Itoa(page))

		var resp inatPage
		if err := h.client.getJSON(ctx, h.baseURL+"/observations?"+q.Encode(), nil, &resp); err != nil {
			if ctx.Err() != nil {
				return datapull.Result{}, ctx.Err()
			}
			h.logger.Warn("iNaturalist request failed", "page", page, "error", err)
			return datapull.Unavailable("iNaturalist", err.Error()), nil
		}
		if len(resp.Results) == 0 {
			break
		}
		for _, obs := range resp.Results {
			records = append(records, transformINatObservation(obs))
		}
		if len(resp.Results) < inatPerPage {
			break
		}
	}
	if len(records) > inatMaxResults {
		records = records[:inatMaxResults]
	}

	if len(records) == 0 {
		return datapull.NoData("iNaturalist", "No iNaturalist observations in the area for the requested date range."), nil
	}
	return datapull.Records("iNaturalist", records,
		fmt.Sprintf("Retrieved %d research-grade observations from iNaturalist.", len(records))), nil
}

// inatPage is one page of the /observations response.
type inatPage struct {
	TotalResults int               `json:"total_results"`
	Results      []inatObservation `json:"results"`
}

type inatObservation struct {
	ID                   int    `json:"id"`
	ObservedOn           string `json:"observed_on"`
	TimeObservedAt       string `json:"time_observed_at"`
	Location             string `json:"location"` // "lat,lng"
	PositionalAccuracy   *int   `json:"positional_accuracy"`
	PlaceGuess           string `json:"place_guess"`
	QualityGrade         string `json:"quality_grade"`
	LicenseCode          string `json:"license_code"`
	IdentificationsCount int    `json:"identifications_count"`
	Taxon                struct {
		ID                  int    `json:"id"`
		Name                string `json:"name"`
		Rank                string `json:"rank"`
		PreferredCommonName string `json:"preferred_common_name"`
		IconicTaxonName     string `json:"iconic_taxon_name"`
	} `json:"taxon"`
	User struct {
		Login string `json:"login"`
	} `json:"user"`
	Photos []struct {
		URL string `json:"url"`
	} `json:"photos"`
}

// transformINatObservation maps a provider observation into the common
// record schema: renamed fields, extracted coordinates, stable URLs.
func transformINatObservation(obs inatObservation) datapull.Record {
	rec := datapull.Record{
		"source":                "iNaturalist",
		"observation_id":        strconv.Itoa(obs.ID),
		"species_name":          obs.Taxon.Name,
		"scientific_name":       obs.Taxon.Name,
		"common_name":           obs.Taxon.PreferredCommonName,
		"taxon_rank":            obs.Taxon.Rank,
		"iconic_taxon":          obs.Taxon.IconicTaxonName,
		"observation_date":      obs.ObservedOn,
		"observation_datetime":  obs.TimeObservedAt,
		"place_name":            obs.PlaceGuess,
		"quality_grade":         obs.QualityGrade,
		"license":               obs.LicenseCode,
		"observer":              obs.User.Login,
		"identifications_count": obs.IdentificationsCount,
		"url":                   fmt.Sprintf("https://www.inaturalist.org/observations/%d", obs.ID),
	}
	if obs.PositionalAccuracy != nil {
		rec["accuracy_meters"] = *obs.PositionalAccuracy
	}
	if lat, lon, ok := parseLatLng(obs.Location); ok {
		rec["location"] = geo.NewPoint(lon, lat)
	}
	if len(obs.Photos) > 0 {
		photos := make([]string, len(obs.Photos))
		for i, p := range obs.Photos {
			photos[i] = p.URL
		}
		rec["photos"] = photos
	}
	return rec
}

// parseLatLng splits the provider's "lat,lng" location string.
func parseLatLng(s string) (lat, lon float64, ok bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
