package sources

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/robertsoden/naturewatch-go/internal/datapull"
	"github.com/robertsoden/naturewatch-go/internal/geo"
)

// defaultStatementTimeout bounds each spatial query; on expiry the source
// is reported unavailable so the fallback chain can continue.
const defaultStatementTimeout = 30 * time.Second

// Pre-ingested Ontario tables are queried by geometry intersection and
// date range. All caller-supplied values are bound parameters; query text
// is fixed at compile time.
const (
	waterAdvisoriesQuery = `
		SELECT
			advisory_id, community_name, first_nation, advisory_type,
			advisory_date, lift_date, duration_days, is_active, reason,
			water_system_name, population_affected,
			ST_AsGeoJSON(geometry)::json AS location, data_source
		FROM ontario_water_advisories
		WHERE ST_Intersects(geometry, ST_GeomFromText($1, 4326))
		  AND advisory_date >= $2
		  AND (lift_date IS NULL OR lift_date <= $3)
		ORDER BY duration_days DESC NULLS FIRST, advisory_date DESC
		LIMIT 1000`

	fireIncidentsQuery = `
		SELECT
			fire_id, fire_number, fire_year, fire_name, ignition_date,
			out_date, area_ha, fire_cause, fire_region, fuel_type,
			ST_AsGeoJSON(geometry)::json AS perimeter, data_source
		FROM ontario_fire_incidents
		WHERE ST_Intersects(geometry, ST_GeomFromText($1, 4326))
		  AND fire_year BETWEEN $2 AND $3
		ORDER BY fire_year DESC, area_ha DESC
		LIMIT 1000`

	infrastructureQuery = `
		SELECT
			project_id, community_name, first_nation, project_name,
			infrastructure_category, infrastructure_type, project_status,
			project_start_date, project_completion_date, funding_amount,
			funding_source, asset_condition, within_williams_treaty,
			ST_AsGeoJSON(geometry)::json AS location, data_source
		FROM ontario_indigenous_infrastructure
		WHERE ST_Intersects(geometry, ST_GeomFromText($1, 4326))
		  AND ($2 = '' OR infrastructure_category ILIKE '%' || $2 || '%')
		ORDER BY community_name, infrastructure_category
		LIMIT 1000`

	communityWellbeingQuery = `
		SELECT
			csd_code, community_name, community_type, census_year,
			population, cwb_score, education_score, labour_force_score,
			income_score, housing_score, within_williams_treaty,
			ST_AsGeoJSON(geometry)::json AS location, data_source
		FROM ontario_community_wellbeing
		WHERE ST_Intersects(geometry, ST_GeomFromText($1, 4326))
		ORDER BY census_year DESC, cwb_score ASC
		LIMIT 500`
)

// spatialSources maps dataset source names to their query and the noun
// used in result messages.
var spatialSources = map[string]struct {
	query string
	noun  string
}{
	"WaterAdvisories":    {waterAdvisoriesQuery, "water advisories"},
	"FireIncidents":      {fireIncidentsQuery, "fire incidents"},
	"Infrastructure":     {infrastructureQuery, "infrastructure projects"},
	"CommunityWellbeing": {communityWellbeingQuery, "community well-being records"},
}

// SpatialDBHandler serves datasets pre-ingested into PostGIS tables. It
// reads through a shared connection pool with a per-statement timeout and
// never writes; ingestion is a separate pipeline.
type SpatialDBHandler struct {
	db      *sql.DB
	timeout time.Duration
	logger  *slog.Logger
}

var _ datapull.Handler = (*SpatialDBHandler)(nil)

// NewSpatialDB creates the handler over a shared pool. A nil db leaves the
// handler registered but unavailable, mirroring a missing optional
// credential.
func NewSpatialDB(db *sql.DB, timeout time.Duration, logger *slog.Logger) *SpatialDBHandler {
	if timeout <= 0 {
		timeout = defaultStatementTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SpatialDBHandler{db: db, timeout: timeout, logger: logger}
}

func (h *SpatialDBHandler) Name() string { return "spatialdb" }

func (h *SpatialDBHandler) CanHandle(ds datapull.Dataset) bool {
	_, ok := spatialSources[ds.Source]
	return ok
}

// Pull runs the dataset's spatial query scoped to the AOI geometry and the
// date range, returning rows verbatim as records.
func (h *SpatialDBHandler) Pull(ctx context.Context, aoi geo.AreaOfInterest, ds datapull.Dataset, start, end time.Time) (datapull.Result, error) {
	src, ok := spatialSources[ds.Source]
	if !ok {
		return datapull.Result{}, fmt.Errorf("spatialdb cannot serve dataset %q", ds.Source)
	}
	wkt, err := aoi.Geometry.WKT()
	if err != nil {
		return datapull.Result{}, err
	}
	if h.db == nil {
		return datapull.Unavailable("spatialdb", "spatial database not configured"), nil
	}

	var args []any
	switch ds.Source {
	case "WaterAdvisories":
		args = []any{wkt, start, end}
	case "FireIncidents":
		args = []any{wkt, start.Year(), end.Year()}
	case "Infrastructure":
		args = []any{wkt, ds.Params["category"]}
	case "CommunityWellbeing":
		args = []any{wkt}
	}

	qctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	rows, err := h.db.QueryContext(qctx, src.query, args...)
	if err != nil {
		return h.classifyQueryError(ds.Source, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return h.classifyQueryError(ds.Source, err)
	}

	if len(records) == 0 {
		return datapull.NoData("spatialdb",
			fmt.Sprintf("No %s intersect the area for the requested date range.", src.noun)), nil
	}
	return datapull.Records("spatialdb", records,
		fmt.Sprintf("Found %d %s in the area.", len(records), src.noun)), nil
}

// classifyQueryError separates recoverable database failures (missing
// table, statement timeout, connection trouble) from programmer errors in
// the query text. Only the latter abort the fallback chain.
func (h *SpatialDBHandler) classifyQueryError(source string, err error) (datapull.Result, error) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 42P01 undefined_table: the ingestion pipeline has not populated
		// this dataset yet; recoverable by falling back.
		if pqErr.Code != "42P01" && pqErr.Code.Class() == "42" {
			return datapull.Result{}, fmt.Errorf("malformed spatial query for %s: %w", source, err)
		}
	}
	h.logger.Warn("spatial query failed", "source", source, "error", err)
	return datapull.Unavailable("spatialdb", err.Error()), nil
}

// scanRecords converts result rows into generic records keyed by column
// name, decoding JSON columns (ST_AsGeoJSON output) into structured values.
func scanRecords(rows *sql.Rows) ([]datapull.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []datapull.Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := make(datapull.Record, len(cols))
		for i, col := range cols {
			rec[col] = normalizeSQLValue(vals[i])
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func normalizeSQLValue(v any) any {
	switch val := v.(type) {
	case []byte:
		// json/jsonb columns arrive as raw bytes; keep structure when the
		// payload parses, otherwise fall back to the string form.
		if len(val) > 0 && (val[0] == '{' || val[0] == '[') {
			var decoded any
			if err := json.Unmarshal(val, &decoded); err == nil {
				return decoded
			}
		}
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return v
	}
}
