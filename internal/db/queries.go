package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/robertsoden/naturewatch-go/internal/geo"
)

// areaLookupQuery matches a named area across the three boundary tables.
// Shorter names rank first so "Algonquin" prefers "Algonquin Provincial
// Park" over longer compound names; parks beat conservation authorities
// beat First Nations when names collide.
const areaLookupQuery = `
	SELECT name, source, ST_AsGeoJSON(geometry) FROM (
		SELECT park_name AS name, 'ontario_parks' AS source, geometry, 1 AS source_rank
		FROM ontario_parks
		WHERE park_name ILIKE '%' || $1 || '%'
		UNION ALL
		SELECT authority_name, 'ontario_conservation_authorities', geometry, 2
		FROM ontario_conservation_authorities
		WHERE authority_name ILIKE '%' || $1 || '%'
		UNION ALL
		SELECT community_name, 'ontario_first_nations', geometry, 3
		FROM ontario_first_nations
		WHERE community_name ILIKE '%' || $1 || '%'
	) areas
	ORDER BY source_rank, length(name)
	LIMIT 1`

const areaListQuery = `
	SELECT park_name, 'ontario_parks' FROM ontario_parks
	UNION ALL
	SELECT authority_name, 'ontario_conservation_authorities' FROM ontario_conservation_authorities
	UNION ALL
	SELECT community_name, 'ontario_first_nations' FROM ontario_first_nations
	ORDER BY 1`

// LookupArea resolves a named area (park, conservation authority or First
// Nation) to its boundary geometry. Matching is case-insensitive and
// partial. Returns ErrAreaNotFound when nothing matches.
func (c *Client) LookupArea(ctx context.Context, name string) (geo.AreaOfInterest, error) {
	var (
		matched string
		source  string
		geoJSON []byte
	)
	err := c.db.QueryRowContext(ctx, areaLookupQuery, name).Scan(&matched, &source, &geoJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return geo.AreaOfInterest{}, fmt.Errorf("lookup area %q: %w", name, ErrAreaNotFound)
	}
	if err != nil {
		return geo.AreaOfInterest{}, fmt.Errorf("lookup area %q: %w", name, err)
	}

	var g geo.Geometry
	if err := json.Unmarshal(geoJSON, &g); err != nil {
		return geo.AreaOfInterest{}, fmt.Errorf("decode area geometry for %q: %w", matched, err)
	}

	c.logger.Debug("resolved area", "query", name, "matched", matched, "source", source)
	return geo.AreaOfInterest{Name: matched, SourceID: source, Geometry: g}, nil
}

// NamedArea is one row of the area listing.
type NamedArea struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// ListAreas returns every resolvable area name.
func (c *Client) ListAreas(ctx context.Context) ([]NamedArea, error) {
	rows, err := c.db.QueryContext(ctx, areaListQuery)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	defer rows.Close()

	var areas []NamedArea
	for rows.Next() {
		var a NamedArea
		if err := rows.Scan(&a.Name, &a.Source); err != nil {
			return nil, fmt.Errorf("scan area: %w", err)
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}
