// Package geo provides the area-of-interest model and pure geometry helpers:
// bounding-box resolution, WKT conversion for PostGIS filters, and
// point-in-bounds checks. Nothing in this package performs I/O.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidGeometry indicates an AOI geometry that cannot be resolved:
// empty coordinates, non-finite values, or coordinates outside the valid
// latitude/longitude range. Callers treat this as fatal; no data source
// can repair a malformed AOI.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Geometry kinds supported for an area of interest.
const (
	TypePoint        = "Point"
	TypePolygon      = "Polygon"
	TypeMultiPolygon = "MultiPolygon"
)

// Geometry is a GeoJSON-compatible geometry. Exactly one of the coordinate
// fields is populated, matching Type. Coordinates are [longitude, latitude]
// pairs, GeoJSON order.
type Geometry struct {
	Type         string
	Point        []float64
	Polygon      [][][]float64
	MultiPolygon [][][][]float64
}

// AreaOfInterest scopes one data pull to a geographic area. Immutable once
// constructed; owned by the caller for the duration of a single pull.
type AreaOfInterest struct {
	Name       string
	SourceID   string // upstream geometry table the area came from, if any
	Geometry   Geometry
	Subregions []AreaOfInterest
}

// Bounds is a geographic bounding box. Invariant: MinLat <= MaxLat and
// MinLon <= MaxLon for any Bounds produced by Geometry.Bounds.
type Bounds struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Contains reports whether the point lies inside the box, edges inclusive.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Bounds computes the bounding box of the geometry. A Point yields a
// degenerate box (MinLat == MaxLat). For MultiPolygon the box covers the
// union of all rings.
func (g Geometry) Bounds() (Bounds, error) {
	coords, err := g.flatten()
	if err != nil {
		return Bounds{}, err
	}

	b := Bounds{MinLat: math.MaxFloat64, MinLon: math.MaxFloat64, MaxLat: -math.MaxFloat64, MaxLon: -math.MaxFloat64}
	for _, c := range coords {
		lon, lat := c[0], c[1]
		b.MinLat = math.Min(b.MinLat, lat)
		b.MaxLat = math.Max(b.MaxLat, lat)
		b.MinLon = math.Min(b.MinLon, lon)
		b.MaxLon = math.Max(b.MaxLon, lon)
	}
	return b, nil
}

// flatten collects every coordinate pair of the geometry, validating each.
func (g Geometry) flatten() ([][]float64, error) {
	var coords [][]float64

	switch g.Type {
	case TypePoint:
		coords = append(coords, g.Point)
	case TypePolygon:
		for _, ring := range g.Polygon {
			coords = append(coords, ring...)
		}
	case TypeMultiPolygon:
		for _, poly := range g.MultiPolygon {
			for _, ring := range poly {
				coords = append(coords, ring...)
			}
		}
	default:
		return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidGeometry, g.Type)
	}

	if len(coords) == 0 {
		return nil, fmt.Errorf("%w: empty coordinates", ErrInvalidGeometry)
	}
	for _, c := range coords {
		if err := validateCoord(c); err != nil {
			return nil, err
		}
	}
	return coords, nil
}

func validateCoord(c []float64) error {
	if len(c) < 2 {
		return fmt.Errorf("%w: coordinate has %d components", ErrInvalidGeometry, len(c))
	}
	lon, lat := c[0], c[1]
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return fmt.Errorf("%w: non-finite coordinate", ErrInvalidGeometry)
	}
	if math.Abs(lat) > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidGeometry, lat)
	}
	if math.Abs(lon) > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidGeometry, lon)
	}
	return nil
}

// WKT renders the geometry as well-known text suitable for
// ST_GeomFromText. Coordinates are emitted in "lon lat" order.
func (g Geometry) WKT() (string, error) {
	if _, err := g.flatten(); err != nil {
		return "", err
	}

	switch g.Type {
	case TypePoint:
		return fmt.Sprintf("POINT(%v %v)", g.Point[0], g.Point[1]), nil
	case TypePolygon:
		return "POLYGON" + wktRings(g.Polygon), nil
	case TypeMultiPolygon:
		parts := make([]string, len(g.MultiPolygon))
		for i, poly := range g.MultiPolygon {
			parts[i] = wktRings(poly)
		}
		return "MULTIPOLYGON(" + strings.Join(parts, ", ") + ")", nil
	}
	return "", fmt.Errorf("%w: unsupported type %q", ErrInvalidGeometry, g.Type)
}

func wktRings(rings [][][]float64) string {
	parts := make([]string, len(rings))
	for i, ring := range rings {
		pts := make([]string, len(ring))
		for j, c := range ring {
			pts[j] = fmt.Sprintf("%v %v", c[0], c[1])
		}
		parts[i] = "(" + strings.Join(pts, ", ") + ")"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// geoJSON is the wire form of Geometry.
type geoJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// MarshalJSON encodes the geometry as standard GeoJSON.
func (g Geometry) MarshalJSON() ([]byte, error) {
	var coords any
	switch g.Type {
	case TypePoint:
		coords = g.Point
	case TypePolygon:
		coords = g.Polygon
	case TypeMultiPolygon:
		coords = g.MultiPolygon
	default:
		return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidGeometry, g.Type)
	}
	raw, err := json.Marshal(coords)
	if err != nil {
		return nil, err
	}
	return json.Marshal(geoJSON{Type: g.Type, Coordinates: raw})
}

// UnmarshalJSON decodes standard GeoJSON into the typed coordinate field
// matching the declared type.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var wire geoJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	g.Type = wire.Type

	switch wire.Type {
	case TypePoint:
		return json.Unmarshal(wire.Coordinates, &g.Point)
	case TypePolygon:
		return json.Unmarshal(wire.Coordinates, &g.Polygon)
	case TypeMultiPolygon:
		return json.Unmarshal(wire.Coordinates, &g.MultiPolygon)
	}
	return fmt.Errorf("%w: unsupported type %q", ErrInvalidGeometry, wire.Type)
}

// NewPoint builds a Point geometry from a lon/lat pair.
func NewPoint(lon, lat float64) Geometry {
	return Geometry{Type: TypePoint, Point: []float64{lon, lat}}
}

// NewBoxPolygon builds a rectangular Polygon covering the bounds, closed
// ring in counter-clockwise order.
func NewBoxPolygon(b Bounds) Geometry {
	return Geometry{
		Type: TypePolygon,
		Polygon: [][][]float64{{
			{b.MinLon, b.MinLat},
			{b.MaxLon, b.MinLat},
			{b.MaxLon, b.MaxLat},
			{b.MinLon, b.MaxLat},
			{b.MinLon, b.MinLat},
		}},
	}
}
