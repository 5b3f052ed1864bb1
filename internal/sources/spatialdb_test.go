package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertsoden/naturewatch-go/internal/datapull"
	"github.com/robertsoden/naturewatch-go/internal/geo"
)

func TestSpatialDBCanHandle(t *testing.T) {
	h := NewSpatialDB(nil, 0, testLogger())
	for _, src := range []string{"WaterAdvisories", "FireIncidents", "Infrastructure", "CommunityWellbeing"} {
		assert.True(t, h.CanHandle(datapull.Dataset{Source: src}), src)
	}
	assert.False(t, h.CanHandle(datapull.Dataset{Source: "eBird"}))
	assert.False(t, h.CanHandle(datapull.Dataset{Source: ""}))
}

func TestSpatialDBPullWithoutDatabase(t *testing.T) {
	h := NewSpatialDB(nil, 0, testLogger())
	start, end := testRange()

	res, err := h.Pull(context.Background(), testAOI(t), datapull.Dataset{Source: "WaterAdvisories"}, start, end)
	require.NoError(t, err)

	assert.False(t, res.Success)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "not configured")
}

func TestSpatialDBPullUnknownSource(t *testing.T) {
	h := NewSpatialDB(nil, 0, testLogger())
	start, end := testRange()

	_, err := h.Pull(context.Background(), testAOI(t), datapull.Dataset{Source: "eBird"}, start, end)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot serve")
}

func TestSpatialDBClassifyQueryError(t *testing.T) {
	h := NewSpatialDB(nil, 0, testLogger())

	t.Run("missing table is recoverable", func(t *testing.T) {
		res, err := h.classifyQueryError("WaterAdvisories", &pq.Error{Code: "42P01", Message: "relation does not exist"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "spatialdb", res.SourceUsed)
	})

	t.Run("syntax error is fatal", func(t *testing.T) {
		_, err := h.classifyQueryError("WaterAdvisories", &pq.Error{Code: "42601", Message: "syntax error"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed spatial query")
	})

	t.Run("connection trouble is recoverable", func(t *testing.T) {
		res, err := h.classifyQueryError("FireIncidents", errors.New("dial tcp: connection refused"))
		require.NoError(t, err)
		assert.False(t, res.Success)
		require.Len(t, res.Warnings, 1)
	})

	t.Run("timeout is recoverable", func(t *testing.T) {
		res, err := h.classifyQueryError("FireIncidents", context.DeadlineExceeded)
		require.NoError(t, err)
		assert.False(t, res.Success)
	})
}

func TestNormalizeSQLValue(t *testing.T) {
	geoJSON := []byte(`{"type":"Point","coordinates":[-78.0,45.8]}`)
	decoded, ok := normalizeSQLValue(geoJSON).(map[string]any)
	require.True(t, ok, "json bytes should decode to structured value")
	assert.Equal(t, "Point", decoded["type"])

	assert.Equal(t, "Curve Lake", normalizeSQLValue([]byte("Curve Lake")))
	assert.Equal(t, "{not json", normalizeSQLValue([]byte("{not json")))

	ts := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-06-01T12:00:00Z", normalizeSQLValue(ts))

	assert.Equal(t, int64(7), normalizeSQLValue(int64(7)))
	assert.Nil(t, normalizeSQLValue(nil))
}

func TestSpatialDBRejectsBadGeometry(t *testing.T) {
	h := NewSpatialDB(nil, 0, testLogger())
	start, end := testRange()

	aoi := geo.AreaOfInterest{Name: "broken", Geometry: geo.Geometry{Type: geo.TypePolygon}}
	_, err := h.Pull(context.Background(), aoi, datapull.Dataset{Source: "CommunityWellbeing"}, start, end)
	require.ErrorIs(t, err, geo.ErrInvalidGeometry)
}
