package datapull

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertsoden/naturewatch-go/internal/geo"
)

var (
	testStart = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
)

func testAOI() geo.AreaOfInterest {
	return geo.AreaOfInterest{
		Name: "Algonquin Provincial Park",
		Geometry: geo.Geometry{
			Type: geo.TypePolygon,
			Polygon: [][][]float64{{
				{-78.5, 45.5}, {-78.5, 46.0}, {-77.5, 46.0}, {-77.5, 45.5}, {-78.5, 45.5},
			}},
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(noopWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func pullRecords(n int, msg string) func(context.Context, geo.AreaOfInterest, Dataset, time.Time, time.Time) (Result, error) {
	return func(_ context.Context, _ geo.AreaOfInterest, _ Dataset, _, _ time.Time) (Result, error) {
		data := make([]Record, n)
		for i := range data {
			data[i] = Record{"id": i}
		}
		return Records("", data, msg), nil
	}
}

func pullUnavailable(source, reason string) func(context.Context, geo.AreaOfInterest, Dataset, time.Time, time.Time) (Result, error) {
	return func(_ context.Context, _ geo.AreaOfInterest, _ Dataset, _, _ time.Time) (Result, error) {
		return Unavailable(source, reason), nil
	}
}

func TestPullDataFirstHandlerWins(t *testing.T) {
	first := &fakeHandler{name: "spatialdb", pull: pullRecords(3, "Found 3 advisories")}
	second := &fakeHandler{name: "GFW"}

	reg := NewRegistry()
	reg.Register(first)
	reg.Register(second)
	o := NewOrchestrator(reg, DefaultRoutes(), quietLogger())

	res, err := o.PullData(context.Background(), testAOI(), Dataset{Source: "WaterAdvisories"}, testStart, testEnd)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.DataPointsCount)
	assert.Equal(t, "spatialdb", res.SourceUsed)
	assert.NotContains(t, res.Message, "[Using", "no provenance marker for the top-priority source")
	assert.Equal(t, 0, second.calls, "fallback must not run once a handler produced data")
}

func TestPullDataFallsBackOnEmpty(t *testing.T) {
	first := &fakeHandler{name: "eBird", pull: pullUnavailable("eBird", "missing API key")}
	second := &fakeHandler{name: "iNaturalist", pull: pullRecords(2, "Retrieved 2 observations from iNaturalist")}

	reg := NewRegistry()
	reg.Register(first)
	reg.Register(second)
	o := NewOrchestrator(reg, DefaultRoutes(), quietLogger())

	res, err := o.PullData(context.Background(), testAOI(), Dataset{Source: "eBird"}, testStart, testEnd)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "iNaturalist", res.SourceUsed)
	assert.True(t, strings.HasPrefix(res.Message, "[Using fallback source: iNaturalist]"), "got message %q", res.Message)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "eBird unavailable: missing API key")
}

func TestPullDataGlobalFallbackMarker(t *testing.T) {
	first := &fakeHandler{name: "iNaturalist", pull: pullRecords(0, "")}
	global := &fakeHandler{name: GlobalAnalyticsName, pull: pullRecords(1, "Retrieved 1 data point from Global Forest Watch")}

	reg := NewRegistry()
	reg.Register(first)
	reg.Register(global)
	o := NewOrchestrator(reg, DefaultRoutes(), quietLogger())

	res, err := o.PullData(context.Background(), testAOI(), Dataset{Source: "iNaturalist"}, testStart, testEnd)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Message, "[Using global dataset]"), "got message %q", res.Message)
}

func TestPullDataMetricRouteBypassesRegionalHandlers(t *testing.T) {
	regional := &fakeHandler{name: "spatialdb"}
	global := &fakeHandler{name: GlobalAnalyticsName, pull: pullRecords(5, "Retrieved 5 data points")}

	reg := NewRegistry()
	reg.Register(regional)
	reg.Register(global)
	o := NewOrchestrator(reg, DefaultRoutes(), quietLogger())

	res, err := o.PullData(context.Background(), testAOI(), Dataset{Source: "Tree cover"}, testStart, testEnd)
	require.NoError(t, err)

	assert.Equal(t, GlobalAnalyticsName, res.SourceUsed)
	assert.Equal(t, 0, regional.calls, "routed dataset must never reach regional handlers")
	assert.NotContains(t, res.Message, "[Using", "direct route is not a fallback")
}

func TestPullDataNoCandidates(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeHandler{name: "spatialdb", handles: handlesSources("WaterAdvisories")})
	o := NewOrchestrator(reg, DefaultRoutes(), quietLogger())

	res, err := o.PullData(context.Background(), testAOI(), Dataset{Source: "MarsRoverPhotos"}, testStart, testEnd)
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "MarsRoverPhotos")
}

func TestPullDataAllCandidatesEmpty(t *testing.T) {
	first := &fakeHandler{name: "eBird", pull: pullUnavailable("eBird", "missing API key")}
	second := &fakeHandler{name: "iNaturalist", pull: pullRecords(0, "")}
	third := &fakeHandler{name: GlobalAnalyticsName, pull: pullRecords(0, "")}

	reg := NewRegistry()
	reg.Register(first)
	reg.Register(second)
	reg.Register(third)
	o := NewOrchestrator(reg, DefaultRoutes(), quietLogger())

	res, err := o.PullData(context.Background(), testAOI(), Dataset{Source: "eBird"}, testStart, testEnd)
	require.NoError(t, err)

	// Zero data everywhere is not an error: success with an explanatory message.
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.DataPointsCount)
	assert.Empty(t, res.Data)
	assert.Contains(t, res.Message, "Algonquin Provincial Park")
	assert.Contains(t, res.Message, "2024-06-01")
	assert.Contains(t, res.Message, "2024-06-30")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "eBird unavailable")
}

func TestPullDataFatalErrorHaltsChain(t *testing.T) {
	boom := errors.New("malformed query template")
	first := &fakeHandler{
		name: "spatialdb",
		pull: func(context.Context, geo.AreaOfInterest, Dataset, time.Time, time.Time) (Result, error) {
			return Result{}, boom
		},
	}
	second := &fakeHandler{name: GlobalAnalyticsName}

	reg := NewRegistry()
	reg.Register(first)
	reg.Register(second)
	o := NewOrchestrator(reg, DefaultRoutes(), quietLogger())

	_, err := o.PullData(context.Background(), testAOI(), Dataset{Source: "WaterAdvisories"}, testStart, testEnd)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 0, second.calls, "fatal error must halt the state machine")
}

func TestPullDataInvalidGeometryBeforeHandlers(t *testing.T) {
	h := &fakeHandler{name: "spatialdb"}
	reg := NewRegistry()
	reg.Register(h)
	o := NewOrchestrator(reg, DefaultRoutes(), quietLogger())

	aoi := geo.AreaOfInterest{Geometry: geo.Geometry{Type: geo.TypePolygon}}
	_, err := o.PullData(context.Background(), aoi, Dataset{Source: "WaterAdvisories"}, testStart, testEnd)

	require.Error(t, err)
	assert.True(t, errors.Is(err, geo.ErrInvalidGeometry))
	assert.Equal(t, 0, h.calls, "no handler may run for a malformed AOI")
}

func TestPullDataCancellationAbandonsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := &fakeHandler{
		name: "eBird",
		pull: func(context.Context, geo.AreaOfInterest, Dataset, time.Time, time.Time) (Result, error) {
			cancel() // caller aborts while the first attempt is in flight
			return NoData("eBird", "nothing"), nil
		},
	}
	second := &fakeHandler{name: GlobalAnalyticsName}

	reg := NewRegistry()
	reg.Register(first)
	reg.Register(second)
	o := NewOrchestrator(reg, DefaultRoutes(), quietLogger())

	_, err := o.PullData(ctx, testAOI(), Dataset{Source: "eBird"}, testStart, testEnd)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, second.calls)
}

type countingRecorder struct {
	attempts map[string]string
	pulls    int
	fellBack int
}

func (c *countingRecorder) RecordAttempt(source, outcome string, _ time.Duration) {
	if c.attempts == nil {
		c.attempts = map[string]string{}
	}
	c.attempts[source] = outcome
}

func (c *countingRecorder) RecordPull(fellBack bool) {
	c.pulls++
	if fellBack {
		c.fellBack++
	}
}

func TestPullDataRecordsMetrics(t *testing.T) {
	rec := &countingRecorder{}

	first := &fakeHandler{name: "eBird", pull: pullUnavailable("eBird", "missing API key")}
	second := &fakeHandler{name: "iNaturalist", pull: pullRecords(1, "ok")}

	reg := NewRegistry()
	reg.Register(first)
	reg.Register(second)
	o := NewOrchestrator(reg, DefaultRoutes(), quietLogger(), WithRecorder(rec))

	_, err := o.PullData(context.Background(), testAOI(), Dataset{Source: "eBird"}, testStart, testEnd)
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnavailable, rec.attempts["eBird"])
	assert.Equal(t, OutcomeHit, rec.attempts["iNaturalist"])
	assert.Equal(t, 1, rec.pulls)
	assert.Equal(t, 1, rec.fellBack)
}

func TestPullDataIdempotent(t *testing.T) {
	h := &fakeHandler{name: "spatialdb", pull: pullRecords(4, "Found 4 rows")}
	reg := NewRegistry()
	reg.Register(h)
	o := NewOrchestrator(reg, DefaultRoutes(), quietLogger())

	a, err := o.PullData(context.Background(), testAOI(), Dataset{Source: "WaterAdvisories"}, testStart, testEnd)
	require.NoError(t, err)
	b, err := o.PullData(context.Background(), testAOI(), Dataset{Source: "WaterAdvisories"}, testStart, testEnd)
	require.NoError(t, err)

	assert.Equal(t, a.DataPointsCount, b.DataPointsCount)
	assert.Equal(t, a.SourceUsed, b.SourceUsed)
}
