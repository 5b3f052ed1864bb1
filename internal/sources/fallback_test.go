package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertsoden/naturewatch-go/internal/datapull"
)

// Tests the full chain with real handlers: an eBird request with no API key
// configured falls through to iNaturalist, which serves bird observations
// with the fallback marker and the failure warning attached.
func TestFallbackEBirdToINaturalist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Aves", r.URL.Query().Get("iconic_taxa"))
		require.NoError(t, json.NewEncoder(w).Encode(inatBody(301)))
	}))
	defer srv.Close()

	reg := datapull.NewRegistry()
	reg.Register(NewEBird("", "", time.Second, testLogger()))
	reg.Register(newTestINaturalist(srv.URL))

	orch := datapull.NewOrchestrator(reg, datapull.DefaultRoutes(), testLogger())
	start, end := testRange()

	res, err := orch.PullData(context.Background(), testAOI(t), datapull.Dataset{Source: "eBird"}, start, end)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.DataPointsCount)
	assert.Equal(t, "iNaturalist", res.SourceUsed)
	assert.Contains(t, res.Message, "[Using fallback source: iNaturalist]")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "eBird unavailable: missing API key")
}

// A regional miss lands on the global analytics service and the result is
// marked as coming from the global dataset.
func TestFallbackToGlobalAnalytics(t *testing.T) {
	gfwSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(gfwResponse{
			Status: "success",
			Data:   []map[string]any{{"tree_cover_pct": 71.2}},
		}))
	}))
	defer gfwSrv.Close()

	reg := datapull.NewRegistry()
	reg.Register(NewSpatialDB(nil, 0, testLogger()))
	reg.Register(newTestAnalytics("", gfwSrv.URL))

	orch := datapull.NewOrchestrator(reg, datapull.DefaultRoutes(), testLogger())
	start, end := testRange()

	res, err := orch.PullData(context.Background(), testAOI(t), datapull.Dataset{Source: "WaterAdvisories"}, start, end)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, datapull.GlobalAnalyticsName, res.SourceUsed)
	assert.Contains(t, res.Message, "[Using global dataset]")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "spatialdb unavailable")
}

// A routed forest metric goes straight to the analytics handler without
// touching the regional chain, so no fallback marker is added.
func TestMetricRouteBypassesRegionalHandlers(t *testing.T) {
	gfwSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(gfwResponse{
			Status: "success",
			Data:   []map[string]any{{"loss_ha": 4.2}},
		}))
	}))
	defer gfwSrv.Close()

	inatSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("regional handler must not be called for a routed metric")
	}))
	defer inatSrv.Close()

	reg := datapull.NewRegistry()
	reg.Register(newTestINaturalist(inatSrv.URL))
	reg.Register(newTestAnalytics("", gfwSrv.URL))

	orch := datapull.NewOrchestrator(reg, datapull.DefaultRoutes(), testLogger())
	start, end := testRange()

	res, err := orch.PullData(context.Background(), testAOI(t), datapull.Dataset{Metric: "tree_loss"}, start, end)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, datapull.GlobalAnalyticsName, res.SourceUsed)
	assert.NotContains(t, res.Message, "[Using")
	assert.Empty(t, res.Warnings)
}
