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
	"github.com/robertsoden/naturewatch-go/internal/geo"
)

func newTestAnalytics(apiKey, serverURL string) *AnalyticsHandler {
	h := NewAnalytics(apiKey, time.Second, testLogger())
	h.baseURL = serverURL
	h.client.retryInterval = time.Millisecond
	return h
}

func TestAnalyticsPull(t *testing.T) {
	var got gfwRequest
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/analysis", r.URL.Path)
		gotKey = r.Header.Get("X-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.NoError(t, json.NewEncoder(w).Encode(gfwResponse{
			Status: "success",
			Data: []map[string]any{
				{"year": 2024, "tree_cover_loss_ha": 12.4},
				{"year": 2025, "tree_cover_loss_ha": 9.1},
			},
		}))
	}))
	defer srv.Close()

	h := newTestAnalytics("gfw-key", srv.URL)
	start, end := testRange()

	ds := datapull.Dataset{Metric: "Tree cover loss"}
	res, err := h.Pull(context.Background(), testAOI(t), ds, start, end)
	require.NoError(t, err)

	assert.Equal(t, "gfw-key", gotKey)
	assert.Equal(t, "Tree cover loss", got.Dataset)
	assert.Equal(t, geo.TypePolygon, got.Geometry.Type)
	assert.Equal(t, "2026-06-01", got.StartDate)
	assert.Equal(t, "2026-07-01", got.EndDate)

	assert.True(t, res.Success)
	assert.Equal(t, 2, res.DataPointsCount)
	assert.Equal(t, "GFW", res.SourceUsed)
	assert.Contains(t, res.Message, "Global Forest Watch")
}

func TestAnalyticsPullWithoutKey(t *testing.T) {
	var gotKey []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Values("X-Api-Key")
		require.NoError(t, json.NewEncoder(w).Encode(gfwResponse{Status: "success", Data: []map[string]any{{"v": 1}}}))
	}))
	defer srv.Close()

	// The analytics API is usable anonymously; no key header is sent.
	h := newTestAnalytics("", srv.URL)
	start, end := testRange()

	res, err := h.Pull(context.Background(), testAOI(t), datapull.Dataset{}, start, end)
	require.NoError(t, err)
	assert.Empty(t, gotKey)
	assert.True(t, res.Success)
}

func TestAnalyticsPullDefaultsDataset(t *testing.T) {
	var got gfwRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.NoError(t, json.NewEncoder(w).Encode(gfwResponse{}))
	}))
	defer srv.Close()

	h := newTestAnalytics("", srv.URL)
	start, end := testRange()

	res, err := h.Pull(context.Background(), testAOI(t), datapull.Dataset{}, start, end)
	require.NoError(t, err)

	assert.Equal(t, "Tree cover", got.Dataset)
	assert.True(t, res.Success)
	assert.Zero(t, res.DataPointsCount)
}

func TestAnalyticsPullUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	h := newTestAnalytics("", srv.URL)
	start, end := testRange()

	res, err := h.Pull(context.Background(), testAOI(t), datapull.Dataset{Source: "Tree cover"}, start, end)
	require.NoError(t, err)

	assert.False(t, res.Success)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "GFW unavailable")
}

func TestAnalyticsHandlesEverything(t *testing.T) {
	h := NewAnalytics("", 0, testLogger())
	assert.Equal(t, datapull.GlobalAnalyticsName, h.Name())
	for _, src := range []string{"", "eBird", "WaterAdvisories", "anything"} {
		assert.True(t, h.CanHandle(datapull.Dataset{Source: src}))
	}
}
