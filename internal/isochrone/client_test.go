package isochrone_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/UnknownOlympus/isomap/internal/isochrone"
	"github.com/UnknownOlympus/isomap/internal/metrics"
	"github.com/UnknownOlympus/isomap/internal/models"
	"github.com/UnknownOlympus/isomap/internal/ors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient is a mock implementation of HTTPClient for testing.
type mockHTTPClient struct {
	calls  int
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.calls++
	return m.doFunc(req)
}

const philadelphiaResponse = `{
	"type": "FeatureCollection",
	"features": [{
		"type": "Feature",
		"properties": {
			"group_index": 0, "value": 1800.0, "center": [-75.0, 40.0],
			"area": 1234567.8, "reachfactor": 0.4567, "total_pop": 98765.0
		},
		"geometry": {"type": "Polygon", "coordinates": [[
			[-75.1, 40.0], [-75.0, 40.1], [-74.9, 40.0], [-75.0, 39.9], [-75.1, 40.0]
		]]}
	}]
}`

func newTestClient(t *testing.T, httpClient ors.HTTPClient) (*isochrone.Client, *metrics.Metrics) {
	t.Helper()
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())
	orsClient, err := ors.NewClient(ors.Config{
		APIKey:     "test-api-key",
		HTTPClient: httpClient,
		Logger:     slog.Default(),
		Metrics:    appMetrics,
	})
	require.NoError(t, err)

	client, err := isochrone.NewClient(orsClient, slog.Default(), appMetrics)
	require.NoError(t, err)

	return client, appMetrics
}

func respond(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(body))}
}

func TestClient_Fetch(t *testing.T) {
	ctx := t.Context()
	center := models.Coordinates{Latitude: 40.0, Longitude: -75.0}

	t.Run("driving-car 1800 seconds", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, http.MethodPost, req.Method)
			assert.Equal(t, "/v2/isochrones/driving-car", req.URL.Path)
			assert.Equal(t, "test-api-key", req.Header.Get("Authorization"))

			var body struct {
				Locations  [][]float64 `json:"locations"`
				Range      []int       `json:"range"`
				Attributes []string    `json:"attributes"`
			}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, []int{1800}, body.Range)
			assert.Equal(t, [][]float64{{-75.0, 40.0}}, body.Locations)
			assert.Equal(t, []string{"area", "reachfactor", "total_pop"}, body.Attributes)

			return respond(http.StatusOK, philadelphiaResponse), nil
		}}
		client, appMetrics := newTestClient(t, mockClient)

		iso, err := client.Fetch(ctx, center, models.ProfileDriving, 1800)

		require.NoError(t, err)
		require.NotNil(t, iso)
		assert.Equal(t, models.ProfileDriving, iso.Profile)
		assert.Equal(t, 1800, iso.RangeSeconds)
		require.Len(t, iso.Polygon, 5)
		assert.InDelta(t, 40.0, iso.Polygon[0].Latitude, 1e-9)
		assert.InDelta(t, -75.1, iso.Polygon[0].Longitude, 1e-9)
		assert.Equal(t, iso.Polygon[0], iso.Polygon[len(iso.Polygon)-1])
		assert.Equal(t, map[string]float64{
			"area":        1234567.8,
			"reachfactor": 0.4567,
			"total_pop":   98765.0,
		}, iso.Properties)
		assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.Isochrones.WithLabelValues("driving-car", "ok")), 0)
	})

	t.Run("invalid profile fails before any request", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: func(_ *http.Request) (*http.Response, error) {
			t.Fatal("HTTP client should not be called for an invalid profile")
			return nil, nil
		}}
		client, _ := newTestClient(t, mockClient)

		for _, profile := range []models.Profile{"driving-hgv", "", "Driving", "cycling-road"} {
			iso, err := client.Fetch(ctx, center, profile, 1800)

			require.ErrorIs(t, err, models.ErrInvalidProfile)
			assert.Nil(t, iso)
		}
		assert.Zero(t, mockClient.calls)
	})

	t.Run("non-positive range fails before any request", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: func(_ *http.Request) (*http.Response, error) {
			t.Fatal("HTTP client should not be called for an invalid range")
			return nil, nil
		}}
		client, _ := newTestClient(t, mockClient)

		_, err := client.Fetch(ctx, center, models.ProfileWalking, 0)

		require.ErrorIs(t, err, isochrone.ErrInvalidRange)
	})

	t.Run("open ring is closed", func(t *testing.T) {
		body := `{"features":[{"properties":{"area":1,"reachfactor":0.5,"total_pop":2},
			"geometry":{"coordinates":[[[-75.1,40.0],[-75.0,40.1],[-74.9,40.0]]]}}]}`
		client, _ := newTestClient(t, &mockHTTPClient{doFunc: func(_ *http.Request) (*http.Response, error) {
			return respond(http.StatusOK, body), nil
		}})

		iso, err := client.Fetch(ctx, center, models.ProfileCycling, 900)

		require.NoError(t, err)
		require.Len(t, iso.Polygon, 4)
		assert.Equal(t, iso.Polygon[0], iso.Polygon[3])
	})

	failures := []struct {
		name   string
		status int
		body   string
		msg    string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"code":3099,"message":"Unknown"}}`, "status 500"},
		{"quota exceeded", http.StatusTooManyRequests, `{"error":"Rate limit exceeded"}`, "status 429"},
		{"not json", http.StatusOK, `<html></html>`, "failed to decode"},
		{"no features", http.StatusOK, `{"type":"FeatureCollection","features":[]}`, "features[0]"},
		{"no geometry", http.StatusOK, `{"features":[{"properties":{}}]}`, "geometry.coordinates[0]"},
		{"empty ring", http.StatusOK, `{"features":[{"geometry":{"coordinates":[[]]}}]}`, "geometry.coordinates[0]"},
		{
			"short pair", http.StatusOK,
			`{"features":[{"properties":{"area":1,"reachfactor":1,"total_pop":1},"geometry":{"coordinates":[[[1]]]}}]}`,
			"ring point 0",
		},
		{
			"missing attribute", http.StatusOK,
			`{"features":[{"properties":{"area":1,"reachfactor":1},"geometry":{"coordinates":[[[1,2],[2,3],[1,2]]]}}]}`,
			`"total_pop"`,
		},
		{
			"non-numeric attribute", http.StatusOK,
			`{"features":[{"properties":{"area":"big","reachfactor":1,"total_pop":1},"geometry":{"coordinates":[[[1,2],[2,3],[1,2]]]}}]}`,
			"not numeric",
		},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			client, appMetrics := newTestClient(t, &mockHTTPClient{doFunc: func(_ *http.Request) (*http.Response, error) {
				return respond(tt.status, tt.body), nil
			}})

			iso, err := client.Fetch(ctx, center, models.ProfileWheelchair, 600)

			require.Error(t, err)
			assert.Nil(t, iso)
			var perr *models.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "wheelchair", perr.Profile)
			assert.Equal(t, "/v2/isochrones/wheelchair", perr.Endpoint)
			assert.Contains(t, err.Error(), tt.msg)
			assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.Isochrones.WithLabelValues("wheelchair", "error")), 0)
		})
	}

	t.Run("network failure", func(t *testing.T) {
		client, _ := newTestClient(t, &mockHTTPClient{doFunc: func(_ *http.Request) (*http.Response, error) {
			return nil, context.DeadlineExceeded
		}})

		_, err := client.Fetch(ctx, center, models.ProfileDriving, 600)

		var perr *models.ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "driving-car", perr.Profile)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestClient_ExtraPropertiesAreDropped(t *testing.T) {
	client, _ := newTestClient(t, &mockHTTPClient{doFunc: func(_ *http.Request) (*http.Response, error) {
		return respond(http.StatusOK, philadelphiaResponse), nil
	}})

	iso, err := client.Fetch(t.Context(), models.Coordinates{Latitude: 40, Longitude: -75}, models.ProfileDriving, 1800)

	require.NoError(t, err)
	assert.Len(t, iso.Properties, 3)
	assert.NotContains(t, iso.Properties, "group_index")
	assert.NotContains(t, iso.Properties, "value")
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "/v2/isochrones/foot-walking", isochrone.Endpoint(models.ProfileWalking))
}
