package geolocation_test

import (
	"encoding/json"
	"testing"

	"github.com/UnknownOlympus/isomap/internal/geolocation"
	"github.com/UnknownOlympus/isomap/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("absent payload", func(t *testing.T) {
		coords, err := geolocation.Parse(nil)

		require.NoError(t, err)
		assert.Nil(t, coords)
	})

	t.Run("latitude and longitude only", func(t *testing.T) {
		payload := map[string]any{"coords": map[string]any{"latitude": 40.0, "longitude": -75.0}}

		coords, err := geolocation.Parse(payload)

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InDelta(t, 40.0, coords.Latitude, 1e-9)
		assert.InDelta(t, -75.0, coords.Longitude, 1e-9)
		assert.Nil(t, coords.Accuracy)
		assert.Nil(t, coords.Altitude)
		assert.Nil(t, coords.AltitudeAccuracy)
		assert.Nil(t, coords.Heading)
		assert.Nil(t, coords.Speed)
	})

	t.Run("optional fields", func(t *testing.T) {
		payload := map[string]any{"coords": map[string]any{
			"latitude":         48.85,
			"longitude":        2.35,
			"accuracy":         12,
			"altitude":         nil,
			"altitudeAccuracy": json.Number("3.5"),
			"heading":          float32(90),
			"speed":            int64(2),
		}}

		coords, err := geolocation.Parse(payload)

		require.NoError(t, err)
		require.NotNil(t, coords.Accuracy)
		assert.InDelta(t, 12.0, *coords.Accuracy, 1e-9)
		assert.Nil(t, coords.Altitude)
		require.NotNil(t, coords.AltitudeAccuracy)
		assert.InDelta(t, 3.5, *coords.AltitudeAccuracy, 1e-9)
		require.NotNil(t, coords.Heading)
		assert.InDelta(t, 90.0, *coords.Heading, 1e-9)
		require.NotNil(t, coords.Speed)
		assert.InDelta(t, 2.0, *coords.Speed, 1e-9)
	})

	t.Run("empty object", func(t *testing.T) {
		coords, err := geolocation.Parse(map[string]any{})

		require.ErrorIs(t, err, models.ErrMalformedInput)
		assert.Nil(t, coords)
		assert.Contains(t, err.Error(), "missing coords")
	})

	t.Run("permission denied", func(t *testing.T) {
		payload := map[string]any{"error": map[string]any{"code": 1, "message": "User denied Geolocation"}}

		coords, err := geolocation.Parse(payload)

		require.NoError(t, err)
		assert.Nil(t, coords)
	})

	malformed := []struct {
		name    string
		payload map[string]any
		msg     string
	}{
		{"missing coords", map[string]any{"timestamp": 1}, "missing coords"},
		{"coords not an object", map[string]any{"coords": "40,-75"}, "not an object"},
		{"missing latitude", map[string]any{"coords": map[string]any{"longitude": 1.0}}, "coords.latitude"},
		{"missing longitude", map[string]any{"coords": map[string]any{"latitude": 1.0}}, "coords.longitude"},
		{
			"non-numeric latitude",
			map[string]any{"coords": map[string]any{"latitude": "40", "longitude": 1.0}},
			"coords.latitude is not a number",
		},
		{
			"null longitude",
			map[string]any{"coords": map[string]any{"latitude": 40.0, "longitude": nil}},
			"coords.longitude",
		},
		{
			"out of range",
			map[string]any{"coords": map[string]any{"latitude": 91.0, "longitude": 0.0}},
			"latitude",
		},
		{
			"non-numeric optional",
			map[string]any{"coords": map[string]any{"latitude": 1.0, "longitude": 1.0, "speed": "fast"}},
			"coords.speed",
		},
	}
	for _, tt := range malformed {
		t.Run(tt.name, func(t *testing.T) {
			coords, err := geolocation.Parse(tt.payload)

			require.ErrorIs(t, err, models.ErrMalformedInput)
			assert.Nil(t, coords)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseJSON(t *testing.T) {
	t.Run("null", func(t *testing.T) {
		coords, err := geolocation.ParseJSON([]byte(" null "))

		require.NoError(t, err)
		assert.Nil(t, coords)
	})

	t.Run("empty", func(t *testing.T) {
		coords, err := geolocation.ParseJSON(nil)

		require.NoError(t, err)
		assert.Nil(t, coords)
	})

	t.Run("browser payload", func(t *testing.T) {
		raw := `{"coords":{"latitude":50.45,"longitude":30.52,"accuracy":20,"altitude":null},"timestamp":1700000000}`

		coords, err := geolocation.ParseJSON([]byte(raw))

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InDelta(t, 50.45, coords.Latitude, 1e-9)
		assert.InDelta(t, 30.52, coords.Longitude, 1e-9)
		require.NotNil(t, coords.Accuracy)
		assert.Nil(t, coords.Altitude)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := geolocation.ParseJSON([]byte(`{"coords":`))

		require.ErrorIs(t, err, models.ErrMalformedInput)
	})
}
