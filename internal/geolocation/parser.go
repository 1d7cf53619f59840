// Package geolocation converts browser Geolocation API payloads into coordinates.
package geolocation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/UnknownOlympus/isomap/internal/models"
)

// Parse converts a payload shaped like {"coords": {"latitude": .., "longitude": ..}}
// into Coordinates.
//
// A nil payload means the browser shared no position and yields (nil, nil), as does
// a payload that only carries the browser's "error" object (permission denied,
// position unavailable). Missing or non-numeric latitude/longitude, out-of-range
// values, and non-numeric optional fields fail with models.ErrMalformedInput.
func Parse(payload map[string]any) (*models.Coordinates, error) {
	if payload == nil {
		return nil, nil
	}

	rawCoords, ok := payload["coords"]
	if !ok {
		if _, denied := payload["error"]; denied {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: missing coords", models.ErrMalformedInput)
	}

	fields, ok := rawCoords.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: coords is %T, not an object", models.ErrMalformedInput, rawCoords)
	}

	lat, err := required(fields, "latitude")
	if err != nil {
		return nil, err
	}
	lon, err := required(fields, "longitude")
	if err != nil {
		return nil, err
	}

	coords, err := models.NewCoordinates(lat, lon)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrMalformedInput, err)
	}

	for key, dst := range map[string]**float64{
		"accuracy":         &coords.Accuracy,
		"altitude":         &coords.Altitude,
		"altitudeAccuracy": &coords.AltitudeAccuracy,
		"heading":          &coords.Heading,
		"speed":            &coords.Speed,
	} {
		if *dst, err = optional(fields, key); err != nil {
			return nil, err
		}
	}

	return &coords, nil
}

// ParseJSON decodes raw JSON and parses it. Empty input and JSON null are absence.
func ParseJSON(raw []byte) (*models.Coordinates, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrMalformedInput, err)
	}

	return Parse(payload)
}

func required(fields map[string]any, key string) (float64, error) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: missing coords.%s", models.ErrMalformedInput, key)
	}

	value, ok := toFloat(raw)
	if !ok {
		return 0, fmt.Errorf("%w: coords.%s is not a number: %v", models.ErrMalformedInput, key, raw)
	}

	return value, nil
}

func optional(fields map[string]any, key string) (*float64, error) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return nil, nil
	}

	value, ok := toFloat(raw)
	if !ok {
		return nil, fmt.Errorf("%w: coords.%s is not a number: %v", models.ErrMalformedInput, key, raw)
	}

	return &value, nil
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
