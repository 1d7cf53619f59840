package models

import (
	"fmt"
	"math"
)

// Coordinates represents a geographical point defined by its latitude and longitude.
// The optional fields are only set for positions reported by a browser.
type Coordinates struct {
	Latitude         float64  `json:"latitude"`                    // Latitude of the geographical point.
	Longitude        float64  `json:"longitude"`                   // Longitude of the geographical point.
	Accuracy         *float64 `json:"accuracy,omitempty"`          // Accuracy radius in meters.
	Altitude         *float64 `json:"altitude,omitempty"`          // Altitude in meters.
	AltitudeAccuracy *float64 `json:"altitude_accuracy,omitempty"` // Altitude accuracy in meters.
	Heading          *float64 `json:"heading,omitempty"`           // Heading in degrees clockwise from north.
	Speed            *float64 `json:"speed,omitempty"`             // Speed in meters per second.
}

// NewCoordinates returns a point after checking that latitude lies in [-90, 90]
// and longitude in [-180, 180].
func NewCoordinates(lat, lon float64) (Coordinates, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return Coordinates{}, fmt.Errorf("%w: latitude %v", ErrOutOfRange, lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return Coordinates{}, fmt.Errorf("%w: longitude %v", ErrOutOfRange, lon)
	}

	return Coordinates{Latitude: lat, Longitude: lon}, nil
}

// FromLonLat converts a provider [lon, lat] pair into Coordinates.
func FromLonLat(pair []float64) (Coordinates, error) {
	const pairLength = 2
	if len(pair) < pairLength {
		return Coordinates{}, fmt.Errorf("%w: expected [lon, lat], got %v", ErrOutOfRange, pair)
	}

	return NewCoordinates(pair[1], pair[0])
}

// LonLat returns the point in the [lon, lat] order used by GeoJSON providers.
func (c Coordinates) LonLat() [2]float64 {
	return [2]float64{c.Longitude, c.Latitude}
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Latitude, c.Longitude)
}
