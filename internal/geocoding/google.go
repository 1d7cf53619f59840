package geocoding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/isomap/internal/models"
	"googlemaps.github.io/maps"
)

// googleFocusSpan is the half-size in degrees of the bounds used to bias results.
const googleFocusSpan = 0.5

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider initializes a new GoogleProvider with the given client and logger.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Search geocodes text with the Google Maps Geocoding API. A focus point becomes a
// bounds bias around it. An empty result is ErrNoMatch.
func (gp *GoogleProvider) Search(
	ctx context.Context,
	text string,
	focus *models.Coordinates,
) (*models.Coordinates, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "text", text, "focus", focus != nil)

	req := maps.GeocodingRequest{Address: text}
	if focus != nil {
		req.Bounds = &maps.LatLngBounds{
			NorthEast: maps.LatLng{Lat: focus.Latitude + googleFocusSpan, Lng: focus.Longitude + googleFocusSpan},
			SouthWest: maps.LatLng{Lat: focus.Latitude - googleFocusSpan, Lng: focus.Longitude - googleFocusSpan},
		}
	}

	geocodeResponse, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, models.NewProviderError("google", "geocode", 0, nil, fmt.Errorf("failed to geocode address: %w", err))
	}

	if len(geocodeResponse) == 0 {
		return nil, models.ErrNoMatch
	}
	location := geocodeResponse[0].Geometry.Location

	coords, err := models.NewCoordinates(location.Lat, location.Lng)
	if err != nil {
		return nil, models.NewProviderError("google", "geocode", 0, nil, err)
	}

	return &coords, nil
}
