package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/UnknownOlympus/isomap/internal/models"
	"github.com/UnknownOlympus/isomap/internal/ors"
)

// SearchEndpoint is the openrouteservice (Pelias) forward geocoding endpoint.
const SearchEndpoint = "/geocode/search"

// ORSRequester is the part of ors.Client used by the provider.
type ORSRequester interface {
	Get(ctx context.Context, endpoint string, query url.Values) ([]byte, error)
}

// OpenRouteServiceProvider geocodes through the openrouteservice search API.
type OpenRouteServiceProvider struct {
	client ORSRequester // client injects the API key and handles caching
	log    *slog.Logger // log is the logger for logging operations
}

// orsSearchResponse keeps only what is read from the GeoJSON response.
type orsSearchResponse struct {
	Features []struct {
		Geometry *struct {
			Coordinates []float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
	} `json:"features"`
}

// NewOpenRouteServiceProvider creates a provider on top of an ors client.
func NewOpenRouteServiceProvider(client ORSRequester, log *slog.Logger) *OpenRouteServiceProvider {
	return &OpenRouteServiceProvider{client: client, log: log}
}

// Search returns the top-ranked feature for text. The provider reports
// coordinates as [lon, lat]; they are swapped into Coordinates here.
// An empty feature list or a response without the expected keys is ErrNoMatch.
func (op *OpenRouteServiceProvider) Search(
	ctx context.Context,
	text string,
	focus *models.Coordinates,
) (*models.Coordinates, error) {
	op.log.DebugContext(ctx, "Geocoding using openrouteservice", "text", text, "focus", focus != nil)

	query := url.Values{}
	query.Set("text", text)
	if focus != nil {
		query.Set("focus.point.lon", strconv.FormatFloat(focus.Longitude, 'f', -1, 64))
		query.Set("focus.point.lat", strconv.FormatFloat(focus.Latitude, 'f', -1, 64))
	}

	body, err := op.client.Get(ctx, SearchEndpoint, query)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode %q: %w", text, err)
	}

	var result orsSearchResponse
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, models.NewProviderError(
			ors.ProviderName, SearchEndpoint, 0, body, fmt.Errorf("failed to decode search response: %w", err),
		)
	}

	if len(result.Features) == 0 {
		return nil, models.ErrNoMatch
	}
	geometry := result.Features[0].Geometry
	if geometry == nil || len(geometry.Coordinates) < 2 {
		op.log.WarnContext(ctx, "openrouteservice returned a feature without coordinates", "text", text)
		return nil, models.ErrNoMatch
	}

	coords, err := models.FromLonLat(geometry.Coordinates)
	if err != nil {
		return nil, models.NewProviderError(ors.ProviderName, SearchEndpoint, 0, body, err)
	}

	op.log.DebugContext(ctx, "openrouteservice found result", "lat", coords.Latitude, "lon", coords.Longitude)

	return &coords, nil
}
