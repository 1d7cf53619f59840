package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UnknownOlympus/isomap/internal/models"
	"golang.org/x/time/rate"
)

// NominatimBaseURL is the public Nominatim search endpoint.
const NominatimBaseURL = "https://nominatim.openstreetmap.org/search"

// nominatimFocusSpan is the half-size in degrees of the viewbox used to bias results.
const nominatimFocusSpan = 0.5

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the Nominatim API
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter enforcing the usage policy
	// userAgent is required by Nominatim usage policy
	userAgent string
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// nominatimResponse represents the JSON response from Nominatim API.
type nominatimResponse struct {
	Lat string `json:"lat"` // Latitude as string
	Lon string `json:"lon"` // Longitude as string
}

const nominatimUserAgent = "isomap/1.0 (https://github.com/UnknownOlympus/isomap)"

// NewNominatimProvider creates a new Nominatim geocoding provider.
// Uses the public Nominatim API endpoint by default.
func NewNominatimProvider(log *slog.Logger) *NominatimProvider {
	const timeout = 10
	return NewNominatimProviderWithClient(&http.Client{Timeout: timeout * time.Second}, log)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client.
// Useful for testing with mocked HTTP clients.
func NewNominatimProviderWithClient(client HTTPClient, log *slog.Logger) *NominatimProvider {
	return &NominatimProvider{
		client:  client,
		baseURL: NominatimBaseURL,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		// User-Agent MUST include valid contact info per Nominatim usage policy:
		// https://operations.osmfoundation.org/policies/nominatim/
		userAgent: nominatimUserAgent,
	}
}

// Search converts free text to coordinates using the Nominatim API.
// A focus point becomes an unbounded viewbox so that nearby matches rank higher.
func (np *NominatimProvider) Search(
	ctx context.Context,
	text string,
	focus *models.Coordinates,
) (*models.Coordinates, error) {
	np.log.DebugContext(ctx, "Geocoding using Nominatim", "text", text, "focus", focus != nil)

	if err := np.limiter.Wait(ctx); err != nil {
		return nil, models.NewProviderError("nominatim", "search", 0, nil, fmt.Errorf("rate limit exceeded: %w", err))
	}

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("q", text)
	query.Set("format", "json")
	query.Set("limit", "1") // Only need the top result
	if focus != nil {
		query.Set("viewbox", viewbox(*focus))
		query.Set("bounded", "0")
	}
	reqURL.RawQuery = query.Encode()

	np.log.DebugContext(ctx, "Nominatim request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", np.userAgent)

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, models.NewProviderError(
			"nominatim", "search", 0, nil, fmt.Errorf("failed to execute geocoding request: %w", err),
		)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewProviderError(
			"nominatim", "search", resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err),
		)
	}

	if resp.StatusCode != http.StatusOK {
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, models.NewProviderError("nominatim", "search", resp.StatusCode, body, nil)
	}

	var results []nominatimResponse
	if err = json.Unmarshal(body, &results); err != nil {
		return nil, models.NewProviderError(
			"nominatim", "search", resp.StatusCode, body, fmt.Errorf("failed to decode nominatim response: %w", err),
		)
	}

	if len(results) == 0 {
		return nil, models.ErrNoMatch
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, models.NewProviderError("nominatim", "search", resp.StatusCode, body,
			fmt.Errorf("invalid latitude: %s", results[0].Lat))
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, models.NewProviderError("nominatim", "search", resp.StatusCode, body,
			fmt.Errorf("invalid longitude: %s", results[0].Lon))
	}

	coords, err := models.NewCoordinates(lat, lon)
	if err != nil {
		return nil, models.NewProviderError("nominatim", "search", resp.StatusCode, body, err)
	}

	np.log.DebugContext(ctx, "Nominatim found result", "lat", lat, "lon", lon)

	return &coords, nil
}

// viewbox formats "lon1,lat1,lon2,lat2" around the focus point.
func viewbox(focus models.Coordinates) string {
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

	return format(focus.Longitude-nominatimFocusSpan) + "," +
		format(focus.Latitude+nominatimFocusSpan) + "," +
		format(focus.Longitude+nominatimFocusSpan) + "," +
		format(focus.Latitude-nominatimFocusSpan)
}
