// Package isochrone requests reachability polygons from the openrouteservice
// isochrone API.
package isochrone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/isomap/internal/metrics"
	"github.com/UnknownOlympus/isomap/internal/models"
	"github.com/UnknownOlympus/isomap/internal/ors"
)

// ErrInvalidRange is returned for a non-positive travel time budget.
var ErrInvalidRange = errors.New("isochrone range must be a positive number of seconds")

// SupportedProfiles are the isochrone profiles offered by the provider.
var SupportedProfiles = []models.Profile{
	models.ProfileDriving,
	models.ProfileCycling,
	models.ProfileWalking,
	models.ProfileWheelchair,
}

// Fetcher computes an isochrone around a center.
type Fetcher interface {
	Fetch(ctx context.Context, center models.Coordinates, profile models.Profile, rangeSeconds int) (*models.Isochrone, error)
}

// ORSPoster is the part of ors.Client used by the isochrone client.
type ORSPoster interface {
	PostJSON(ctx context.Context, endpoint string, payload any) ([]byte, error)
}

// Client implements Fetcher against /v2/isochrones/{profile}.
type Client struct {
	client  ORSPoster
	log     *slog.Logger
	metrics *metrics.Metrics
}

type isochroneRequest struct {
	Locations  [][2]float64 `json:"locations"`
	Range      []int        `json:"range"`
	Attributes []string     `json:"attributes"`
}

type isochroneResponse struct {
	Features []struct {
		Geometry *struct {
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

// NewClient returns a Client after checking that the profile table matches
// SupportedProfiles.
func NewClient(client ORSPoster, log *slog.Logger, appMetrics *metrics.Metrics) (*Client, error) {
	if err := models.CheckProfiles(SupportedProfiles); err != nil {
		return nil, fmt.Errorf("profile table does not match provider: %w", err)
	}

	return &Client{client: client, log: log, metrics: appMetrics}, nil
}

// Endpoint returns the isochrone path for a profile.
func Endpoint(profile models.Profile) string {
	return "/v2/isochrones/" + string(profile)
}

// Fetch requests the isochrone of center for profile within rangeSeconds.
// The profile and range are validated before any request is sent. Every
// failure after that is a *models.ProviderError; no partial result is returned.
func (c *Client) Fetch(
	ctx context.Context,
	center models.Coordinates,
	profile models.Profile,
	rangeSeconds int,
) (*models.Isochrone, error) {
	if !profile.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidProfile, profile)
	}
	if rangeSeconds <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRange, rangeSeconds)
	}

	endpoint := Endpoint(profile)
	payload := isochroneRequest{
		Locations:  [][2]float64{center.LonLat()},
		Range:      []int{rangeSeconds},
		Attributes: models.IsochroneAttributes,
	}

	c.log.DebugContext(ctx, "Requesting isochrone",
		"profile", profile, "range_seconds", rangeSeconds, "center", center.String())

	startTime := time.Now()
	body, err := c.client.PostJSON(ctx, endpoint, payload)
	if err != nil {
		c.metrics.Isochrones.WithLabelValues(string(profile), "error").Inc()
		return nil, withProfile(err, profile)
	}

	iso, err := parseResponse(body, endpoint, profile, rangeSeconds)
	if err != nil {
		c.metrics.Isochrones.WithLabelValues(string(profile), "error").Inc()
		c.log.ErrorContext(ctx, "Unexpected isochrone response", "profile", profile, "error", err)
		return nil, err
	}

	c.metrics.Isochrones.WithLabelValues(string(profile), "ok").Inc()
	c.log.DebugContext(ctx, "Isochrone received",
		"profile", profile, "points", len(iso.Polygon), "duration", time.Since(startTime))

	return iso, nil
}

func parseResponse(body []byte, endpoint string, profile models.Profile, rangeSeconds int) (*models.Isochrone, error) {
	fail := func(err error) error {
		perr := models.NewProviderError(ors.ProviderName, endpoint, 0, body, err)
		perr.Profile = string(profile)
		return perr
	}

	var resp isochroneResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fail(fmt.Errorf("failed to decode isochrone response: %w", err))
	}
	if len(resp.Features) == 0 {
		return nil, fail(errors.New("response has no features[0]"))
	}
	feature := resp.Features[0]
	if feature.Geometry == nil || len(feature.Geometry.Coordinates) == 0 || len(feature.Geometry.Coordinates[0]) == 0 {
		return nil, fail(errors.New("response has no geometry.coordinates[0]"))
	}

	polygon, err := ring(feature.Geometry.Coordinates[0])
	if err != nil {
		return nil, fail(err)
	}

	properties := make(map[string]float64, len(models.IsochroneAttributes))
	for _, attr := range models.IsochroneAttributes {
		raw, ok := feature.Properties[attr]
		if !ok || raw == nil {
			return nil, fail(fmt.Errorf("response is missing attribute %q", attr))
		}
		value, ok := raw.(float64)
		if !ok {
			return nil, fail(fmt.Errorf("attribute %q is not numeric: %v", attr, raw))
		}
		properties[attr] = value
	}

	return &models.Isochrone{
		Profile:      profile,
		RangeSeconds: rangeSeconds,
		Polygon:      polygon,
		Properties:   properties,
	}, nil
}

// ring converts [lon, lat] pairs to Coordinates and closes the ring if needed.
func ring(pairs [][]float64) ([]models.Coordinates, error) {
	polygon := make([]models.Coordinates, 0, len(pairs)+1)
	for idx, pair := range pairs {
		coords, err := models.FromLonLat(pair)
		if err != nil {
			return nil, fmt.Errorf("ring point %d: %w", idx, err)
		}
		polygon = append(polygon, coords)
	}

	first, last := polygon[0], polygon[len(polygon)-1]
	if first.Latitude != last.Latitude || first.Longitude != last.Longitude {
		polygon = append(polygon, first)
	}

	return polygon, nil
}

func withProfile(err error, profile models.Profile) error {
	var perr *models.ProviderError
	if errors.As(err, &perr) && perr.Profile == "" {
		perr.Profile = string(profile)
	}

	return err
}
