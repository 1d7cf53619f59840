package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/UnknownOlympus/isomap/internal/geocoding"
	"github.com/UnknownOlympus/isomap/internal/metrics"
	"github.com/UnknownOlympus/isomap/internal/models"
)

// DefaultMinAddressLength is the shortest address text that is sent to the geocoder.
const DefaultMinAddressLength = 5

// Source tells where a resolved coordinate came from.
type Source string

const (
	SourceAddress Source = "address"
	SourceBrowser Source = "browser"
	SourceNone    Source = "none"
)

// Resolution is the outcome of resolving one address field.
type Resolution struct {
	Role        models.Role         `json:"role"`
	Coordinates *models.Coordinates `json:"coordinates,omitempty"`
	Source      Source              `json:"source"`
	Warnings    []string            `json:"warnings,omitempty"`
	Notices     []string            `json:"notices,omitempty"`
}

// Resolver turns typed address text and an optional browser position into a coordinate.
// A successful geocode wins over the browser position, which wins over nothing.
type Resolver struct {
	log       *slog.Logger
	geocoder  geocoding.Provider
	metrics   *metrics.Metrics
	minLength int
}

// NewResolver creates a Resolver. A non-positive minLength selects DefaultMinAddressLength.
func NewResolver(log *slog.Logger, geocoder geocoding.Provider, metrics *metrics.Metrics, minLength int) *Resolver {
	if minLength <= 0 {
		minLength = DefaultMinAddressLength
	}

	return &Resolver{log: log, geocoder: geocoder, metrics: metrics, minLength: minLength}
}

// Resolve picks the coordinate for role.
//
// Text shorter than the minimum length is ignored with a warning and never geocoded.
// A geocoder miss falls back to the browser position with a warning. Provider
// failures are returned as errors.
func (r *Resolver) Resolve(
	ctx context.Context,
	role models.Role,
	text string,
	browser *models.Coordinates,
) (*Resolution, error) {
	res := &Resolution{Role: role, Source: SourceNone}
	text = strings.TrimSpace(text)

	switch length := utf8.RuneCountInString(text); {
	case length == 0:
		// nothing typed
	case length < r.minLength:
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Ignoring %s Address since entered text length <%d", role.Label(), r.minLength))
	default:
		if browser != nil {
			res.Notices = append(res.Notices,
				fmt.Sprintf("Searching for %s Address near browser location.", role.Label()))
		}

		coords, err := r.geocoder.Search(ctx, text, browser)
		switch {
		case err == nil:
			res.Coordinates = coords
			res.Source = SourceAddress
			r.observe(role, res.Source)
			r.log.DebugContext(ctx, "Address resolved", "role", role, "coords", coords.String())
			return res, nil
		case errors.Is(err, models.ErrNoMatch):
			r.log.InfoContext(ctx, "No geocoding match", "role", role, "text", text)
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("No match found for %s Address %q.", role.Label(), text))
		default:
			r.log.ErrorContext(ctx, "Failed to geocode address", "role", role, "error", err)
			return nil, err
		}
	}

	if browser != nil {
		res.Coordinates = browser
		res.Source = SourceBrowser
	}
	r.observe(role, res.Source)

	return res, nil
}

func (r *Resolver) observe(role models.Role, source Source) {
	if r.metrics != nil {
		r.metrics.Resolutions.WithLabelValues(string(role), string(source)).Inc()
	}
}
