package models

import (
	"errors"
	"fmt"
)

// Common errors shared by the parser, clients and the planner.
var (
	// ErrMalformedInput is returned when a browser geolocation payload cannot be parsed.
	ErrMalformedInput = errors.New("malformed geolocation input")
	// ErrInvalidProfile is returned for an isochrone profile outside the supported set.
	ErrInvalidProfile = errors.New("invalid isochrone profile")
	// ErrNoMatch is returned when a geocoder finds nothing for the query. It is a normal outcome.
	ErrNoMatch = errors.New("no geocoding match")
	// ErrOutOfRange is returned when a latitude or longitude is outside its valid range.
	ErrOutOfRange = errors.New("coordinates out of range")
)

const maxErrorBody = 512

// ProviderError describes a failed call to an external API: transport failure,
// non-2xx status, or a response that does not have the expected shape.
type ProviderError struct {
	Provider string // Provider name, e.g. openrouteservice.
	Endpoint string // Endpoint path that was called.
	Profile  string // Isochrone profile, empty for geocoding.
	Status   int    // HTTP status, zero when no response was received.
	Body     string // Response body, truncated.
	Err      error  // Underlying error, if any.
}

// NewProviderError builds a ProviderError and truncates the body for diagnostics.
func NewProviderError(provider, endpoint string, status int, body []byte, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Endpoint: endpoint,
		Status:   status,
		Body:     Truncate(string(body), maxErrorBody),
		Err:      err,
	}
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Provider, e.Endpoint)
	if e.Profile != "" {
		msg += fmt.Sprintf(" (profile %s)", e.Profile)
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}

	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Truncate shortens s to at most limit bytes, marking the cut with an ellipsis.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return s[:limit] + "..."
}
