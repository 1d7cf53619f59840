// Package ors is the HTTP transport shared by the openrouteservice geocoding and
// isochrone clients: credential injection, rate limiting, response caching and
// error classification.
package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UnknownOlympus/isomap/internal/metrics"
	"github.com/UnknownOlympus/isomap/internal/models"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public openrouteservice API.
	DefaultBaseURL = "https://api.openrouteservice.org"
	// ProviderName labels metrics and errors produced by this client.
	ProviderName = "openrouteservice"

	acceptHeader      = "application/json, application/geo+json, application/gpx+xml, img/png; charset=utf-8"
	contentTypeHeader = "application/json; charset=utf-8"
)

// ErrMissingAPIKey is returned by NewClient when no credential is configured.
var ErrMissingAPIKey = errors.New("openrouteservice API key is not configured (set OPENROUTESERVICE_API_KEY)")

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Cache stores successful response bodies keyed by the full request.
// It is advisory: failures are logged and the request proceeds.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
}

// Config holds what is needed to build a Client.
type Config struct {
	APIKey     string           // APIKey is sent as api_key (GET) or Authorization (POST).
	BaseURL    string           // BaseURL defaults to DefaultBaseURL.
	RateLimit  float64          // RateLimit in requests per second, zero disables limiting.
	Burst      int              // Burst of the limiter, defaults to 1.
	Timeout    time.Duration    // Timeout of the default HTTP client.
	HTTPClient HTTPClient       // HTTPClient overrides the default client.
	Cache      Cache            // Cache is optional.
	Logger     *slog.Logger     // Logger for logging operations.
	Metrics    *metrics.Metrics // Metrics for request durations, errors and cache lookups.
}

// Client performs authenticated requests against the openrouteservice API.
type Client struct {
	client  HTTPClient
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	cache   Cache
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewClient validates the configuration and returns a Client.
// It fails with ErrMissingAPIKey before any request is attempted when the key is empty.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		return nil, errors.New("metrics are required for the openrouteservice client")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	if cfg.HTTPClient == nil {
		const defaultTimeout = 30 * time.Second
		if cfg.Timeout == 0 {
			cfg.Timeout = defaultTimeout
		}
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		if cfg.Burst <= 0 {
			cfg.Burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}

	return &Client{
		client:  cfg.HTTPClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		limiter: limiter,
		cache:   cfg.Cache,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// Get issues a GET request to endpoint with the query and the api_key parameter.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	params := url.Values{}
	for key, values := range query {
		params[key] = append([]string(nil), values...)
	}
	params.Set("api_key", c.apiKey)

	reqURL := c.baseURL + endpoint + "?" + params.Encode()

	return c.do(ctx, endpoint, http.MethodGet, reqURL, nil)
}

// PostJSON issues a POST request with payload encoded as JSON and the
// credential in the Authorization header.
func (c *Client) PostJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	return c.do(ctx, endpoint, http.MethodPost, c.baseURL+endpoint, body)
}

func (c *Client) do(ctx context.Context, endpoint, method, reqURL string, body []byte) ([]byte, error) {
	key := CacheKey(method, reqURL, body)
	if cached, ok := c.lookup(ctx, key); ok {
		c.log.DebugContext(ctx, "Serving openrouteservice response from cache", "endpoint", endpoint)
		return cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, models.NewProviderError(ProviderName, endpoint, 0, nil, fmt.Errorf("rate limit exceeded: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	if method == http.MethodPost {
		req.Header.Set("Authorization", c.apiKey)
		req.Header.Set("Content-Type", contentTypeHeader)
	}

	c.log.DebugContext(ctx, "Calling openrouteservice", "method", method, "endpoint", endpoint)

	startTime := time.Now()
	resp, err := c.client.Do(req)
	c.metrics.RequestSeconds.WithLabelValues(ProviderName, endpoint).Observe(time.Since(startTime).Seconds())
	if err != nil {
		c.metrics.APIErrors.WithLabelValues(ProviderName, endpoint).Inc()
		return nil, models.NewProviderError(ProviderName, endpoint, 0, nil, fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.APIErrors.WithLabelValues(ProviderName, endpoint).Inc()
		return nil, models.NewProviderError(
			ProviderName, endpoint, resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err),
		)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.metrics.APIErrors.WithLabelValues(ProviderName, endpoint).Inc()
		c.log.ErrorContext(ctx, "openrouteservice API error",
			"endpoint", endpoint, "status", resp.StatusCode, "body", models.Truncate(string(respBody), 512))
		return nil, models.NewProviderError(ProviderName, endpoint, resp.StatusCode, respBody, nil)
	}

	c.store(ctx, key, respBody)

	return respBody, nil
}

func (c *Client) lookup(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}

	body, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.CacheLookups.WithLabelValues("error").Inc()
		c.log.WarnContext(ctx, "Response cache lookup failed", "error", err)
		return nil, false
	case !ok:
		c.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	default:
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return body, true
	}
}

func (c *Client) store(ctx context.Context, key string, body []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, body); err != nil {
		c.log.WarnContext(ctx, "Response cache store failed", "error", err)
	}
}

// CacheKey identifies a request by method, full URL (including parameters) and body.
func CacheKey(method, reqURL string, body []byte) string {
	digest := xxhash.New()
	_, _ = digest.WriteString(method)
	_, _ = digest.WriteString(" ")
	_, _ = digest.WriteString(reqURL)
	_, _ = digest.WriteString("\n")
	_, _ = digest.Write(body)

	return fmt.Sprintf("ors:%016x", digest.Sum64())
}
