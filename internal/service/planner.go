// Package service resolves the typed addresses and the browser position into
// locations and builds the isochrone map plan around the center.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/UnknownOlympus/isomap/internal/geolocation"
	"github.com/UnknownOlympus/isomap/internal/isochrone"
	"github.com/UnknownOlympus/isomap/internal/metrics"
	"github.com/UnknownOlympus/isomap/internal/models"
	"github.com/paulmach/orb"
)

const (
	DefaultMinutes = 30
	MinMinutes     = 15
	MaxMinutes     = 120
	DefaultWorkers = 4

	secondsPerMinute = 60
)

// ErrInvalidMinutes is returned when the travel time is outside [MinMinutes, MaxMinutes].
var ErrInvalidMinutes = fmt.Errorf("minutes must be between %d and %d", MinMinutes, MaxMinutes)

// PlanRequest is everything the user entered.
type PlanRequest struct {
	CenterAddress string          `json:"center_address"`
	HomeAddress   string          `json:"home_address"`
	WorkAddress   string          `json:"work_address"`
	Geolocation   json.RawMessage `json:"geolocation"`
	Profiles      []string        `json:"profiles"`
	Minutes       int             `json:"minutes"` // Zero selects DefaultMinutes.
}

// Marker is a pin for a resolved location.
type Marker struct {
	Role        models.Role        `json:"role"`
	Coordinates models.Coordinates `json:"coordinates"`
	Color       string             `json:"color"`
	Label       string             `json:"label"`
	Source      Source             `json:"source"`
}

// Layer is one isochrone polygon ready to be drawn.
type Layer struct {
	Profile     models.Profile       `json:"profile"`
	DisplayName string               `json:"display_name"`
	Ring        []models.Coordinates `json:"ring"`
	FillColor   string               `json:"fill_color"`
	Tooltip     string               `json:"tooltip"`
	Properties  map[string]float64   `json:"properties"`
}

// SummaryRow is one line of the per-profile attribute table.
type SummaryRow struct {
	DisplayName string             `json:"display_name"`
	Properties  map[string]float64 `json:"properties"`
}

// ProfileFailure records a profile whose isochrone could not be fetched.
type ProfileFailure struct {
	Profile models.Profile `json:"profile"`
	Message string         `json:"message"`
}

// Bounds is the south-west and north-east corner of everything drawn, as [lat, lon].
type Bounds struct {
	SouthWest [2]float64 `json:"south_west"`
	NorthEast [2]float64 `json:"north_east"`
}

// Plan is the renderable result of a PlanRequest.
type Plan struct {
	NoLocation   bool                `json:"no_location"`
	Center       *models.Coordinates `json:"center,omitempty"`
	Minutes      int                 `json:"minutes"`
	RangeSeconds int                 `json:"range_seconds"`
	Markers      []Marker            `json:"markers"`
	Layers       []Layer             `json:"layers"`
	Summary      []SummaryRow        `json:"summary"`
	Bounds       *Bounds             `json:"bounds,omitempty"`
	Warnings     []string            `json:"warnings"`
	Notices      []string            `json:"notices"`
	Failures     []ProfileFailure    `json:"failures"`
}

// Planner builds plans from user input.
type Planner struct {
	log        *slog.Logger
	resolver   *Resolver
	fetcher    isochrone.Fetcher
	metrics    *metrics.Metrics
	numWorkers int
}

// NewPlanner creates a Planner fetching at most numWorkers isochrones at once.
func NewPlanner(
	log *slog.Logger,
	resolver *Resolver,
	fetcher isochrone.Fetcher,
	metrics *metrics.Metrics,
	numWorkers int,
) *Planner {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}

	return &Planner{
		log:        log,
		resolver:   resolver,
		fetcher:    fetcher,
		metrics:    metrics,
		numWorkers: numWorkers,
	}
}

// Build validates the request, resolves every location and fetches one isochrone
// per selected profile around the center.
//
// Input errors (models.ErrMalformedInput, models.ErrInvalidProfile,
// ErrInvalidMinutes) and provider errors while resolving the center are returned.
// Without a center the plan has NoLocation set and no isochrone is requested.
func (p *Planner) Build(ctx context.Context, req PlanRequest) (*Plan, error) {
	plan, err := p.build(ctx, req)
	switch {
	case err != nil:
		p.observe("error")
	case plan.NoLocation:
		p.observe("no_location")
	default:
		p.observe("ok")
	}

	return plan, err
}

func (p *Planner) build(ctx context.Context, req PlanRequest) (*Plan, error) {
	minutes := req.Minutes
	if minutes == 0 {
		minutes = DefaultMinutes
	}
	if minutes < MinMinutes || minutes > MaxMinutes {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMinutes, minutes)
	}

	profiles, err := parseProfiles(req.Profiles)
	if err != nil {
		return nil, err
	}

	browser, err := geolocation.ParseJSON(req.Geolocation)
	if err != nil {
		return nil, err
	}
	if browser == nil && len(req.Geolocation) > 0 && string(req.Geolocation) != "null" {
		p.log.DebugContext(ctx, "Browser did not share a position", "payload", string(req.Geolocation))
	}

	plan := &Plan{
		Minutes:      minutes,
		RangeSeconds: minutes * secondsPerMinute,
		Markers:      []Marker{},
		Layers:       []Layer{},
		Summary:      []SummaryRow{},
		Warnings:     []string{},
		Notices:      []string{},
		Failures:     []ProfileFailure{},
	}

	center, err := p.resolver.Resolve(ctx, models.RoleCenter, req.CenterAddress, browser)
	if err != nil {
		return nil, err
	}
	plan.addResolution(center)

	if center.Coordinates == nil {
		p.log.InfoContext(ctx, "No location available, nothing to plan")
		plan.NoLocation = true
		return plan, nil
	}
	plan.Center = center.Coordinates

	p.resolveExtra(ctx, plan, models.RoleHome, req.HomeAddress, browser)
	p.resolveExtra(ctx, plan, models.RoleWork, req.WorkAddress, browser)

	p.fetchLayers(ctx, plan, *center.Coordinates, profiles)
	plan.Bounds = bounds(plan)

	return plan, nil
}

// resolveExtra resolves home or work. Provider failures become warnings.
func (p *Planner) resolveExtra(
	ctx context.Context,
	plan *Plan,
	role models.Role,
	text string,
	browser *models.Coordinates,
) {
	res, err := p.resolver.Resolve(ctx, role, text, browser)
	if err != nil {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("%s Address could not be geocoded: %v", role.Label(), err))
		return
	}
	plan.addResolution(res)
}

func (plan *Plan) addResolution(res *Resolution) {
	plan.Warnings = append(plan.Warnings, res.Warnings...)
	plan.Notices = append(plan.Notices, res.Notices...)
	if res.Coordinates == nil {
		return
	}

	plan.Markers = append(plan.Markers, Marker{
		Role:        res.Role,
		Coordinates: *res.Coordinates,
		Color:       res.Role.MarkerColor(),
		Label:       res.Role.Label(),
		Source:      res.Source,
	})
}

type layerResult struct {
	tag int
	iso *models.Isochrone
	err error
}

// fetchLayers fetches the isochrones with a bounded worker pool. Results are
// matched back to their profile by tag so layers keep the selection order.
func (p *Planner) fetchLayers(ctx context.Context, plan *Plan, center models.Coordinates, profiles []models.Profile) {
	if len(profiles) == 0 {
		return
	}

	jobs := make(chan int, len(profiles))
	results := make([]layerResult, len(profiles))
	var wgr sync.WaitGroup

	for i := 1; i <= min(p.numWorkers, len(profiles)); i++ {
		wgr.Add(1)
		go p.worker(ctx, i, &wgr, jobs, center, profiles, plan.RangeSeconds, results)
	}

	for tag := range profiles {
		jobs <- tag
	}
	close(jobs)

	wgr.Wait()

	for _, res := range results {
		profile := profiles[res.tag]
		if res.err != nil {
			plan.Failures = append(plan.Failures, ProfileFailure{Profile: profile, Message: res.err.Error()})
			continue
		}

		opt, _ := profile.Option()
		plan.Layers = append(plan.Layers, Layer{
			Profile:     profile,
			DisplayName: opt.DisplayName,
			Ring:        res.iso.Polygon,
			FillColor:   opt.Color,
			Tooltip:     Tooltip(plan.Minutes, opt.DisplayName, res.iso.Properties["reachfactor"]),
			Properties:  res.iso.Properties,
		})
		plan.Summary = append(plan.Summary, SummaryRow{DisplayName: opt.DisplayName, Properties: res.iso.Properties})
	}
}

func (p *Planner) worker(
	ctx context.Context,
	idx int,
	wg *sync.WaitGroup,
	jobs <-chan int,
	center models.Coordinates,
	profiles []models.Profile,
	rangeSeconds int,
	results []layerResult,
) {
	defer wg.Done()
	for tag := range jobs {
		profile := profiles[tag]
		p.log.DebugContext(ctx, "Fetching isochrone", "worker", idx, "profile", profile)

		iso, err := p.fetcher.Fetch(ctx, center, profile, rangeSeconds)
		if err != nil {
			p.log.ErrorContext(ctx, "Failed to fetch isochrone", "worker", idx, "profile", profile, "error", err)
		}
		results[tag] = layerResult{tag: tag, iso: iso, err: err}
	}
}

// Tooltip is the hover text of an isochrone layer.
func Tooltip(minutes int, displayName string, reachFactor float64) string {
	return fmt.Sprintf("%d mins %s Reach Factor: %s",
		minutes, displayName, strconv.FormatFloat(reachFactor, 'f', -1, 64))
}

// parseProfiles validates every selected profile and drops duplicates, keeping the
// first occurrence.
func parseProfiles(values []string) ([]models.Profile, error) {
	profiles := make([]models.Profile, 0, len(values))
	for _, value := range values {
		profile, err := models.ParseProfile(value)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(profiles, profile) {
			profiles = append(profiles, profile)
		}
	}

	return profiles, nil
}

func bounds(plan *Plan) *Bounds {
	var points orb.MultiPoint
	for _, marker := range plan.Markers {
		points = append(points, orb.Point(marker.Coordinates.LonLat()))
	}
	for _, layer := range plan.Layers {
		for _, coords := range layer.Ring {
			points = append(points, orb.Point(coords.LonLat()))
		}
	}
	if len(points) == 0 {
		return nil
	}

	bound := points.Bound()
	return &Bounds{
		SouthWest: [2]float64{bound.Min.Lat(), bound.Min.Lon()},
		NorthEast: [2]float64{bound.Max.Lat(), bound.Max.Lon()},
	}
}

func (p *Planner) observe(outcome string) {
	if p.metrics != nil {
		p.metrics.PlansBuilt.WithLabelValues(outcome).Inc()
	}
}

// IsInputError reports whether err was caused by the request rather than a provider.
func IsInputError(err error) bool {
	return errors.Is(err, models.ErrMalformedInput) ||
		errors.Is(err, models.ErrInvalidProfile) ||
		errors.Is(err, ErrInvalidMinutes) ||
		errors.Is(err, models.ErrOutOfRange)
}
