package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestSeconds *prometheus.HistogramVec
	APIErrors      *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	Resolutions    *prometheus.CounterVec
	Isochrones     *prometheus.CounterVec
	PlansBuilt     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "isomap_provider_request_duration_seconds",
			Help:    "Duration of requests to external geocoding and routing APIs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "endpoint"}),
		APIErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "isomap_provider_api_errors_total",
			Help: "Total number of failed calls to external APIs.",
		}, []string{"provider", "endpoint"}),
		CacheLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "isomap_response_cache_lookups_total",
			Help: "Response cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		Resolutions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "isomap_location_resolutions_total",
			Help: "Location resolutions by role and winning source.",
		}, []string{"role", "source"}),
		Isochrones: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "isomap_isochrones_total",
			Help: "Isochrone fetches by profile and status.",
		}, []string{"profile", "status"}),
		PlansBuilt: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "isomap_plans_built_total",
			Help: "Map plans built by outcome (ok, no_location, error).",
		}, []string{"outcome"}),
	}
}
