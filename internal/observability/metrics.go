package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// scenario and ocean-advisory services.
type Metrics struct {
	// Scenario generation metrics.
	GenerationRequests *prometheus.CounterVec   // labels: stage={situation,choices,survival,feedback,safety_guide}, outcome={success,error}
	GenerationDuration *prometheus.HistogramVec // labels: stage
	ScenarioRuns       prometheus.Counter
	ScenarioFailures   prometheus.Counter
	StreamsActive      prometheus.Gauge

	// Ocean data metrics.
	StationLookups  *prometheus.CounterVec // labels: kind, outcome={success,not_found,error}
	StationCache    *prometheus.CounterVec // labels: result={hit,miss}
	TideFetches     *prometheus.CounterVec // labels: outcome={success,error}
	AdvisoryLatency prometheus.Histogram
	OceanEnabled    prometheus.Gauge

	// Audit trail metrics.
	AuditPublished *prometheus.CounterVec // labels: event={scenario_turn,safety_guide}, outcome={success,error}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		GenerationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_sim",
			Name:      "generation_requests_total",
			Help:      "Model generation calls by stage and outcome.",
		}, []string{"stage", "outcome"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "disaster_sim",
			Name:      "generation_duration_seconds",
			Help:      "Model generation call duration by stage.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"stage"}),
		ScenarioRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disaster_sim",
			Name:      "scenario_runs_total",
			Help:      "Total scenario turns started.",
		}),
		ScenarioFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disaster_sim",
			Name:      "scenario_failures_total",
			Help:      "Scenario turns that ended with an error event.",
		}),
		StreamsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "disaster_sim",
			Name:      "streams_active",
			Help:      "Scenario event streams currently open.",
		}),
		StationLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_sim",
			Name:      "station_lookups_total",
			Help:      "Station resolution attempts by data kind and outcome.",
		}, []string{"kind", "outcome"}),
		StationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_sim",
			Name:      "station_cache_total",
			Help:      "Station resolver cache lookups by result.",
		}, []string{"result"}),
		TideFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_sim",
			Name:      "tide_fetches_total",
			Help:      "Tide series fetches by outcome.",
		}, []string{"outcome"}),
		AdvisoryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "disaster_sim",
			Name:      "advisory_duration_seconds",
			Help:      "Duration of a complete safety-guide resolve-fetch-generate cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		OceanEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "disaster_sim",
			Name:      "ocean_enabled",
			Help:      "1 when the ocean data backend is configured, 0 otherwise.",
		}),
		AuditPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_sim",
			Name:      "audit_published_total",
			Help:      "Audit events published to Kafka by event type and outcome.",
		}, []string{"event", "outcome"}),
	}

	prometheus.MustRegister(
		m.GenerationRequests,
		m.GenerationDuration,
		m.ScenarioRuns,
		m.ScenarioFailures,
		m.StreamsActive,
		m.StationLookups,
		m.StationCache,
		m.TideFetches,
		m.AdvisoryLatency,
		m.OceanEnabled,
		m.AuditPublished,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		GenerationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "disaster_sim", Name: "generation_requests_total"}, []string{"stage", "outcome"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "disaster_sim", Name: "generation_duration_seconds"}, []string{"stage"}),
		ScenarioRuns:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "disaster_sim", Name: "scenario_runs_total"}),
		ScenarioFailures:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "disaster_sim", Name: "scenario_failures_total"}),
		StreamsActive:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "disaster_sim", Name: "streams_active"}),
		StationLookups:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "disaster_sim", Name: "station_lookups_total"}, []string{"kind", "outcome"}),
		StationCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "disaster_sim", Name: "station_cache_total"}, []string{"result"}),
		TideFetches:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "disaster_sim", Name: "tide_fetches_total"}, []string{"outcome"}),
		AdvisoryLatency:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "disaster_sim", Name: "advisory_duration_seconds"}),
		OceanEnabled:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "disaster_sim", Name: "ocean_enabled"}),
		AuditPublished:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "disaster_sim", Name: "audit_published_total"}, []string{"event", "outcome"}),
	}
}
