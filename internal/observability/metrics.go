package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analysis pipeline.
type Metrics struct {
	ReadingsLoaded     prometheus.Counter
	MetadataLoaded     prometheus.Counter
	RecordsSkipped     *prometheus.CounterVec // labels: source={readings,metadata}
	GroupsMerged       prometheus.Counter
	GroupsUnevaluated  prometheus.Counter
	FlagsRaised        *prometheus.CounterVec // labels: kind={threshold_violation,critical_hour_peak}
	AlertPublishErrors prometheus.Counter

	RunDuration     prometheus.Histogram
	RunsCompleted   prometheus.Counter
	AnalyzerRunning prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReadingsLoaded,
		m.MetadataLoaded,
		m.RecordsSkipped,
		m.GroupsMerged,
		m.GroupsUnevaluated,
		m.FlagsRaised,
		m.AlertPublishErrors,
		m.RunDuration,
		m.RunsCompleted,
		m.AnalyzerRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grid_analyzer",
			Name:      "readings_loaded_total",
			Help:      "Total valid household readings accepted by the loader.",
		}),
		MetadataLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grid_analyzer",
			Name:      "metadata_loaded_total",
			Help:      "Total valid district-day metadata records accepted by the loader.",
		}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grid_analyzer",
			Name:      "records_skipped_total",
			Help:      "Malformed input records excluded from the run, by source.",
		}, []string{"source"}),
		GroupsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grid_analyzer",
			Name:      "groups_merged_total",
			Help:      "District-day groups produced by the merge step.",
		}),
		GroupsUnevaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grid_analyzer",
			Name:      "groups_unevaluated_total",
			Help:      "District-day groups aggregated without risk evaluation (metadata missing).",
		}),
		FlagsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grid_analyzer",
			Name:      "risk_flags_total",
			Help:      "Risk flags emitted by the detector, by kind.",
		}, []string{"kind"}),
		AlertPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grid_analyzer",
			Name:      "alert_publish_errors_total",
			Help:      "Failed attempts to publish risk alerts.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "grid_analyzer",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete load-merge-aggregate-detect-report run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RunsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grid_analyzer",
			Name:      "runs_completed_total",
			Help:      "Analysis runs that finished and wrote their reports.",
		}),
		AnalyzerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "grid_analyzer",
			Name:      "running",
			Help:      "1 while an analysis run is in progress, 0 otherwise.",
		}),
	}
}
