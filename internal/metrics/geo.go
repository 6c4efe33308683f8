package metrics

import "github.com/prometheus/client_golang/prometheus"

// Aggregation, cursor and view-sync Prometheus metrics.
var (
	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "geodex",
			Name:      "aggregation_duration_seconds",
			Help:      "Geohash aggregation duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"depth"},
	)

	AggregationBuckets = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "geodex",
			Name:      "aggregation_buckets",
			Help:      "Number of buckets returned per aggregation",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	AggregationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geodex",
			Name:      "aggregation_errors_total",
			Help:      "Total aggregation failures",
		},
		[]string{"error_type"}, // "invalid_geometry" / "backend"
	)

	CursorOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geodex",
			Name:      "cursor_operations_total",
			Help:      "Cursor opens, reads and closes",
		},
		[]string{"op", "status"},
	)

	StaleResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geodex",
			Name:      "stale_results_dropped_total",
			Help:      "Worker results dropped because a newer request superseded them",
		},
		[]string{"worker"},
	)

	InvariantViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geodex",
			Name:      "invariant_violations_total",
			Help:      "Runs discarded because a count invariant did not hold",
		},
		[]string{"check"}, // "markers" / "site_responses"
	)

	LookupSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geodex",
			Name:      "lookup_skipped_total",
			Help:      "Documents skipped during selection enrichment because they were missing or malformed",
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "geodex",
			Name:      "active_sessions",
			Help:      "Number of live map sessions",
		},
	)
)

var geoMetricsRegistered bool

// RegisterGeoMetrics registers Prometheus geo metrics. Must be called once from main.
func RegisterGeoMetrics() {
	if geoMetricsRegistered {
		return
	}
	prometheus.MustRegister(AggregationDuration)
	prometheus.MustRegister(AggregationBuckets)
	prometheus.MustRegister(AggregationErrorsTotal)
	prometheus.MustRegister(CursorOperationsTotal)
	prometheus.MustRegister(StaleResultsTotal)
	prometheus.MustRegister(InvariantViolationsTotal)
	prometheus.MustRegister(LookupSkippedTotal)
	prometheus.MustRegister(ActiveSessions)
	geoMetricsRegistered = true
}
