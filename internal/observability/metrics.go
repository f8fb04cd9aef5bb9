package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analysis service.
type Metrics struct {
	AnalysesTotal    *prometheus.CounterVec // labels: outcome={ok,no_data,invalid}
	AnalysisDuration prometheus.Histogram
	YearsFetched     prometheus.Counter
	YearsSkipped     *prometheus.CounterVec // labels: reason={fetch_error,no_daily_block,no_valid_precipitation}
	ServiceReady     prometheus.Gauge

	// Archive client metrics.
	ArchiveRequests        *prometheus.CounterVec // labels: outcome={success,error}
	ArchiveRequestDuration prometheus.Histogram
	ArchiveCache           *prometheus.CounterVec // labels: result={hit,miss}

	// Report publishing metrics.
	ReportsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.YearsFetched,
		m.YearsSkipped,
		m.ServiceReady,
		m.ArchiveRequests,
		m.ArchiveRequestDuration,
		m.ArchiveCache,
		m.ReportsPublished,
		m.PublishErrors,
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
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pmp_analysis",
			Name:      "analyses_total",
			Help:      "Analysis requests by outcome.",
		}, []string{"outcome"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pmp_analysis",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of a complete multi-year analysis.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		YearsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pmp_analysis",
			Name:      "years_fetched_total",
			Help:      "Calendar years that produced a usable annual summary.",
		}),
		YearsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pmp_analysis",
			Name:      "years_skipped_total",
			Help:      "Calendar years excluded from analysis by reason.",
		}, []string{"reason"}),
		ServiceReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pmp_analysis",
			Name:      "service_ready",
			Help:      "1 once at least one analysis has been served.",
		}),
		ArchiveRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pmp_analysis",
			Name:      "archive_requests_total",
			Help:      "Open-Meteo archive API requests by outcome.",
		}, []string{"outcome"}),
		ArchiveRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pmp_analysis",
			Name:      "archive_request_duration_seconds",
			Help:      "Archive API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ArchiveCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pmp_analysis",
			Name:      "archive_cache_total",
			Help:      "Archive response cache lookups by result.",
		}, []string{"result"}),
		ReportsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pmp_analysis",
			Name:      "reports_published_total",
			Help:      "Hydrological reports published to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pmp_analysis",
			Name:      "publish_errors_total",
			Help:      "Failed report publish attempts.",
		}),
	}
}
