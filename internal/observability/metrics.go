package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper search service,
// grouped into searches, cache, sources, the PMC lane and events. All
// collectors are registered via promauto with the default registry.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// SearchesTotal counts validated search requests, labeled by cache outcome ("hit", "miss").
	SearchesTotal *prometheus.CounterVec

	// SearchDuration observes end-to-end aggregation time in seconds.
	SearchDuration prometheus.Histogram

	// PapersReturned observes the merged result size per aggregation.
	PapersReturned prometheus.Histogram

	// CacheSize reports the number of cached responses.
	CacheSize prometheus.Gauge

	// SourceSearches counts adapter outcomes, labeled by source and status
	// ("success", "error", "timeout").
	SourceSearches *prometheus.CounterVec

	// SourceDuration observes adapter call duration in seconds, labeled by source.
	SourceDuration *prometheus.HistogramVec

	// PapersPerSource observes papers returned per adapter call, labeled by source.
	PapersPerSource *prometheus.HistogramVec

	// SourceRateLimited counts adapter failures caused by upstream throttling.
	SourceRateLimited *prometheus.CounterVec

	// LaneDispatches counts requests released by the PMC lane.
	LaneDispatches prometheus.Counter

	// LaneRetries counts PMC requests re-queued after throttling or transport failure.
	LaneRetries prometheus.Counter

	// EventsPublished counts search events handed to the broker, labeled by status.
	EventsPublished *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Searches
		SearchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of search requests served",
		}, []string{"cache"}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of federated search aggregation in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}),
		PapersReturned: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_returned",
			Help:      "Number of merged papers per search response",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 200, 400},
		}),

		// Cache
		CacheSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Number of cached search responses",
		}),

		// Sources
		SourceSearches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_total",
			Help:      "Total number of source adapter calls by outcome",
		}, []string{"source", "status"}),
		SourceDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_duration_seconds",
			Help:      "Duration of source adapter calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"source"}),
		PapersPerSource: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_papers",
			Help:      "Number of papers returned per source adapter call",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}, []string{"source"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of source failures caused by upstream throttling",
		}, []string{"source"}),

		// PMC lane
		LaneDispatches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pmc_lane_dispatches_total",
			Help:      "Total number of requests dispatched by the PMC lane",
		}),
		LaneRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pmc_lane_retries_total",
			Help:      "Total number of PMC requests re-queued for retry",
		}),

		// Events
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of search events published",
		}, []string{"status"}),
	}
}

// RecordSearch records one validated search request.
func (m *Metrics) RecordSearch(cacheHit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	m.SearchesTotal.WithLabelValues(label).Inc()
}

// RecordAggregation records a completed fan-out.
func (m *Metrics) RecordAggregation(paperCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(durationSeconds)
	m.PapersReturned.Observe(float64(paperCount))
}

// SetCacheSize records the current number of cache entries.
func (m *Metrics) SetCacheSize(size int) {
	if m == nil {
		return
	}
	m.CacheSize.Set(float64(size))
}

// RecordSourceSuccess records a successful adapter call.
func (m *Metrics) RecordSourceSuccess(source string, paperCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SourceSearches.WithLabelValues(source, "success").Inc()
	m.SourceDuration.WithLabelValues(source).Observe(durationSeconds)
	m.PapersPerSource.WithLabelValues(source).Observe(float64(paperCount))
}

// RecordSourceTimeout records an adapter call abandoned at its deadline.
func (m *Metrics) RecordSourceTimeout(source string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SourceSearches.WithLabelValues(source, "timeout").Inc()
	m.SourceDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSourceFailure records a failed adapter call.
func (m *Metrics) RecordSourceFailure(source string, rateLimited bool, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SourceSearches.WithLabelValues(source, "error").Inc()
	m.SourceDuration.WithLabelValues(source).Observe(durationSeconds)
	if rateLimited {
		m.SourceRateLimited.WithLabelValues(source).Inc()
	}
}

// RecordLaneDispatch records one request released by the PMC lane.
func (m *Metrics) RecordLaneDispatch() {
	if m == nil {
		return
	}
	m.LaneDispatches.Inc()
}

// RecordLaneRetry records one PMC request re-queued for retry.
func (m *Metrics) RecordLaneRetry() {
	if m == nil {
		return
	}
	m.LaneRetries.Inc()
}

// RecordEventPublished records the outcome of one event publish.
func (m *Metrics) RecordEventPublished(ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "error"
	}
	m.EventsPublished.WithLabelValues(status).Inc()
}
