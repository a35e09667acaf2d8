package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments exposed at /metrics.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    prometheus.Histogram
	ErrorsTotal        *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
	ObserversDropped   prometheus.Counter
	ExtractionOutcomes *prometheus.CounterVec
	CacheInvalidations prometheus.Counter
}

// NewMetrics registers the service metrics under the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "The total number of handled HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken to handle HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of domain errors by code",
		}, []string{"code"}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Broadcast events published by type",
		}, []string{"type"}),
		ObserversDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observers_dropped_total",
			Help:      "Observers dropped for not draining their event buffer",
		}),
		ExtractionOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_outcomes_total",
			Help:      "Extraction task outcomes by modality and result",
		}, []string{"modality", "outcome"}),
		CacheInvalidations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Stats cache invalidations performed after commits",
		}),
	}
}
