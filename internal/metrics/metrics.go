// Package metrics exposes Prometheus collectors for ingestion and
// aggregation on a dedicated registry.
package metrics

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"basicanalytics/internal/pageviews"
)

// Ingestion outcomes.
const (
	OutcomeCreated               = "created"
	OutcomeInvalidSite           = "invalid_site"
	OutcomeMissingURL            = "missing_url"
	OutcomeURLMismatch           = "url_mismatch"
	OutcomeMissingRequestContext = "missing_request_context"
	OutcomeError                 = "error"
)

type Metrics struct {
	Registry *prometheus.Registry

	PageViewsIngested   *prometheus.CounterVec
	AggregationDuration *prometheus.HistogramVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide metrics, registered on first use.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New(prometheus.NewRegistry())
		defaultMetrics.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	return defaultMetrics
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		Registry: registry,
		PageViewsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "page_views_ingested_total",
				Help: "Page-view submissions by outcome",
			},
			[]string{"outcome"},
		),
		AggregationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aggregation_duration_seconds",
				Help:    "Aggregation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(m.PageViewsIngested, m.AggregationDuration)
	return m
}

// IngestionOutcome maps the result of pageviews.Create to an outcome label.
func IngestionOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCreated
	case errors.Is(err, pageviews.ErrInvalidSite):
		return OutcomeInvalidSite
	case errors.Is(err, pageviews.ErrMissingURL):
		return OutcomeMissingURL
	case errors.Is(err, pageviews.ErrURLMismatch):
		return OutcomeURLMismatch
	case errors.Is(err, pageviews.ErrMissingRequestContext):
		return OutcomeMissingRequestContext
	default:
		return OutcomeError
	}
}

// RecordIngestion counts one submission.
func (m *Metrics) RecordIngestion(err error) {
	m.PageViewsIngested.WithLabelValues(IngestionOutcome(err)).Inc()
}

// TimeAggregation starts a timer; call the returned func when the operation ends.
func (m *Metrics) TimeAggregation(operation string) func() {
	start := time.Now()
	return func() {
		m.AggregationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
