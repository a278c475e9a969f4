// Package metrics defines the Prometheus collectors of the index, its
// writer sessions and the HTTP API, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing, so library users that do not care about metrics pay
// nothing.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	CommitsTotal         *prometheus.CounterVec
	CommitDuration       prometheus.Histogram
	DocsAddedTotal       prometheus.Counter
	SkippedFieldsTotal   prometheus.Counter
	DeletesTotal         prometheus.Counter
	SegmentFlushesTotal  *prometheus.CounterVec
	SearchesTotal        *prometheus.CounterVec
	SearchLatency        prometheus.Histogram
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	IngestEventsTotal    *prometheus.CounterVec
	SegmentCount         prometheus.Gauge
	LiveDocs             prometheus.Gauge
	DeletedDocs          prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg uses the
// Prometheus default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		CommitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textindex_commits_total",
				Help: "Total writer commits by status.",
			},
			[]string{"status"},
		),
		CommitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "textindex_commit_duration_seconds",
				Help:    "Commit latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
			},
		),
		DocsAddedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "textindex_docs_added_total",
				Help: "Total documents buffered by writers.",
			},
		),
		SkippedFieldsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "textindex_docs_skipped_fields_total",
				Help: "Total payload fields dropped during ingestion.",
			},
		),
		DeletesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "textindex_deletes_total",
				Help: "Total delete-by-term operations.",
			},
		),
		SegmentFlushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textindex_segment_flushes_total",
				Help: "Total buffered segment flushes by status.",
			},
			[]string{"status"},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textindex_searches_total",
				Help: "Total searches by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "textindex_search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "textindex_search_results_count",
				Help:    "Number of results returned per search.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		IngestEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textindex_ingest_events_total",
				Help: "Total ingestion events consumed by type and status.",
			},
			[]string{"type", "status"},
		),
		SegmentCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "textindex_segments",
				Help: "Number of committed segments.",
			},
		),
		LiveDocs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "textindex_live_docs",
				Help: "Number of committed documents not deleted.",
			},
		),
		DeletedDocs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "textindex_deleted_docs",
				Help: "Number of committed documents marked deleted.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.CommitsTotal,
		m.CommitDuration,
		m.DocsAddedTotal,
		m.SkippedFieldsTotal,
		m.DeletesTotal,
		m.SegmentFlushesTotal,
		m.SearchesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.IngestEventsTotal,
		m.SegmentCount,
		m.LiveDocs,
		m.DeletedDocs,
	)

	return m
}

// ObserveCommit records one commit attempt.
func (m *Metrics) ObserveCommit(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.CommitsTotal.WithLabelValues(status(err)).Inc()
	if err == nil {
		m.CommitDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) AddDocument(skipped int) {
	if m == nil {
		return
	}
	m.DocsAddedTotal.Inc()
	m.SkippedFieldsTotal.Add(float64(skipped))
}

func (m *Metrics) Delete() {
	if m == nil {
		return
	}
	m.DeletesTotal.Inc()
}

func (m *Metrics) Flush(err error) {
	if m == nil {
		return
	}
	m.SegmentFlushesTotal.WithLabelValues(status(err)).Inc()
}

// ObserveSearch records one search and the number of results it returned.
func (m *Metrics) ObserveSearch(results int, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.SearchLatency.Observe(d.Seconds())
	switch {
	case err != nil:
		m.SearchesTotal.WithLabelValues("error").Inc()
		return
	case results == 0:
		m.SearchesTotal.WithLabelValues("zero_result").Inc()
	default:
		m.SearchesTotal.WithLabelValues("hit").Inc()
	}
	m.SearchResultsCount.Observe(float64(results))
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

func (m *Metrics) IngestEvent(eventType string, err error) {
	if m == nil {
		return
	}
	m.IngestEventsTotal.WithLabelValues(eventType, status(err)).Inc()
}

// SetIndexStats publishes the shape of the committed index.
func (m *Metrics) SetIndexStats(segments, live, deleted int) {
	if m == nil {
		return
	}
	m.SegmentCount.Set(float64(segments))
	m.LiveDocs.Set(float64(live))
	m.DeletedDocs.Set(float64(deleted))
}

// ObserveHTTP records one served request under its route label.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Handler returns the Prometheus scrape HTTP handler for g. A nil g uses the
// default gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
