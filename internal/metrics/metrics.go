// Package metrics exposes prometheus collectors for the tracking core.
// A nil *Metrics is valid and records nothing, so components can take one
// without caring whether metrics are enabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "readtrack"

type Metrics struct {
	registry *prometheus.Registry

	sessions       prometheus.Counter
	readingSeconds prometheus.Counter
	appSeconds     prometheus.Counter
	writeFailures  *prometheus.CounterVec
	casConflicts   *prometheus.CounterVec
	indexRebuild   prometheus.Histogram
	booksImported  *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reading_sessions_total",
			Help:      "Reading sessions closed.",
		}),
		readingSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reading_seconds_total",
			Help:      "Seconds of reading flushed to the ledger.",
		}),
		appSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "app_seconds_total",
			Help:      "Seconds of foreground app time flushed to the ledger.",
		}),
		writeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_write_failures_total",
			Help:      "Dropped background writes, by component.",
		}, []string{"component"}),
		casConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_version_conflicts_total",
			Help:      "Lost compare-and-swap races, by key family.",
		}, []string{"key"}),
		indexRebuild: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "daily_index_rebuild_seconds",
			Help:      "Duration of full-scan daily index rebuilds.",
			Buckets:   prometheus.DefBuckets,
		}),
		booksImported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "books_imported_total",
			Help:      "Books added to the catalog, by format.",
		}, []string{"format"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reading_session_active",
			Help:      "1 while a reading session is running.",
		}),
	}

	m.registry.MustRegister(
		m.sessions,
		m.readingSeconds,
		m.appSeconds,
		m.writeFailures,
		m.casConflicts,
		m.indexRebuild,
		m.booksImported,
		m.activeSessions,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Set(1)
}

func (m *Metrics) SessionClosed(seconds uint64) {
	if m == nil {
		return
	}
	m.activeSessions.Set(0)
	m.sessions.Inc()
	m.readingSeconds.Add(float64(seconds))
}

func (m *Metrics) AppSecondsFlushed(seconds uint64) {
	if m == nil {
		return
	}
	m.appSeconds.Add(float64(seconds))
}

func (m *Metrics) WriteFailed(component string) {
	if m == nil {
		return
	}
	m.writeFailures.WithLabelValues(component).Inc()
}

// VersionConflict counts a lost CAS race. Date- and locator-keyed families
// are collapsed to their prefix to bound label cardinality.
func (m *Metrics) VersionConflict(key string) {
	if m == nil {
		return
	}
	m.casConflicts.WithLabelValues(keyFamily(key)).Inc()
}

func (m *Metrics) IndexRebuilt(seconds float64) {
	if m == nil {
		return
	}
	m.indexRebuild.Observe(seconds)
}

func (m *Metrics) BookImported(format string) {
	if m == nil {
		return
	}
	m.booksImported.WithLabelValues(format).Inc()
}

func keyFamily(key string) string {
	for i, r := range key {
		if r == '_' || r == '-' {
			return key[:i+1]
		}
	}
	return key
}
