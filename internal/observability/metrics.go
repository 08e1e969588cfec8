package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/pencilbase-backend/internal/logger"
)

const (
	namespace = "pencilbase"

	SearchStatusOK       = "ok"
	SearchStatusNotFound = "not_found"
	SearchStatusError    = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	searchRequests    *prometheus.CounterVec
	searchCacheHits   prometheus.Counter
	searchDuration    prometheus.Histogram
	reconcileRuns     prometheus.Counter
	reconcileFailures prometheus.Counter
	reconcileDuration prometheus.Histogram
}

func NewMetrics(log *logger.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		searchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Search requests by outcome.",
		}, []string{"status"}),
		searchCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "cache_hits_total",
			Help:      "Search responses served from the redis cache.",
		}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		reconcileRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Completed reconciliation runs.",
		}),
		reconcileFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "topic_failures_total",
			Help:      "Per-topic reconciliation failures.",
		}),
		reconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Full reconciliation run duration.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
	}
	m.registry.MustRegister(
		m.searchRequests,
		m.searchCacheHits,
		m.searchDuration,
		m.reconcileRuns,
		m.reconcileFailures,
		m.reconcileDuration,
	)
	if log != nil {
		log.With("component", "Metrics").Info("Prometheus metrics registered")
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveSearch(status string, seconds float64) {
	if m == nil {
		return
	}
	m.searchRequests.WithLabelValues(status).Inc()
	m.searchDuration.Observe(seconds)
}

func (m *Metrics) SearchCacheHit() {
	if m == nil {
		return
	}
	m.searchCacheHits.Inc()
}

func (m *Metrics) ObserveReconcile(topicFailures int, seconds float64) {
	if m == nil {
		return
	}
	m.reconcileRuns.Inc()
	m.reconcileFailures.Add(float64(topicFailures))
	m.reconcileDuration.Observe(seconds)
}
