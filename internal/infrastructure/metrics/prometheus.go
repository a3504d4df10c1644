package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hikage/banken/pkg/cache"
	"github.com/hikage/banken/pkg/cache/memorycache"
)

// PrometheusExporter exports authorization metrics to Prometheus format.
type PrometheusExporter struct {
	decisionCache cache.Cache

	// Prometheus metrics
	decisions        *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpErrors       *prometheus.CounterVec
	cacheHitRate     prometheus.Gauge
	cacheKeys        prometheus.Gauge
	cacheMemoryBytes prometheus.Gauge
}

// NewPrometheusExporter creates a new Prometheus exporter.
func NewPrometheusExporter() *PrometheusExporter {
	return &PrometheusExporter{
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banken_authorize_decisions_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"outcome", "matched_via"},
		),
		httpRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banken_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route"},
		),
		httpDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "banken_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"route"},
		),
		httpErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banken_http_errors_total",
				Help: "Total number of HTTP error responses",
			},
			[]string{"route"},
		),
		cacheHitRate: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "banken_decision_cache_hit_rate",
			Help: "Current decision cache hit rate (0.0 to 1.0)",
		}),
		cacheKeys: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "banken_decision_cache_keys_current",
			Help: "Current number of keys in the decision cache",
		}),
		cacheMemoryBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "banken_decision_cache_memory_bytes",
			Help: "Current memory usage of the decision cache in bytes",
		}),
	}
}

// SetDecisionCache attaches the decision cache whose statistics feed the
// cache gauges.
func (e *PrometheusExporter) SetDecisionCache(c cache.Cache) {
	e.decisionCache = c
}

// Update refreshes gauge metrics from the cache. Counters are updated
// inline, so only gauges need this. Call periodically (e.g. every 10s).
func (e *PrometheusExporter) Update() {
	if e.decisionCache == nil {
		return
	}

	m := e.decisionCache.Metrics()
	e.cacheHitRate.Set(m.HitRate())

	if memCache, ok := e.decisionCache.(*memorycache.Cache); ok {
		e.cacheKeys.Set(float64(memCache.Len()))
		e.cacheMemoryBytes.Set(float64(memCache.Size()))
	}
}

// RecordDecision records one authorization decision.
func (e *PrometheusExporter) RecordDecision(allowed bool, matchedVia string) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	e.decisions.WithLabelValues(outcome, matchedVia).Inc()
}

// RecordRequest records an HTTP request.
func (e *PrometheusExporter) RecordRequest(route string) {
	e.httpRequests.WithLabelValues(route).Inc()
}

// RecordDuration records an HTTP request duration.
func (e *PrometheusExporter) RecordDuration(route string, durationSeconds float64) {
	e.httpDuration.WithLabelValues(route).Observe(durationSeconds)
}

// RecordError records an HTTP error response.
func (e *PrometheusExporter) RecordError(route string) {
	e.httpErrors.WithLabelValues(route).Inc()
}
