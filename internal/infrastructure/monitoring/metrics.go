package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics of the rate-limiting layer.
type Metrics struct {
	RateLimitDecisions *prometheus.CounterVec
	StoreErrors        *prometheus.CounterVec
	StoreLatency       *prometheus.HistogramVec
	EmailQuotaChecks   *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg.
// Passing prometheus.DefaultRegisterer exposes them on /metrics; tests pass a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RateLimitDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskhub_rate_limit_decisions_total",
				Help: "Total number of rate limit decisions by policy and outcome.",
			},
			[]string{"family", "policy", "outcome"},
		),
		StoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskhub_rate_limit_store_errors_total",
				Help: "Total number of counter store failures that were absorbed (fail-open).",
			},
			[]string{"operation"},
		),
		StoreLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskhub_rate_limit_store_latency_seconds",
				Help:    "Latency of counter store round trips.",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
			},
			[]string{"operation"},
		),
		EmailQuotaChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskhub_email_quota_checks_total",
				Help: "Total number of email quota checks by outcome and binding tier.",
			},
			[]string{"outcome", "tier"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskhub_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskhub_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordDecision records the outcome of one policy evaluation.
func (m *Metrics) RecordDecision(family, policy, outcome string) {
	m.RateLimitDecisions.WithLabelValues(family, policy, outcome).Inc()
}

// RecordStoreError records an absorbed counter store failure.
func (m *Metrics) RecordStoreError(operation string) {
	m.StoreErrors.WithLabelValues(operation).Inc()
}

// ObserveStoreLatency records the duration of a store round trip in seconds.
func (m *Metrics) ObserveStoreLatency(operation string, seconds float64) {
	m.StoreLatency.WithLabelValues(operation).Observe(seconds)
}

// RecordEmailQuota records an email quota check.
func (m *Metrics) RecordEmailQuota(outcome, tier string) {
	m.EmailQuotaChecks.WithLabelValues(outcome, tier).Inc()
}
