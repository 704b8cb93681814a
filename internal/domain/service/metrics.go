package service

// Metrics collects rate limiting metrics. It keeps the domain independent of
// the monitoring backend; monitoring.Metrics is the Prometheus implementation.
type Metrics interface {
	// RecordDecision records a policy evaluation outcome: allowed, denied or failed_open.
	RecordDecision(family, policy, outcome string)

	// RecordStoreError records a counter store failure that was absorbed.
	RecordStoreError(operation string)

	// ObserveStoreLatency records a store round trip in seconds.
	ObserveStoreLatency(operation string, seconds float64)

	// RecordEmailQuota records an email quota check outcome and its tier.
	RecordEmailQuota(outcome, tier string)
}

// Decision outcomes used as metric labels.
const (
	OutcomeAllowed    = "allowed"
	OutcomeDenied     = "denied"
	OutcomeFailedOpen = "failed_open"
)

type noopMetrics struct{}

// NewNoopMetrics returns a Metrics that discards everything.
func NewNoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordDecision(string, string, string) {}
func (noopMetrics) RecordStoreError(string)               {}
func (noopMetrics) ObserveStoreLatency(string, float64)   {}
func (noopMetrics) RecordEmailQuota(string, string)       {}
