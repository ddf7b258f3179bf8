package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records outcomes of the payment settlement pipeline.
type SettlementMetrics struct {
	outcomes        *prometheus.CounterVec
	ledgerFailures  *prometheus.CounterVec
	degraded        prometheus.Counter
	captureFailures *prometheus.CounterVec
	duration        *prometheus.HistogramVec
}

// Outcome labels for settlement_outcomes_total.
const (
	OutcomeSettled   = "settled"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
	OutcomeRecovered = "recovered"
)

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_outcomes_total",
		Help: "Settlement attempts by terminal outcome.",
	}, []string{"outcome"})
	ledgerFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_ledger_step_failures_total",
		Help: "Ledger steps that failed after the order was marked paid.",
	}, []string{"step"})
	degraded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_degraded_total",
		Help: "Orders settled without ledger execution due to a missing snapshot.",
	})
	captureFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_capture_failures_total",
		Help: "Two-phase capture calls that failed at the gateway.",
	}, []string{"gateway"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_duration_seconds",
		Help:    "Duration of settlement handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway"})
	reg.MustRegister(outcomes, ledgerFailures, degraded, captureFailures, duration)
	return &SettlementMetrics{
		outcomes:        outcomes,
		ledgerFailures:  ledgerFailures,
		degraded:        degraded,
		captureFailures: captureFailures,
		duration:        duration,
	}
}

// IncOutcome increments the counter for a terminal settlement outcome.
func (s *SettlementMetrics) IncOutcome(outcome string) {
	if s == nil || s.outcomes == nil {
		return
	}
	s.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncLedgerStepFailure increments the failure counter for the named ledger step.
func (s *SettlementMetrics) IncLedgerStepFailure(step string) {
	if s == nil || s.ledgerFailures == nil {
		return
	}
	s.ledgerFailures.WithLabelValues(normalizeLabel(step)).Inc()
}

// IncDegraded increments the degraded settlement counter.
func (s *SettlementMetrics) IncDegraded() {
	if s == nil || s.degraded == nil {
		return
	}
	s.degraded.Inc()
}

// IncCaptureFailure increments the capture failure counter for a gateway.
func (s *SettlementMetrics) IncCaptureFailure(gateway string) {
	if s == nil || s.captureFailures == nil {
		return
	}
	s.captureFailures.WithLabelValues(normalizeLabel(gateway)).Inc()
}

// ObserveDuration records how long one settlement attempt took.
func (s *SettlementMetrics) ObserveDuration(gateway string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(gateway)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
