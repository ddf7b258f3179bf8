package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSettlementMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)

	m.IncOutcome(OutcomeSettled)
	m.IncOutcome(OutcomeSettled)
	m.IncOutcome(OutcomeDuplicate)
	m.IncLedgerStepFailure("inventory")
	m.IncDegraded()
	m.IncCaptureFailure("paypal")
	m.ObserveDuration("paypal", 120*time.Millisecond)

	if got := testutil.ToFloat64(m.outcomes.WithLabelValues(OutcomeSettled)); got != 2 {
		t.Fatalf("settled outcomes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ledgerFailures.WithLabelValues("inventory")); got != 1 {
		t.Fatalf("ledger failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.degraded); got != 1 {
		t.Fatalf("degraded = %v, want 1", got)
	}
}

func TestSettlementMetricsNilSafe(t *testing.T) {
	var m *SettlementMetrics
	m.IncOutcome(OutcomeFailed)
	m.IncDegraded()

	empty := NewSettlementMetrics(nil)
	empty.IncCaptureFailure("square")
	empty.ObserveDuration("square", time.Second)
}
