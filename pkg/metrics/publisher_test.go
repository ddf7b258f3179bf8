package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPublisherMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPublisherMetrics(reg)

	m.IncPublished("order_settled")
	m.IncPublished("order_settled")
	m.IncPublishFailure("payment_failed")
	m.IncDLQ("max_attempts")
	m.ObserveEventAge(3 * time.Second)

	if got := testutil.ToFloat64(m.published.WithLabelValues("order_settled")); got != 2 {
		t.Fatalf("published = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.publishFailures.WithLabelValues("payment_failed")); got != 1 {
		t.Fatalf("publish failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.dlq.WithLabelValues("max_attempts")); got != 1 {
		t.Fatalf("dlq = %v, want 1", got)
	}
}

func TestPublisherMetricsNilSafe(t *testing.T) {
	var m *PublisherMetrics
	m.IncPublished("order_settled")
	m.ObserveEventAge(time.Second)

	empty := NewPublisherMetrics(nil)
	empty.IncDLQ("non_retryable")
	empty.IncPublishFailure("order_settled")
}
