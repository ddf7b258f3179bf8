package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PublisherMetrics records outcomes of the outbox publishing loop.
type PublisherMetrics struct {
	published       *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
	dlq             *prometheus.CounterVec
	eventAge        prometheus.Histogram
}

// NewPublisherMetrics registers the publisher metrics on the provided registerer.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events delivered to Pub/Sub, by event type.",
	}, []string{"event_type"})
	publishFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Publish attempts that failed and will be retried, by event type.",
	}, []string{"event_type"})
	dlq := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_dlq_total",
		Help: "Outbox events parked in the dead letter queue, by reason.",
	}, []string{"reason"})
	eventAge := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_event_age_seconds",
		Help:    "Age of an outbox event at the moment it was published.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 300, 900},
	})
	reg.MustRegister(published, publishFailures, dlq, eventAge)
	return &PublisherMetrics{
		published:       published,
		publishFailures: publishFailures,
		dlq:             dlq,
		eventAge:        eventAge,
	}
}

// IncPublished increments the delivered counter for an event type.
func (p *PublisherMetrics) IncPublished(eventType string) {
	if p == nil || p.published == nil {
		return
	}
	p.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncPublishFailure increments the retryable failure counter for an event type.
func (p *PublisherMetrics) IncPublishFailure(eventType string) {
	if p == nil || p.publishFailures == nil {
		return
	}
	p.publishFailures.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDLQ increments the dead letter counter for a terminal reason.
func (p *PublisherMetrics) IncDLQ(reason string) {
	if p == nil || p.dlq == nil {
		return
	}
	p.dlq.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveEventAge records how long an event sat in the outbox before publishing.
func (p *PublisherMetrics) ObserveEventAge(age time.Duration) {
	if p == nil || p.eventAge == nil {
		return
	}
	p.eventAge.Observe(age.Seconds())
}
