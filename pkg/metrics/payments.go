package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records counters for the payment reconciliation flow.
type PaymentMetrics struct {
	reconcileOutcomes  *prometheus.CounterVec
	gatewayDuration    *prometheus.HistogramVec
	initiationFailures prometheus.Counter
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconcile_outcomes_total",
		Help: "Reconciliation outcomes by result.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_gateway_call_duration_seconds",
		Help:    "Duration of payment gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	initFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_initiation_failures_total",
		Help: "Payment initiations that failed after order creation.",
	})
	reg.MustRegister(outcomes, duration, initFailures)
	return &PaymentMetrics{
		reconcileOutcomes:  outcomes,
		gatewayDuration:    duration,
		initiationFailures: initFailures,
	}
}

// IncReconcileOutcome increments the counter for the named outcome.
func (p *PaymentMetrics) IncReconcileOutcome(outcome string) {
	if p == nil || p.reconcileOutcomes == nil {
		return
	}
	p.reconcileOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveGatewayCall records the duration for the named gateway operation.
func (p *PaymentMetrics) ObserveGatewayCall(operation string, duration time.Duration) {
	if p == nil || p.gatewayDuration == nil {
		return
	}
	p.gatewayDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncInitiationFailure counts a failed payment initiation.
func (p *PaymentMetrics) IncInitiationFailure() {
	if p == nil || p.initiationFailures == nil {
		return
	}
	p.initiationFailures.Inc()
}

// PublisherMetrics records metadata for the outbox publisher worker.
type PublisherMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewPublisherMetrics registers the publisher metrics on the provided registerer.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_duration_seconds",
		Help:    "Duration of outbox publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_success",
		Help: "Successfully published outbox events.",
	}, []string{"topic"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failure",
		Help: "Failed outbox publish attempts.",
	}, []string{"topic"})
	reg.MustRegister(duration, success, failure)
	return &PublisherMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the publish duration for the named topic.
func (p *PublisherMetrics) ObserveDuration(topic string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(topic)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named topic.
func (p *PublisherMetrics) IncSuccess(topic string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncFailure increments the failure counter for the named topic.
func (p *PublisherMetrics) IncFailure(topic string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(topic)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
