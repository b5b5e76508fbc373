package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookEventsTotal,
		webhookApplyLatencyMs,
	)
}

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook events by kind and outcome (applied/duplicate/orphan/ignored/invalid_signature/malformed/error).",
		},
		[]string{"kind", "outcome"},
	)

	webhookApplyLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhook_apply_latency_ms",
			Help:    "Reconciler apply latency distribution in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
	)
)

func IncWebhookEvent(kind, outcome string) {
	webhookEventsTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}

func ObserveWebhookApply(latencyMs float64) {
	webhookApplyLatencyMs.Observe(latencyMs)
}
