package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics counts the fulfillment pipeline's externally meaningful
// outcomes.
type PipelineMetrics struct {
	CheckoutSessions   *prometheus.CounterVec
	WebhookEvents      *prometheus.CounterVec
	AmountMismatches   prometheus.Counter
	EnrollmentsGranted prometheus.Counter
	ProviderLatency    *prometheus.HistogramVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		CheckoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coursecheckout",
			Name:      "checkout_sessions_total",
			Help:      "Checkout session creation attempts by result.",
		}, []string{"result"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coursecheckout",
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by reconciliation outcome.",
		}, []string{"outcome"}),
		AmountMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coursecheckout",
			Name:      "amount_mismatch_total",
			Help:      "Completed-payment events rejected for amount mismatch.",
		}),
		EnrollmentsGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coursecheckout",
			Name:      "enrollments_granted_total",
			Help:      "Enrollments created or reactivated by paid orders.",
		}),
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coursecheckout",
			Name:      "provider_call_duration_ms",
			Help:      "Payment provider call latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"op"}),
	}
	reg.MustRegister(
		m.CheckoutSessions, m.WebhookEvents, m.AmountMismatches,
		m.EnrollmentsGranted, m.ProviderLatency,
	)
	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}
