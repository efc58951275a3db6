package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks order notification deliveries and live sessions.
type OrderMetrics struct {
	deliveries *prometheus.CounterVec
	duration   prometheus.Histogram
	sessions   prometheus.Gauge
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_deliveries_total",
		Help: "Order notifications sent, by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_delivery_duration_seconds",
		Help:    "Time spent delivering one order notification.",
		Buckets: prometheus.DefBuckets,
	})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_sessions",
		Help: "Visitor sessions currently held in memory.",
	})
	reg.MustRegister(deliveries, duration, sessions)
	return &OrderMetrics{
		deliveries: deliveries,
		duration:   duration,
		sessions:   sessions,
	}
}

// ObserveDelivery records one send attempt. Outcome is "delivered" or the
// failure class reported by the sender.
func (m *OrderMetrics) ObserveDelivery(outcome string, took time.Duration) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(took.Seconds())
}

// SetSessions publishes the current session count.
func (m *OrderMetrics) SetSessions(n int) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Set(float64(n))
}
