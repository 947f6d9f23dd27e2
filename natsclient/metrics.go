package natsclient

import (
	"github.com/c360/shdr-adapter/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// connMetrics holds Prometheus metrics for the client's connection health.
// Scoped to what a pub/sub-only client can observe: status, failures,
// reconnects, and published/received message counts.
type connMetrics struct {
	status      prometheus.Gauge
	failures    prometheus.Counter
	reconnects  prometheus.Counter
	published   *prometheus.CounterVec
	received    *prometheus.CounterVec
	publishErrs *prometheus.CounterVec
}

// newConnMetrics creates and registers connection metrics with the provided registry.
func newConnMetrics(registry *metric.MetricsRegistry) (*connMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &connMetrics{
		status: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shdr_adapter",
			Subsystem: "nats",
			Name:      "connection_status",
			Help:      "Current connection status (1=connected, 0=disconnected)",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shdr_adapter",
			Subsystem: "nats",
			Name:      "connection_failures_total",
			Help:      "Total connection failures recorded by the circuit breaker",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shdr_adapter",
			Subsystem: "nats",
			Name:      "reconnects_total",
			Help:      "Total successful reconnects",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shdr_adapter",
			Subsystem: "nats",
			Name:      "messages_published_total",
			Help:      "Total messages published, by subject",
		}, []string{"subject"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shdr_adapter",
			Subsystem: "nats",
			Name:      "messages_received_total",
			Help:      "Total messages received, by subject",
		}, []string{"subject"}),
		publishErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shdr_adapter",
			Subsystem: "nats",
			Name:      "publish_errors_total",
			Help:      "Total publish errors, by subject",
		}, []string{"subject"}),
	}

	if err := registry.RegisterGauge("nats", "connection_status", m.status); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("nats", "connection_failures", m.failures); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("nats", "reconnects", m.reconnects); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("nats", "messages_published", m.published); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("nats", "messages_received", m.received); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("nats", "publish_errors", m.publishErrs); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *connMetrics) setStatus(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.status.Set(1)
	} else {
		m.status.Set(0)
	}
}

func (m *connMetrics) recordFailure() {
	if m != nil {
		m.failures.Inc()
	}
}

func (m *connMetrics) recordReconnect() {
	if m != nil {
		m.reconnects.Inc()
	}
}

func (m *connMetrics) recordPublish(subject string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.publishErrs.WithLabelValues(subject).Inc()
		return
	}
	m.published.WithLabelValues(subject).Inc()
}

func (m *connMetrics) recordReceived(subject string) {
	if m != nil {
		m.received.WithLabelValues(subject).Inc()
	}
}
