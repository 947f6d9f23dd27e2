package adapter

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/shdr-adapter/metric"
)

// Metrics holds the Prometheus instruments for the adapter core, following
// the same nil-registry-means-no-metrics pattern as the donor's per-
// component Metrics structs (input/udp, output/websocket): a nil registry
// at construction yields a nil *Metrics, and every recording method is
// nil-receiver-safe so call sites never need a nil check of their own.
type Metrics struct {
	linesSent        prometheus.Counter
	duplicatesFilter prometheus.Counter
	writeErrors      prometheus.Counter
	clientsConnected prometheus.Gauge
	connectsTotal    prometheus.Counter
	disconnectsTotal prometheus.Counter
	pingsReceived    prometheus.Counter
	pongsSent        prometheus.Counter
	heartbeatLatency prometheus.Histogram
}

// newMetrics creates and registers the adapter core's metrics. A nil
// registry disables metrics entirely, matching the donor convention that
// observability is opt-in, never load-bearing for correctness.
func newMetrics(registry *metric.MetricsRegistry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		linesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shdr_adapter",
			Subsystem: "core",
			Name:      "lines_sent_total",
			Help:      "Total SHDR lines written to connected agents",
		}),
		duplicatesFilter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shdr_adapter",
			Subsystem: "core",
			Name:      "duplicates_filtered_total",
			Help:      "Observations dropped because change_id matched current",
		}),
		writeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shdr_adapter",
			Subsystem: "core",
			Name:      "write_errors_total",
			Help:      "Client write failures that closed a connection",
		}),
		clientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shdr_adapter",
			Subsystem: "core",
			Name:      "clients_connected",
			Help:      "Current number of connected agents",
		}),
		connectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shdr_adapter",
			Subsystem: "core",
			Name:      "agent_connects_total",
			Help:      "Total agent connections accepted",
		}),
		disconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shdr_adapter",
			Subsystem: "core",
			Name:      "agent_disconnects_total",
			Help:      "Total agent disconnections",
		}),
		pingsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shdr_adapter",
			Subsystem: "core",
			Name:      "pings_received_total",
			Help:      "Total '* PING' heartbeats received from agents",
		}),
		pongsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shdr_adapter",
			Subsystem: "core",
			Name:      "pongs_sent_total",
			Help:      "Total '* PONG' heartbeat replies sent to agents",
		}),
		heartbeatLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shdr_adapter",
			Subsystem: "core",
			Name:      "heartbeat_reply_seconds",
			Help:      "Time from receiving '* PING' to writing '* PONG'",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}

	registry.RegisterCounter("shdr_adapter_core", "lines_sent", m.linesSent)
	registry.RegisterCounter("shdr_adapter_core", "duplicates_filtered", m.duplicatesFilter)
	registry.RegisterCounter("shdr_adapter_core", "write_errors", m.writeErrors)
	registry.RegisterGauge("shdr_adapter_core", "clients_connected", m.clientsConnected)
	registry.RegisterCounter("shdr_adapter_core", "agent_connects", m.connectsTotal)
	registry.RegisterCounter("shdr_adapter_core", "agent_disconnects", m.disconnectsTotal)
	registry.RegisterCounter("shdr_adapter_core", "pings_received", m.pingsReceived)
	registry.RegisterCounter("shdr_adapter_core", "pongs_sent", m.pongsSent)
	registry.RegisterHistogram("shdr_adapter_core", "heartbeat_latency", m.heartbeatLatency)

	return m
}

func (m *Metrics) recordLineSent() {
	if m == nil {
		return
	}
	m.linesSent.Inc()
}

func (m *Metrics) recordDuplicateFiltered() {
	if m == nil {
		return
	}
	m.duplicatesFilter.Inc()
}

func (m *Metrics) recordWriteError() {
	if m == nil {
		return
	}
	m.writeErrors.Inc()
}

func (m *Metrics) recordConnect() {
	if m == nil {
		return
	}
	m.connectsTotal.Inc()
	m.clientsConnected.Inc()
}

func (m *Metrics) recordDisconnect() {
	if m == nil {
		return
	}
	m.disconnectsTotal.Inc()
	m.clientsConnected.Dec()
}

func (m *Metrics) recordPing() {
	if m == nil {
		return
	}
	m.pingsReceived.Inc()
}

func (m *Metrics) recordPongSeconds(seconds float64) {
	if m == nil {
		return
	}
	m.pongsSent.Inc()
	m.heartbeatLatency.Observe(seconds)
}
