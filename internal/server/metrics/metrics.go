// Package metrics holds the Prometheus collectors of the server. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sharekeeper"

type Metrics struct {
	operations          *prometheus.CounterVec
	connections         prometheus.Gauge
	events              *prometheus.CounterVec
	compensationFailure prometheus.Counter
	httpRequests        *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_operations_total",
			Help:      "Gateway operations by name and result code.",
		}, []string{"op", "result"}),
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notify_connections",
			Help:      "Live notification connections.",
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_events_total",
			Help:      "Notification frames by outcome (delivered, dropped).",
		}, []string{"outcome"}),
		compensationFailure: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_compensation_failures_total",
			Help:      "Blobs that could not be removed after a failed metadata write or delete.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		}, []string{"route", "status"}),
	}
}

// Operation counts one gateway call; result is a common.Code or "ok".
func (m *Metrics) Operation(op, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) EventDelivered() {
	if m == nil {
		return
	}
	m.events.WithLabelValues("delivered").Inc()
}

func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.events.WithLabelValues("dropped").Inc()
}

func (m *Metrics) CompensationFailed() {
	if m == nil {
		return
	}
	m.compensationFailure.Inc()
}

func (m *Metrics) HTTPRequest(route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, status).Inc()
}
