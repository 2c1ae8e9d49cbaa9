package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Operation("upload", "ok")
	m.Operation("upload", "ok")
	m.Operation("download", "permission_denied")
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.EventDelivered()
	m.EventDropped()
	m.CompensationFailed()
	m.HTTPRequest("/api/files", "2xx")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("upload", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("download", "permission_denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensationFailure))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/files", "2xx")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Operation("upload", "ok")
		m.ConnectionOpened()
		m.ConnectionClosed()
		m.EventDelivered()
		m.EventDropped()
		m.CompensationFailed()
		m.HTTPRequest("/", "2xx")
	})
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
