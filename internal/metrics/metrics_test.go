package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		ObserveHTTP("/healthz", 200, time.Millisecond)
		IncNotification("log", true)
	})
}

func TestCounters(t *testing.T) {
	before := counterValue(t, reservationsCreated)
	IncReservationCreated()
	assert.Equal(t, before+1, counterValue(t, reservationsCreated))

	conflicts := reservationRejections.WithLabelValues("conflict")
	before = counterValue(t, conflicts)
	IncReservationRejected("conflict")
	assert.Equal(t, before+1, counterValue(t, conflicts))

	confirmed := statusTransitions.WithLabelValues("confirmed")
	before = counterValue(t, confirmed)
	IncStatusTransition("confirmed")
	assert.Equal(t, before+1, counterValue(t, confirmed))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "2xx", statusLabel(201))
	assert.Equal(t, "3xx", statusLabel(304))
	assert.Equal(t, "4xx", statusLabel(409))
	assert.Equal(t, "5xx", statusLabel(503))
}
