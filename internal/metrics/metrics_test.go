package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordFetch("open-meteo", "success")
	m.RecordFetch("open-meteo", "success")
	m.RecordReadingStored()
	m.RecordInsight("augment_skipped")
	m.ObserveUpstream("open-meteo", "current", 0.2)

	assert.InDelta(t, 2, testutil.ToFloat64(m.fetchTotal.WithLabelValues("open-meteo", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.readingsStored), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.insightsTotal.WithLabelValues("augment_skipped")), 0)
}

func TestMetrics_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordFetch("x", "y")
		m.RecordReadingStored()
		m.RecordInsight("no_data")
		m.ObserveUpstream("x", "y", 1)
	})
}
