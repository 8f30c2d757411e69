package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather"

// Metrics groups the collectors of the service. A nil *Metrics is valid and records nothing.
type Metrics struct {
	fetchTotal      *prometheus.CounterVec
	upstreamSeconds *prometheus.HistogramVec
	readingsStored  prometheus.Counter
	insightsTotal   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Weather fetch attempts by provider and result.",
		}, []string{"provider", "result"}),
		upstreamSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_seconds",
			Help:      "Duration of upstream weather and geocoding requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "op"}),
		readingsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_stored_total",
			Help:      "Readings written to the store.",
		}),
		insightsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insights_generated_total",
			Help:      "Insights persisted, by pipeline outcome.",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{m.fetchTotal, m.upstreamSeconds, m.readingsStored, m.insightsTotal} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordFetch counts one fetch attempt.
func (m *Metrics) RecordFetch(provider, result string) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(provider, result).Inc()
}

// ObserveUpstream records the duration of one upstream call.
func (m *Metrics) ObserveUpstream(provider, op string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamSeconds.WithLabelValues(provider, op).Observe(seconds)
}

// RecordReadingStored counts one persisted reading.
func (m *Metrics) RecordReadingStored() {
	if m == nil {
		return
	}
	m.readingsStored.Inc()
}

// RecordInsight counts one persisted insight.
func (m *Metrics) RecordInsight(outcome string) {
	if m == nil {
		return
	}
	m.insightsTotal.WithLabelValues(outcome).Inc()
}
