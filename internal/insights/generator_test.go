package insights

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-insights/internal/metrics"
	"github.com/i474232898/weather-insights/internal/store"
	"github.com/i474232898/weather-insights/internal/weather"
)

var genNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type brokenProvider struct{ calls int }

func (p *brokenProvider) Name() string { return "broken" }

func (p *brokenProvider) FetchCurrent(context.Context, float64, float64) (weather.RawPayload, error) {
	p.calls++
	return nil, &weather.UpstreamUnavailableError{Provider: "broken", Op: "current", StatusCode: 500}
}

func (p *brokenProvider) Normalize(weather.RawPayload) (weather.Reading, error) {
	return weather.Reading{}, errors.New("unreachable")
}

func (p *brokenProvider) RequiredFields() []string { return nil }

func newGenerator(t *testing.T, c Completer) (*Generator, *store.MemoryStore, *brokenProvider, *prometheus.Registry) {
	t.Helper()
	s := store.NewMemoryStore(0, 0)
	p := &brokenProvider{}
	svc := weather.NewService(s, p, nil,
		weather.WithDefaultSite(weather.Site{Name: "Brasília", Latitude: -15.78, Longitude: -47.93}),
		weather.WithClock(func() time.Time { return genNow }))

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	return NewGenerator(svc, s, NewAugmenter(c, nil), m, nil), s, p, reg
}

func put(t *testing.T, s *store.MemoryStore, ago time.Duration, temp, hum, rain float64) {
	t.Helper()
	_, err := s.PutReading(t.Context(), &weather.Reading{
		ObservedAt:      genNow.Add(-ago),
		Location:        "Brasília",
		Temperature:     weather.Float(temp),
		Humidity:        weather.Float(hum),
		RainProbability: weather.Float(rain),
		Source:          "test",
	})
	require.NoError(t, err)
}

func TestGenerator_NoData(t *testing.T) {
	g, s, _, reg := newGenerator(t, &stubCompleter{text: "never"})

	res, err := g.Generate(t.Context(), Request{Hours: 24})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoData, res.Outcome)
	assert.Equal(t, 0, res.Aggregate.Count)
	assert.Equal(t, NoDataText(""), res.Insight.Text)
	assert.NotZero(t, res.Insight.ID)
	assert.Equal(t, genNow, res.Insight.GeneratedAt)

	latest, err := s.LatestInsight(t.Context())
	require.NoError(t, err)
	assert.Equal(t, res.Insight.ID, latest.ID)
	count, err := testutil.GatherAndCount(reg, "weather_insights_generated_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGenerator_ScenarioHotAndRainy(t *testing.T) {
	g, s, _, _ := newGenerator(t, nil)
	put(t, s, time.Hour, 32, 50, 70)

	res, err := g.Generate(t.Context(), Request{Hours: 24})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Contains(t, res.Insight.Text, RemarkHeat)
	assert.Contains(t, res.Insight.Text, RemarkRain)
	assert.NotContains(t, res.Insight.Text, RemarkCold)
	assert.NotContains(t, res.Insight.Text, RemarkDry)
	assert.True(t, strings.HasSuffix(res.Insight.Text, SkipMarker))
}

func TestGenerator_AugmentationOutcomes(t *testing.T) {
	t.Run("augmented", func(t *testing.T) {
		c := &stubCompleter{text: "Hot and humid."}
		g, s, _, _ := newGenerator(t, c)
		for i := 0; i < 7; i++ {
			put(t, s, time.Duration(i)*time.Hour, 25, 60, 30)
		}

		res, err := g.Generate(t.Context(), Request{})
		require.NoError(t, err)
		assert.Equal(t, OutcomeAugmented, res.Outcome)
		assert.Equal(t, "Hot and humid.", res.Insight.Text)
		assert.Equal(t, MaxRecentReadings, strings.Count(c.prompt.User, "\n- "))
		assert.Contains(t, c.prompt.User, "Location: Brasília")
	})

	t.Run("failure falls back and still persists", func(t *testing.T) {
		g, s, _, _ := newGenerator(t, &stubCompleter{err: &AugmentationError{Kind: KindTimeout}})
		put(t, s, time.Hour, 25, 60, 30)

		res, err := g.Generate(t.Context(), Request{Hours: 24})
		require.NoError(t, err)
		assert.Equal(t, OutcomeFallback, res.Outcome)
		assert.True(t, strings.HasSuffix(res.Insight.Text, "\n\n"+FallbackMarker))

		list, err := g.List(t.Context(), 10)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestGenerator_ForceCollectFailureIsNotFatal(t *testing.T) {
	g, s, p, _ := newGenerator(t, nil)
	put(t, s, time.Hour, 20, 50, 10)

	res, err := g.Generate(t.Context(), Request{Hours: 24, ForceCollect: true})
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, 1, res.Aggregate.Count)
}

func TestGenerator_InvalidWindow(t *testing.T) {
	g, _, _, _ := newGenerator(t, nil)

	_, err := g.Generate(t.Context(), Request{Hours: -3})
	assert.True(t, weather.IsValidation(err))

	_, err = g.Latest(t.Context())
	assert.ErrorIs(t, err, weather.ErrNotFound)
}
