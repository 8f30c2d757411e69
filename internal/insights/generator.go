package insights

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-insights/internal/logger"
	"github.com/i474232898/weather-insights/internal/metrics"
	"github.com/i474232898/weather-insights/internal/weather"
)

// DefaultHours is the window used when a request does not name one.
const DefaultHours = 24

// ReadingSource collects and summarizes readings. *weather.Service satisfies it.
type ReadingSource interface {
	Collect(ctx context.Context, req weather.CollectRequest) (*weather.Reading, error)
	Summarize(ctx context.Context, hours int, location string) (weather.AggregateResult, []weather.Reading, error)
	Now() time.Time
}

// Request describes one generation run.
type Request struct {
	Hours        int    `json:"hours"`
	Location     string `json:"location"`
	ForceCollect bool   `json:"force_collect"`
}

// Result is the persisted insight and how it was produced.
type Result struct {
	Insight   weather.Insight         `json:"insight"`
	Outcome   Outcome                 `json:"outcome"`
	Aggregate weather.AggregateResult `json:"aggregate"`
}

// Generator runs the aggregate, narrate, augment and persist pipeline.
type Generator struct {
	source    ReadingSource
	insights  weather.InsightStore
	augmenter *Augmenter
	metrics   *metrics.Metrics
	log       *logger.Logger
}

func NewGenerator(source ReadingSource, insights weather.InsightStore, augmenter *Augmenter, m *metrics.Metrics, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{
		source:    source,
		insights:  insights,
		augmenter: augmenter,
		metrics:   m,
		log:       log,
	}
}

// Generate produces and persists one insight. Once the window has been read, the
// only failure left is the insight write itself.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	hours := req.Hours
	if hours == 0 {
		hours = DefaultHours
	}
	location := strings.TrimSpace(req.Location)

	if req.ForceCollect {
		if _, err := g.source.Collect(ctx, weather.CollectRequest{Place: location}); err != nil {
			g.log.Warn("forced collection failed, generating from stored readings",
				zap.String("location", location), logger.Err(err))
		}
	}

	agg, readings, err := g.source.Summarize(ctx, hours, location)
	if err != nil {
		return nil, err
	}

	text := Render(agg, hours, location)
	outcome := OutcomeNoData
	if !agg.Empty() {
		ref := location
		if ref == "" && agg.MostRecent != nil {
			ref = agg.MostRecent.Location
		}
		recent := readings
		if len(recent) > MaxRecentReadings {
			recent = recent[:MaxRecentReadings]
		}
		text, outcome = g.augmenter.Enhance(ctx, text, recent, ref)
	}

	in := weather.Insight{GeneratedAt: g.source.Now(), Text: text}
	if _, err := g.insights.PutInsight(ctx, &in); err != nil {
		return nil, fmt.Errorf("failed to store insight: %w", err)
	}
	g.metrics.RecordInsight(string(outcome))
	g.log.Info("insight generated", zap.Uint("id", in.ID), zap.String("outcome", string(outcome)),
		zap.Int("readings", agg.Count), zap.Int("hours", hours))

	return &Result{Insight: in, Outcome: outcome, Aggregate: agg}, nil
}

// Latest returns the most recent insight or weather.ErrNotFound.
func (g *Generator) Latest(ctx context.Context) (weather.Insight, error) {
	return g.insights.LatestInsight(ctx)
}

// List returns up to limit insights, newest first.
func (g *Generator) List(ctx context.Context, limit int) ([]weather.Insight, error) {
	return g.insights.ListInsights(ctx, limit)
}
