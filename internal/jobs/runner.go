package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/weather-insights/internal/insights"
	"github.com/i474232898/weather-insights/internal/logger"
	"github.com/i474232898/weather-insights/internal/weather"
)

const (
	defaultCollectTimeout = 30 * time.Second
	maxConcurrentFetches  = 4
)

// Collector stores one fresh reading. *weather.Service satisfies it.
type Collector interface {
	Collect(ctx context.Context, req weather.CollectRequest) (*weather.Reading, error)
}

// InsightGenerator runs the insight pipeline. *insights.Generator satisfies it.
type InsightGenerator interface {
	Generate(ctx context.Context, req insights.Request) (*insights.Result, error)
}

// Runner holds the two clock-triggered entry points.
type Runner struct {
	collector Collector
	generator InsightGenerator
	locations []weather.Location
	timeout   time.Duration
	log       *logger.Logger
}

// NewRunner returns a Runner. With no locations, RunCollect uses the default site.
func NewRunner(c Collector, g InsightGenerator, locations []weather.Location, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		collector: c,
		generator: g,
		locations: locations,
		timeout:   defaultCollectTimeout,
		log:       log,
	}
}

// RunCollect fetches every configured location concurrently. Fetches are
// independent; the first error is returned after all of them finished.
func (r *Runner) RunCollect(ctx context.Context) error {
	locations := r.locations
	if len(locations) == 0 {
		locations = []weather.Location{{}}
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for _, loc := range locations {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			reading, err := r.collector.Collect(ctx, weather.CollectRequest{Place: loc.City, Country: loc.Country})
			if err != nil {
				r.log.Warn("collect failed", zap.String("location", loc.Key()), logger.Err(err))
				return err
			}
			r.log.Info("reading collected", zap.String("location", reading.Location), zap.Uint("id", reading.ID))
			return nil
		})
	}
	return g.Wait()
}

// RunGenerate produces and persists one insight.
func (r *Runner) RunGenerate(ctx context.Context, hours int, forceCollect bool, location string) (*insights.Result, error) {
	res, err := r.generator.Generate(ctx, insights.Request{Hours: hours, Location: location, ForceCollect: forceCollect})
	if err != nil {
		r.log.Error("insight generation failed", zap.Int("hours", hours), zap.String("location", location), logger.Err(err))
		return nil, err
	}
	return res, nil
}
