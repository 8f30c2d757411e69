package store

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/i474232898/weather-insights/internal/weather"
)

// SeedSource marks readings written by Seed.
const SeedSource = "seed-script"

var (
	seedRainChoices      = []float64{0, 10, 20, 30, 40, 60, 80, 100}
	seedConditionChoices = []string{"clear sky", "mainly clear", "partly cloudy", "overcast", "fog", "rain"}
)

// SeedOptions describes a run of synthetic readings.
type SeedOptions struct {
	Days      int // whole days before today, at least 1
	StepHours int // hours between readings, 1..24
	Location  string
	Now       time.Time
	Rand      *rand.Rand // nil uses a time-seeded source
}

// Seed writes synthetic readings for each of the last Days days, every StepHours
// hours starting at midnight UTC. It returns how many readings were stored.
func Seed(ctx context.Context, s weather.ReadingStore, opts SeedOptions) (int, error) {
	if opts.Days < 1 {
		return 0, &weather.ValidationError{Field: "days", Reason: "must be at least 1"}
	}
	if opts.StepHours < 1 || opts.StepHours > 24 {
		return 0, &weather.ValidationError{Field: "step", Reason: "must be between 1 and 24"}
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}

	today := opts.Now.UTC().Truncate(24 * time.Hour)
	total := 0
	for day := opts.Days; day > 0; day-- {
		start := today.AddDate(0, 0, -day)
		for hour := 0; hour < 24; hour += opts.StepHours {
			r := weather.Reading{
				ObservedAt:      start.Add(time.Duration(hour) * time.Hour),
				Location:        opts.Location,
				Temperature:     weather.Float(uniform(rng, 18, 34)),
				Humidity:        weather.Float(uniform(rng, 30, 90)),
				WindSpeed:       weather.Float(uniform(rng, 0, 12)),
				RainProbability: weather.Float(seedRainChoices[rng.IntN(len(seedRainChoices))]),
				Condition:       weather.String(seedConditionChoices[rng.IntN(len(seedConditionChoices))]),
				Source:          SeedSource,
				RawPayload:      weather.RawPayload(`{}`),
			}
			if _, err := s.PutReading(ctx, &r); err != nil {
				return total, fmt.Errorf("failed to store seed reading: %w", err)
			}
			total++
		}
	}
	return total, nil
}

// uniform returns a value in [lo, hi) rounded to one decimal.
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return math.Round((lo+rng.Float64()*(hi-lo))*10) / 10
}
