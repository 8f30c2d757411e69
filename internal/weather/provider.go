package weather

import (
	"context"
	"time"
)

// Field names used when a provider declares numeric fields it cannot do without.
const (
	FieldTemperature     = "temperature"
	FieldHumidity        = "humidity"
	FieldWindSpeed       = "wind_speed"
	FieldRainProbability = "rain_probability"
)

// Provider abstracts a current-conditions weather source (e.g. Open-Meteo, OpenWeatherMap).
type Provider interface {
	Name() string
	// FetchCurrent returns the verbatim upstream response for the coordinates.
	FetchCurrent(ctx context.Context, lat, lon float64) (RawPayload, error)
	// Normalize maps a raw response onto a Reading. Missing optional fields become nil;
	// a missing timestamp or identity field is an error.
	Normalize(raw RawPayload) (Reading, error)
	// RequiredFields lists the numeric fields a reading from this provider must carry.
	RequiredFields() []string
}

// Geocoder resolves a place name into coordinates and a canonical name.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, place, countryHint string) (Site, error)
}

// ReadingStore is the append-mostly collection of readings.
type ReadingStore interface {
	PutReading(ctx context.Context, r *Reading) (uint, error)
	// QueryReadings returns readings observed at or after since, newest first.
	// An empty location matches every reading; otherwise it matches case-insensitively.
	QueryReadings(ctx context.Context, since time.Time, location string) ([]Reading, error)
	LatestReading(ctx context.Context, location string) (Reading, error)
}

// InsightStore is the append-only collection of insights.
type InsightStore interface {
	PutInsight(ctx context.Context, in *Insight) (uint, error)
	LatestInsight(ctx context.Context) (Insight, error)
	ListInsights(ctx context.Context, limit int) ([]Insight, error)
}

// Store is the contract the memory and gorm stores satisfy.
type Store interface {
	ReadingStore
	InsightStore
}
