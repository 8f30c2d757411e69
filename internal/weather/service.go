package weather

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-insights/internal/logger"
	"github.com/i474232898/weather-insights/internal/metrics"
)

// MaxWindowHours bounds the trailing window accepted by Summarize.
const MaxWindowHours = 24 * 365

// CollectRequest names the place to collect for. An empty Place selects the
// configured default site.
type CollectRequest struct {
	Place   string `json:"location"`
	Country string `json:"country"`
}

// Service resolves places, fetches current conditions, stores readings and
// summarizes trailing windows of them.
type Service struct {
	store       Store
	provider    Provider
	geocoder    Geocoder
	defaultSite *Site
	metrics     *metrics.Metrics
	log         *logger.Logger
	now         func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithDefaultSite sets the coordinates used when a request names no place.
func WithDefaultSite(site Site) Option {
	return func(s *Service) {
		s.defaultSite = &site
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithClock overrides the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new Service. geocoder may be nil when only the default
// site is ever collected.
func NewService(store Store, provider Provider, geocoder Geocoder, opts ...Option) *Service {
	s := &Service{
		store:    store,
		provider: provider,
		geocoder: geocoder,
		log:      logger.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// Collect fetches current conditions for the requested place and stores exactly
// one new reading. Nothing is stored when any step fails.
func (s *Service) Collect(ctx context.Context, req CollectRequest) (*Reading, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("no weather provider configured")
	}
	providerName := s.provider.Name()

	site, err := s.resolve(ctx, req)
	if err != nil {
		s.metrics.RecordFetch(providerName, resultLabel(err))
		return nil, err
	}

	start := time.Now()
	raw, err := s.provider.FetchCurrent(ctx, site.Latitude, site.Longitude)
	s.metrics.ObserveUpstream(providerName, "current", time.Since(start).Seconds())
	if err != nil {
		s.log.Warn("weather fetch failed", zap.String("provider", providerName),
			zap.String("site", site.Name), logger.Err(err))
		s.metrics.RecordFetch(providerName, resultLabel(err))
		return nil, err
	}

	reading, err := s.provider.Normalize(raw)
	if err != nil {
		s.metrics.RecordFetch(providerName, "normalize_error")
		return nil, &UpstreamUnavailableError{Provider: providerName, Op: "normalize", Err: err}
	}
	if site.Name != "" {
		reading.Location = site.Name
	}
	if reading.Source == "" {
		reading.Source = providerName
	}
	reading.RawPayload = raw

	if err := ValidateReading(reading, s.provider.RequiredFields()...); err != nil {
		s.metrics.RecordFetch(providerName, "validation_error")
		return nil, err
	}

	id, err := s.store.PutReading(ctx, &reading)
	if err != nil {
		s.metrics.RecordFetch(providerName, "store_error")
		return nil, fmt.Errorf("failed to store reading: %w", err)
	}
	s.metrics.RecordFetch(providerName, "success")
	s.metrics.RecordReadingStored()
	s.log.Debug("reading stored", zap.Uint("id", id), zap.String("location", reading.Location),
		zap.Time("observed_at", reading.ObservedAt))

	return &reading, nil
}

func (s *Service) resolve(ctx context.Context, req CollectRequest) (Site, error) {
	place := strings.TrimSpace(req.Place)
	if place == "" {
		if s.defaultSite == nil {
			return Site{}, &ValidationError{Field: "location", Reason: "required when no default site is configured"}
		}
		return *s.defaultSite, nil
	}
	if s.geocoder == nil {
		return Site{}, &ValidationError{Field: "location", Reason: "geocoding is not configured"}
	}

	start := time.Now()
	site, err := s.geocoder.Geocode(ctx, place, strings.TrimSpace(req.Country))
	s.metrics.ObserveUpstream(s.geocoder.Name(), "geocode", time.Since(start).Seconds())
	if err != nil {
		return Site{}, err
	}
	if site.Name == "" {
		site.Name = place
	}
	return site, nil
}

// Summarize aggregates the readings observed within the last hours, optionally
// filtered by location. The readings are returned newest first.
func (s *Service) Summarize(ctx context.Context, hours int, location string) (AggregateResult, []Reading, error) {
	if hours < 1 || hours > MaxWindowHours {
		return AggregateResult{}, nil, &ValidationError{
			Field:  "hours",
			Reason: fmt.Sprintf("must be between 1 and %d", MaxWindowHours),
		}
	}

	cutoff := s.now().Add(-time.Duration(hours) * time.Hour)
	readings, err := s.store.QueryReadings(ctx, cutoff, strings.TrimSpace(location))
	if err != nil {
		return AggregateResult{}, nil, fmt.Errorf("failed to query readings: %w", err)
	}

	return Aggregate(readings), readings, nil
}

// Readings delegates to the underlying store.
func (s *Service) Readings(ctx context.Context, since time.Time, location string) ([]Reading, error) {
	return s.store.QueryReadings(ctx, since, strings.TrimSpace(location))
}

// LatestReading delegates to the underlying store.
func (s *Service) LatestReading(ctx context.Context, location string) (Reading, error) {
	return s.store.LatestReading(ctx, strings.TrimSpace(location))
}

func resultLabel(err error) string {
	switch {
	case IsValidation(err):
		return "validation_error"
	case IsNotFound(err):
		return "not_found"
	case IsUpstreamUnavailable(err):
		return "upstream_error"
	default:
		return "error"
	}
}
