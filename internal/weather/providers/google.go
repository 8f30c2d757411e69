package providers

import (
	"context"
	"errors"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-insights/internal/common"
	"github.com/i474232898/weather-insights/internal/weather"
)

const (
	googleName = "google"

	// maxPendingLookups caps lookups still running after their caller gave up;
	// the geocoder package's HTTP client has no timeout of its own.
	maxPendingLookups = 4
)

var errTooManyPending = errors.New("too many pending google lookups")

// geocodeFunc matches geocoder.Geocoding so tests can substitute it.
type geocodeFunc func(address geocoder.Address) (geocoder.Location, error)

// GoogleGeocoder resolves places through the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey  string
	lookup  geocodeFunc
	httpCfg HTTPClientConfig
	pending chan struct{}
}

// NewGoogleGeocoder sets the geocoder package's key once; it lives in a package variable.
func NewGoogleGeocoder(apiKey string, cfg HTTPClientConfig) *GoogleGeocoder {
	if apiKey != "" {
		geocoder.ApiKey = apiKey
	}
	return &GoogleGeocoder{
		apiKey:  apiKey,
		lookup:  geocoder.Geocoding,
		httpCfg: cfg,
		pending: make(chan struct{}, maxPendingLookups),
	}
}

func (g *GoogleGeocoder) Name() string {
	return googleName
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, place, countryHint string) (weather.Site, error) {
	if g.apiKey == "" {
		return weather.Site{}, errAPIKeyMissing
	}

	ctx, cancel := context.WithTimeout(ctx, g.httpCfg.timeout())
	defer cancel()

	type result struct {
		loc geocoder.Location
		err error
	}
	select {
	case g.pending <- struct{}{}:
	default:
		return weather.Site{}, &weather.UpstreamUnavailableError{Provider: googleName, Op: "geocode", Err: errTooManyPending}
	}

	done := make(chan result, 1)
	go func() {
		defer func() { <-g.pending }()
		loc, err := g.lookup(geocoder.Address{City: place, Country: countryHint})
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Site{}, &weather.UpstreamUnavailableError{
			Provider: googleName, Op: "geocode", Timeout: true, Err: ctx.Err(),
		}
	case res := <-done:
		if res.err != nil {
			if common.HasAny(res.err.Error(), "zero_results", "no results") {
				return weather.Site{}, &weather.NotFoundError{Query: query(place, countryHint)}
			}
			return weather.Site{}, &weather.UpstreamUnavailableError{Provider: googleName, Op: "geocode", Err: res.err}
		}
		return weather.Site{
			Name:      place,
			Country:   countryHint,
			Latitude:  res.loc.Latitude,
			Longitude: res.loc.Longitude,
		}, nil
	}
}
