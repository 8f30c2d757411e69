package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-insights/internal/weather"
)

const openWeatherName = "openweather"

// OpenWeatherProvider implements weather.Provider and weather.Geocoder for OpenWeatherMap.
type OpenWeatherProvider struct {
	name       string
	apiKey     string
	language   string
	baseURL    string
	geocodeURL string
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(cfg HTTPClientConfig, apiKey, language string) *OpenWeatherProvider {
	if language == "" {
		language = "en"
	}
	return &OpenWeatherProvider{
		name:       openWeatherName,
		apiKey:     apiKey,
		language:   language,
		baseURL:    "https://api.openweathermap.org/data/2.5/weather",
		geocodeURL: "https://api.openweathermap.org/geo/1.0/direct",
		httpCfg:    cfg,
		circuit:    newCircuitBreaker(openWeatherName),
	}
}

// WithEndpoints overrides the weather and geocoding endpoints. Empty values keep the defaults.
func (p *OpenWeatherProvider) WithEndpoints(weatherURL, geocodeURL string) *OpenWeatherProvider {
	if weatherURL != "" {
		p.baseURL = weatherURL
	}
	if geocodeURL != "" {
		p.geocodeURL = geocodeURL
	}
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) RequiredFields() []string {
	return []string{weather.FieldTemperature}
}

func (p *OpenWeatherProvider) FetchCurrent(ctx context.Context, lat, lon float64) (weather.RawPayload, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather: %w", errAPIKeyMissing)
	}

	body, err := doRequest(ctx, p.name, "current", p.httpCfg, p.circuit, func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		values.Set("lang", p.language)
		values.Set("lat", fmt.Sprintf("%f", lat))
		values.Set("lon", fmt.Sprintf("%f", lon))

		return http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+values.Encode(), nil)
	})
	if err != nil {
		return nil, err
	}
	return weather.RawPayload(body), nil
}

type openWeatherResponse struct {
	Dt   *int64 `json:"dt"`
	ID   *int64 `json:"id"`
	Name string `json:"name"`
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

func (p *OpenWeatherProvider) Normalize(raw weather.RawPayload) (weather.Reading, error) {
	var payload openWeatherResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return weather.Reading{}, malformed("decode openweather response: %v", err)
	}
	if payload.Dt == nil {
		return weather.Reading{}, malformed("openweather response has no dt")
	}
	if payload.ID == nil && payload.Name == "" {
		return weather.Reading{}, malformed("openweather response has no city identity")
	}

	reading := weather.Reading{
		ObservedAt: time.Unix(*payload.Dt, 0).UTC(),
		Location:   payload.Name,
		Source:     p.name,
	}
	if payload.Main != nil {
		reading.Temperature = payload.Main.Temp
		reading.Humidity = payload.Main.Humidity
	}
	if payload.Wind != nil {
		reading.WindSpeed = payload.Wind.Speed
	}
	if len(payload.Weather) > 0 {
		cond := payload.Weather[0].Description
		if cond == "" {
			cond = payload.Weather[0].Main
		}
		if cond != "" {
			reading.Condition = weather.String(cond)
		}
	}
	return reading, nil
}

type openWeatherGeocodeResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
}

func (p *OpenWeatherProvider) Geocode(ctx context.Context, place, countryHint string) (weather.Site, error) {
	if p.apiKey == "" {
		return weather.Site{}, fmt.Errorf("openweather: %w", errAPIKeyMissing)
	}

	body, err := doRequest(ctx, p.name, "geocode", p.httpCfg, p.circuit, func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("q", query(place, countryHint))
		values.Set("limit", "1")
		values.Set("appid", p.apiKey)

		return http.NewRequestWithContext(ctx, http.MethodGet, p.geocodeURL+"?"+values.Encode(), nil)
	})
	if err != nil {
		return weather.Site{}, err
	}

	var results []openWeatherGeocodeResult
	if err := json.Unmarshal(body, &results); err != nil {
		return weather.Site{}, &weather.UpstreamUnavailableError{Provider: p.name, Op: "geocode", Err: malformed("%v", err)}
	}
	if len(results) == 0 {
		return weather.Site{}, &weather.NotFoundError{Query: query(place, countryHint)}
	}

	return weather.Site{
		Name:      results[0].Name,
		Country:   results[0].Country,
		Latitude:  results[0].Lat,
		Longitude: results[0].Lon,
	}, nil
}
