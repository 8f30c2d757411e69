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

const weatherAPIName = "weatherapi"

// WeatherAPIProvider implements weather.Provider and weather.Geocoder for WeatherAPI.com.
// The one-day forecast endpoint is used so the daily chance of rain is available.
type WeatherAPIProvider struct {
	name      string
	apiKey    string
	baseURL   string
	searchURL string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(cfg HTTPClientConfig, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:      weatherAPIName,
		apiKey:    apiKey,
		baseURL:   "https://api.weatherapi.com/v1/forecast.json",
		searchURL: "https://api.weatherapi.com/v1/search.json",
		httpCfg:   cfg,
		circuit:   newCircuitBreaker(weatherAPIName),
	}
}

// WithEndpoints overrides the forecast and search endpoints. Empty values keep the defaults.
func (p *WeatherAPIProvider) WithEndpoints(forecastURL, searchURL string) *WeatherAPIProvider {
	if forecastURL != "" {
		p.baseURL = forecastURL
	}
	if searchURL != "" {
		p.searchURL = searchURL
	}
	return p
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) RequiredFields() []string {
	return []string{weather.FieldTemperature}
}

func (p *WeatherAPIProvider) FetchCurrent(ctx context.Context, lat, lon float64) (weather.RawPayload, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("weatherapi: %w", errAPIKeyMissing)
	}

	body, err := doRequest(ctx, p.name, "current", p.httpCfg, p.circuit, func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// WeatherAPI uses "q" for location; it accepts "lat,lon".
		values.Set("q", fmt.Sprintf("%f,%f", lat, lon))
		values.Set("days", "1")
		values.Set("aqi", "no")
		values.Set("alerts", "no")

		return http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+values.Encode(), nil)
	})
	if err != nil {
		return nil, err
	}
	return weather.RawPayload(body), nil
}

type weatherAPIResponse struct {
	Location *struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Current *struct {
		LastUpdatedEpoch *int64   `json:"last_updated_epoch"`
		TempC            *float64 `json:"temp_c"`
		Humidity         *float64 `json:"humidity"`
		WindKph          *float64 `json:"wind_kph"`
		Condition        *struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
	Forecast *struct {
		ForecastDay []struct {
			Day struct {
				DailyChanceOfRain *float64 `json:"daily_chance_of_rain"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func (p *WeatherAPIProvider) Normalize(raw weather.RawPayload) (weather.Reading, error) {
	var payload weatherAPIResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return weather.Reading{}, malformed("decode weatherapi response: %v", err)
	}
	if payload.Current == nil || payload.Current.LastUpdatedEpoch == nil {
		return weather.Reading{}, malformed("weatherapi response has no last_updated_epoch")
	}
	if payload.Location == nil || payload.Location.Name == "" {
		return weather.Reading{}, malformed("weatherapi response has no location name")
	}

	cur := payload.Current
	reading := weather.Reading{
		ObservedAt:  time.Unix(*cur.LastUpdatedEpoch, 0).UTC(),
		Location:    payload.Location.Name,
		Temperature: cur.TempC,
		Humidity:    cur.Humidity,
		Source:      p.name,
	}
	if cur.WindKph != nil {
		// kph to m/s
		reading.WindSpeed = weather.Float(*cur.WindKph / 3.6)
	}
	if cur.Condition != nil && cur.Condition.Text != "" {
		reading.Condition = weather.String(cur.Condition.Text)
	}
	if payload.Forecast != nil && len(payload.Forecast.ForecastDay) > 0 {
		reading.RainProbability = payload.Forecast.ForecastDay[0].Day.DailyChanceOfRain
	}
	return reading, nil
}

type weatherAPISearchResult struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (p *WeatherAPIProvider) Geocode(ctx context.Context, place, countryHint string) (weather.Site, error) {
	if p.apiKey == "" {
		return weather.Site{}, fmt.Errorf("weatherapi: %w", errAPIKeyMissing)
	}

	body, err := doRequest(ctx, p.name, "geocode", p.httpCfg, p.circuit, func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", query(place, countryHint))

		return http.NewRequestWithContext(ctx, http.MethodGet, p.searchURL+"?"+values.Encode(), nil)
	})
	if err != nil {
		return weather.Site{}, err
	}

	var results []weatherAPISearchResult
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
