package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-insights/internal/weather"
)

const (
	openMeteoName        = "open-meteo"
	openMeteoForecastURL = "https://api.open-meteo.com/v1/forecast"
	openMeteoGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	openMeteoTimeLayout  = "2006-01-02T15:04"
)

var openMeteoCurrentFields = []string{
	"temperature_2m", "relative_humidity_2m", "wind_speed_10m", "precipitation_probability", "weather_code",
}

// OpenMeteoProvider implements weather.Provider and weather.Geocoder for Open-Meteo.
// No API key is required.
type OpenMeteoProvider struct {
	name       string
	baseURL    string
	geocodeURL string
	language   string
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(cfg HTTPClientConfig) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:       openMeteoName,
		baseURL:    openMeteoForecastURL,
		geocodeURL: openMeteoGeocodeURL,
		language:   "en",
		httpCfg:    cfg,
		circuit:    newCircuitBreaker(openMeteoName),
	}
}

// WithEndpoints overrides the forecast and geocoding endpoints. Empty values keep the defaults.
func (p *OpenMeteoProvider) WithEndpoints(forecastURL, geocodeURL string) *OpenMeteoProvider {
	if forecastURL != "" {
		p.baseURL = forecastURL
	}
	if geocodeURL != "" {
		p.geocodeURL = geocodeURL
	}
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) RequiredFields() []string {
	return []string{weather.FieldTemperature}
}

func (p *OpenMeteoProvider) FetchCurrent(ctx context.Context, lat, lon float64) (weather.RawPayload, error) {
	body, err := doRequest(ctx, p.name, "current", p.httpCfg, p.circuit, func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("current", strings.Join(openMeteoCurrentFields, ","))
		values.Set("wind_speed_unit", "ms")
		values.Set("timezone", "GMT")

		return http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+values.Encode(), nil)
	})
	if err != nil {
		return nil, err
	}
	return weather.RawPayload(body), nil
}

type openMeteoResponse struct {
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	UTCOffsetSeconds int      `json:"utc_offset_seconds"`
	Current          *struct {
		Time                     string   `json:"time"`
		Temperature              *float64 `json:"temperature_2m"`
		RelativeHumidity         *float64 `json:"relative_humidity_2m"`
		WindSpeed                *float64 `json:"wind_speed_10m"`
		PrecipitationProbability *float64 `json:"precipitation_probability"`
		WeatherCode              *int     `json:"weather_code"`
	} `json:"current"`
}

func (p *OpenMeteoProvider) Normalize(raw weather.RawPayload) (weather.Reading, error) {
	var payload openMeteoResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return weather.Reading{}, malformed("decode open-meteo response: %v", err)
	}
	if payload.Latitude == nil || payload.Longitude == nil {
		return weather.Reading{}, malformed("open-meteo response has no coordinates")
	}
	if payload.Current == nil || payload.Current.Time == "" {
		return weather.Reading{}, malformed("open-meteo response has no current time")
	}

	ts, err := parseOpenMeteoTime(payload.Current.Time, payload.UTCOffsetSeconds)
	if err != nil {
		return weather.Reading{}, malformed("open-meteo current time: %v", err)
	}

	cur := payload.Current
	reading := weather.Reading{
		ObservedAt:      ts,
		Temperature:     cur.Temperature,
		Humidity:        cur.RelativeHumidity,
		WindSpeed:       cur.WindSpeed,
		RainProbability: cur.PrecipitationProbability,
		Source:          p.name,
	}
	if cur.WeatherCode != nil {
		reading.Condition = weather.String(describeWMOCode(*cur.WeatherCode))
	}
	return reading, nil
}

func parseOpenMeteoTime(s string, offsetSeconds int) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.ParseInLocation(openMeteoTimeLayout, s, time.FixedZone("", offsetSeconds))
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

type openMeteoGeocodeResponse struct {
	Results []struct {
		Name        string  `json:"name"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		CountryCode string  `json:"country_code"`
		Country     string  `json:"country"`
	} `json:"results"`
}

func (p *OpenMeteoProvider) Geocode(ctx context.Context, place, countryHint string) (weather.Site, error) {
	body, err := doRequest(ctx, p.name, "geocode", p.httpCfg, p.circuit, func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("name", place)
		values.Set("count", "1")
		values.Set("language", p.language)
		values.Set("format", "json")
		if countryHint != "" {
			values.Set("countryCode", strings.ToUpper(countryHint))
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, p.geocodeURL+"?"+values.Encode(), nil)
	})
	if err != nil {
		return weather.Site{}, err
	}

	var res openMeteoGeocodeResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return weather.Site{}, &weather.UpstreamUnavailableError{Provider: p.name, Op: "geocode", Err: malformed("%v", err)}
	}
	if len(res.Results) == 0 {
		return weather.Site{}, &weather.NotFoundError{Query: query(place, countryHint)}
	}

	first := res.Results[0]
	return weather.Site{
		Name:      first.Name,
		Country:   first.CountryCode,
		Latitude:  first.Latitude,
		Longitude: first.Longitude,
	}, nil
}

// describeWMOCode maps a WMO weather interpretation code to a short description.
func describeWMOCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code == 1:
		return "mainly clear"
	case code == 2:
		return "partly cloudy"
	case code == 3:
		return "overcast"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code == 85 || code == 86:
		return "snow showers"
	case code >= 95:
		return "thunderstorm"
	default:
		return fmt.Sprintf("weather code %d", code)
	}
}

func query(place, country string) string {
	if country == "" {
		return place
	}
	return place + "," + country
}
