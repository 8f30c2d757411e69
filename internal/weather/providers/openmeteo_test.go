package providers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-insights/internal/weather"
)

const openMeteoCurrentBody = `{
  "latitude": -15.75,
  "longitude": -47.875,
  "utc_offset_seconds": 0,
  "timezone": "GMT",
  "current": {
    "time": "2025-03-01T12:15",
    "interval": 900,
    "temperature_2m": 27.4,
    "relative_humidity_2m": 61,
    "wind_speed_10m": 3.2,
    "precipitation_probability": 35,
    "weather_code": 2
  }
}`

func TestOpenMeteoProvider_Normalize(t *testing.T) {
	p := NewOpenMeteoProvider(testHTTPConfig(time.Second))

	t.Run("full payload", func(t *testing.T) {
		r, err := p.Normalize(weather.RawPayload(openMeteoCurrentBody))
		require.NoError(t, err)

		assert.Equal(t, time.Date(2025, 3, 1, 12, 15, 0, 0, time.UTC), r.ObservedAt)
		require.NotNil(t, r.Temperature)
		assert.InDelta(t, 27.4, *r.Temperature, 0.001)
		require.NotNil(t, r.Humidity)
		assert.InDelta(t, 61, *r.Humidity, 0.001)
		require.NotNil(t, r.WindSpeed)
		assert.InDelta(t, 3.2, *r.WindSpeed, 0.001)
		require.NotNil(t, r.RainProbability)
		assert.InDelta(t, 35, *r.RainProbability, 0.001)
		require.NotNil(t, r.Condition)
		assert.Equal(t, "partly cloudy", *r.Condition)
		assert.Equal(t, "open-meteo", r.Source)
	})

	t.Run("absent optional fields become nil", func(t *testing.T) {
		body := `{"latitude":1,"longitude":2,"current":{"time":"2025-03-01T12:15","temperature_2m":20.5}}`
		r, err := p.Normalize(weather.RawPayload(body))
		require.NoError(t, err)

		require.NotNil(t, r.Temperature)
		assert.Nil(t, r.Humidity)
		assert.Nil(t, r.WindSpeed)
		assert.Nil(t, r.RainProbability)
		assert.Nil(t, r.Condition)
	})

	t.Run("utc offset is applied", func(t *testing.T) {
		body := `{"latitude":1,"longitude":2,"utc_offset_seconds":-10800,"current":{"time":"2025-03-01T09:00"}}`
		r, err := p.Normalize(weather.RawPayload(body))
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), r.ObservedAt)
	})

	failures := map[string]string{
		"missing time":        `{"latitude":1,"longitude":2,"current":{"temperature_2m":20.5}}`,
		"missing current":     `{"latitude":1,"longitude":2}`,
		"missing coordinates": `{"current":{"time":"2025-03-01T12:15"}}`,
		"bad time":            `{"latitude":1,"longitude":2,"current":{"time":"yesterday"}}`,
		"not json":            `<html>`,
	}
	for name, body := range failures {
		t.Run(name, func(t *testing.T) {
			_, err := p.Normalize(weather.RawPayload(body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedPayload))
		})
	}
}

func TestOpenMeteoProvider_FetchCurrent(t *testing.T) {
	t.Run("returns the verbatim body and sends the expected query", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "-15.780100", q.Get("latitude"))
			assert.Equal(t, "-47.929200", q.Get("longitude"))
			assert.Equal(t, "ms", q.Get("wind_speed_unit"))
			assert.Contains(t, q.Get("current"), "precipitation_probability")
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(openMeteoCurrentBody))
		}))
		t.Cleanup(srv.Close)

		p := NewOpenMeteoProvider(testHTTPConfig(time.Second)).WithEndpoints(srv.URL, "")
		raw, err := p.FetchCurrent(t.Context(), -15.7801, -47.9292)
		require.NoError(t, err)
		assert.JSONEq(t, openMeteoCurrentBody, string(raw))
	})

	t.Run("server error is upstream unavailable", func(t *testing.T) {
		srv, _ := upstream(t, http.StatusInternalServerError, `{"error":true}`)
		p := NewOpenMeteoProvider(testHTTPConfig(time.Second)).WithEndpoints(srv.URL, "")

		_, err := p.FetchCurrent(t.Context(), 1, 2)
		require.Error(t, err)

		var upErr *weather.UpstreamUnavailableError
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, http.StatusInternalServerError, upErr.StatusCode)
		assert.Equal(t, "open-meteo", upErr.Provider)
		assert.False(t, upErr.Timeout)
	})

	t.Run("exceeding the timeout is upstream unavailable", func(t *testing.T) {
		srv := slowUpstream(t, 2*time.Second)
		p := NewOpenMeteoProvider(testHTTPConfig(50*time.Millisecond)).WithEndpoints(srv.URL, "")

		_, err := p.FetchCurrent(t.Context(), 1, 2)
		var upErr *weather.UpstreamUnavailableError
		require.ErrorAs(t, err, &upErr)
		assert.True(t, upErr.Timeout)
	})

	t.Run("unreachable host is upstream unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		p := NewOpenMeteoProvider(testHTTPConfig(time.Second)).WithEndpoints(url, "")
		_, err := p.FetchCurrent(t.Context(), 1, 2)
		assert.True(t, weather.IsUpstreamUnavailable(err))
	})
}

func TestOpenMeteoProvider_Geocode(t *testing.T) {
	t.Run("first match is returned", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Brasilia", r.URL.Query().Get("name"))
			assert.Equal(t, "BR", r.URL.Query().Get("countryCode"))
			_, _ = w.Write([]byte(`{"results":[{"name":"Brasília","latitude":-15.78,"longitude":-47.93,"country_code":"BR","country":"Brazil"}]}`))
		}))
		t.Cleanup(srv.Close)

		p := NewOpenMeteoProvider(testHTTPConfig(time.Second)).WithEndpoints("", srv.URL)
		site, err := p.Geocode(t.Context(), "Brasilia", "br")
		require.NoError(t, err)
		assert.Equal(t, "Brasília", site.Name)
		assert.Equal(t, "BR", site.Country)
		assert.InDelta(t, -15.78, site.Latitude, 0.0001)
		assert.InDelta(t, -47.93, site.Longitude, 0.0001)
	})

	t.Run("zero matches is not found", func(t *testing.T) {
		srv, _ := upstream(t, http.StatusOK, `{"generationtime_ms":0.4}`)
		p := NewOpenMeteoProvider(testHTTPConfig(time.Second)).WithEndpoints("", srv.URL)

		_, err := p.Geocode(t.Context(), "Atlantis", "")
		var nf *weather.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "Atlantis", nf.Query)
	})
}

func TestDescribeWMOCode(t *testing.T) {
	assert.Equal(t, "clear sky", describeWMOCode(0))
	assert.Equal(t, "rain", describeWMOCode(63))
	assert.Equal(t, "thunderstorm", describeWMOCode(95))
	assert.Equal(t, "weather code 42", describeWMOCode(42))
}
