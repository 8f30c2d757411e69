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

const openWeatherBody = `{
  "coord": {"lon": -47.9292, "lat": -15.7801},
  "weather": [{"id": 803, "main": "Clouds", "description": "broken clouds", "icon": "04d"}],
  "main": {"temp": 24.1, "feels_like": 24.3, "pressure": 1014, "humidity": 72},
  "wind": {"speed": 4.12, "deg": 240},
  "dt": 1736769600,
  "id": 3469058,
  "name": "Brasília"
}`

func TestOpenWeatherProvider_Normalize(t *testing.T) {
	p := NewOpenWeatherProvider(testHTTPConfig(time.Second), "test-key", "")

	t.Run("full payload", func(t *testing.T) {
		r, err := p.Normalize(weather.RawPayload(openWeatherBody))
		require.NoError(t, err)
		assert.Equal(t, time.Unix(1736769600, 0).UTC(), r.ObservedAt)
		assert.Equal(t, "Brasília", r.Location)
		assert.InDelta(t, 24.1, *r.Temperature, 0.001)
		assert.InDelta(t, 72, *r.Humidity, 0.001)
		assert.InDelta(t, 4.12, *r.WindSpeed, 0.001)
		assert.Equal(t, "broken clouds", *r.Condition)
		assert.Nil(t, r.RainProbability)
		assert.Equal(t, "openweather", r.Source)
	})

	t.Run("partial payload", func(t *testing.T) {
		r, err := p.Normalize(weather.RawPayload(`{"dt":1736769600,"name":"Brasília","main":{"temp":20}}`))
		require.NoError(t, err)
		assert.Nil(t, r.Humidity)
		assert.Nil(t, r.WindSpeed)
		assert.Nil(t, r.Condition)
	})

	t.Run("missing dt", func(t *testing.T) {
		_, err := p.Normalize(weather.RawPayload(`{"name":"Brasília","main":{"temp":20}}`))
		assert.True(t, errors.Is(err, ErrMalformedPayload))
	})

	t.Run("missing identity", func(t *testing.T) {
		_, err := p.Normalize(weather.RawPayload(`{"dt":1736769600,"main":{"temp":20}}`))
		assert.True(t, errors.Is(err, ErrMalformedPayload))
	})
}

func TestOpenWeatherProvider_FetchCurrent(t *testing.T) {
	t.Run("missing api key fails without a request", func(t *testing.T) {
		srv, hits := upstream(t, http.StatusOK, openWeatherBody)
		p := NewOpenWeatherProvider(testHTTPConfig(time.Second), "", "").WithEndpoints(srv.URL, "")

		_, err := p.FetchCurrent(t.Context(), 1, 2)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errAPIKeyMissing))
		assert.Zero(t, hits.Load())
	})

	t.Run("metric units and key are sent", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "metric", r.URL.Query().Get("units"))
			assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
			_, _ = w.Write([]byte(openWeatherBody))
		}))
		t.Cleanup(srv.Close)

		p := NewOpenWeatherProvider(testHTTPConfig(time.Second), "test-key", "pt_br").WithEndpoints(srv.URL, "")
		raw, err := p.FetchCurrent(t.Context(), -15.78, -47.93)
		require.NoError(t, err)
		assert.NotEmpty(t, raw)
	})

	t.Run("unauthorized is upstream unavailable", func(t *testing.T) {
		srv, _ := upstream(t, http.StatusUnauthorized, `{"cod":401,"message":"Invalid API key"}`)
		p := NewOpenWeatherProvider(testHTTPConfig(time.Second), "bad", "").WithEndpoints(srv.URL, "")

		_, err := p.FetchCurrent(t.Context(), 1, 2)
		var upErr *weather.UpstreamUnavailableError
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, http.StatusUnauthorized, upErr.StatusCode)
	})
}

func TestOpenWeatherProvider_Geocode(t *testing.T) {
	t.Run("empty array is not found", func(t *testing.T) {
		srv, _ := upstream(t, http.StatusOK, `[]`)
		p := NewOpenWeatherProvider(testHTTPConfig(time.Second), "test-key", "").WithEndpoints("", srv.URL)

		_, err := p.Geocode(t.Context(), "Atlantis", "BR")
		var nf *weather.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "Atlantis,BR", nf.Query)
	})

	t.Run("first result wins", func(t *testing.T) {
		srv, _ := upstream(t, http.StatusOK, `[{"name":"São Paulo","lat":-23.55,"lon":-46.63,"country":"BR"}]`)
		p := NewOpenWeatherProvider(testHTTPConfig(time.Second), "test-key", "").WithEndpoints("", srv.URL)

		site, err := p.Geocode(t.Context(), "sao paulo", "BR")
		require.NoError(t, err)
		assert.Equal(t, "São Paulo", site.Name)
		assert.InDelta(t, -23.55, site.Latitude, 0.0001)
	})

	t.Run("garbage body is upstream unavailable", func(t *testing.T) {
		srv, _ := upstream(t, http.StatusOK, `{"oops":`)
		p := NewOpenWeatherProvider(testHTTPConfig(time.Second), "test-key", "").WithEndpoints("", srv.URL)

		_, err := p.Geocode(t.Context(), "x", "")
		assert.True(t, weather.IsUpstreamUnavailable(err))
	})
}
