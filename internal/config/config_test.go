package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-insights/internal/weather"
)

func clearLegacyEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENWEATHER_API_KEY", "WEATHERAPI_API_KEY", "GOOGLE_GEOCODING_API_KEY",
		"WEATHER_LOCATION_CITY", "WEATHER_LOCATION_COUNTRY", "OPENAI_API_KEY", "PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearLegacyEnv(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ProviderOpenMeteo, cfg.Provider.Name)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, time.Hour, cfg.Intervals.Collect)
	assert.Equal(t, 3*time.Hour, cfg.Intervals.Generate)
	assert.Equal(t, 24, cfg.Insights.DefaultHours)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Zero(t, cfg.Store.MaxHistory)
	assert.Equal(t, "gpt-4.1-mini", cfg.LLM.Model)
	assert.Equal(t, 300, cfg.LLM.MaxTokens)
	assert.Nil(t, cfg.LLM.Temperature)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.Empty(t, cfg.Sites())
	assert.Equal(t, weather.Site{Name: "Brasília", Country: "BR", Latitude: -15.7801, Longitude: -47.9292}, cfg.DefaultSite())
}

func TestLoad_FromEnv(t *testing.T) {
	clearLegacyEnv(t)
	t.Setenv("WEATHERINSIGHTS_PROVIDER_NAME", "openweather")
	t.Setenv("WEATHERINSIGHTS_PROVIDER_OPENWEATHER_API_KEY", "abc")
	t.Setenv("WEATHERINSIGHTS_LOCATIONS_CITIES", "Lisbon, Porto")
	t.Setenv("WEATHERINSIGHTS_LOCATIONS_COUNTRIES", "PT,PT")
	t.Setenv("WEATHERINSIGHTS_INTERVALS_COLLECT", "15m")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenWeather, cfg.Provider.Name)
	assert.Equal(t, 15*time.Minute, cfg.Intervals.Collect)
	assert.Equal(t, []weather.Location{{City: "Lisbon", Country: "PT"}, {City: "Porto", Country: "PT"}}, cfg.Sites())
}

func TestLoad_ZeroTemperature(t *testing.T) {
	clearLegacyEnv(t)
	t.Setenv("WEATHERINSIGHTS_LLM_TEMPERATURE", "0")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.Zero(t, *cfg.LLM.Temperature)
}

func TestLoad_LegacyEnv(t *testing.T) {
	clearLegacyEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-legacy")
	t.Setenv("WEATHER_LOCATION_CITY", "Recife")
	t.Setenv("WEATHER_LOCATION_COUNTRY", "BR")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "sk-legacy", cfg.LLM.APIKey)
	assert.Equal(t, []weather.Location{{City: "Recife", Country: "BR"}}, cfg.Sites())
}

func TestLoad_File(t *testing.T) {
	clearLegacyEnv(t)
	dir := t.TempDir()
	yaml := "log_level: debug\nstore:\n  driver: sqlite\n  dsn: weather.db\ninsights:\n  default_hours: 48\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 48, cfg.Insights.DefaultHours)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown provider":        {"WEATHERINSIGHTS_PROVIDER_NAME": "darksky"},
		"provider without key":    {"WEATHERINSIGHTS_PROVIDER_NAME": "weatherapi"},
		"google without key":      {"WEATHERINSIGHTS_PROVIDER_GEOCODER": "google"},
		"mismatched locations":    {"WEATHERINSIGHTS_LOCATIONS_CITIES": "A,B", "WEATHERINSIGHTS_LOCATIONS_COUNTRIES": "X"},
		"sqlite without dsn":      {"WEATHERINSIGHTS_STORE_DRIVER": "sqlite"},
		"unknown store":           {"WEATHERINSIGHTS_STORE_DRIVER": "mongo"},
		"redis without url":       {"WEATHERINSIGHTS_QUEUE_DRIVER": "redis"},
		"window too large":        {"WEATHERINSIGHTS_INSIGHTS_DEFAULT_HOURS": "9000"},
		"negative interval":       {"WEATHERINSIGHTS_INTERVALS_GENERATE": "-1h"},
		"unparsable duration":     {"WEATHERINSIGHTS_PROVIDER_TIMEOUT": "soon"},
		"empty city in locations": {"WEATHERINSIGHTS_LOCATIONS_CITIES": "A,", "WEATHERINSIGHTS_LOCATIONS_COUNTRIES": "X,Y"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearLegacyEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(t.TempDir())
			assert.Error(t, err)
		})
	}
}
