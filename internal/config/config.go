package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kkyr/fig"

	"github.com/i474232898/weather-insights/internal/weather"
)

const (
	configEnv  = "WEATHERINSIGHTS"
	configFile = "config.yaml"
)

// Provider names.
const (
	ProviderOpenMeteo   = "open-meteo"
	ProviderOpenWeather = "openweather"
	ProviderWeatherAPI  = "weatherapi"
	GeocoderGoogle      = "google"
)

// AppConfig is the complete runtime configuration. Every field can be set in
// config.yaml or through WEATHERINSIGHTS_<SECTION>_<FIELD> environment variables.
type AppConfig struct {
	LogLevel string `fig:"log_level" default:"info"`

	Server struct {
		Port string `fig:"port" default:"8080"`
	} `fig:"server"`

	Provider struct {
		// Allowed values: open-meteo, openweather, weatherapi
		Name string `fig:"name" default:"open-meteo"`
		// Empty uses the weather provider's own geocoding; "google" uses the Google Geocoding API.
		Geocoder          string        `fig:"geocoder"`
		OpenWeatherAPIKey string        `fig:"openweather_api_key"`
		WeatherAPIKey     string        `fig:"weatherapi_api_key"`
		GoogleAPIKey      string        `fig:"google_api_key"`
		Language          string        `fig:"language" default:"en"`
		Timeout           time.Duration `fig:"timeout" default:"10s"`
		GeocodeCacheTTL   time.Duration `fig:"geocode_cache_ttl" default:"24h"`
	} `fig:"provider"`

	Locations struct {
		// Comma separated; both lists must have the same length.
		Cities    string `fig:"cities"`
		Countries string `fig:"countries"`

		Default struct {
			Name      string  `fig:"name" default:"Brasília"`
			Country   string  `fig:"country" default:"BR"`
			Latitude  float64 `fig:"latitude" default:"-15.7801"`
			Longitude float64 `fig:"longitude" default:"-47.9292"`
		} `fig:"default"`
	} `fig:"locations"`

	Intervals struct {
		// Zero disables the job.
		Collect  time.Duration `fig:"collect" default:"1h"`
		Generate time.Duration `fig:"generate" default:"3h"`
	} `fig:"intervals"`

	Insights struct {
		DefaultHours int    `fig:"default_hours" default:"24"`
		Location     string `fig:"location"`
		ForceCollect bool   `fig:"force_collect"`
	} `fig:"insights"`

	Store struct {
		// Allowed values: memory, sqlite, postgres
		Driver     string        `fig:"driver" default:"memory"`
		DSN        string        `fig:"dsn"`
		MaxHistory int           `fig:"max_history"`
		MaxAge     time.Duration `fig:"max_age"`
	} `fig:"store"`

	Queue struct {
		// Allowed values: memory, redis
		Driver   string        `fig:"driver" default:"memory"`
		RedisURL string        `fig:"redis_url"`
		Key      string        `fig:"key" default:"weather-insights:jobs"`
		Size     int           `fig:"size" default:"64"`
		TaskTTL  time.Duration `fig:"task_ttl" default:"1h"`
	} `fig:"queue"`

	LLM struct {
		APIKey      string        `fig:"api_key"`
		BaseURL     string        `fig:"base_url" default:"https://api.openai.com/v1"`
		Model       string        `fig:"model" default:"gpt-4.1-mini"`
		Timeout     time.Duration `fig:"timeout" default:"20s"`
		MaxTokens   int           `fig:"max_tokens" default:"300"`
		// Unset uses the client default of 0.4; 0 is a valid setting.
		Temperature *float64      `fig:"temperature"`
	} `fig:"llm"`

	locations []weather.Location
}

// Load reads an optional .env file, then config.yaml from dir (when present) and the environment.
func Load(dir string) (*AppConfig, error) {
	// a missing .env file is fine
	_ = godotenv.Load()

	cfg := new(AppConfig)
	opts := []fig.Option{fig.UseEnv(configEnv)}
	if dir == "" {
		dir = "."
	}
	if _, err := os.Stat(filepath.Join(dir, configFile)); err == nil {
		opts = append(opts, fig.Dirs(dir), fig.File(configFile))
	} else {
		opts = append(opts, fig.AllowNoFile())
	}
	if err := fig.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.applyLegacyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyLegacyEnv honours the unprefixed variable names older deployments use.
func (c *AppConfig) applyLegacyEnv() {
	fallback := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fallback(&c.Provider.OpenWeatherAPIKey, "OPENWEATHER_API_KEY")
	fallback(&c.Provider.WeatherAPIKey, "WEATHERAPI_API_KEY")
	fallback(&c.Provider.GoogleAPIKey, "GOOGLE_GEOCODING_API_KEY")
	fallback(&c.Locations.Cities, "WEATHER_LOCATION_CITY")
	fallback(&c.Locations.Countries, "WEATHER_LOCATION_COUNTRY")
	fallback(&c.LLM.APIKey, "OPENAI_API_KEY")
	fallback(&c.Server.Port, "PORT")
}

// Validate checks the configuration and derives the location list.
func (c *AppConfig) Validate() error {
	switch c.Provider.Name {
	case ProviderOpenMeteo:
	case ProviderOpenWeather:
		if c.Provider.OpenWeatherAPIKey == "" {
			return fmt.Errorf("provider %s requires an api key", c.Provider.Name)
		}
	case ProviderWeatherAPI:
		if c.Provider.WeatherAPIKey == "" {
			return fmt.Errorf("provider %s requires an api key", c.Provider.Name)
		}
	default:
		return fmt.Errorf("invalid provider: %s", c.Provider.Name)
	}

	switch c.Provider.Geocoder {
	case "":
	case GeocoderGoogle:
		if c.Provider.GoogleAPIKey == "" {
			return fmt.Errorf("geocoder google requires an api key")
		}
	default:
		return fmt.Errorf("invalid geocoder: %s", c.Provider.Geocoder)
	}

	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("invalid provider timeout: %s", c.Provider.Timeout)
	}
	if c.Intervals.Collect < 0 || c.Intervals.Generate < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	if c.Insights.DefaultHours < 1 || c.Insights.DefaultHours > weather.MaxWindowHours {
		return fmt.Errorf("invalid insights default hours: %d", c.Insights.DefaultHours)
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver %s requires a dsn", c.Store.Driver)
		}
	default:
		return fmt.Errorf("invalid store driver: %s", c.Store.Driver)
	}

	switch c.Queue.Driver {
	case "memory":
	case "redis":
		if c.Queue.RedisURL == "" {
			return fmt.Errorf("queue driver redis requires a redis url")
		}
	default:
		return fmt.Errorf("invalid queue driver: %s", c.Queue.Driver)
	}

	locs, err := parseLocations(c.Locations.Cities, c.Locations.Countries)
	if err != nil {
		return err
	}
	c.locations = locs
	return nil
}

// Sites returns the configured locations collected on every run.
func (c *AppConfig) Sites() []weather.Location {
	return c.locations
}

// DefaultSite returns the coordinates used when no place is named.
func (c *AppConfig) DefaultSite() weather.Site {
	d := c.Locations.Default
	return weather.Site{Name: d.Name, Country: d.Country, Latitude: d.Latitude, Longitude: d.Longitude}
}

func parseLocations(cities, countries string) ([]weather.Location, error) {
	if strings.TrimSpace(cities) == "" {
		return nil, nil
	}
	cityList := strings.Split(cities, ",")
	countryList := strings.Split(countries, ",")
	if len(cityList) != len(countryList) {
		return nil, fmt.Errorf("number of cities and countries must be the same")
	}

	var locs []weather.Location
	for i := range cityList {
		city := strings.TrimSpace(cityList[i])
		if city == "" {
			return nil, fmt.Errorf("empty city at position %d", i+1)
		}
		locs = append(locs, weather.Location{
			City:    city,
			Country: strings.TrimSpace(countryList[i]),
		})
	}
	return locs, nil
}
