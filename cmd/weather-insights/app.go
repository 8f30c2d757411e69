package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/i474232898/weather-insights/internal/config"
	"github.com/i474232898/weather-insights/internal/insights"
	"github.com/i474232898/weather-insights/internal/jobs"
	"github.com/i474232898/weather-insights/internal/logger"
	"github.com/i474232898/weather-insights/internal/metrics"
	"github.com/i474232898/weather-insights/internal/store"
	"github.com/i474232898/weather-insights/internal/weather"
	"github.com/i474232898/weather-insights/internal/weather/providers"
)

// app holds the wired components shared by every command.
type app struct {
	cfg       *config.AppConfig
	log       *logger.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	store     weather.Store
	service   *weather.Service
	generator *insights.Generator
	runner    *jobs.Runner

	closers []func() error
}

func newApp(configDir string) (*app, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	a := &app{cfg: cfg, log: log, registry: reg, metrics: m}

	if err := a.openStore(); err != nil {
		return nil, err
	}

	provider, geocoder := buildProvider(cfg)
	a.service = weather.NewService(a.store, provider, geocoder,
		weather.WithDefaultSite(cfg.DefaultSite()),
		weather.WithMetrics(m),
		weather.WithLogger(log.Named("weather")))

	var completer insights.Completer
	if client := insights.NewOpenAIClient(insights.OpenAIConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Timeout:     cfg.LLM.Timeout,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}); client != nil {
		completer = client
	}
	augmenter := insights.NewAugmenter(completer, log.Named("augment"))
	a.generator = insights.NewGenerator(a.service, a.store, augmenter, m, log.Named("insights"))
	a.runner = jobs.NewRunner(a.service, a.generator, cfg.Sites(), log.Named("jobs"))

	log.Info("components ready",
		zap.String("provider", provider.Name()),
		zap.String("geocoder", geocoder.Name()),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("augmentation", augmenter.Enabled()))
	return a, nil
}

func (a *app) openStore() error {
	switch a.cfg.Store.Driver {
	case "sqlite", "postgres":
		gs, err := store.Open(a.cfg.Store.Driver, a.cfg.Store.DSN)
		if err != nil {
			return err
		}
		a.store = gs
		a.closers = append(a.closers, gs.Close)
	default:
		a.store = store.NewMemoryStore(a.cfg.Store.MaxHistory, a.cfg.Store.MaxAge)
	}
	return nil
}

// buildProvider selects the weather provider and the geocoder in front of it.
func buildProvider(cfg *config.AppConfig) (weather.Provider, weather.Geocoder) {
	httpCfg := providers.HTTPClientConfig{
		Client:  &http.Client{},
		Timeout: cfg.Provider.Timeout,
	}

	var (
		provider weather.Provider
		geocoder weather.Geocoder
	)
	switch cfg.Provider.Name {
	case config.ProviderOpenWeather:
		p := providers.NewOpenWeatherProvider(httpCfg, cfg.Provider.OpenWeatherAPIKey, cfg.Provider.Language)
		provider, geocoder = p, p
	case config.ProviderWeatherAPI:
		p := providers.NewWeatherAPIProvider(httpCfg, cfg.Provider.WeatherAPIKey)
		provider, geocoder = p, p
	default:
		p := providers.NewOpenMeteoProvider(httpCfg)
		provider, geocoder = p, p
	}

	if cfg.Provider.Geocoder == config.GeocoderGoogle {
		geocoder = providers.NewGoogleGeocoder(cfg.Provider.GoogleAPIKey, httpCfg)
	}
	return provider, providers.NewCachedGeocoder(geocoder, cfg.Provider.GeocodeCacheTTL)
}

// newQueue opens the configured job queue.
func (a *app) newQueue(ctx context.Context) (jobs.Queue, error) {
	if a.cfg.Queue.Driver != "redis" {
		return jobs.NewMemoryQueue(a.cfg.Queue.Size), nil
	}
	client, err := jobs.Connect(ctx, a.cfg.Queue.RedisURL)
	if err != nil {
		return nil, err
	}
	return jobs.NewRedisQueue(client, a.cfg.Queue.Key), nil
}

func (a *app) metricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn("close failed", logger.Err(err))
		}
	}
	_ = a.log.Sync()
}
