package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-insights/internal/insights"
	"github.com/i474232898/weather-insights/internal/logger"
)

const (
	collectTimeout  = 2 * time.Minute
	generateTimeout = 2 * time.Minute
)

// Runner is the clock-triggered job interface. *jobs.Runner satisfies it.
type Runner interface {
	RunCollect(ctx context.Context) error
	RunGenerate(ctx context.Context, hours int, forceCollect bool, location string) (*insights.Result, error)
}

// Config controls the two periodic jobs. A zero interval disables that job.
type Config struct {
	CollectInterval  time.Duration
	GenerateInterval time.Duration
	GenerateHours    int
	GenerateLocation string
	ForceCollect     bool
}

// Scheduler periodically collects readings and generates insights.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	cfg       Config
	log       *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(runner Runner, cfg Config, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.GenerateHours <= 0 {
		cfg.GenerateHours = insights.DefaultHours
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		cfg:       cfg,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the periodic jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.cfg.CollectInterval > 0 {
		_, err := s.scheduler.Every(s.cfg.CollectInterval).WaitForSchedule().SingletonMode().Do(s.collect)
		if err != nil {
			return fmt.Errorf("failed to schedule collect job: %w", err)
		}
	}
	if s.cfg.GenerateInterval > 0 {
		_, err := s.scheduler.Every(s.cfg.GenerateInterval).WaitForSchedule().SingletonMode().Do(s.generate)
		if err != nil {
			return fmt.Errorf("failed to schedule generate job: %w", err)
		}
	}

	if len(s.scheduler.Jobs()) == 0 {
		s.log.Info("no periodic jobs configured")
		return nil
	}

	s.scheduler.StartAsync()
	s.log.Info("scheduler started",
		zap.Duration("collect_interval", s.cfg.CollectInterval),
		zap.Duration("generate_interval", s.cfg.GenerateInterval))
	return nil
}

func (s *Scheduler) collect() {
	ctx, cancel := context.WithTimeout(s.ctx, collectTimeout)
	defer cancel()

	s.log.Debug("running collect job")
	if err := s.runner.RunCollect(ctx); err != nil {
		s.log.Warn("collect job finished with errors", logger.Err(err))
	}
}

func (s *Scheduler) generate() {
	ctx, cancel := context.WithTimeout(s.ctx, generateTimeout)
	defer cancel()

	s.log.Debug("running generate job")
	res, err := s.runner.RunGenerate(ctx, s.cfg.GenerateHours, s.cfg.ForceCollect, s.cfg.GenerateLocation)
	if err != nil {
		s.log.Warn("generate job failed", logger.Err(err))
		return
	}
	s.log.Info("generate job finished", zap.Uint("insight_id", res.Insight.ID), zap.String("outcome", string(res.Outcome)))
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	return len(s.scheduler.Jobs())
}

// Stop stops the scheduler and cancels any running job.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
