package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-insights/internal/api/http"
	"github.com/i474232898/weather-insights/internal/export"
	"github.com/i474232898/weather-insights/internal/insights"
	"github.com/i474232898/weather-insights/internal/jobs"
	"github.com/i474232898/weather-insights/internal/logger"
	"github.com/i474232898/weather-insights/internal/scheduler"
	"github.com/i474232898/weather-insights/internal/store"
	"github.com/i474232898/weather-insights/internal/weather"
)

const shutdownTimeout = 10 * time.Second

func rootCommand() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:           "weather-insights",
		Short:         "Collect weather readings and generate narrative insights",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory containing config.yaml")

	withApp := func(run func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(configDir)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd, a)
		}
	}

	root.AddCommand(
		serveCommand(withApp),
		collectCommand(withApp),
		generateCommand(withApp),
		exportCommand(withApp),
		seedCommand(withApp),
	)
	return root
}

type appRunner func(run func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error

func serveCommand(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the scheduler and the job worker",
		Args:  cobra.NoArgs,
		RunE:  withApp(serve),
	}
}

func serve(cmd *cobra.Command, a *app) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue, err := a.newQueue(ctx)
	if err != nil {
		return err
	}
	defer queue.Close()

	tracker := jobs.NewTracker(a.cfg.Queue.TaskTTL)
	worker := jobs.NewWorker(queue, a.runner, tracker, a.log.Named("worker"))
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = worker.Run(ctx)
	}()

	sched := scheduler.New(a.runner, scheduler.Config{
		CollectInterval:  a.cfg.Intervals.Collect,
		GenerateInterval: a.cfg.Intervals.Generate,
		GenerateHours:    a.cfg.Insights.DefaultHours,
		GenerateLocation: a.cfg.Insights.Location,
		ForceCollect:     a.cfg.Insights.ForceCollect,
	}, a.log.Named("scheduler"))
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	var pinger httpapi.Pinger
	if p, ok := a.store.(httpapi.Pinger); ok {
		pinger = p
	}

	server := httpapi.NewApp(httpapi.Dependencies{
		Readings:     a.service,
		Insights:     a.generator,
		Dispatcher:   jobs.NewDispatcher(queue, tracker),
		Metrics:      a.metricsHandler(),
		Store:        pinger,
		DefaultHours: a.cfg.Insights.DefaultHours,
	}, a.log.Named("http"))

	go func() {
		a.log.Info("listening", zap.String("port", a.cfg.Server.Port))
		if err := server.Listen(":" + a.cfg.Server.Port); err != nil {
			a.log.Error("fiber server stopped", logger.Err(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		a.log.Warn("error during shutdown", logger.Err(err))
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
	}
	return nil
}

func collectCommand(withApp appRunner) *cobra.Command {
	var place, country string
	var all bool

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch and store one reading",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			if all {
				return a.runner.RunCollect(cmd.Context())
			}
			r, err := a.service.Collect(cmd.Context(), weather.CollectRequest{Place: place, Country: country})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored reading %d for %s at %s\n",
				r.ID, r.Location, r.ObservedAt.Format(time.RFC3339))
			return nil
		}),
	}
	cmd.Flags().StringVar(&place, "location", "", "place name; empty uses the default site")
	cmd.Flags().StringVar(&country, "country", "", "two letter country hint")
	cmd.Flags().BoolVar(&all, "all", false, "collect every configured location")
	return cmd
}

func generateCommand(withApp appRunner) *cobra.Command {
	var req insights.Request

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and store one weather insight",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			res, err := a.generator.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "insight %d (%s, %d readings)\n\n%s\n",
				res.Insight.ID, res.Outcome, res.Aggregate.Count, res.Insight.Text)
			return nil
		}),
	}
	cmd.Flags().IntVar(&req.Hours, "hours", insights.DefaultHours, "trailing window in hours")
	cmd.Flags().StringVar(&req.Location, "location", "", "restrict to one location")
	cmd.Flags().BoolVar(&req.ForceCollect, "force-collect", false, "collect a fresh reading first")
	return cmd
}

func exportCommand(withApp appRunner) *cobra.Command {
	var format, out, since, location string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored readings as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			exporter, err := export.ForFormat(format)
			if err != nil {
				return err
			}
			var from time.Time
			if since != "" {
				if from, err = time.Parse(time.RFC3339, since); err != nil {
					return fmt.Errorf("invalid --since: %w", err)
				}
				from = from.UTC()
			}

			readings, err := a.service.Readings(cmd.Context(), from, location)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := exporter.Write(w, readings); err != nil {
				return fmt.Errorf("failed to export readings: %w", err)
			}
			a.log.Info("readings exported", zap.Int("count", len(readings)), zap.String("format", exporter.Extension()))
			return nil
		}),
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file; empty writes to stdout")
	cmd.Flags().StringVar(&since, "since", "", "RFC3339 lower bound on observation time")
	cmd.Flags().StringVar(&location, "location", "", "restrict to one location")
	return cmd
}

func seedCommand(withApp appRunner) *cobra.Command {
	var days, step int
	var location string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Store synthetic readings for trying out insights",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			if location == "" {
				location = a.cfg.DefaultSite().Name
			}
			n, err := store.Seed(cmd.Context(), a.store, store.SeedOptions{
				Days:      days,
				StepHours: step,
				Location:  location,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d readings for %s over %d day(s), every %dh\n", n, location, days, step)
			return nil
		}),
	}
	cmd.Flags().IntVar(&days, "days", 7, "days before today to fill")
	cmd.Flags().IntVar(&step, "step", 3, "hours between readings")
	cmd.Flags().StringVar(&location, "location", "", "location name; empty uses the default site")
	return cmd
}
