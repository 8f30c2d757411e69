package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-insights/internal/logger"
	"github.com/i474232898/weather-insights/internal/weather"
)

// Dispatcher assigns task ids and enqueues jobs.
type Dispatcher struct {
	queue   Queue
	tracker *Tracker
}

func NewDispatcher(q Queue, t *Tracker) *Dispatcher {
	return &Dispatcher{queue: q, tracker: t}
}

// Dispatch enqueues job and returns its task id.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) (string, error) {
	job.ID = uuid.NewString()
	job.EnqueuedAt = time.Now().UTC()

	if err := d.queue.Enqueue(ctx, job); err != nil {
		return "", fmt.Errorf("failed to enqueue %s job: %w", job.Kind, err)
	}
	d.tracker.Set(TaskState{ID: job.ID, Kind: job.Kind, Status: StatusQueued})
	return job.ID, nil
}

// Status returns the last known state of a task.
func (d *Dispatcher) Status(id string) (TaskState, bool) {
	return d.tracker.Get(id)
}

// Worker consumes a queue and runs each job through a Runner.
type Worker struct {
	queue   Queue
	runner  *Runner
	tracker *Tracker
	log     *logger.Logger
}

func NewWorker(q Queue, r *Runner, t *Tracker, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{queue: q, runner: r, tracker: t, log: log}
}

// Run processes jobs until ctx ends or the queue closes.
func (w *Worker) Run(ctx context.Context) error {
	for {
		job, err := w.queue.Dequeue(ctx)
		switch {
		case errors.Is(err, ErrQueueClosed), ctx.Err() != nil:
			return nil
		case err != nil:
			w.log.Error("dequeue failed", logger.Err(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		w.Handle(ctx, job)
	}
}

// Handle runs a single job and records its outcome.
func (w *Worker) Handle(ctx context.Context, job Job) {
	w.tracker.Set(TaskState{ID: job.ID, Kind: job.Kind, Status: StatusRunning})
	state := TaskState{ID: job.ID, Kind: job.Kind, Status: StatusSucceeded}

	switch job.Kind {
	case KindGenerate:
		res, err := w.runner.RunGenerate(ctx, job.Hours, job.ForceCollect, job.Location)
		if err != nil {
			state.Status, state.Error = StatusFailed, err.Error()
		} else {
			state.InsightID = res.Insight.ID
		}
	case KindCollect:
		reading, err := w.runner.collector.Collect(ctx, weather.CollectRequest{Place: job.Location, Country: job.Country})
		if err != nil {
			state.Status, state.Error = StatusFailed, err.Error()
		} else {
			state.ReadingID = reading.ID
		}
	default:
		state.Status, state.Error = StatusFailed, fmt.Sprintf("unknown job kind %q", job.Kind)
	}

	w.tracker.Set(state)
	w.log.Info("job finished", zap.String("task_id", job.ID), zap.String("kind", string(job.Kind)),
		zap.String("status", string(state.Status)))
}
