package jobs

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Kind names the entry point a job runs.
type Kind string

const (
	KindCollect  Kind = "collect"
	KindGenerate Kind = "generate"
)

// ErrQueueClosed is returned by a queue after Close.
var ErrQueueClosed = errors.New("job queue closed")

// Job is one unit of work handed to a Worker.
type Job struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	Hours        int       `json:"hours,omitempty"`
	Location     string    `json:"location,omitempty"`
	Country      string    `json:"country,omitempty"`
	ForceCollect bool      `json:"force_collect,omitempty"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// Queue carries jobs from the API to a Worker.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Dequeue blocks until a job is available, the context ends or the queue closes.
	Dequeue(ctx context.Context) (Job, error)
	Close() error
}

// MemoryQueue is a buffered in-process queue.
type MemoryQueue struct {
	jobs      chan Job
	done      chan struct{}
	closeOnce sync.Once
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{jobs: make(chan Job, size), done: make(chan struct{})}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-q.done:
		return Job{}, ErrQueueClosed
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}

// Len returns the number of queued jobs.
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}
