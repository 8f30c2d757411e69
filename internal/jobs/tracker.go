package jobs

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Status is the lifecycle state of a dispatched job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// TaskState is what the API reports for a task id.
type TaskState struct {
	ID        string    `json:"task_id"`
	Kind      Kind      `json:"kind"`
	Status    Status    `json:"status"`
	InsightID uint      `json:"insight_id,omitempty"`
	ReadingID uint      `json:"reading_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker remembers task states of this process for a limited time.
type Tracker struct {
	states *cache.Cache
}

func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tracker{states: cache.New(ttl, 2*ttl)}
}

func (t *Tracker) Set(state TaskState) {
	if t == nil {
		return
	}
	state.UpdatedAt = time.Now().UTC()
	t.states.SetDefault(state.ID, state)
}

func (t *Tracker) Get(id string) (TaskState, bool) {
	if t == nil {
		return TaskState{}, false
	}
	v, ok := t.states.Get(id)
	if !ok {
		return TaskState{}, false
	}
	state, ok := v.(TaskState)
	return state, ok
}
