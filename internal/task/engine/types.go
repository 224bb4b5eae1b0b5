package engine

import (
	"context"
	"sync/atomic"
	"time"
)

// Config sizes the worker pool. Zero fields fall back to package defaults.
type Config struct {
	Workers        int
	QueueSize      int
	DefaultTimeout time.Duration // for tasks that set no Timeout
	HistorySize    int
	RetryMax       int
}

type OverlapPolicy int

const (
	OverlapAllow OverlapPolicy = iota
	// OverlapSkipIfRunning drops a submission while an earlier one with the
	// same RunState is queued or running.
	OverlapSkipIfRunning
)

const (
	defaultRetryBase     = 500 * time.Millisecond
	defaultRetryMaxDelay = 15 * time.Second
	defaultRetryJitter   = 0.2
)

// TaskOptions tune a single task. RetryMax 0 inherits Config.RetryMax and a
// negative value disables retries.
type TaskOptions struct {
	Overlap       OverlapPolicy
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	RetryJitter   float64 // fraction of the delay, 0.2 is ±20%
}

func (o TaskOptions) withDefaults(cfg Config) TaskOptions {
	switch {
	case o.RetryMax == 0:
		o.RetryMax = max(cfg.RetryMax, 0)
	case o.RetryMax < 0:
		o.RetryMax = 0
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.RetryMaxDelay <= 0 {
		o.RetryMaxDelay = defaultRetryMaxDelay
	}
	if o.RetryJitter <= 0 {
		o.RetryJitter = defaultRetryJitter
	}
	return o
}

// RunState is the overlap gate shared by every submission of one job. A nil
// RunState never blocks.
type RunState struct {
	busy atomic.Bool
}

func (s *RunState) tryAcquire() bool {
	return s == nil || s.busy.CompareAndSwap(false, true)
}

func (s *RunState) release() {
	if s != nil {
		s.busy.Store(false)
	}
}

// Task is one unit of work. With OverlapSkipIfRunning the gate is State, or
// a gate shared by Name when State is nil.
type Task struct {
	ID      string
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
	Opt     TaskOptions
	State   *RunState
}

// HistoryItem records a finished task.
type HistoryItem struct {
	ID         string
	Name       string
	Started    time.Time
	QueueDelay time.Duration
	Duration   time.Duration
	Attempts   int
	Error      string
}

// TaskEvent is the payload of task lifecycle events on the bus.
type TaskEvent struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Started    time.Time     `json:"started"`
	QueueDelay time.Duration `json:"queue_delay"`
	Duration   time.Duration `json:"duration"`
	Attempts   int           `json:"attempts"`
	Error      string        `json:"error,omitempty"`
}

type Snapshot struct {
	Running  bool
	Workers  int
	QueueLen int
	QueueCap int
	InFlight int

	Completed        uint64
	Failed           uint64
	DroppedQueueFull uint64

	History []HistoryItem
}
