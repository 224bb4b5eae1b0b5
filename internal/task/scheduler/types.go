package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"xsportbot/internal/eventbus"
	"xsportbot/internal/task/engine"
	logx "xsportbot/pkg/logx"
)

// Config controls the trigger service.
type Config struct {
	Timezone string // IANA TZ, e.g. "Europe/Madrid"
}

// Re-export execution types from engine.
type OverlapPolicy = engine.OverlapPolicy

type TaskOptions = engine.TaskOptions

const (
	OverlapAllow         = engine.OverlapAllow
	OverlapSkipIfRunning = engine.OverlapSkipIfRunning
)

// Job is the unit the scheduler hands to the engine.
type Job func(ctx context.Context) error

// Enqueuer is the part of the task engine the scheduler needs.
type Enqueuer interface {
	Enqueue(t engine.Task) error
}

type scheduleDef struct {
	name          string
	spec          string // cron spec or @every
	timeout       time.Duration
	job           Job
	entryID       cron.EntryID
	startupSpread time.Duration
	opt           TaskOptions
	state         *engine.RunState
}

// onceDef survives Stop/Start; only its timer is runtime state.
type onceDef struct {
	at      time.Time
	timeout time.Duration
	job     Job
	ver     uint64
	timer   *time.Timer
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location
	bus eventbus.Bus

	engine Enqueuer
	now    func() time.Time

	parser cron.Parser
	c      *cron.Cron
	defs   []*scheduleDef

	enqMu       sync.Mutex
	lastEnqWarn map[string]time.Time

	tmu     sync.Mutex
	once    map[string]*onceDef
	onceSeq uint64
	running bool
}

type ScheduleInfo struct {
	Name    string
	Kind    string // "cron" | "interval" | "once"
	Spec    string
	Timeout time.Duration
	Next    time.Time
	Prev    time.Time
}

type Snapshot struct {
	Running   bool
	Timezone  string
	Schedules []ScheduleInfo
}
