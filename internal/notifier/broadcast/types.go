package broadcast

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

type Config struct {
	Workers     int
	QueueSize   int
	Interval    time.Duration // pause between recipients
	RetryMax    int
	StatusTTL   time.Duration
	MaxStatuses int
}

// Options tune a single job.
type Options struct {
	// Interval overrides Config.Interval for this job.
	Interval time.Duration
}

// Result counts the outcome of one job. Forbidden recipients are also counted in Failed.
type Result struct {
	Total     int
	Sent      int
	Failed    int
	Forbidden int
}

type job struct {
	id         string
	name       string
	recipients []string
	msg        transport.Message
	opt        Options
}

type JobStatus struct {
	ID        string
	Name      string
	Result    Result
	Failures  []string
	CreatedAt time.Time
	StartedAt time.Time
	DoneAt    time.Time
	Running   bool
}

type Service struct {
	mu sync.Mutex

	cfg     Config
	gateway transport.Gateway
	log     logx.Logger
	onDone  func(JobStatus)

	limiter *rate.Limiter
	queue   chan job
	stopCh  chan struct{}
	// stopDone is non-nil while a Stop is in progress.
	stopDone chan struct{}

	statusMu sync.RWMutex
	status   map[string]*JobStatus

	runCtx    context.Context
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup
}
