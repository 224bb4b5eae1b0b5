package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"xsportbot/internal/eventbus"
	rtsup "xsportbot/internal/runtime/supervisor"
	logx "xsportbot/pkg/logx"
)

const warnThrottleEvery = 5 * time.Second

// Service runs tasks on a fixed pool of supervised workers.
type Service struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger
	bus eventbus.Bus

	q        chan queuedTask
	sup      *rtsup.Supervisor
	stopCh   chan struct{}
	stopDone chan struct{}

	stateMu sync.Mutex
	states  map[string]*RunState

	hmu     sync.Mutex
	history []HistoryItem

	inFlight         atomic.Int32
	completed        atomic.Uint64
	failed           atomic.Uint64
	droppedQueueFull atomic.Uint64

	lastQueueFullWarnAt atomic.Int64
}

type queuedTask struct {
	task Task

	enqueuedAt time.Time
	timeout    time.Duration
	opt        TaskOptions

	state *RunState
	track bool
}

func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Service {
	return &Service{
		cfg:    normalize(cfg),
		log:    log.With(logx.String("comp", "taskengine")),
		bus:    bus,
		states: make(map[string]*RunState),
	}
}

func normalize(cfg Config) Config {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 200
	}
	return cfg
}

// Apply swaps the config; worker count and queue size changes restart the pool.
func (s *Service) Apply(ctx context.Context, cfg Config) {
	cfg = normalize(cfg)
	s.mu.Lock()
	prev := s.cfg
	s.cfg = cfg
	running := s.stopCh != nil && s.stopDone == nil
	s.mu.Unlock()

	if running && (prev.Workers != cfg.Workers || prev.QueueSize != cfg.QueueSize) {
		s.Stop(ctx)
		s.Start(ctx)
	}
}

// Start is idempotent.
func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.stopCh != nil {
		done := s.stopDone
		s.mu.Unlock()
		if done == nil {
			return
		}
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
		s.mu.Lock()
		if s.stopCh != nil {
			s.mu.Unlock()
			return
		}
	}

	cfg := s.cfg
	s.q = make(chan queuedTask, cfg.QueueSize)
	s.stopCh = make(chan struct{})
	s.stopDone = nil
	stopCh, queue := s.stopCh, s.q

	s.sup = rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(s.log),
		// A failing worker must not take the bot down.
		rtsup.WithCancelOnError(false),
	)
	sup := s.sup
	s.mu.Unlock()

	for i := 0; i < cfg.Workers; i++ {
		idx := i
		sup.GoRestart(fmt.Sprintf("worker.%d", idx), func(c context.Context) error {
			s.worker(c, stopCh, queue, idx)
			select {
			case <-stopCh:
				return context.Canceled
			default:
			}
			if c.Err() != nil {
				return c.Err()
			}
			return errors.New("worker exited unexpectedly")
		}, rtsup.WithPublishFirstError(true))
	}

	s.log.Info("task engine started", logx.Int("workers", cfg.Workers), logx.Int("queue", cap(queue)))
}

func (s *Service) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}

	done := make(chan struct{})
	s.stopDone = done
	close(s.stopCh)
	sup := s.sup
	s.mu.Unlock()

	if sup != nil {
		sup.Cancel()
	}
	go func() {
		if sup != nil {
			_ = sup.Wait(context.Background())
		}
		s.mu.Lock()
		s.q = nil
		s.stopCh = nil
		s.stopDone = nil
		s.sup = nil
		s.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("task engine stopped")
	case <-ctx.Done():
		s.log.Warn("task engine stop timed out", logx.Err(ctx.Err()))
	}
}

// Enqueue adds a task without blocking; a full queue drops it with ErrQueueFull.
func (s *Service) Enqueue(t Task) error {
	return s.enqueue(context.Background(), t, false)
}

// Submit blocks until the task is accepted, ctx is canceled, or the engine stops.
func (s *Service) Submit(ctx context.Context, t Task) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.enqueue(ctx, t, true)
}

func (s *Service) enqueue(ctx context.Context, t Task, block bool) error {
	if t.Run == nil {
		return errors.New("task Run is nil")
	}
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return errors.New("task Name is required")
	}
	if strings.TrimSpace(t.ID) == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now()

	s.mu.Lock()
	cfg := s.cfg
	q := s.q
	stopCh := s.stopCh
	stopping := s.stopDone != nil
	s.mu.Unlock()

	if q == nil || stopCh == nil {
		return ErrStopped
	}
	if stopping {
		return ErrStopping
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = cfg.DefaultTimeout
	}
	opt := t.Opt.withDefaults(cfg)

	st := t.State
	if st == nil {
		st = s.stateFor(t.Name)
	}
	track := opt.Overlap == OverlapSkipIfRunning
	if track && !st.tryAcquire() {
		s.publish("task.skipped", TaskEvent{ID: t.ID, Name: t.Name, Started: now, Error: "overlap_skip"})
		s.log.Debug("task skipped due to overlap", logx.String("task", t.Name))
		return ErrOverlapSkip
	}

	qt := queuedTask{task: t, enqueuedAt: now, timeout: timeout, opt: opt, state: st, track: track}
	release := func() {
		if track {
			st.release()
		}
	}

	if !block {
		select {
		case q <- qt:
			return nil
		default:
			release()
			s.onQueueFullDropped(now, t, q)
			return ErrQueueFull
		}
	}
	select {
	case q <- qt:
		return nil
	case <-ctx.Done():
		release()
		return ctx.Err()
	case <-stopCh:
		release()
		return ErrStopping
	}
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	cfg := s.cfg
	q := s.q
	running := s.stopCh != nil && s.stopDone == nil
	s.mu.Unlock()

	snap := Snapshot{
		Running:          running,
		Workers:          cfg.Workers,
		InFlight:         int(s.inFlight.Load()),
		Completed:        s.completed.Load(),
		Failed:           s.failed.Load(),
		DroppedQueueFull: s.droppedQueueFull.Load(),
	}
	if q != nil {
		snap.QueueLen, snap.QueueCap = len(q), cap(q)
	}
	s.hmu.Lock()
	snap.History = append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return snap
}

func (s *Service) stateFor(name string) *RunState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	st := s.states[name]
	if st == nil {
		st = &RunState{}
		s.states[name] = st
	}
	return st
}

func (s *Service) publish(typ string, ev TaskEvent) {
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: ev})
	}
}

func (s *Service) onQueueFullDropped(now time.Time, t Task, q chan queuedTask) {
	n := s.droppedQueueFull.Add(1)
	s.publish("task.dropped", TaskEvent{ID: t.ID, Name: t.Name, Started: now, Error: "queue_full"})

	prev := s.lastQueueFullWarnAt.Load()
	if prev != 0 && now.UnixNano()-prev < int64(warnThrottleEvery) {
		return
	}
	if s.lastQueueFullWarnAt.CompareAndSwap(prev, now.UnixNano()) {
		s.log.Warn("task dropped: queue full",
			logx.String("task", t.Name),
			logx.Int("queue_len", len(q)),
			logx.Int("queue_cap", cap(q)),
			logx.Int64("dropped_queue_full", int64(n)),
		)
	}
}

func (s *Service) record(cfg Config, item HistoryItem) {
	s.hmu.Lock()
	s.history = append(s.history, item)
	if len(s.history) > cfg.HistorySize {
		s.history = s.history[len(s.history)-cfg.HistorySize:]
	}
	s.hmu.Unlock()
}
