package broadcast

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

func normalize(cfg Config) Config {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = 30 * time.Minute
	}
	if cfg.MaxStatuses <= 0 {
		cfg.MaxStatuses = 200
	}
	return cfg
}

func newLimiter(every time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(every), 1)
}

func New(cfg Config, gw transport.Gateway, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = normalize(cfg)
	return &Service{
		cfg:     cfg,
		gateway: gw,
		log:     log.With(logx.String("comp", "broadcast")),
		limiter: newLimiter(cfg.Interval),
		queue:   make(chan job, cfg.QueueSize),
		status:  map[string]*JobStatus{},
	}
}

// OnJobDone registers a callback invoked after every async job.
func (s *Service) OnJobDone(fn func(JobStatus)) {
	s.mu.Lock()
	s.onDone = fn
	s.mu.Unlock()
}

// Apply updates pacing and retries. Worker count and queue size apply on the next Start.
func (s *Service) Apply(cfg Config) {
	cfg = normalize(cfg)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Interval != s.cfg.Interval {
		s.limiter = newLimiter(cfg.Interval)
	}
	s.cfg = cfg
}

func (s *Service) Start(ctx context.Context) {
	// Wait out an in-progress Stop so two pools never run at once.
	for {
		s.mu.Lock()
		if s.stopCh == nil {
			break
		}
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
	}
	defer s.mu.Unlock()

	s.stopCh = make(chan struct{})
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	if cap(s.queue) != s.cfg.QueueSize {
		s.queue = make(chan job, s.cfg.QueueSize)
	}
	queue, stopCh, runCtx := s.queue, s.stopCh, s.runCtx
	workers := s.cfg.Workers

	s.workerWG.Add(workers)
	for i := range workers {
		go func() {
			defer s.workerWG.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("panic in broadcast worker", logx.Int("worker", i), logx.Any("panic", r), logx.Stack(logx.StackTrace(3, 24)))
				}
			}()
			s.worker(runCtx, stopCh, queue)
		}()
	}
	s.log.Info("service started", logx.Int("workers", workers), logx.Duration("interval", s.cfg.Interval))
}

func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
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
	stopCh, cancel := s.stopCh, s.runCancel
	s.runCancel = nil
	s.mu.Unlock()

	close(stopCh)
	if cancel != nil {
		cancel()
	}
	go func() {
		s.workerWG.Wait()
		s.mu.Lock()
		s.stopCh, s.runCtx, s.stopDone = nil, nil, nil
		s.mu.Unlock()
		close(done)
		s.log.Info("service stopped", logx.Duration("took", time.Since(start)))
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}
