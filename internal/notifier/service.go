package notifier

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"xsportbot/internal/eventbus"
	rtsup "xsportbot/internal/runtime/supervisor"
	"xsportbot/internal/task/engine"
	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

type job struct {
	n   Notice
	key string
}

type Service struct {
	mu sync.Mutex

	log     logx.Logger
	gateway transport.Gateway
	bus     eventbus.Bus

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	sendWG    sync.WaitGroup
	queue     chan job
	sup       *rtsup.Supervisor
	stopDone  chan struct{}

	dmu   sync.Mutex
	dedup map[string]time.Time

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, gw transport.Gateway, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		gateway: gw,
		log:     log.With(logx.String("comp", "notifier")),
		bus:     bus,
		dedup:   map[string]time.Time{},
	}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	if cfg.DedupWindow < 0 {
		cfg.DedupWindow = 0
	}
	if cfg.DedupMaxEntries <= 0 {
		cfg.DedupMaxEntries = 1000
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Start is idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
		s.mu.Lock()
	}
	if s.queue != nil {
		s.mu.Unlock()
		return
	}
	s.queue = make(chan job, s.cfg.QueueSize)
	s.accepting = true
	s.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(s.log), rtsup.WithCancelOnError(false))
	sup, q, workers := s.sup, s.queue, s.cfg.Workers
	s.mu.Unlock()

	for i := range workers {
		sup.GoRestart(fmt.Sprintf("notifier.worker.%d", i), func(c context.Context) error {
			s.workerLoop(c, q)
			s.mu.Lock()
			stopping := s.stopDone != nil
			s.mu.Unlock()
			if stopping || c.Err() != nil {
				return context.Canceled
			}
			return errors.New("notifier worker exited unexpectedly")
		}, rtsup.WithPublishFirstError(true))
	}
	s.log.Info("service started", logx.Int("workers", workers))
}

// Stop closes intake and drains the queue until ctx ends.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q, sup := s.queue, s.sup
	if q == nil {
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
	s.accepting = false
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.sendWG.Wait()
		close(q)
		_ = sup.Wait(context.Background())
		s.mu.Lock()
		s.queue, s.stopDone, s.sup = nil, nil, nil
		s.mu.Unlock()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		sup.Cancel()
	}
}

// Notify queues n. Identical notices within the dedup window are dropped silently.
func (s *Service) Notify(ctx context.Context, n Notice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.ChannelID == "" {
		return nil
	}
	s.mu.Lock()
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	window, maxEntries := s.cfg.DedupWindow, s.cfg.DedupMaxEntries
	s.sendWG.Add(1)
	s.mu.Unlock()
	defer s.sendWG.Done()

	key := dedupKey(n)
	if window > 0 && !s.dedupAllow(key, window, maxEntries) {
		s.log.Debug("notice deduplicated", logx.String("channel_id", n.ChannelID))
		return nil
	}
	select {
	case q <- job{n: n, key: key}:
		return nil
	default:
		s.publish(eventbus.NoticeFailed, NoticeEvent{ChannelID: n.ChannelID, Key: key, At: time.Now(), Error: ErrQueueFull.Error()})
		return ErrQueueFull
	}
}

func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}

func (s *Service) appendHistory(n Notice) {
	text := n.Message.Text
	if text == "" && n.Message.Embed != nil {
		text = n.Message.Embed.Title
	}
	s.hmu.Lock()
	s.history = append(s.history, HistoryItem{At: time.Now(), ChannelID: n.ChannelID, Text: text})
	if len(s.history) > 300 {
		s.history = s.history[len(s.history)-300:]
	}
	s.hmu.Unlock()
}

func (s *Service) publish(typ string, ev NoticeEvent) {
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: typ, Time: ev.At, Data: ev})
	}
}

func (s *Service) workerLoop(ctx context.Context, q <-chan job) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q:
			if !ok {
				return
			}
			s.sendWithRetry(ctx, j)
		}
	}
}

func (s *Service) sendWithRetry(ctx context.Context, j job) {
	s.mu.Lock()
	cfg, lim, gw := s.cfg, s.limiter, s.gateway
	s.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= 1+cfg.RetryMax; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return
		}
		callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := gw.Send(callCtx, transport.Channel(j.n.ChannelID), j.n.Message)
		cancel()
		if err == nil {
			s.appendHistory(j.n)
			s.publish(eventbus.NoticeSent, NoticeEvent{ChannelID: j.n.ChannelID, Key: j.key, At: time.Now()})
			return
		}
		lastErr = err
		s.log.Debug("notice send failed", logx.Err(err), logx.Int("attempt", attempt))
		// A missing channel or permission will not fix itself.
		if errors.Is(err, transport.ErrForbidden) || errors.Is(err, transport.ErrNotFound) {
			break
		}
		if attempt > cfg.RetryMax {
			break
		}
		t := time.NewTimer(engine.ExpBackoff(cfg.RetryBase, cfg.RetryMaxDelay, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return
		}
	}
	s.log.Warn("notice dropped", logx.String("channel_id", j.n.ChannelID), logx.Err(lastErr))
	s.publish(eventbus.NoticeFailed, NoticeEvent{ChannelID: j.n.ChannelID, Key: j.key, At: time.Now(), Error: lastErr.Error()})
}

func dedupKey(n Notice) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(n.ChannelID))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(n.Message.Text))
	if e := n.Message.Embed; e != nil {
		_, _ = fmt.Fprintf(h, "|%s|%s|%s", e.Title, e.Description, e.Footer)
	}
	return fmt.Sprintf("%x", h.Sum64())
}

func (s *Service) dedupAllow(key string, window time.Duration, maxEntries int) bool {
	now := time.Now()
	s.dmu.Lock()
	defer s.dmu.Unlock()
	if until, ok := s.dedup[key]; ok && now.Before(until) {
		return false
	}
	s.dedup[key] = now.Add(window)

	for k, until := range s.dedup {
		if !now.Before(until) {
			delete(s.dedup, k)
		}
	}
	// Evict earliest expiry until within cap.
	for len(s.dedup) > maxEntries {
		var minKey string
		var minT time.Time
		for k, t := range s.dedup {
			if minKey == "" || t.Before(minT) {
				minKey, minT = k, t
			}
		}
		delete(s.dedup, minKey)
	}
	return true
}
