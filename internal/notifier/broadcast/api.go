package broadcast

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

var (
	ErrQueueFull  = errors.New("broadcast queue full")
	ErrNotRunning = errors.New("broadcast not running")
)

// Run delivers msg to every recipient and blocks until done or ctx ends.
func (s *Service) Run(ctx context.Context, name string, recipients []string, msg transport.Message, opt Options) Result {
	j := job{id: uuid.NewString(), name: name, recipients: dedupe(recipients), msg: msg, opt: opt}
	s.track(j)
	return s.execJob(ctx, j)
}

// NewJob queues an asynchronous delivery and returns its id.
func (s *Service) NewJob(name string, recipients []string, msg transport.Message, opt Options) (string, error) {
	j := job{id: uuid.NewString(), name: name, recipients: dedupe(recipients), msg: msg, opt: opt}

	s.mu.Lock()
	running := s.stopCh != nil && s.stopDone == nil
	q := s.queue
	s.mu.Unlock()
	if !running {
		s.log.Debug("broadcast not running; dropping job", logx.String("job", j.id), logx.String("name", name))
		return "", ErrNotRunning
	}

	s.track(j)
	select {
	case q <- j:
		s.log.Debug("broadcast job enqueued", logx.String("job", j.id), logx.String("name", name), logx.Int("total", len(j.recipients)), logx.Int("queue_len", len(q)))
		return j.id, nil
	default:
		s.log.Warn("broadcast queue full; dropping job", logx.String("job", j.id), logx.String("name", name), logx.Int("queue_cap", cap(q)))
		s.finish(j.id, Result{Total: len(j.recipients), Failed: len(j.recipients)})
		return "", ErrQueueFull
	}
}

func (s *Service) Status(id string) (JobStatus, bool) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	st, ok := s.status[id]
	if !ok {
		return JobStatus{}, false
	}
	cp := *st
	cp.Failures = append([]string(nil), st.Failures...)
	return cp, true
}

func (s *Service) track(j job) {
	now := time.Now()
	s.pruneStatus(now)
	s.statusMu.Lock()
	s.status[j.id] = &JobStatus{ID: j.id, Name: j.name, Result: Result{Total: len(j.recipients)}, CreatedAt: now}
	s.statusMu.Unlock()
}

// pruneStatus drops finished entries past the TTL, then the oldest beyond MaxStatuses.
func (s *Service) pruneStatus(now time.Time) {
	s.mu.Lock()
	ttl, maxN := s.cfg.StatusTTL, s.cfg.MaxStatuses
	s.mu.Unlock()

	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	for id, st := range s.status {
		if !st.Running && !st.DoneAt.IsZero() && now.Sub(st.DoneAt) > ttl {
			delete(s.status, id)
		}
	}
	for len(s.status) > maxN {
		var oldest string
		var at time.Time
		for id, st := range s.status {
			if oldest == "" || st.CreatedAt.Before(at) {
				oldest, at = id, st.CreatedAt
			}
		}
		delete(s.status, oldest)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
