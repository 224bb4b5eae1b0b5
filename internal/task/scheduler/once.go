package scheduler

import (
	"errors"
	"sort"
	"strings"
	"time"

	"xsportbot/internal/task/engine"
	logx "xsportbot/pkg/logx"
)

// AddOnce arms a single trigger at `at`, replacing any trigger with the same name.
// A time already in the past fires on the next tick.
func (s *Service) AddOnce(name string, at time.Time, timeout time.Duration, job Job) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name required")
	}
	if at.IsZero() {
		return errors.New("at required")
	}
	if job == nil {
		return errors.New("job required")
	}

	s.mu.Lock()
	s.removeScheduleLocked(name)
	s.mu.Unlock()

	s.tmu.Lock()
	defer s.tmu.Unlock()
	if prev, ok := s.once[name]; ok && prev.timer != nil {
		prev.timer.Stop()
	}
	// A fresh version makes callbacks of replaced timers no-ops.
	s.onceSeq++
	d := &onceDef{at: at, timeout: timeout, job: job, ver: s.onceSeq}
	s.once[name] = d
	if s.running {
		s.armLocked(name, d)
	}
	s.log.Debug("once registered", logx.String("name", name), logx.Time("at", at))
	return nil
}

// armLocked starts d's timer. Call with s.tmu held.
func (s *Service) armLocked(name string, d *onceDef) {
	delay := max(d.at.Sub(s.now()), 0)
	ver := d.ver
	d.timer = time.AfterFunc(delay, func() { s.fireOnce(name, ver) })
}

func (s *Service) fireOnce(name string, ver uint64) {
	s.tmu.Lock()
	d, ok := s.once[name]
	if !ok || d.ver != ver {
		s.tmu.Unlock()
		return
	}
	// Drop the definition before enqueueing so a restart cannot run it twice.
	delete(s.once, name)
	s.tmu.Unlock()

	s.dispatch(name, d.timeout, TaskOptions{}, &engine.RunState{}, d.job)
}

func (s *Service) removeOnce(name string) bool {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	d, ok := s.once[name]
	if !ok {
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	delete(s.once, name)
	return true
}

// Pending lists armed one-shot trigger names with the given prefix, sorted.
func (s *Service) Pending(prefix string) []string {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	out := make([]string, 0, len(s.once))
	for name := range s.once {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
