package scheduler

import (
	"errors"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"xsportbot/internal/task/engine"
	logx "xsportbot/pkg/logx"
)

// AddIntervalOpt registers a recurring trigger every period, replacing any
// trigger of the same name.
func (s *Service) AddIntervalOpt(name string, every, timeout time.Duration, opt TaskOptions, job Job) error {
	if every <= 0 {
		return errors.New("interval must be > 0")
	}
	return s.addRecurring(name, "@every "+every.String(), timeout, opt, job)
}

// addRecurring upserts by name so repeated registration (e.g. on config reload) never duplicates.
func (s *Service) addRecurring(name, spec string, timeout time.Duration, opt TaskOptions, job Job) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name required")
	}
	if job == nil {
		return errors.New("job required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeScheduleLocked(name)
	s.removeOnce(name)
	d := &scheduleDef{
		name:    name,
		spec:    spec,
		timeout: timeout,
		job:     job,
		opt:     opt,
		state:   &engine.RunState{},
	}
	s.defs = append(s.defs, d)
	if s.c == nil {
		// Registered again when Start runs.
		return nil
	}
	if err := s.addCronLocked(d); err != nil {
		s.log.Error("schedule register failed", logx.String("name", name), logx.String("spec", spec), logx.Err(err))
		return err
	}
	s.log.Debug("schedule registered", logx.String("name", name), logx.String("spec", spec), logx.Duration("spread", d.startupSpread))
	return nil
}

// Remove cancels every trigger with the given name. It reports whether anything was removed.
func (s *Service) Remove(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	s.mu.Lock()
	removed := s.removeScheduleLocked(name)
	s.mu.Unlock()
	if s.removeOnce(name) {
		removed = true
	}
	if removed {
		s.log.Debug("schedule removed", logx.String("name", name))
	}
	return removed
}

// removeScheduleLocked drops recurring defs named name. Call with s.mu held.
func (s *Service) removeScheduleLocked(name string) bool {
	removed := false
	n := 0
	for _, d := range s.defs {
		if d.name == name {
			if s.c != nil && d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	clear(s.defs[n:])
	s.defs = s.defs[:n]
	return removed
}

func (s *Service) addCronLocked(d *scheduleDef) error {
	job := cron.FuncJob(func() { s.dispatch(d.name, d.timeout, d.opt, d.state, d.job) })

	if every, ok := intervalOf(d.spec); ok {
		sched := newStaggered(every, s.now().In(s.loc), d.name)
		d.startupSpread = sched.offset
		d.entryID = s.c.Schedule(sched, job)
		return nil
	}
	d.startupSpread = 0
	eid, err := s.c.AddJob(d.spec, job)
	if err == nil {
		d.entryID = eid
	}
	return err
}

func (s *Service) dispatch(name string, timeout time.Duration, opt TaskOptions, state *engine.RunState, job Job) {
	if s.engine == nil {
		return
	}
	err := s.engine.Enqueue(engine.Task{
		Name:    name,
		Timeout: timeout,
		Run:     job,
		Opt:     opt,
		State:   state,
	})
	s.reportEnqueueError(name, err)
}
