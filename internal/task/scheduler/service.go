package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"xsportbot/internal/eventbus"
	logx "xsportbot/pkg/logx"
)

func New(cfg Config, eng Enqueuer, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		log:    log.With(logx.String("comp", "scheduler")),
		bus:    bus,
		engine: eng,
		now:    time.Now,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser:      cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		once:        map[string]*onceDef{},
		lastEnqWarn: map[string]time.Time{},
	}
}

// Apply swaps the config; a timezone change restarts cron with the new location.
// Location is the zone cron specs are evaluated in.
func (s *Service) Location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loc != nil {
		return s.loc
	}
	return s.loadLocationLocked()
}

// Start starts cron triggering and re-arms one-shot timers registered while stopped.
func (s *Service) Start(ctx context.Context) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.loc = s.loadLocationLocked()
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
	for _, d := range s.defs {
		if err := s.addCronLocked(d); err != nil {
			s.log.Error("schedule register failed", logx.String("name", d.name), logx.Err(err))
		}
	}
	s.c.Start()

	s.tmu.Lock()
	s.running = true
	for name, d := range s.once {
		s.armLocked(name, d)
	}
	pending := len(s.once)
	s.tmu.Unlock()

	s.log.Info("service started", logx.String("tz", s.loc.String()), logx.Int("schedules", len(s.defs)), logx.Int("once", pending))
}

// Stop stops cron and all runtime timers. One-shot definitions stay and resume on Start.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()

	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}

	s.tmu.Lock()
	s.running = false
	for _, d := range s.once {
		if d.timer != nil {
			d.timer.Stop()
			d.timer = nil
		}
	}
	s.tmu.Unlock()

	s.log.Info("service stopped", logx.Duration("took", time.Since(start)))
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
