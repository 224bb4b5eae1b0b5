// Package reminder arms the pre-kickoff reminders of active matches on the
// scheduler's one-shot timers and delivers them when they fire.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xsportbot/internal/eventbus"
	"xsportbot/internal/locale"
	"xsportbot/internal/match"
	"xsportbot/internal/notifier/broadcast"
	"xsportbot/internal/task/engine"
	"xsportbot/internal/task/scheduler"
	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

// DefaultOffsets are the lead times before kickoff.
var DefaultOffsets = []time.Duration{10 * time.Minute, 3 * time.Minute}

const (
	fireTimeout    = 30 * time.Second
	queueFullRetry = 2 * time.Second
)

// Timers is the one-shot part of the scheduler.
type Timers interface {
	AddOnce(name string, at time.Time, timeout time.Duration, job scheduler.Job) error
	Remove(name string) bool
	Pending(prefix string) []string
}

// Broadcaster queues direct messages.
type Broadcaster interface {
	NewJob(name string, recipients []string, msg transport.Message, opt broadcast.Options) (string, error)
}

// Payload identifies what a timer delivers.
type Payload struct {
	MatchID int64
	Minutes int
}

type Deps struct {
	Timers    Timers
	Registry  *match.Registry
	Directory transport.Directory
	Broadcast Broadcaster
	Clock     match.Clock
	Location  *time.Location
	Log       logx.Logger
	Bus       eventbus.Bus
}

type Service struct {
	timers  Timers
	reg     *match.Registry
	dir     transport.Directory
	bc      Broadcaster
	clock   match.Clock
	loc     *time.Location
	log     logx.Logger
	bus     eventbus.Bus
	offsets []time.Duration
}

func New(d Deps, offsets []time.Duration) *Service {
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Clock == nil {
		d.Clock = match.SystemClock{Loc: d.Location}
	}
	if len(offsets) == 0 {
		offsets = DefaultOffsets
	}
	return &Service{
		timers:  d.Timers,
		reg:     d.Registry,
		dir:     d.Directory,
		bc:      d.Broadcast,
		clock:   d.Clock,
		loc:     d.Location,
		log:     d.Log.With(logx.String("comp", "reminder")),
		bus:     d.Bus,
		offsets: append([]time.Duration(nil), offsets...),
	}
}

// Key names the timer of a match reminder, e.g. reminder_7_10.
func Key(matchID int64, minutes int) string {
	return fmt.Sprintf("reminder_%d_%d", matchID, minutes)
}

func matchPrefix(matchID int64) string {
	return fmt.Sprintf("reminder_%d_", matchID)
}

// Arm schedules p at fireAt under key, replacing any timer with that key.
// A fireAt that is not in the future leaves everything untouched and returns false.
func (s *Service) Arm(key string, fireAt time.Time, p Payload) bool {
	if !fireAt.After(s.clock.Now()) {
		return false
	}
	err := s.timers.AddOnce(key, fireAt, fireTimeout, func(ctx context.Context) error {
		return s.Fire(ctx, p)
	})
	if err != nil {
		s.log.Warn("reminder arm failed", logx.String("key", key), logx.Err(err))
		return false
	}
	s.log.Debug("reminder armed", logx.String("key", key), logx.Time("fire_at", fireAt))
	return true
}

func (s *Service) Cancel(key string) bool {
	return s.timers.Remove(key)
}

// ArmMatch arms one reminder per offset that is still ahead and returns their keys.
func (s *Service) ArmMatch(m match.Match) []string {
	var keys []string
	for _, off := range s.offsets {
		minutes := int(off / time.Minute)
		key := Key(m.ID, minutes)
		if s.Arm(key, m.ScheduledAt.Add(-off), Payload{MatchID: m.ID, Minutes: minutes}) {
			keys = append(keys, key)
		}
	}
	return keys
}

// CancelMatch drops every pending reminder of the match.
func (s *Service) CancelMatch(matchID int64) int {
	n := 0
	for _, key := range s.timers.Pending(matchPrefix(matchID)) {
		if s.timers.Remove(key) {
			n++
		}
	}
	return n
}

// Fire delivers the reminder. A match that no longer exists is skipped silently.
func (s *Service) Fire(ctx context.Context, p Payload) error {
	m, err := s.reg.Get(p.MatchID)
	if errors.Is(err, match.ErrNotFound) {
		s.log.Debug("reminder for ended match skipped", logx.Int64("match_id", p.MatchID))
		return nil
	}
	if err != nil {
		return err
	}

	tag := locale.Resolve(m.Locale)
	a := transport.ResolveParticipant(ctx, s.dir, m.GuildID, m.ParticipantA)
	b := transport.ResolveParticipant(ctx, s.dir, m.GuildID, m.ParticipantB)
	when := locale.FormatShortDate(tag, m.ScheduledAt.In(s.loc))
	text := locale.Reminder(tag, a.Label, b.Label, p.Minutes, when)

	recipients := append(append([]string(nil), a.Recipients...), b.Recipients...)
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.ReminderFired, Data: p})
	}
	if len(recipients) == 0 {
		s.log.Debug("reminder has no recipients", logx.Int64("match_id", m.ID))
		return nil
	}
	if _, err := s.bc.NewJob(Key(m.ID, p.Minutes), recipients, transport.Text(text), broadcast.Options{}); err != nil {
		err = fmt.Errorf("queue reminder %d: %w", m.ID, err)
		switch {
		case errors.Is(err, broadcast.ErrQueueFull):
			return engine.RetryAfter(err, queueFullRetry)
		case errors.Is(err, broadcast.ErrNotRunning):
			return engine.NoRetry(err)
		}
		return err
	}
	s.log.Info("reminder sent", logx.Int64("match_id", m.ID), logx.Int("minutes", p.Minutes), logx.Int("recipients", len(recipients)))
	return nil
}
