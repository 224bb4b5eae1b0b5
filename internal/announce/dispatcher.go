// Package announce delivers scheduled announcements. Delivery is driven only
// by polling the store for due rows, so a restart loses nothing: whatever was
// due while the process was down goes out on the first poll.
package announce

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"xsportbot/internal/eventbus"
	"xsportbot/internal/match"
	"xsportbot/internal/storage"
	"xsportbot/internal/task/engine"
	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

const (
	EmbedTitle   = "📢 Anuncio Programado"
	EmbedColor   = 0x0099ff
	footerPrefix = "Programado por "

	EventSent   = "announcement_sent"
	EventFailed = "announcement_failed"
)

type Store interface {
	DueAnnouncements(ctx context.Context, now time.Time, limit int) ([]storage.Announcement, error)
	MarkAnnouncementSent(ctx context.Context, id int64, at time.Time) error
	MarkAnnouncementRetry(ctx context.Context, id int64, attempts int, next time.Time, lastErr string) error
	MarkAnnouncementFailed(ctx context.Context, id int64, attempts int, lastErr string) error
	LogEvent(ctx context.Context, guildID, eventType, description string) error
}

type Config struct {
	MaxAttempts   int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	BatchSize     int
	Parallelism   int
	SendTimeout   time.Duration
}

func normalize(cfg Config) Config {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Minute
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	return cfg
}

// PollResult counts what one cycle did.
type PollResult struct {
	Due     int
	Sent    int
	Retried int
	Failed  int
}

type Dispatcher struct {
	mu  sync.Mutex
	cfg Config

	store Store
	gw    transport.Gateway
	clock match.Clock
	log   logx.Logger
	bus   eventbus.Bus

	polling atomic.Bool
}

func New(cfg Config, store Store, gw transport.Gateway, clock match.Clock, log logx.Logger, bus eventbus.Bus) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if clock == nil {
		clock = match.SystemClock{}
	}
	return &Dispatcher{
		cfg:   normalize(cfg),
		store: store,
		gw:    gw,
		clock: clock,
		log:   log.With(logx.String("comp", "announce")),
		bus:   bus,
	}
}

func (d *Dispatcher) Apply(cfg Config) {
	d.mu.Lock()
	d.cfg = normalize(cfg)
	d.mu.Unlock()
}

// Embed renders an announcement as delivered to its channel.
func Embed(a storage.Announcement, at time.Time) *transport.Embed {
	return &transport.Embed{
		Title:       EmbedTitle,
		Description: a.Message,
		Color:       EmbedColor,
		Footer:      footerPrefix + a.CreatedBy,
		Timestamp:   at,
	}
}

// Poll delivers every due announcement once. Store errors abort the cycle;
// delivery errors only affect their own row.
func (d *Dispatcher) Poll(ctx context.Context) (PollResult, error) {
	// One cycle at a time; an overlapping trigger would deliver the same rows twice.
	if !d.polling.CompareAndSwap(false, true) {
		d.log.Debug("announcement poll already running; skipped")
		return PollResult{}, nil
	}
	defer d.polling.Store(false)

	d.mu.Lock()
	cfg := d.cfg
	d.mu.Unlock()

	now := d.clock.Now()
	due, err := d.store.DueAnnouncements(ctx, now, cfg.BatchSize)
	if err != nil {
		d.log.Error("announcement poll failed", logx.Err(err))
		return PollResult{}, fmt.Errorf("poll announcements: %w", err)
	}
	if len(due) == 0 {
		return PollResult{}, nil
	}

	var sent, retried, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(cfg.Parallelism)
	for _, a := range due {
		g.Go(func() error {
			switch d.deliver(ctx, cfg, a) {
			case outcomeSent:
				sent.Add(1)
			case outcomeRetry:
				retried.Add(1)
			case outcomeFailed:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := PollResult{Due: len(due), Sent: int(sent.Load()), Retried: int(retried.Load()), Failed: int(failed.Load())}
	d.log.Info("announcement poll finished", logx.Int("due", res.Due), logx.Int("sent", res.Sent), logx.Int("retried", res.Retried), logx.Int("failed", res.Failed))
	return res, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeRetry
	outcomeFailed
	outcomeStoreError
)

func (d *Dispatcher) deliver(ctx context.Context, cfg Config, a storage.Announcement) outcome {
	log := d.log.With(logx.Int64("announcement_id", a.ID), logx.String("guild_id", a.GuildID), logx.String("channel_id", a.ChannelID))

	sendCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	err := d.gw.Send(sendCtx, transport.Channel(a.ChannelID), transport.Message{Embed: Embed(a, d.clock.Now())})
	cancel()

	if err == nil {
		// A failed mark leaves the row pending; the next poll delivers it again.
		if err := d.store.MarkAnnouncementSent(ctx, a.ID, d.clock.Now()); err != nil {
			log.Error("announcement sent but not marked", logx.Err(err))
			return outcomeStoreError
		}
		if err := d.store.LogEvent(ctx, a.GuildID, EventSent, fmt.Sprintf("Announcement %d sent to channel %s", a.ID, a.ChannelID)); err != nil {
			log.Warn("event log failed", logx.Err(err))
		}
		d.publish(eventbus.AnnouncementSent, a)
		log.Info("announcement sent")
		return outcomeSent
	}

	attempts := a.Attempts + 1
	if attempts >= cfg.MaxAttempts {
		if err2 := d.store.MarkAnnouncementFailed(ctx, a.ID, attempts, err.Error()); err2 != nil {
			log.Error("announcement failure not recorded", logx.Err(err2))
			return outcomeStoreError
		}
		if err2 := d.store.LogEvent(ctx, a.GuildID, EventFailed, fmt.Sprintf("Announcement %d gave up after %d attempts: %v", a.ID, attempts, err)); err2 != nil {
			log.Warn("event log failed", logx.Err(err2))
		}
		d.publish(eventbus.AnnouncementFailed, a)
		log.Warn("announcement failed permanently", logx.Int("attempts", attempts), logx.Err(err))
		return outcomeFailed
	}

	next := d.clock.Now().Add(engine.ExpBackoff(cfg.RetryBase, cfg.RetryMaxDelay, attempts))
	if err2 := d.store.MarkAnnouncementRetry(ctx, a.ID, attempts, next, err.Error()); err2 != nil {
		log.Error("announcement retry not recorded", logx.Err(err2))
		return outcomeStoreError
	}
	lvl := log.Warn
	if errors.Is(err, transport.ErrForbidden) || errors.Is(err, transport.ErrNotFound) {
		lvl = log.Error
	}
	lvl("announcement delivery failed", logx.Int("attempts", attempts), logx.Time("next_attempt_at", next), logx.Err(err))
	return outcomeRetry
}

func (d *Dispatcher) publish(typ string, a storage.Announcement) {
	if d.bus != nil {
		d.bus.Publish(eventbus.Event{Type: typ, Data: a.ID})
	}
}
