// Package eventbus is an in-process fanout of small lifecycle signals
// (task runs, deliveries, config reloads) between otherwise unrelated services.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Well-known event types.
const (
	TaskStarted         = "task.started"
	TaskFinished        = "task.finished"
	TaskFailed          = "task.failed"
	ReminderFired       = "reminder.fired"
	AnnouncementSent    = "announcement.sent"
	AnnouncementFailed  = "announcement.failed"
	BroadcastFinished   = "broadcast.finished"
	NoticeSent          = "notice.sent"
	NoticeFailed        = "notice.failed"
	ConfigReloaded      = "config.reloaded"
	GatewayReady        = "gateway.ready"
	GatewayDisconnected = "gateway.disconnected"
)

// Event is published without blocking; a subscriber that falls behind loses events.
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus. It owns no goroutines.
func New() *MemBus {
	return &MemBus{subs: map[uint64]*sub{}}
}

type sub struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

type MemBus struct {
	mu      sync.RWMutex
	subs    map[uint64]*sub
	seq     atomic.Uint64
	dropped atomic.Uint64
}

func (b *MemBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	targets := make([]*sub, 0, len(b.subs))
	for _, s := range b.subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		s.mu.Lock()
		if !s.closed {
			select {
			case s.ch <- e:
			default:
				b.dropped.Add(1)
			}
		}
		s.mu.Unlock()
	}
}

func (b *MemBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	s := &sub{ch: make(chan Event, buffer)}
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			s.mu.Lock()
			s.closed = true
			close(s.ch)
			s.mu.Unlock()
		})
	}
	return s.ch, unsub
}

// Dropped counts events lost to full subscriber buffers.
func (b *MemBus) Dropped() uint64 { return b.dropped.Load() }
