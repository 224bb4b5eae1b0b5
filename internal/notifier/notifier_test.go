package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"xsportbot/internal/eventbus"
	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

type fakeGateway struct {
	mu   sync.Mutex
	sent []transport.Destination
	fail int
}

func (g *fakeGateway) Send(_ context.Context, to transport.Destination, _ transport.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail > 0 {
		g.fail--
		return errors.New("temporary")
	}
	g.sent = append(g.sent, to)
	return nil
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

func waitEvent(t *testing.T, ch <-chan eventbus.Event, typ string) eventbus.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event", typ)
		}
	}
}

func TestNotifyDeliversWithRetry(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{fail: 1}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	s := New(Config{RatePerSec: 100, RetryMax: 2, RetryBase: time.Millisecond}, gw, logx.Nop(), bus)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Notify(context.Background(), Notice{ChannelID: "log", Message: transport.Text("member joined")}); err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	ev := waitEvent(t, events, eventbus.NoticeSent)
	if got := ev.Data.(NoticeEvent).ChannelID; got != "log" {
		t.Fatalf("ChannelID = %q, want %q", got, "log")
	}
	if h := s.History(); len(h) != 1 || h[0].Text != "member joined" {
		t.Fatalf("History() = %+v", h)
	}
}

func TestNotifyDeduplicates(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{}
	s := New(Config{RatePerSec: 100, DedupWindow: time.Minute}, gw, logx.Nop(), nil)
	s.Start(context.Background())

	n := Notice{ChannelID: "log", Message: transport.Text("same")}
	for i := 0; i < 3; i++ {
		if err := s.Notify(context.Background(), n); err != nil {
			t.Fatalf("Notify() error: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
	if got := gw.count(); got != 1 {
		t.Fatalf("sent = %d, want 1", got)
	}
}

func TestNotifyAfterStop(t *testing.T) {
	t.Parallel()
	s := New(Config{}, &fakeGateway{}, logx.Nop(), nil)
	if err := s.Notify(context.Background(), Notice{ChannelID: "c", Message: transport.Text("x")}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Notify() error = %v, want %v", err, ErrStopped)
	}
}
