package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"xsportbot/internal/eventbus"
	logx "xsportbot/pkg/logx"
)

func startEngine(t *testing.T, cfg Config) *Service {
	t.Helper()
	s := New(cfg, logx.Nop(), eventbus.New())
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestEnqueueRunsTask(t *testing.T) {
	t.Parallel()
	s := startEngine(t, Config{Workers: 1})

	done := make(chan struct{})
	if err := s.Enqueue(Task{Name: "once", Run: func(context.Context) error { close(done); return nil }}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("task did not run")
	}
	waitFor(t, func() bool { return s.Snapshot().Completed == 1 })
}

func TestRetryThenSucceed(t *testing.T) {
	t.Parallel()
	s := startEngine(t, Config{Workers: 1})

	var calls atomic.Int32
	err := s.Enqueue(Task{
		Name: "flaky",
		Opt:  TaskOptions{RetryMax: 3, RetryBase: time.Millisecond, RetryMaxDelay: 2 * time.Millisecond},
		Run: func(context.Context) error {
			if calls.Add(1) < 3 {
				return errors.New("transient")
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitFor(t, func() bool { return s.Snapshot().Completed == 1 })
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
	h := s.Snapshot().History
	if len(h) != 1 || h[0].Attempts != 3 {
		t.Fatalf("history = %+v", h)
	}
}

func TestNoRetryStopsImmediately(t *testing.T) {
	t.Parallel()
	s := startEngine(t, Config{Workers: 1, RetryMax: 5})

	var calls atomic.Int32
	_ = s.Enqueue(Task{Name: "permanent", Run: func(context.Context) error {
		calls.Add(1)
		return NoRetry(errors.New("gone"))
	}})
	waitFor(t, func() bool { return s.Snapshot().Failed == 1 })
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
	if h := s.Snapshot().History; h[0].Error != "gone" {
		t.Fatalf("error = %q, want unwrapped %q", h[0].Error, "gone")
	}
}

func TestPanicIsRecovered(t *testing.T) {
	t.Parallel()
	s := startEngine(t, Config{Workers: 1})

	_ = s.Enqueue(Task{Name: "boom", Opt: TaskOptions{RetryMax: -1}, Run: func(context.Context) error { panic("kaboom") }})
	waitFor(t, func() bool { return s.Snapshot().Failed == 1 })

	ran := make(chan struct{})
	_ = s.Enqueue(Task{Name: "after", Run: func(context.Context) error { close(ran); return nil }})
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatalf("worker did not survive panic")
	}
}

func TestOverlapSkip(t *testing.T) {
	t.Parallel()
	s := startEngine(t, Config{Workers: 2})

	release := make(chan struct{})
	started := make(chan struct{})
	task := Task{Name: "poll", Opt: TaskOptions{Overlap: OverlapSkipIfRunning}, Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}
	if err := s.Enqueue(task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	<-started
	if err := s.Enqueue(task); !errors.Is(err, ErrOverlapSkip) {
		t.Fatalf("second Enqueue err = %v, want ErrOverlapSkip", err)
	}
	close(release)
}

func TestEnqueueBeforeStart(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)
	if err := s.Enqueue(Task{Name: "x", Run: func(context.Context) error { return nil }}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Enqueue err = %v, want ErrStopped", err)
	}
}

func TestExpBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Minute},
		{2, 2 * time.Minute},
		{4, 8 * time.Minute},
		{10, time.Hour},
	}
	for _, tt := range tests {
		if got := ExpBackoff(time.Minute, time.Hour, tt.attempt); got != tt.want {
			t.Errorf("ExpBackoff(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestTaskLifecycleEvents(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(32)
	defer unsub()

	s := New(Config{Workers: 1}, logx.Nop(), bus)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	_ = s.Enqueue(Task{Name: "ok", Opt: TaskOptions{RetryMax: -1}, Run: func(context.Context) error { return nil }})
	_ = s.Enqueue(Task{Name: "bad", Opt: TaskOptions{RetryMax: -1}, Run: func(context.Context) error { return errors.New("x") }})

	seen := map[string][]string{}
	timeout := time.After(3 * time.Second)
	for len(seen["ok"]) < 2 || len(seen["bad"]) < 2 {
		select {
		case e := <-events:
			if ev, ok := e.Data.(TaskEvent); ok {
				seen[ev.Name] = append(seen[ev.Name], e.Type)
			}
		case <-timeout:
			t.Fatalf("events = %v, want start and end for both tasks", seen)
		}
	}
	if got := seen["ok"]; got[0] != eventbus.TaskStarted || got[1] != eventbus.TaskFinished {
		t.Fatalf("ok events = %v", got)
	}
	if got := seen["bad"]; got[0] != eventbus.TaskStarted || got[1] != eventbus.TaskFailed {
		t.Fatalf("bad events = %v", got)
	}
}
