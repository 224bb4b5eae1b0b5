// Package supervisor owns long-lived goroutines: it names them, recovers
// panics, restarts the ones that ask for it and waits for all of them on stop.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	logx "xsportbot/pkg/logx"
)

type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc

	log         logx.Logger
	cancelOnErr bool

	errOnce  sync.Once
	firstErr atomic.Pointer[error]

	wg       sync.WaitGroup
	doneOnce sync.Once
	doneCh   chan struct{}

	started atomic.Uint64
	active  atomic.Int64

	stats statsTable
}

type Option func(*Supervisor)

func WithLogger(log logx.Logger) Option {
	return func(s *Supervisor) { s.log = log }
}

// WithCancelOnError cancels the shared context on the first goroutine error.
func WithCancelOnError(enabled bool) Option {
	return func(s *Supervisor) { s.cancelOnErr = enabled }
}

func NewSupervisor(parent context.Context, opts ...Option) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	s := &Supervisor{
		ctx:    ctx,
		cancel: cancel,
		log:    logx.Nop(),
		doneCh: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	return s
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Cancel cancels the shared context without waiting.
func (s *Supervisor) Cancel() { s.cancel() }

// Err is the first error recorded by any goroutine.
func (s *Supervisor) Err() error {
	if p := s.firstErr.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *Supervisor) fail(err error) {
	if err == nil {
		return
	}
	s.errOnce.Do(func() { s.firstErr.Store(&err) })
	if s.cancelOnErr {
		s.cancel()
	}
}

// Go runs fn once. A panic or a non-cancel error is recorded as the supervisor error.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	s.spawn(name, func(ctx context.Context) {
		startedAt := s.stats.start(name, false)
		err, pan, stack := runCaught(ctx, fn)
		if pan != nil {
			s.stats.panic(name, pan)
			s.log.Error("goroutine panicked", logx.String("name", name), logx.Any("panic", pan), logx.Stack(stack))
			err = fmt.Errorf("panic: %v", pan)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%s: %w", name, err)
			s.stats.stop(name, startedAt, err)
			s.fail(err)
			return
		}
		s.stats.stop(name, startedAt, nil)
	})
}

// spawn tracks the goroutine in counters and the wait group.
func (s *Supervisor) spawn(name string, body func(ctx context.Context)) {
	s.started.Add(1)
	s.active.Add(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.active.Add(-1)
		s.log.Debug("goroutine started", logx.String("name", name))
		body(s.ctx)
		s.log.Debug("goroutine stopped", logx.String("name", name))
	}()
}

func runCaught(ctx context.Context, fn func(ctx context.Context) error) (err error, pan any, stack string) {
	defer func() {
		if r := recover(); r != nil {
			pan = r
			stack = logx.StackTrace(3, 24)
		}
	}()
	return fn(ctx), nil, ""
}

// Stop cancels the context and waits for every goroutine, bounded by ctx.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.cancel()
	return s.Wait(ctx)
}

func (s *Supervisor) Wait(ctx context.Context) error {
	s.doneOnce.Do(func() {
		go func() {
			s.wg.Wait()
			close(s.doneCh)
		}()
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.doneCh:
		return s.Err()
	}
}
