package supervisor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	logx "xsportbot/pkg/logx"
)

type RestartOption func(*restartCfg)

type restartCfg struct {
	minBackoff  time.Duration
	maxBackoff  time.Duration
	maxRestarts int // <=0 means unlimited
	publishErr  bool
}

// WithRestartBackoff sets the exponential backoff window between restarts.
func WithRestartBackoff(minDelay, maxDelay time.Duration) RestartOption {
	return func(c *restartCfg) {
		if minDelay > 0 {
			c.minBackoff = minDelay
		}
		if maxDelay > 0 {
			c.maxBackoff = maxDelay
		}
	}
}

// WithMaxRestarts gives up after n restarts. The first run does not count.
func WithMaxRestarts(n int) RestartOption { return func(c *restartCfg) { c.maxRestarts = n } }

// WithPublishFirstError records the first failure as the supervisor error while still restarting.
func WithPublishFirstError(enabled bool) RestartOption {
	return func(c *restartCfg) { c.publishErr = enabled }
}

// healthyRun resets the backoff when a run lasted at least this long.
const healthyRun = 30 * time.Second

// GoRestart runs fn and restarts it after an error or panic until the context ends.
// A nil return or context.Canceled is a clean stop.
func (s *Supervisor) GoRestart(name string, fn func(ctx context.Context) error, opts ...RestartOption) {
	if fn == nil {
		return
	}
	cfg := restartCfg{minBackoff: 250 * time.Millisecond, maxBackoff: 30 * time.Second}
	for _, o := range opts {
		o(&cfg)
	}
	cfg.maxBackoff = max(cfg.maxBackoff, cfg.minBackoff)

	s.spawn(name, func(ctx context.Context) {
		backoff := cfg.minBackoff
		for restarts := 0; ; restarts++ {
			if ctx.Err() != nil {
				return
			}
			startedAt := s.stats.start(name, restarts > 0)
			err, pan, stack := runCaught(ctx, fn)
			if pan != nil {
				s.stats.panic(name, pan)
				s.log.Error("goroutine panicked", logx.String("name", name), logx.Any("panic", pan), logx.Stack(stack))
				err = fmt.Errorf("panic: %v", pan)
			}
			// Shutdown makes dependencies return errors; that is not a failure.
			if ctx.Err() != nil || err == nil || errors.Is(err, context.Canceled) {
				s.stats.stop(name, startedAt, nil)
				return
			}

			err = fmt.Errorf("%s: %w", name, err)
			s.stats.stop(name, startedAt, err)
			if cfg.publishErr {
				s.errOnce.Do(func() { s.firstErr.Store(&err) })
			}
			if cfg.maxRestarts > 0 && restarts+1 > cfg.maxRestarts {
				s.log.Error("goroutine gave up", logx.String("name", name), logx.Int("restarts", restarts), logx.Err(err))
				s.fail(err)
				return
			}

			if time.Since(startedAt) >= healthyRun {
				backoff = cfg.minBackoff
			}
			wait := withJitter(backoff)
			s.log.Warn("goroutine restarting", logx.String("name", name), logx.Duration("backoff", wait), logx.Err(err))

			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			backoff = min(backoff*2, cfg.maxBackoff)
		}
	})
}

// withJitter adds up to 20%.
func withJitter(d time.Duration) time.Duration {
	j := int64(d) / 5
	if j <= 0 {
		return d
	}
	return d + time.Duration(rand.Int64N(j+1))
}
