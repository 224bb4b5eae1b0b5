package app

import (
	"context"
	"fmt"
	"time"

	"xsportbot/internal/task/scheduler"
	logx "xsportbot/pkg/logx"
)

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.log.Info("scheduler state at shutdown", scheduleFields(a.sched.Snapshot(), a.registry.Len())...)

	// Cancel the run context first so background loops start unwinding immediately.
	a.sup.Cancel()

	a.step(ctx, "status", time.Second, func(c context.Context) error { a.status.Stop(c); return nil })
	a.step(ctx, "scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	a.step(ctx, "taskengine", 2*time.Second, func(c context.Context) error { a.engine.Stop(c); return nil })
	a.step(ctx, "broadcast", 2*time.Second, func(c context.Context) error { a.broadcast.Stop(c); return nil })
	a.step(ctx, "notifier", time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	a.step(ctx, "discord", 2*time.Second, a.adapter.Stop)
	a.step(ctx, "storage", time.Second, func(context.Context) error { return a.store.Close() })

	// Finally, wait for supervised goroutines (config watch/reload, command dispatcher).
	a.step(ctx, "supervisor", 6*time.Second, a.sup.Wait)

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// step runs one shutdown step with an upper bound so one component can't stall the whole stop.
func (a *App) step(ctx context.Context, name string, limit time.Duration, fn func(context.Context) error) {
	start := time.Now()
	a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", limit))

	// Respect the caller's deadline; never extend it.
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < limit {
			limit = max(rem, 0)
		}
	}
	stepCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		took := time.Since(start)
		if took >= 500*time.Millisecond {
			a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
		} else {
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
		}
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Err(stepCtx.Err()),
			logx.Duration("elapsed", time.Since(start)),
		)
		go func() {
			err := <-done
			took := time.Since(start)
			if err != nil {
				a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.Err(err), logx.Duration("took", took))
				return
			}
			a.log.Info("stop step finished after deadline", logx.String("name", name), logx.Duration("took", took))
		}()
	}
}

// scheduleFields summarizes triggers; pending reminders do not survive a restart.
func scheduleFields(s scheduler.Snapshot, activeMatches int) []logx.Field {
	once := 0
	for _, sc := range s.Schedules {
		if sc.Kind == "once" {
			once++
		}
	}
	return []logx.Field{
		logx.Int("schedules", len(s.Schedules)-once),
		logx.Int("pending_reminders", once),
		logx.Int("active_matches", activeMatches),
		logx.String("timezone", s.Timezone),
	}
}
