package engine

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"
	"time"

	"xsportbot/internal/eventbus"
	logx "xsportbot/pkg/logx"
)

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue chan queuedTask, idx int) {
	// Per-worker RNG keeps jitter off the global lock.
	rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ (int64(idx) << 32)))

	for {
		// A closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case t, ok := <-queue:
			if !ok {
				return
			}
			s.inFlight.Add(1)
			s.execOne(ctx, stopCh, t, rng)
			s.inFlight.Add(-1)
		}
	}
}

func (s *Service) execOne(ctx context.Context, stopCh <-chan struct{}, qt queuedTask, rng *rand.Rand) {
	start := time.Now()
	queueDelay := max(start.Sub(qt.enqueuedAt), 0)

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	if qt.track && qt.state != nil {
		defer qt.state.release()
	}

	log := s.log.With(logx.String("task", qt.task.Name))
	log.Debug("task.started", logx.Duration("queue_delay", queueDelay))
	s.publish(eventbus.TaskStarted, TaskEvent{ID: qt.task.ID, Name: qt.task.Name, Started: start, QueueDelay: queueDelay})

	var err error
	attempts := 0
	maxAttempts := 1 + qt.opt.RetryMax
attemptLoop:
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		err = s.runGuarded(ctx, qt, log)
		if err == nil {
			break
		}
		if cause, ok := permanentCause(err); ok {
			err = cause
			break
		}
		if attempt >= maxAttempts {
			break
		}

		delay := backoffDelayWithHint(qt.opt, attempt, err, rng)
		log.Debug("task retry scheduled", logx.Int("attempt", attempt+1), logx.Duration("delay", delay), logx.Err(err))
		tmr := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			tmr.Stop()
			err = ctx.Err()
			break attemptLoop
		case <-stopCh:
			tmr.Stop()
			err = ErrStopped
			break attemptLoop
		case <-tmr.C:
		}
	}

	dur := time.Since(start)
	item := HistoryItem{ID: qt.task.ID, Name: qt.task.Name, Started: start, QueueDelay: queueDelay, Duration: dur, Attempts: attempts}
	ev := TaskEvent{ID: qt.task.ID, Name: qt.task.Name, Started: start, QueueDelay: queueDelay, Duration: dur, Attempts: attempts}
	if err != nil {
		s.failed.Add(1)
		item.Error = err.Error()
		ev.Error = item.Error
		log.Warn("task.failed", logx.Err(err), logx.Duration("dur", dur), logx.Int("attempts", attempts))
		s.publish(eventbus.TaskFailed, ev)
	} else {
		s.completed.Add(1)
		if dur >= 750*time.Millisecond {
			log.Info("task.completed", logx.Duration("dur", dur), logx.Int("attempts", attempts))
		} else {
			log.Debug("task.completed", logx.Duration("dur", dur), logx.Int("attempts", attempts))
		}
		s.publish(eventbus.TaskFinished, ev)
	}
	s.record(cfg, item)
}

// runGuarded turns a panic into an error so one bad task cannot kill a worker.
func (s *Service) runGuarded(ctx context.Context, qt queuedTask, log logx.Logger) (err error) {
	runCtx := ctx
	if qt.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, qt.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.Error("task.panic", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
		}
	}()
	return qt.task.Run(runCtx)
}
