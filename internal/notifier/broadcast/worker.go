package broadcast

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan job) {
	for {
		// Stop wins over queued work.
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
		case j := <-queue:
			st := s.execJob(ctx, j)
			s.mu.Lock()
			fn := s.onDone
			s.mu.Unlock()
			if fn != nil {
				if cur, ok := s.Status(j.id); ok {
					fn(cur)
				} else {
					fn(JobStatus{ID: j.id, Name: j.name, Result: st})
				}
			}
		}
	}
}

func (s *Service) execJob(ctx context.Context, j job) Result {
	start := time.Now()
	s.setRunning(j.id)

	s.mu.Lock()
	lim := s.limiter
	s.mu.Unlock()
	if j.opt.Interval > 0 {
		lim = newLimiter(j.opt.Interval)
	}

	res := Result{Total: len(j.recipients)}
	for _, uid := range j.recipients {
		err := s.sendOne(ctx, lim, j, uid)
		switch {
		case err == nil:
			res.Sent++
		case errors.Is(err, transport.ErrForbidden):
			res.Forbidden++
			res.Failed++
			s.markFail(j.id, uid)
		default:
			res.Failed++
			s.markFail(j.id, uid)
		}
		if ctx.Err() != nil {
			// Remaining recipients are counted as failed.
			res.Failed = res.Total - res.Sent
			break
		}
	}
	s.finish(j.id, res)

	fields := []logx.Field{
		logx.String("job", j.id),
		logx.String("name", j.name),
		logx.Int("total", res.Total),
		logx.Int("sent", res.Sent),
		logx.Int("forbidden", res.Forbidden),
		logx.Int("failed", res.Failed),
		logx.Duration("dur", time.Since(start)),
	}
	if res.Failed > 0 {
		s.log.Warn("broadcast job finished with failures", fields...)
	} else {
		s.log.Info("broadcast job finished", fields...)
	}
	return res
}

// sendOne paces, then delivers with retries. Forbidden is permanent and not retried.
func (s *Service) sendOne(ctx context.Context, lim *rate.Limiter, j job, uid string) error {
	s.mu.Lock()
	retry := s.cfg.RetryMax
	gw := s.gateway
	s.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return err
	}
	var last error
	for i := 0; i <= retry; i++ {
		err := gw.Send(ctx, transport.User(uid), j.msg)
		if err == nil {
			return nil
		}
		last = err
		if errors.Is(err, transport.ErrForbidden) || errors.Is(err, transport.ErrNotFound) || i == retry {
			break
		}
		delay := time.Duration(200+100*i) * time.Millisecond
		s.log.Debug("broadcast send retry scheduled", logx.String("job", j.id), logx.String("user_id", uid), logx.Int("attempt", i+2), logx.Duration("delay", delay), logx.Err(err))
		tmr := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			tmr.Stop()
			return ctx.Err()
		case <-tmr.C:
		}
	}
	s.log.Debug("broadcast send failed", logx.String("job", j.id), logx.String("user_id", uid), logx.Err(last))
	return last
}

func (s *Service) setRunning(id string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.StartedAt = time.Now()
		st.Running = true
	}
}

func (s *Service) markFail(id, uid string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil && len(st.Failures) < 200 {
		st.Failures = append(st.Failures, uid)
	}
}

func (s *Service) finish(id string, res Result) {
	s.statusMu.Lock()
	if st := s.status[id]; st != nil {
		st.Result = res
		st.DoneAt = time.Now()
		st.Running = false
	}
	s.statusMu.Unlock()
}
