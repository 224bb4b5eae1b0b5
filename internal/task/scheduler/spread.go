package scheduler

import (
	"hash/fnv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const maxStagger = 30 * time.Second

// staggered is an interval schedule whose first tick is pushed back by an
// offset derived from the schedule name. Distinct names registered together
// rarely tick in the same second, and a given name lands on the same offset
// every restart.
type staggered struct {
	every  cron.ConstantDelaySchedule
	first  time.Time
	offset time.Duration
}

func newStaggered(every time.Duration, now time.Time, name string) *staggered {
	var off time.Duration
	if secs := uint32(min(every, maxStagger) / time.Second); secs > 0 {
		h := fnv.New32a()
		_, _ = h.Write([]byte(name))
		off = time.Duration(h.Sum32()%secs) * time.Second
	}
	return &staggered{
		every:  cron.Every(every),
		first:  now.Add(every + off),
		offset: off,
	}
}

func (s *staggered) Next(t time.Time) time.Time {
	if t.Before(s.first) {
		return s.first
	}
	return s.every.Next(t)
}

// intervalOf extracts the period of an "@every" spec.
func intervalOf(spec string) (time.Duration, bool) {
	v, ok := strings.CutPrefix(spec, "@every ")
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}
