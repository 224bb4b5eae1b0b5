package scheduler

import (
	"sort"
	"strings"
)

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defs := make([]scheduleDef, 0, len(s.defs))
	for _, d := range s.defs {
		defs = append(defs, *d)
	}
	c := s.c
	tz := s.cfg.Timezone
	if s.loc != nil {
		tz = s.loc.String()
	}
	s.mu.Unlock()

	items := make([]ScheduleInfo, 0, len(defs))
	for _, d := range defs {
		kind := "cron"
		if strings.HasPrefix(d.spec, "@every ") {
			kind = "interval"
		}
		it := ScheduleInfo{Name: d.name, Kind: kind, Spec: d.spec, Timeout: d.timeout}
		if c != nil && d.entryID != 0 {
			e := c.Entry(d.entryID)
			it.Next, it.Prev = e.Next, e.Prev
		}
		items = append(items, it)
	}

	s.tmu.Lock()
	running := s.running
	for name, d := range s.once {
		items = append(items, ScheduleInfo{Name: name, Kind: "once", Timeout: d.timeout, Next: d.at})
	}
	s.tmu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return Snapshot{Running: running, Timezone: tz, Schedules: items}
}
