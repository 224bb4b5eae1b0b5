package match

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestResolveSchedule(t *testing.T) {
	t.Parallel()

	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		madrid = time.UTC
	}

	tests := []struct {
		name    string
		now     time.Time
		day     int
		hour    int
		minute  int
		want    time.Time
		wantErr error
	}{
		{
			name: "future in current month",
			now:  time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC),
			day:  20, hour: 18, minute: 30,
			want: time.Date(2025, 5, 20, 18, 30, 0, 0, time.UTC),
		},
		{
			name: "past day rolls to next month",
			now:  time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC),
			day:  15, hour: 20, minute: 0,
			want: time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC),
		},
		{
			name: "earlier today rolls to next month",
			now:  time.Date(2025, 5, 15, 21, 0, 0, 0, time.UTC),
			day:  15, hour: 20, minute: 59,
			want: time.Date(2025, 6, 15, 20, 59, 0, 0, time.UTC),
		},
		{
			name: "exactly now is accepted",
			now:  time.Date(2025, 5, 15, 20, 0, 0, 0, time.UTC),
			day:  15, hour: 20, minute: 0,
			want: time.Date(2025, 5, 15, 20, 0, 0, 0, time.UTC),
		},
		{
			name: "december wraps to january",
			now:  time.Date(2025, 12, 28, 10, 0, 0, 0, time.UTC),
			day:  5, hour: 8, minute: 15,
			want: time.Date(2026, 1, 5, 8, 15, 0, 0, time.UTC),
		},
		{
			name: "keeps location",
			now:  time.Date(2025, 3, 2, 10, 0, 0, 0, madrid),
			day:  1, hour: 21, minute: 0,
			want: time.Date(2025, 4, 1, 21, 0, 0, 0, madrid),
		},
		{
			name: "day 31 in a 30 day month",
			now:  time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			day:  31, hour: 10, minute: 0,
			wantErr: ErrInvalidDate,
		},
		{
			name: "rollover into a short month",
			now:  time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC),
			day:  30, hour: 10, minute: 0,
			wantErr: ErrInvalidDate,
		},
		{
			name: "hour out of range",
			now:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			day:  1, hour: 24, minute: 0,
			wantErr: ErrOutOfRange,
		},
		{
			name: "day zero",
			now:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			day:  0, hour: 1, minute: 0,
			wantErr: ErrOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolveSchedule(tt.now, tt.day, tt.hour, tt.minute)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveSchedule err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveSchedule: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("ResolveSchedule = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveScheduleAlwaysFutureOrNow(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 2, 20, 13, 37, 0, 0, time.UTC)
	for day := 1; day <= 28; day++ {
		for _, hour := range []int{0, 13, 23} {
			got, err := ResolveSchedule(now, day, hour, 37)
			if err != nil {
				t.Fatalf("day=%d hour=%d: %v", day, hour, err)
			}
			if got.Before(now) {
				t.Fatalf("day=%d hour=%d: %v is before now", day, hour, got)
			}
			if got.Day() != day || got.Hour() != hour {
				t.Fatalf("day=%d hour=%d: got %v", day, hour, got)
			}
		}
	}
}

func TestRegistryLifecycle(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	at := time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC)
	m1 := r.Create(Match{ParticipantA: "Red", ParticipantB: "Blue", ScheduledAt: at, GuildID: "g"})
	m2 := r.Create(Match{ParticipantA: "Green", ParticipantB: "Gold", ScheduledAt: at.Add(-time.Hour), GuildID: "g"})
	if m1.ID != 1 || m2.ID != 2 {
		t.Fatalf("ids = %d,%d, want 1,2", m1.ID, m2.ID)
	}

	got, err := r.Get(m1.ID)
	if err != nil || got.ParticipantA != "Red" {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	list := r.List()
	if len(list) != 2 || list[0].ID != m2.ID {
		t.Fatalf("List = %+v, want earliest kickoff first", list)
	}

	if _, err := r.Remove(m1.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := r.Get(m1.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Remove err = %v, want ErrNotFound", err)
	}
	if _, err := r.Remove(m1.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Remove err = %v, want ErrNotFound", err)
	}

	// Removing an older entry must not let its id be handed out again.
	m3 := r.Create(Match{ParticipantA: "X", ParticipantB: "Y", ScheduledAt: at, GuildID: "other"})
	if m3.ID != 3 {
		t.Fatalf("id after removal = %d, want 3", m3.ID)
	}
	if n := len(r.ListGuild("g")); n != 1 {
		t.Fatalf("ListGuild(g) = %d matches, want 1", n)
	}
}

func TestRegistryConcurrentRemoveHasOneWinner(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	m := r.Create(Match{ParticipantA: "A", ParticipantB: "B"})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Remove(m.ID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("winners = %d, want 1", wins)
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
}

func TestManualClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)
	c.Advance(90 * time.Second)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Fatalf("Now = %v", got)
	}
}
