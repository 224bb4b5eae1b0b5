// Package match keeps the matches that are waiting for a result.
//
// The registry lives only for the process lifetime; a restart forgets every
// active match and its reminders.
package match

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound    = errors.New("match not found")
	ErrInvalidDate = errors.New("invalid date")
	ErrOutOfRange  = errors.New("day/hour/minute out of range")
)

// Match is immutable once registered.
type Match struct {
	ID           int64
	ParticipantA string
	ParticipantB string
	ScheduledAt  time.Time
	GuildID      string
	ChannelID    string
	CreatorID    string
	Locale       string
}

// Registry is safe for concurrent use by command handlers and reminder callbacks.
type Registry struct {
	mu      sync.RWMutex
	lastID  int64
	matches map[int64]Match
}

func NewRegistry() *Registry {
	return &Registry{matches: make(map[int64]Match)}
}

// Create stores m under a fresh id and returns the stored copy.
// Ids come from a counter that deletions never rewind.
func (r *Registry) Create(m Match) Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastID++
	m.ID = r.lastID
	r.matches[m.ID] = m
	return m
}

func (r *Registry) Get(id int64) (Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[id]
	if !ok {
		return Match{}, ErrNotFound
	}
	return m, nil
}

// Remove deletes and returns the match. Concurrent removers race; exactly one wins.
func (r *Registry) Remove(id int64) (Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return Match{}, ErrNotFound
	}
	delete(r.matches, id)
	return m, nil
}

// List returns every active match ordered by kickoff, then id.
func (r *Registry) List() []Match {
	r.mu.RLock()
	out := make([]Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, m)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListGuild returns the active matches of one guild.
func (r *Registry) ListGuild(guildID string) []Match {
	all := r.List()
	out := all[:0]
	for _, m := range all {
		if m.GuildID == guildID {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}
