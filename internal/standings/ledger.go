// Package standings records match results and keeps each guild's team table.
package standings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"xsportbot/internal/storage"
	logx "xsportbot/pkg/logx"
)

var ErrInvalidResult = errors.New("invalid result")

const (
	WinPoints  = 3
	DrawPoints = 1
)

// Store is the persistence the ledger needs.
type Store interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	InsertMatchResult(ctx context.Context, e storage.Executor, r storage.MatchResult) (int64, error)
	AddTeamRecord(ctx context.Context, e storage.Executor, d storage.TeamDelta) error
	RankTeams(ctx context.Context, guildID string, limit int) ([]storage.Team, error)
	Team(ctx context.Context, guildID, name string) (storage.Team, error)
	RecentMatchResults(ctx context.Context, guildID string, limit int) ([]storage.MatchResult, error)
}

// Result is a finished match as reported by an admin.
type Result struct {
	MatchID int64
	GuildID string
	TeamA   string
	TeamB   string
	ScoreA  int
	ScoreB  int
	MatchAt time.Time
}

type Ledger struct {
	store Store
	log   logx.Logger
}

func New(store Store, log logx.Logger) *Ledger {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Ledger{store: store, log: log.With(logx.String("comp", "standings"))}
}

// Winner returns the winning team name, or storage.DrawMarker on a tie.
func Winner(r Result) string {
	switch {
	case r.ScoreA > r.ScoreB:
		return r.TeamA
	case r.ScoreB > r.ScoreA:
		return r.TeamB
	default:
		return storage.DrawMarker
	}
}

// Deltas are the two team updates a result implies.
func Deltas(r Result) [2]storage.TeamDelta {
	a := storage.TeamDelta{GuildID: r.GuildID, Name: r.TeamA}
	b := storage.TeamDelta{GuildID: r.GuildID, Name: r.TeamB}
	switch {
	case r.ScoreA > r.ScoreB:
		a.Points, a.Wins = WinPoints, 1
		b.Losses = 1
	case r.ScoreB > r.ScoreA:
		b.Points, b.Wins = WinPoints, 1
		a.Losses = 1
	default:
		a.Points, a.Draws = DrawPoints, 1
		b.Points, b.Draws = DrawPoints, 1
	}
	return [2]storage.TeamDelta{a, b}
}

func validate(r Result) error {
	if strings.TrimSpace(r.TeamA) == "" || strings.TrimSpace(r.TeamB) == "" {
		return fmt.Errorf("%w: team name required", ErrInvalidResult)
	}
	if r.ScoreA < 0 || r.ScoreB < 0 {
		return fmt.Errorf("%w: negative score", ErrInvalidResult)
	}
	return nil
}

// RecordResult appends the result and updates both teams in one transaction.
// Recording the same result twice counts it twice.
func (l *Ledger) RecordResult(ctx context.Context, r Result) (storage.MatchResult, error) {
	if err := validate(r); err != nil {
		return storage.MatchResult{}, err
	}
	row := storage.MatchResult{
		MatchID: r.MatchID,
		GuildID: r.GuildID,
		Team1:   r.TeamA,
		Team2:   r.TeamB,
		Score1:  r.ScoreA,
		Score2:  r.ScoreB,
		Winner:  Winner(r),
		MatchAt: r.MatchAt,
	}
	err := l.store.WithTx(ctx, func(tx *sql.Tx) error {
		id, err := l.store.InsertMatchResult(ctx, tx, row)
		if err != nil {
			return err
		}
		row.ID = id
		for _, d := range Deltas(r) {
			if err := l.store.AddTeamRecord(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storage.MatchResult{}, fmt.Errorf("record result of match %d: %w", r.MatchID, err)
	}
	l.log.Info("result recorded",
		logx.Int64("match_id", r.MatchID),
		logx.String("guild_id", r.GuildID),
		logx.String("winner", row.Winner),
		logx.Int("score_a", r.ScoreA),
		logx.Int("score_b", r.ScoreB),
	)
	return row, nil
}

// Rank lists teams by points then wins.
func (l *Ledger) Rank(ctx context.Context, guildID string, limit int) ([]storage.Team, error) {
	return l.store.RankTeams(ctx, guildID, limit)
}

func (l *Ledger) Team(ctx context.Context, guildID, name string) (storage.Team, error) {
	return l.store.Team(ctx, guildID, strings.TrimSpace(name))
}

// History returns the newest results first.
func (l *Ledger) History(ctx context.Context, guildID string, limit int) ([]storage.MatchResult, error) {
	return l.store.RecentMatchResults(ctx, guildID, limit)
}
