package standings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"xsportbot/internal/storage"
	logx "xsportbot/pkg/logx"
)

func newLedger(t *testing.T) (*Ledger, *storage.Store) {
	t.Helper()
	st, err := storage.Open(context.Background(), storage.Config{Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(st, logx.Nop()), st
}

func team(t *testing.T, l *Ledger, name string) storage.Team {
	t.Helper()
	tm, err := l.Team(context.Background(), "g1", name)
	if err != nil {
		t.Fatalf("Team(%q): %v", name, err)
	}
	return tm
}

func TestWinner(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b int
		want string
	}{
		{5, 3, "Red"},
		{1, 2, "Blue"},
		{2, 2, storage.DrawMarker},
	}
	for _, tt := range tests {
		r := Result{TeamA: "Red", TeamB: "Blue", ScoreA: tt.a, ScoreB: tt.b}
		if got := Winner(r); got != tt.want {
			t.Errorf("Winner(%d-%d) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRecordResultWin(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t)
	ctx := context.Background()

	row, err := l.RecordResult(ctx, Result{MatchID: 1, GuildID: "g1", TeamA: "Red", TeamB: "Blue", ScoreA: 5, ScoreB: 3, MatchAt: time.Now()})
	if err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	if row.Winner != "Red" || row.ID == 0 {
		t.Fatalf("row = %+v, want winner Red with id", row)
	}
	red, blue := team(t, l, "Red"), team(t, l, "Blue")
	if red.Points != 3 || red.Wins != 1 || red.Losses != 0 {
		t.Fatalf("Red = %+v, want 3 pts 1 win", red)
	}
	if blue.Points != 0 || blue.Losses != 1 || blue.Wins != 0 {
		t.Fatalf("Blue = %+v, want 0 pts 1 loss", blue)
	}
}

func TestRecordResultDraw(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t)
	if _, err := l.RecordResult(context.Background(), Result{MatchID: 1, GuildID: "g1", TeamA: "Red", TeamB: "Blue", ScoreA: 2, ScoreB: 2}); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	for _, name := range []string{"Red", "Blue"} {
		tm := team(t, l, name)
		if tm.Points != 1 || tm.Draws != 1 {
			t.Fatalf("%s = %+v, want 1 pt 1 draw", name, tm)
		}
	}
}

func TestRecordResultTwiceDoubleCounts(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t)
	r := Result{MatchID: 1, GuildID: "g1", TeamA: "Red", TeamB: "Blue", ScoreA: 1, ScoreB: 0}
	for i := 0; i < 2; i++ {
		if _, err := l.RecordResult(context.Background(), r); err != nil {
			t.Fatalf("RecordResult #%d: %v", i+1, err)
		}
	}
	if red := team(t, l, "Red"); red.Points != 6 || red.Wins != 2 {
		t.Fatalf("Red = %+v, want 6 pts 2 wins", red)
	}
	hist, err := l.History(context.Background(), "g1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Fatalf("len(History) = %d, want 2", len(hist))
	}
}

func TestRecordResultRejectsInvalid(t *testing.T) {
	t.Parallel()
	l, _ := newLedger(t)
	_, err := l.RecordResult(context.Background(), Result{GuildID: "g1", TeamA: "Red", TeamB: "Blue", ScoreA: -1})
	if !errors.Is(err, ErrInvalidResult) {
		t.Fatalf("err = %v, want %v", err, ErrInvalidResult)
	}
	if _, err := l.Team(context.Background(), "g1", "Red"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Team err = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestRankOrdersByPointsThenWins(t *testing.T) {
	t.Parallel()
	l, st := newLedger(t)
	ctx := context.Background()
	seed := []storage.TeamDelta{
		{GuildID: "g1", Name: "C", Points: 3, Wins: 1},
		{GuildID: "g1", Name: "B", Points: 6, Wins: 1},
		{GuildID: "g1", Name: "A", Points: 6, Wins: 2},
		{GuildID: "g2", Name: "Other", Points: 99},
	}
	for _, d := range seed {
		if err := st.AddTeamRecord(ctx, nil, d); err != nil {
			t.Fatal(err)
		}
	}
	teams, err := l.Rank(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	var got []string
	for _, tm := range teams {
		got = append(got, tm.Name)
	}
	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("Rank = %v, want [A B C]", got)
	}
}
