package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	logx "xsportbot/pkg/logx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "bot.db")
	for i := 0; i < 2; i++ {
		st, err := Open(context.Background(), Config{Path: path, BusyTimeout: time.Second}, logx.Nop())
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		if err := st.Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
		_ = st.Close()
	}
}

func TestGuildSettingsDefaultsAndUpsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t)

	gs, err := st.GuildSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("GuildSettings: %v", err)
	}
	if gs.Language != "es" || gs.LogChannelID != "" || len(gs.AllowedChannels) != 0 {
		t.Fatalf("defaults = %+v", gs)
	}
	if !gs.AllowsChannel("any") {
		t.Fatalf("empty allow-list must allow every channel")
	}

	want := GuildSettings{GuildID: "g1", LogChannelID: "c9", AllowedChannels: []string{"c1", "c2"}, Language: "en"}
	if err := st.SaveGuildSettings(ctx, want); err != nil {
		t.Fatalf("SaveGuildSettings: %v", err)
	}
	got, err := st.GuildSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("GuildSettings: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("GuildSettings = %+v, want %+v", got, want)
	}
	if got.AllowsChannel("c3") {
		t.Fatalf("c3 should not be allowed")
	}
}

func TestAddTeamRecordUpsertsAndRanks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t)

	deltas := []TeamDelta{
		{GuildID: "g", Name: "C", Points: 3, Wins: 1},
		{GuildID: "g", Name: "B", Points: 3, Wins: 1},
		{GuildID: "g", Name: "A", Points: 3, Wins: 1},
		{GuildID: "g", Name: "A", Points: 3, Wins: 1},
		{GuildID: "g", Name: "B", Points: 1, Draws: 1},
		{GuildID: "g", Name: "B", Points: 1, Draws: 1},
		{GuildID: "g", Name: "C", Losses: 1},
		{GuildID: "other", Name: "A", Points: 30, Wins: 10},
	}
	for _, d := range deltas {
		if err := st.AddTeamRecord(ctx, nil, d); err != nil {
			t.Fatalf("AddTeamRecord(%+v): %v", d, err)
		}
	}

	teams, err := st.RankTeams(ctx, "g", 0)
	if err != nil {
		t.Fatalf("RankTeams: %v", err)
	}
	var names []string
	for _, tm := range teams {
		names = append(names, tm.Name)
	}
	if !reflect.DeepEqual(names, []string{"A", "B", "C"}) {
		t.Fatalf("rank = %v, want [A B C]", names)
	}
	if teams[0].Points != 6 || teams[0].Wins != 2 {
		t.Fatalf("A = %+v, want 6pts/2w", teams[0])
	}
	if teams[1].Points != 5 || teams[1].Draws != 2 {
		t.Fatalf("B = %+v, want 5pts/2d", teams[1])
	}
	if teams[2].Losses != 1 {
		t.Fatalf("C = %+v, want 1 loss", teams[2])
	}

	if _, err := st.Team(ctx, "g", "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Team(nobody) err = %v, want ErrNotFound", err)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t)

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		if err := st.AddTeamRecord(ctx, tx, TeamDelta{GuildID: "g", Name: "A", Points: 3, Wins: 1}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v, want boom", err)
	}
	if _, err := st.Team(ctx, "g", "A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("team written despite rollback: err = %v", err)
	}
}

func TestRecentMatchResultsNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := st.InsertMatchResult(ctx, nil, MatchResult{
			MatchID: int64(i + 1), GuildID: "g", Team1: "A", Team2: "B",
			Score1: i, Score2: 1, Winner: DrawMarker, MatchAt: base,
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("InsertMatchResult: %v", err)
		}
	}
	got, err := st.RecentMatchResults(ctx, "g", 2)
	if err != nil {
		t.Fatalf("RecentMatchResults: %v", err)
	}
	if len(got) != 2 || got[0].MatchID != 3 || got[1].MatchID != 2 {
		t.Fatalf("RecentMatchResults = %+v", got)
	}
	if !got[0].MatchAt.Equal(base) {
		t.Fatalf("MatchAt = %v, want %v", got[0].MatchAt, base)
	}
}

func TestDueAnnouncementsLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	past, err := st.ScheduleAnnouncement(ctx, Announcement{GuildID: "g", ChannelID: "c", Message: "hola", ScheduleAt: now.Add(-time.Minute), CreatedBy: "u"})
	if err != nil {
		t.Fatalf("ScheduleAnnouncement: %v", err)
	}
	if _, err := st.ScheduleAnnouncement(ctx, Announcement{GuildID: "g", ChannelID: "c", Message: "later", ScheduleAt: now.Add(time.Hour), CreatedBy: "u"}); err != nil {
		t.Fatalf("ScheduleAnnouncement: %v", err)
	}

	due, err := st.DueAnnouncements(ctx, now, 10)
	if err != nil {
		t.Fatalf("DueAnnouncements: %v", err)
	}
	if len(due) != 1 || due[0].ID != past {
		t.Fatalf("due = %+v, want only #%d", due, past)
	}

	// Backoff hides the row until next_attempt_at.
	if err := st.MarkAnnouncementRetry(ctx, past, 1, now.Add(2*time.Minute), "forbidden"); err != nil {
		t.Fatalf("MarkAnnouncementRetry: %v", err)
	}
	if due, _ := st.DueAnnouncements(ctx, now.Add(time.Minute), 10); len(due) != 0 {
		t.Fatalf("row should be backing off, got %+v", due)
	}
	due, _ = st.DueAnnouncements(ctx, now.Add(3*time.Minute), 10)
	if len(due) != 1 || due[0].Attempts != 1 || due[0].LastError != "forbidden" {
		t.Fatalf("due after backoff = %+v", due)
	}

	for i := 0; i < 2; i++ {
		if err := st.MarkAnnouncementSent(ctx, past, now.Add(3*time.Minute)); err != nil {
			t.Fatalf("MarkAnnouncementSent: %v", err)
		}
	}
	a, err := st.Announcement(ctx, past)
	if err != nil {
		t.Fatalf("Announcement: %v", err)
	}
	if !a.Sent || a.LastError != "" {
		t.Fatalf("announcement = %+v, want sent with cleared error", a)
	}
	if due, _ := st.DueAnnouncements(ctx, now.Add(24*time.Hour), 10); len(due) != 1 || due[0].Message != "later" {
		t.Fatalf("sent row must never be due again, got %+v", due)
	}
}

func TestMarkAnnouncementFailedIsTerminal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	id, _ := st.ScheduleAnnouncement(ctx, Announcement{GuildID: "g", ChannelID: "c", Message: "x", ScheduleAt: now, CreatedBy: "u"})
	if err := st.MarkAnnouncementFailed(ctx, id, 10, "channel gone"); err != nil {
		t.Fatalf("MarkAnnouncementFailed: %v", err)
	}
	if due, _ := st.DueAnnouncements(ctx, now.Add(time.Hour), 10); len(due) != 0 {
		t.Fatalf("failed row returned as due: %+v", due)
	}
}

func TestCommandStatsAndEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t)

	for _, name := range []string{"teamstats", "creatematch", "teamstats"} {
		if err := st.LogCommand(ctx, "g", "u", name); err != nil {
			t.Fatalf("LogCommand: %v", err)
		}
	}
	stats, err := st.CommandStats(ctx, "g", 10)
	if err != nil {
		t.Fatalf("CommandStats: %v", err)
	}
	want := []CommandStat{{Name: "teamstats", Count: 2}, {Name: "creatematch", Count: 1}}
	if !reflect.DeepEqual(stats, want) {
		t.Fatalf("CommandStats = %+v, want %+v", stats, want)
	}

	_ = st.LogEvent(ctx, "g", "guild_join", "joined")
	_ = st.LogEvent(ctx, "g", "member_join", "u joined")
	events, err := st.RecentEvents(ctx, "g", 1)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 1 || events[0].Type != "member_join" {
		t.Fatalf("RecentEvents = %+v", events)
	}
	if err := st.LogMemberActivity(ctx, "g", "u", "message"); err != nil {
		t.Fatalf("LogMemberActivity: %v", err)
	}
}

func TestTournamentsByStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t)

	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	if _, err := st.CreateTournament(ctx, Tournament{GuildID: "g", Name: "Summer Cup", StartDate: start, EndDate: start.AddDate(0, 0, 10), CreatedBy: "u"}); err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	if _, err := st.CreateTournament(ctx, Tournament{GuildID: "g", Name: "Old Cup", Status: TournamentClosed, StartDate: start, EndDate: start, CreatedBy: "u"}); err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	active, err := st.Tournaments(ctx, "g", TournamentActive)
	if err != nil {
		t.Fatalf("Tournaments: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Summer Cup" || !active[0].EndDate.Equal(start.AddDate(0, 0, 10)) {
		t.Fatalf("active = %+v", active)
	}
}
