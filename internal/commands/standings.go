package commands

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"xsportbot/internal/locale"
	"xsportbot/internal/match"
	"xsportbot/internal/storage"
	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

const (
	rankLimit      = 10
	defaultHistory = 10
	maxHistory     = 20
	dayLayout      = "02/01/2006"
)

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return strconv.Itoa(rank) + "."
}

func (r *Router) teamStats(ctx context.Context, req *Request) error {
	if name := req.In.String("team"); name != "" {
		t, err := r.d.Ledger.Team(ctx, req.In.GuildID, name)
		if errors.Is(err, storage.ErrNotFound) {
			return reply(locale.KeyTeamNotFound, name)
		}
		if err != nil {
			return err
		}
		return req.Reply(ctx, transport.Message{Embed: &transport.Embed{
			Description: req.T(locale.KeyTeamStats, t.Name, t.Points, t.Wins, t.Losses, t.Draws),
			Color:       colorInfo,
		}}, false)
	}

	teams, err := r.d.Ledger.Rank(ctx, req.In.GuildID, rankLimit)
	if err != nil {
		return err
	}
	if len(teams) == 0 {
		return req.ReplyText(ctx, locale.KeyNoTeams)
	}
	lines := make([]string, 0, len(teams))
	for i, t := range teams {
		lines = append(lines, req.T(locale.KeyStandingsLine, medal(i+1), t.Name, t.Points, t.Wins, t.Draws, t.Losses))
	}
	return req.Reply(ctx, transport.Message{Embed: &transport.Embed{
		Title:       req.T(locale.KeyStandingsTitle),
		Description: strings.Join(lines, "\n"),
		Color:       colorInfo,
	}}, false)
}

func (r *Router) matchHistory(ctx context.Context, req *Request) error {
	limit := defaultHistory
	if req.In.Has("limit") {
		n, err := intOpt(req, "limit", 1, maxHistory)
		if err != nil {
			return err
		}
		limit = n
	}
	results, err := r.d.Ledger.History(ctx, req.In.GuildID, limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return req.ReplyText(ctx, locale.KeyNoHistory)
	}
	lines := make([]string, 0, len(results))
	for _, m := range results {
		when := locale.FormatShortDate(req.Lang, m.MatchAt.In(r.d.Location))
		lines = append(lines, req.T(locale.KeyHistoryLine, m.Team1, m.Score1, m.Score2, m.Team2, when))
	}
	return req.Reply(ctx, transport.Message{Embed: &transport.Embed{
		Title:       req.T(locale.KeyHistoryTitle),
		Description: strings.Join(lines, "\n"),
		Color:       colorInfo,
	}}, false)
}

func (r *Router) createTournament(ctx context.Context, req *Request) error {
	name := req.In.String("name")
	startDay, err := intOpt(req, "start_day", 1, 31)
	if err != nil {
		return err
	}
	endDay, err := intOpt(req, "end_day", 1, 31)
	if err != nil {
		return err
	}
	// Each day rolls over to next month on its own when already past.
	now := r.now()
	start, err := match.ResolveSchedule(now, startDay, 0, 0)
	if err != nil {
		return reply(locale.KeyInvalidDate)
	}
	end, err := match.ResolveSchedule(now, endDay, 0, 0)
	if err != nil || end.Before(start) {
		return reply(locale.KeyInvalidDate)
	}

	id, err := r.d.Store.CreateTournament(ctx, storage.Tournament{
		GuildID:   req.In.GuildID,
		Name:      name,
		Status:    storage.TournamentActive,
		StartDate: start,
		EndDate:   end,
		CreatedBy: req.In.UserID,
	})
	if err != nil {
		return err
	}
	req.Logger.Info("tournament created", logx.Int64("tournament_id", id), logx.String("name", name))
	return req.ReplyText(ctx, locale.KeyTournamentCreated, name, start.Format(dayLayout), end.Format(dayLayout))
}

func (r *Router) listTournaments(ctx context.Context, req *Request) error {
	ts, err := r.d.Store.Tournaments(ctx, req.In.GuildID, storage.TournamentActive)
	if err != nil {
		return err
	}
	if len(ts) == 0 {
		return req.ReplyText(ctx, locale.KeyNoTournaments)
	}
	lines := make([]string, 0, len(ts))
	for _, t := range ts {
		lines = append(lines, req.T(locale.KeyTournamentLine,
			t.Name,
			t.StartDate.In(r.d.Location).Format(dayLayout),
			t.EndDate.In(r.d.Location).Format(dayLayout),
		))
	}
	return req.Reply(ctx, transport.Message{Embed: &transport.Embed{
		Title:       req.T(locale.KeyTournamentsTitle),
		Description: strings.Join(lines, "\n"),
		Color:       colorInfo,
	}}, false)
}
