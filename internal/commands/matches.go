package commands

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"xsportbot/internal/locale"
	"xsportbot/internal/match"
	"xsportbot/internal/notifier/broadcast"
	"xsportbot/internal/standings"
	"xsportbot/internal/storage"
	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

const (
	colorInfo    = 0x0099ff
	colorSuccess = 0x00ff00
)

// inviteInterval paces the match invitations sent to participants.
const inviteInterval = time.Second

// intOpt reads an integer option and checks it against [lo, hi].
func intOpt(req *Request, name string, lo, hi int) (int, error) {
	n, err := req.In.Int(name)
	if err != nil || n < lo || n > hi {
		return 0, reply(locale.KeyOutOfRange, name, lo, hi)
	}
	return n, nil
}

func matchID(req *Request) (int64, error) {
	n, err := req.In.Int("match_id")
	if err != nil || n <= 0 {
		return 0, reply(locale.KeyMatchNotFound, n)
	}
	return int64(n), nil
}

// scheduleFromOptions resolves the day/hour/minute options to the next such instant.
func (r *Router) scheduleFromOptions(req *Request) (time.Time, error) {
	day, err := intOpt(req, "day", 1, 31)
	if err != nil {
		return time.Time{}, err
	}
	hour, err := intOpt(req, "hour", 0, 23)
	if err != nil {
		return time.Time{}, err
	}
	minute, err := intOpt(req, "minute", 0, 59)
	if err != nil {
		return time.Time{}, err
	}
	at, err := match.ResolveSchedule(r.now(), day, hour, minute)
	if err != nil {
		return time.Time{}, reply(locale.KeyInvalidDate)
	}
	return at, nil
}

// guildMatch looks a match up, hiding matches of other guilds.
func (r *Router) guildMatch(req *Request, id int64) (match.Match, error) {
	m, err := r.d.Registry.Get(id)
	if errors.Is(err, match.ErrNotFound) || (err == nil && m.GuildID != req.In.GuildID) {
		return match.Match{}, reply(locale.KeyMatchNotFound, id)
	}
	return m, err
}

func (r *Router) createMatch(ctx context.Context, req *Request) error {
	teamA, teamB := req.In.String("team1"), req.In.String("team2")
	at, err := r.scheduleFromOptions(req)
	if err != nil {
		return err
	}
	// Role lookups can outlast the acknowledgement window.
	if err := req.Defer(ctx, false); err != nil {
		return err
	}

	pa := transport.ResolveParticipant(ctx, r.d.Directory, req.In.GuildID, teamA)
	pb := transport.ResolveParticipant(ctx, r.d.Directory, req.In.GuildID, teamB)

	m := r.d.Registry.Create(match.Match{
		ParticipantA: teamA,
		ParticipantB: teamB,
		ScheduledAt:  at,
		GuildID:      req.In.GuildID,
		ChannelID:    req.In.ChannelID,
		CreatorID:    req.In.UserID,
		Locale:       string(req.Lang),
	})
	armed := r.d.Reminders.ArmMatch(m)
	req.Logger.Info("match created",
		logx.Int64("match_id", m.ID),
		logx.Time("at", at),
		logx.Int("reminders", len(armed)),
	)

	when := locale.FormatDate(req.Lang, at)
	if recipients := union(pa.Recipients, pb.Recipients); len(recipients) > 0 && r.d.Broadcast != nil {
		invite := transport.Message{Embed: &transport.Embed{
			Title:       req.T(locale.KeyMatchInviteTitle),
			Description: req.T(locale.KeyMatchInviteBody, pa.Label, pb.Label, when),
			Color:       colorSuccess,
			Timestamp:   r.d.Clock.Now(),
		}}
		name := "match_invite_" + strconv.FormatInt(m.ID, 10)
		if _, err := r.d.Broadcast.NewJob(name, recipients, invite, broadcast.Options{Interval: inviteInterval}); err != nil {
			req.Logger.Warn("match invitations not queued", logx.Int64("match_id", m.ID), logx.Err(err))
		}
	}
	return req.ReplyText(ctx, locale.KeyMatchCreated, m.ID, pa.Label, pb.Label, when)
}

func (r *Router) endMatch(ctx context.Context, req *Request) error {
	id, err := matchID(req)
	if err != nil {
		return err
	}
	if _, err := r.guildMatch(req, id); err != nil {
		return err
	}
	if _, err := r.d.Registry.Remove(id); err != nil {
		return reply(locale.KeyMatchNotFound, id)
	}
	n := r.d.Reminders.CancelMatch(id)
	req.Logger.Info("match ended", logx.Int64("match_id", id), logx.Int("reminders_cancelled", n))
	return req.ReplyText(ctx, locale.KeyMatchEnded, id)
}

func (r *Router) listMatches(ctx context.Context, req *Request) error {
	ms := r.d.Registry.ListGuild(req.In.GuildID)
	if len(ms) == 0 {
		return req.ReplyText(ctx, locale.KeyNoMatches)
	}
	lines := make([]string, 0, len(ms))
	for _, m := range ms {
		when := locale.FormatDate(req.Lang, m.ScheduledAt.In(r.d.Location))
		lines = append(lines, req.T(locale.KeyMatchListLine, m.ID, m.ParticipantA, m.ParticipantB, when))
	}
	return req.Reply(ctx, transport.Message{Embed: &transport.Embed{
		Title:       req.T(locale.KeyMatchListTitle),
		Description: strings.Join(lines, "\n"),
		Color:       colorInfo,
	}}, false)
}

func (r *Router) recordResult(ctx context.Context, req *Request) error {
	id, err := matchID(req)
	if err != nil {
		return err
	}
	scoreA, err := intOpt(req, "team1_score", 0, 999)
	if err != nil {
		return err
	}
	scoreB, err := intOpt(req, "team2_score", 0, 999)
	if err != nil {
		return err
	}
	m, err := r.guildMatch(req, id)
	if err != nil {
		return err
	}
	if err := req.Defer(ctx, false); err != nil {
		return err
	}

	teamA := r.teamName(ctx, req.In.GuildID, m.ParticipantA)
	teamB := r.teamName(ctx, req.In.GuildID, m.ParticipantB)
	res, err := r.d.Ledger.RecordResult(ctx, standings.Result{
		MatchID: m.ID,
		GuildID: m.GuildID,
		TeamA:   teamA,
		TeamB:   teamB,
		ScoreA:  scoreA,
		ScoreB:  scoreB,
		MatchAt: m.ScheduledAt,
	})
	if err != nil {
		return err
	}
	// A concurrent endmatch may have won the race; the result stands either way.
	_, _ = r.d.Registry.Remove(id)
	r.d.Reminders.CancelMatch(id)

	winner := res.Winner
	if winner == storage.DrawMarker {
		winner = req.T(locale.KeyDraw)
	}
	return req.Reply(ctx, transport.Message{Embed: &transport.Embed{
		Description: req.T(locale.KeyResultRecorded, teamA, scoreA, scoreB, teamB, winner),
		Color:       colorSuccess,
		Timestamp:   r.d.Clock.Now(),
	}}, false)
}

// teamName resolves a participant token to the name stored in the standings:
// the role name, the member's display name, or the literal text.
func (r *Router) teamName(ctx context.Context, guildID, token string) string {
	kind, id := transport.ParseMention(token)
	var (
		name string
		err  error
	)
	switch kind {
	case transport.MentionRole:
		name, err = r.d.Directory.RoleName(ctx, guildID, id)
	case transport.MentionUser:
		name, err = r.d.Directory.MemberDisplayName(ctx, guildID, id)
	default:
		return strings.TrimSpace(token)
	}
	if err != nil || name == "" {
		return strings.TrimSpace(token)
	}
	return name
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
