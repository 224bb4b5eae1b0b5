package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"xsportbot/internal/locale"
	"xsportbot/internal/storage"
	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

const (
	statsLimit  = 10
	eventsLimit = 5
)

func (r *Router) scheduleAnnouncement(ctx context.Context, req *Request) error {
	channelID := req.In.String("channel")
	text := req.In.String("message")
	at, err := r.scheduleFromOptions(req)
	if err != nil {
		return err
	}
	creator := req.In.UserName
	if creator == "" {
		creator = "<@" + req.In.UserID + ">"
	}
	id, err := r.d.Store.ScheduleAnnouncement(ctx, storage.Announcement{
		GuildID:    req.In.GuildID,
		ChannelID:  channelID,
		Message:    text,
		ScheduleAt: at,
		CreatedBy:  creator,
	})
	if err != nil {
		return err
	}
	req.Logger.Info("announcement scheduled", logx.Int64("announcement_id", id), logx.Time("at", at))
	return req.ReplyText(ctx, locale.KeyAnnouncementScheduled, locale.FormatDate(req.Lang, at), channelID)
}

func (r *Router) setLogChannel(ctx context.Context, req *Request) error {
	gs := req.Settings
	gs.GuildID = req.In.GuildID
	gs.LogChannelID = req.In.String("channel")
	if err := r.d.Store.SaveGuildSettings(ctx, gs); err != nil {
		return err
	}
	return req.ReplyText(ctx, locale.KeyLogChannelSet, gs.LogChannelID)
}

func (r *Router) setChannels(ctx context.Context, req *Request) error {
	ids, err := parseChannelList(req.In.String("channel_ids"))
	if err != nil {
		return err
	}
	gs := req.Settings
	gs.GuildID = req.In.GuildID
	gs.AllowedChannels = ids
	if err := r.d.Store.SaveGuildSettings(ctx, gs); err != nil {
		return err
	}
	if len(ids) == 0 {
		return req.ReplyText(ctx, locale.KeyChannelsCleared)
	}
	return req.ReplyText(ctx, locale.KeyChannelsSet, len(ids))
}

// parseChannelList accepts bare ids or <#id> mentions separated by spaces or commas.
func parseChannelList(raw string) ([]string, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == ',' || r == '\n' || r == '\t' })
	seen := map[string]bool{}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		id := strings.TrimSuffix(strings.TrimPrefix(f, "<#"), ">")
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return nil, reply(locale.KeyInvalidChannelList, f)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// parseColor reads a hex color with an optional # or 0x prefix.
func parseColor(s string) (int, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || v > 0xffffff {
		return 0, false
	}
	return int(v), true
}

func (r *Router) customEmbed(ctx context.Context, req *Request) error {
	color := colorInfo
	if raw := req.In.String("color"); raw != "" {
		if c, ok := parseColor(raw); ok {
			color = c
		} else {
			req.Logger.Debug("bad embed color, using default", logx.String("color", raw))
		}
	}
	return req.Reply(ctx, transport.Message{Embed: &transport.Embed{
		Title:       req.In.String("title"),
		Description: req.In.String("description"),
		Color:       color,
		Timestamp:   r.d.Clock.Now(),
	}}, false)
}

func (r *Router) stats(ctx context.Context, req *Request) error {
	cmds, err := r.d.Store.CommandStats(ctx, req.In.GuildID, statsLimit)
	if err != nil {
		return err
	}
	events, err := r.d.Store.RecentEvents(ctx, req.In.GuildID, eventsLimit)
	if err != nil {
		return err
	}

	cmdLines := make([]string, 0, len(cmds))
	for _, c := range cmds {
		cmdLines = append(cmdLines, fmt.Sprintf("`/%s` · %d", c.Name, c.Count))
	}
	evLines := make([]string, 0, len(events))
	for _, e := range events {
		line := fmt.Sprintf("%s · %s", e.Type, locale.FormatShortDate(req.Lang, e.At.In(r.d.Location)))
		if e.Description != "" {
			line += " · " + e.Description
		}
		evLines = append(evLines, line)
	}
	orNone := func(lines []string) string {
		if len(lines) == 0 {
			return req.T(locale.KeyNone)
		}
		return strings.Join(lines, "\n")
	}
	return req.Reply(ctx, transport.Message{Embed: &transport.Embed{
		Title: req.T(locale.KeyStatsTitle),
		Color: colorInfo,
		Fields: []transport.EmbedField{
			{Name: req.T(locale.KeyStatsCommands), Value: orNone(cmdLines)},
			{Name: req.T(locale.KeyStatsEvents), Value: orNone(evLines)},
		},
		Timestamp: r.d.Clock.Now(),
	}}, false)
}

func (r *Router) help(ctx context.Context, req *Request) error {
	var general, admin []string
	for _, name := range r.order {
		c := r.cmds[name]
		line := fmt.Sprintf("**`/%s`** · %s", c.Spec.Name, c.Spec.Description)
		if c.Admin {
			admin = append(admin, line)
		} else {
			general = append(general, line)
		}
	}
	fields := []transport.EmbedField{{Name: req.T(locale.KeyHelpGeneral), Value: strings.Join(general, "\n")}}
	if req.In.Admin {
		fields = append(fields, transport.EmbedField{Name: req.T(locale.KeyHelpAdmin), Value: strings.Join(admin, "\n")})
	}
	return req.Reply(ctx, transport.Message{Embed: &transport.Embed{
		Title:  req.T(locale.KeyHelpTitle),
		Color:  colorInfo,
		Fields: fields,
	}}, true)
}
