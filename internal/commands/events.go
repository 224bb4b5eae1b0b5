package commands

import (
	"context"

	"xsportbot/internal/locale"
	"xsportbot/internal/notifier"
	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

const (
	colorJoin  = 0x00ff00
	colorLeave = 0xff0000
)

// HandleEvent records guild and member activity. Failures are logged, never surfaced.
func (r *Router) HandleEvent(ctx context.Context, ev transport.Event) {
	log := r.log.With(logx.String("event", string(ev.Kind)), logx.String("guild_id", ev.GuildID))
	warn := func(what string, err error) {
		if err != nil {
			log.Warn(what+" failed", logx.Err(err))
		}
	}

	switch ev.Kind {
	case transport.EventGuildJoin:
		log.Info("joined guild", logx.String("name", ev.GuildName))
		warn("log event", r.d.Store.LogEvent(ctx, ev.GuildID, string(ev.Kind), "Joined guild "+ev.GuildName))
	case transport.EventGuildLeave:
		log.Info("left guild", logx.String("name", ev.GuildName))
		warn("log event", r.d.Store.LogEvent(ctx, ev.GuildID, string(ev.Kind), "Left guild "+ev.GuildName))
	case transport.EventMemberJoin, transport.EventMemberLeave:
		activity, key, color := "join", locale.KeyMemberJoined, colorJoin
		if ev.Kind == transport.EventMemberLeave {
			activity, key, color = "leave", locale.KeyMemberLeft, colorLeave
		}
		warn("log member activity", r.d.Store.LogMemberActivity(ctx, ev.GuildID, ev.UserID, activity))
		warn("log event", r.d.Store.LogEvent(ctx, ev.GuildID, string(ev.Kind), ev.UserName+" ("+ev.UserID+")"))
		r.noticeLogChannel(ctx, log, ev, key, color)
	case transport.EventMessage:
		warn("log member activity", r.d.Store.LogMemberActivity(ctx, ev.GuildID, ev.UserID, "message"))
	default:
		log.Debug("ignored event")
	}
}

func (r *Router) noticeLogChannel(ctx context.Context, log logx.Logger, ev transport.Event, key locale.Key, color int) {
	if r.d.Notifier == nil {
		return
	}
	gs, err := r.d.Store.GuildSettings(ctx, ev.GuildID)
	if err != nil {
		log.Warn("load guild settings failed", logx.Err(err))
		return
	}
	if gs.LogChannelID == "" {
		return
	}
	lang := locale.Resolve(storedLanguage(gs), r.cfg.DefaultLocale)
	name := ev.UserName
	if name == "" {
		name = "<@" + ev.UserID + ">"
	}
	n := notifier.Notice{
		ChannelID: gs.LogChannelID,
		Message: transport.Message{Embed: &transport.Embed{
			Description: lang.Sprintf(key, name),
			Color:       color,
			Footer:      "ID: " + ev.UserID,
			Timestamp:   r.d.Clock.Now(),
		}},
	}
	if err := r.d.Notifier.Notify(ctx, n); err != nil {
		log.Warn("log channel notice not queued", logx.Err(err))
	}
}
