package config

import (
	"reflect"
	"strings"

	logx "xsportbot/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections and
// safe structured attrs for logging (never includes tokens).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 16)

	// Discord (never log token)
	od, nd := oldCfg.Discord, newCfg.Discord
	if od.GuildID != nd.GuildID || od.Activity != nd.Activity || od.DefaultLocale != nd.DefaultLocale ||
		od.RequestTimeout != nd.RequestTimeout || od.Token != nd.Token {
		changed = append(changed, "discord")
		attrs = append(attrs,
			logx.Bool("discord.token_changed", od.Token != nd.Token),
			logx.String("discord.activity", nd.Activity),
			logx.String("discord.default_locale", nd.DefaultLocale),
		)
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.discord_enabled", newCfg.Logging.Discord.Enabled),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs, logx.String("storage.path", newCfg.Storage.Path))
	}

	if strings.TrimSpace(oldCfg.Scheduler.Timezone) != strings.TrimSpace(newCfg.Scheduler.Timezone) {
		changed = append(changed, "scheduler")
		attrs = append(attrs, logx.String("scheduler.timezone", newCfg.Scheduler.Timezone))
	}

	if oldCfg.TaskEngine != newCfg.TaskEngine {
		changed = append(changed, "task_engine")
		attrs = append(attrs,
			logx.Int("task_engine.workers", newCfg.TaskEngine.Workers),
			logx.Int("task_engine.queue_size", newCfg.TaskEngine.QueueSize),
		)
	}

	if !reflect.DeepEqual(oldCfg.Reminders, newCfg.Reminders) {
		changed = append(changed, "reminders")
		attrs = append(attrs, logx.String("reminders.offsets", strings.Join(newCfg.Reminders.Offsets, ",")))
	}

	if oldCfg.Announcements != newCfg.Announcements {
		changed = append(changed, "announcements")
		attrs = append(attrs,
			logx.String("announcements.poll_interval", newCfg.Announcements.PollInterval),
			logx.Int("announcements.max_attempts", newCfg.Announcements.MaxAttempts),
		)
	}

	if oldCfg.Broadcast != newCfg.Broadcast {
		changed = append(changed, "broadcast")
		attrs = append(attrs, logx.String("broadcast.interval", newCfg.Broadcast.Interval))
	}

	ost, nst := oldCfg.Status, newCfg.Status
	if ost.Enabled != nst.Enabled || ost.Addr != nst.Addr || ost.AllowInsecure != nst.AllowInsecure ||
		ost.Pprof != nst.Pprof || !reflect.DeepEqual(ost.CORSOrigins, nst.CORSOrigins) || ost.Token != nst.Token {
		changed = append(changed, "status")
		attrs = append(attrs,
			logx.Bool("status.enabled", nst.Enabled),
			logx.String("status.addr", StatusAddr(nst)),
			logx.Bool("status.token_set", strings.TrimSpace(nst.Token) != ""),
			logx.Bool("status.pprof", nst.Pprof),
		)
	}

	return changed, attrs
}
