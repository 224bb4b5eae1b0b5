package config

type Config struct {
	Discord DiscordConfig `json:"discord"`
	Logging LoggingConfig `json:"logging"`

	Storage StorageConfig `json:"storage"`

	// Scheduler controls trigger behavior (interval/once) and the display timezone.
	Scheduler SchedulerConfig `json:"scheduler"`

	// TaskEngine controls execution settings for scheduled jobs.
	TaskEngine TaskEngineConfig `json:"task_engine"`

	Reminders     RemindersConfig     `json:"reminders"`
	Announcements AnnouncementsConfig `json:"announcements"`
	Broadcast     BroadcastConfig     `json:"broadcast"`
	Status        StatusConfig        `json:"status"`
}

type DiscordConfig struct {
	// Token may be left empty and supplied through DISCORD_TOKEN.
	Token string `json:"token"`
	// GuildID registers slash commands on one guild (instant) instead of globally.
	GuildID string `json:"guild_id,omitempty"`
	// Activity is shown as "Watching <activity>".
	Activity string `json:"activity,omitempty"`
	// DefaultLocale is used when an interaction carries no usable locale.
	DefaultLocale string `json:"default_locale,omitempty"`
	// RequestTimeout bounds a single command handler (Go duration string).
	RequestTimeout string `json:"request_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string         `json:"level"`
	Console bool           `json:"console"`
	File    LoggingFile    `json:"file"`
	Discord LoggingDiscord `json:"discord"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingDiscord struct {
	Enabled    bool   `json:"enabled"`
	ChannelID  string `json:"channel_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the sqlite persistence layer.
//
// Example:
//
//	storage: { path: "./data/xsportbot.db", busy_timeout: "5s" }
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type SchedulerConfig struct {
	// Timezone is used for cron triggers and for resolving day/hour/minute input.
	Timezone string `json:"timezone,omitempty"`
}

// TaskEngineConfig controls the task execution engine.
//
// Defaults (when fields are omitted/zero):
//   - workers: 2
//   - queue_size: 256
//   - default_timeout: "30s"
//   - history_size: 200
//   - retry_max: 2
type TaskEngineConfig struct {
	Workers        int    `json:"workers,omitempty"`
	QueueSize      int    `json:"queue_size,omitempty"`
	DefaultTimeout string `json:"default_timeout,omitempty"`
	HistorySize    int    `json:"history_size,omitempty"`
	RetryMax       int    `json:"retry_max,omitempty"`
}

// RemindersConfig lists how long before kickoff participants are reminded.
type RemindersConfig struct {
	Offsets []string `json:"offsets,omitempty"` // default ["10m", "3m"]
}

// AnnouncementsConfig controls the scheduled-announcement dispatcher.
type AnnouncementsConfig struct {
	PollInterval  string `json:"poll_interval,omitempty"`   // default "60s"
	MaxAttempts   int    `json:"max_attempts,omitempty"`    // default 10
	RetryBase     string `json:"retry_base,omitempty"`      // default "1m"
	RetryMaxDelay string `json:"retry_max_delay,omitempty"` // default "1h"
	BatchSize     int    `json:"batch_size,omitempty"`      // default 50
	Parallelism   int    `json:"parallelism,omitempty"`     // default 4
}

// BroadcastConfig controls direct-message fan-out.
type BroadcastConfig struct {
	Workers     int    `json:"workers,omitempty"`      // default 1
	QueueSize   int    `json:"queue_size,omitempty"`   // default 64
	Interval    string `json:"interval,omitempty"`     // pause between recipients, default "500ms"
	RetryMax    int    `json:"retry_max,omitempty"`    // default 1
	StatusTTL   string `json:"status_ttl,omitempty"`   // default "30m"
	MaxStatuses int    `json:"max_statuses,omitempty"` // default 200
}

// StatusConfig controls the HTTP status dashboard.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:8080").
//   - A non-loopback address requires a token unless allow_insecure is set.
type StatusConfig struct {
	Enabled       bool     `json:"enabled"`
	Addr          string   `json:"addr,omitempty"`
	Token         string   `json:"token,omitempty"`
	AllowInsecure bool     `json:"allow_insecure,omitempty"`
	CORSOrigins   []string `json:"cors_origins,omitempty"`
	Pprof         bool     `json:"pprof,omitempty"`
}
