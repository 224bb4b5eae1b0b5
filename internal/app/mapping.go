package app

import (
	"strings"
	"time"

	"xsportbot/internal/announce"
	"xsportbot/internal/config"
	"xsportbot/internal/notifier/broadcast"
	"xsportbot/internal/observability/status"
	"xsportbot/internal/storage"
	"xsportbot/internal/task/engine"
	"xsportbot/internal/transport/discord"
	logx "xsportbot/pkg/logx"
)

// Every mapper assumes config.Validate already accepted cfg, so parse errors
// only surface when a caller skipped validation.

func mapLogConfig(cfg *config.Config) logx.Config {
	lc := cfg.Logging
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
		Discord: logx.DiscordConfig{
			Enabled:    lc.Discord.Enabled,
			ChannelID:  lc.Discord.ChannelID,
			MinLevel:   lc.Discord.MinLevel,
			RatePerSec: lc.Discord.RatePerSec,
		},
	}
}

func mapDiscordConfig(cfg *config.Config) discord.Config {
	return discord.Config{
		Token:    cfg.Discord.Token,
		GuildID:  strings.TrimSpace(cfg.Discord.GuildID),
		Activity: cfg.Discord.Activity,
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Path: strings.TrimSpace(cfg.Storage.Path), BusyTimeout: busy}, nil
}

func mapTaskEngineConfig(cfg *config.Config) (engine.Config, error) {
	tc := cfg.TaskEngine
	timeout, err := config.ParseDurationOrDefault("task_engine.default_timeout", tc.DefaultTimeout, 30*time.Second)
	if err != nil {
		return engine.Config{}, err
	}
	retryMax := tc.RetryMax
	if retryMax == 0 {
		retryMax = 2
	}
	return engine.Config{
		Workers:        tc.Workers,
		QueueSize:      tc.QueueSize,
		DefaultTimeout: timeout,
		HistorySize:    tc.HistorySize,
		RetryMax:       retryMax,
	}, nil
}

func mapBroadcastConfig(cfg *config.Config) (broadcast.Config, error) {
	bc := cfg.Broadcast
	interval, err := config.ParseDurationOrDefault("broadcast.interval", bc.Interval, config.DefaultBroadcastPacing)
	if err != nil {
		return broadcast.Config{}, err
	}
	ttl, err := config.ParseDurationOrDefault("broadcast.status_ttl", bc.StatusTTL, 30*time.Minute)
	if err != nil {
		return broadcast.Config{}, err
	}
	return broadcast.Config{
		Workers:     bc.Workers,
		QueueSize:   bc.QueueSize,
		Interval:    interval,
		RetryMax:    bc.RetryMax,
		StatusTTL:   ttl,
		MaxStatuses: bc.MaxStatuses,
	}, nil
}

// announceSettings is the dispatcher config plus the poll trigger interval.
type announceSettings struct {
	Dispatcher   announce.Config
	PollInterval time.Duration
}

func mapAnnounceConfig(cfg *config.Config) (announceSettings, error) {
	ac := cfg.Announcements
	poll, err := config.ParseDurationOrDefault("announcements.poll_interval", ac.PollInterval, config.DefaultPollInterval)
	if err != nil {
		return announceSettings{}, err
	}
	base, err := config.ParseDurationOrDefault("announcements.retry_base", ac.RetryBase, config.DefaultRetryBase)
	if err != nil {
		return announceSettings{}, err
	}
	maxDelay, err := config.ParseDurationOrDefault("announcements.retry_max_delay", ac.RetryMaxDelay, config.DefaultRetryMaxDelay)
	if err != nil {
		return announceSettings{}, err
	}
	return announceSettings{
		Dispatcher: announce.Config{
			MaxAttempts:   ac.MaxAttempts,
			RetryBase:     base,
			RetryMaxDelay: maxDelay,
			BatchSize:     ac.BatchSize,
			Parallelism:   ac.Parallelism,
		},
		PollInterval: poll,
	}, nil
}

func mapStatusConfig(cfg *config.Config) status.Config {
	sc := cfg.Status
	return status.Config{
		Enabled:       sc.Enabled,
		Addr:          config.StatusAddr(sc),
		Token:         strings.TrimSpace(sc.Token),
		AllowInsecure: sc.AllowInsecure,
		CORSOrigins:   append([]string(nil), sc.CORSOrigins...),
		Pprof:         sc.Pprof,
		ReadTimeout:   10 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   120 * time.Second,
	}
}

func requestTimeout(cfg *config.Config) time.Duration {
	d, err := config.ParseDurationOrDefault("discord.request_timeout", cfg.Discord.RequestTimeout, 30*time.Second)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
