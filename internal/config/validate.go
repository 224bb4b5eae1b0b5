package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Defaults applied by Resolve when a field is omitted.
const (
	DefaultPollInterval    = 60 * time.Second
	DefaultRetryBase       = time.Minute
	DefaultRetryMaxDelay   = time.Hour
	DefaultMaxAttempts     = 10
	DefaultBroadcastPacing = 500 * time.Millisecond
	DefaultTimezone        = "Europe/Madrid"
	DefaultStatusAddr      = "127.0.0.1:8080"
)

// DefaultReminderOffsets are the lead times before kickoff.
var DefaultReminderOffsets = []time.Duration{10 * time.Minute, 3 * time.Minute}

// Validate checks values that cannot be fixed up with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if strings.TrimSpace(cfg.Discord.Token) == "" {
		errs = append(errs, errors.New("discord.token: required (or set DISCORD_TOKEN)"))
	}
	if strings.TrimSpace(cfg.Storage.Path) == "" {
		errs = append(errs, errors.New("storage.path: required"))
	}
	if _, err := ParseDurationField("discord.request_timeout", cfg.Discord.RequestTimeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationField("task_engine.default_timeout", cfg.TaskEngine.DefaultTimeout); err != nil {
		errs = append(errs, err)
	}
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}
	if _, err := ReminderOffsets(cfg.Reminders); err != nil {
		errs = append(errs, err)
	}
	for _, f := range []struct{ path, raw string }{
		{"announcements.poll_interval", cfg.Announcements.PollInterval},
		{"announcements.retry_base", cfg.Announcements.RetryBase},
		{"announcements.retry_max_delay", cfg.Announcements.RetryMaxDelay},
		{"broadcast.interval", cfg.Broadcast.Interval},
		{"broadcast.status_ttl", cfg.Broadcast.StatusTTL},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.Announcements.MaxAttempts < 0 {
		errs = append(errs, errors.New("announcements.max_attempts: must be >= 0"))
	}
	if cfg.Status.Enabled {
		addr := StatusAddr(cfg.Status)
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Errorf("status.addr: %w", err))
		} else if !IsLoopbackAddr(addr) && strings.TrimSpace(cfg.Status.Token) == "" && !cfg.Status.AllowInsecure {
			errs = append(errs, errors.New("status.addr: non-loopback address requires status.token or allow_insecure"))
		}
	}
	return errors.Join(errs...)
}

// ReminderOffsets parses the configured lead times, falling back to 10m and 3m.
func ReminderOffsets(rc RemindersConfig) ([]time.Duration, error) {
	if len(rc.Offsets) == 0 {
		return append([]time.Duration(nil), DefaultReminderOffsets...), nil
	}
	out := make([]time.Duration, 0, len(rc.Offsets))
	for i, raw := range rc.Offsets {
		d, err := ParseDurationField(fmt.Sprintf("reminders.offsets[%d]", i), raw)
		if err != nil {
			return nil, err
		}
		if d <= 0 {
			return nil, fmt.Errorf("reminders.offsets[%d]: must be > 0", i)
		}
		out = append(out, d)
	}
	return out, nil
}

// Location resolves scheduler.timezone, defaulting to Europe/Madrid and then UTC.
func Location(sc SchedulerConfig) *time.Location {
	tz := strings.TrimSpace(sc.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

func StatusAddr(sc StatusConfig) string {
	if a := strings.TrimSpace(sc.Addr); a != "" {
		return a
	}
	return DefaultStatusAddr
}

// IsLoopbackAddr reports whether host:port binds only to the local machine.
func IsLoopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
