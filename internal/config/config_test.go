package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestParseYAML(t *testing.T) {
	t.Setenv("XSB_TEST_CHANNEL", "1234")
	t.Setenv("DISCORD_TOKEN", "")

	p := writeFile(t, "config.yaml", `
discord:
  token: abc
  activity: xSportBS Server
logging:
  level: debug
  console: true
  discord:
    enabled: true
    channel_id: "${XSB_TEST_CHANNEL}"
storage:
  path: ./bot.db
announcements:
  poll_interval: 30s
  max_attempts: 5
`)
	cfg, err := NewConfigManager(p).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "abc" {
		t.Fatalf("token = %q, want %q", cfg.Discord.Token, "abc")
	}
	if cfg.Logging.Discord.ChannelID != "1234" {
		t.Fatalf("channel_id = %q, want expanded env value", cfg.Logging.Discord.ChannelID)
	}
	if cfg.Announcements.MaxAttempts != 5 {
		t.Fatalf("max_attempts = %d, want 5", cfg.Announcements.MaxAttempts)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "config.json", `{"discord":{"token":"x"},"bogus":1}`)
	if _, err := NewConfigManager(p).Parse(); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "config.json", `{"storage":{"path":"a"}}{"storage":{"path":"b"}}`)
	if _, err := NewConfigManager(p).Parse(); err == nil {
		t.Fatalf("expected trailing data error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		return &Config{
			Discord: DiscordConfig{Token: "t"},
			Storage: StorageConfig{Path: "db"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Discord.Token = "" }, wantErr: "discord.token"},
		{name: "bad poll interval", mutate: func(c *Config) { c.Announcements.PollInterval = "soon" }, wantErr: "announcements.poll_interval"},
		{name: "zero offset", mutate: func(c *Config) { c.Reminders.Offsets = []string{"0s"} }, wantErr: "reminders.offsets[0]"},
		{name: "bad timezone", mutate: func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, wantErr: "scheduler.timezone"},
		{
			name: "public status without token",
			mutate: func(c *Config) {
				c.Status.Enabled = true
				c.Status.Addr = "0.0.0.0:8080"
			},
			wantErr: "status.addr",
		},
		{
			name: "public status with token",
			mutate: func(c *Config) {
				c.Status.Enabled = true
				c.Status.Addr = "0.0.0.0:8080"
				c.Status.Token = "secret"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := base()
			tt.mutate(c)
			err := Validate(c)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestReminderOffsetsDefault(t *testing.T) {
	t.Parallel()

	got, err := ReminderOffsets(RemindersConfig{})
	if err != nil {
		t.Fatalf("ReminderOffsets: %v", err)
	}
	want := []time.Duration{10 * time.Minute, 3 * time.Minute}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ReminderOffsets = %v, want %v", got, want)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()

	oldCfg := &Config{Discord: DiscordConfig{Token: "a"}, Announcements: AnnouncementsConfig{PollInterval: "60s"}}
	newCfg := &Config{Discord: DiscordConfig{Token: "a"}, Announcements: AnnouncementsConfig{PollInterval: "30s"}}

	changed, _ := SummarizeConfigChange(oldCfg, newCfg)
	if !reflect.DeepEqual(changed, []string{"announcements"}) {
		t.Fatalf("changed = %v, want [announcements]", changed)
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"127.0.0.1:80":   true,
		"localhost:8080": true,
		"[::1]:9000":     true,
		"0.0.0.0:8080":   false,
		":8080":          false,
		"garbage":        false,
	}
	for addr, want := range cases {
		if got := IsLoopbackAddr(addr); got != want {
			t.Errorf("IsLoopbackAddr(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestDecodeFormats(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	yml, err := Decode("bot.YML", []byte("storage:\n  path: a.db\n"))
	if err != nil {
		t.Fatalf("Decode yaml: %v", err)
	}
	js, err := Decode("bot.json", []byte(`{"storage":{"path":"a.db"}}`))
	if err != nil {
		t.Fatalf("Decode json: %v", err)
	}
	if yml.Storage.Path != "a.db" || js.Storage.Path != "a.db" {
		t.Fatalf("paths = %q/%q, want a.db", yml.Storage.Path, js.Storage.Path)
	}
	if fingerprint(yml) != fingerprint(js) {
		t.Fatalf("same content produced different fingerprints")
	}
	if fingerprint(nil) != 0 {
		t.Fatalf("fingerprint(nil) != 0")
	}
}

func TestDecodeEnvOverride(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "from-env")
	cfg, err := Decode("c.yaml", []byte("discord:\n  token: from-file\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Discord.Token != "from-env" {
		t.Fatalf("token = %q, want from-env", cfg.Discord.Token)
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		def     time.Duration
		want    time.Duration
		wantErr bool
	}{
		{raw: "", def: time.Second, want: time.Second},
		{raw: "  2m ", def: time.Second, want: 2 * time.Minute},
		{raw: "0s", def: 3 * time.Second, want: 3 * time.Second},
		{raw: "-5s", wantErr: true},
		{raw: "later", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDurationOrDefault("x.y", tt.raw, tt.def)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "x.y") {
					t.Fatalf("err = %v, want error naming x.y", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseDurationOrDefault(%q) = %v, %v, want %v", tt.raw, got, err, tt.want)
			}
		})
	}
}

func TestPublishKeepsNewest(t *testing.T) {
	t.Parallel()
	m := NewConfigManager("unused.yaml")
	ch := m.Subscribe(1)
	first := &Config{Storage: StorageConfig{Path: "1"}}
	second := &Config{Storage: StorageConfig{Path: "2"}}
	m.publish(first)
	m.publish(second)
	if got := <-ch; got != second {
		t.Fatalf("got %q, want newest config", got.Storage.Path)
	}
	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatalf("channel still open after Unsubscribe")
	}
}

func TestReloadValidatesAndSkipsUnchanged(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	p := writeFile(t, "config.yaml", "discord:\n  token: a\nstorage:\n  path: db\n")
	m := NewConfigManager(p)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.SetValidator(func(_ context.Context, c *Config) error { return Validate(c) })
	ch := m.Subscribe(4)
	ctx := context.Background()

	m.reload(ctx)
	if len(ch) != 0 {
		t.Fatalf("unchanged file was published")
	}

	if err := os.WriteFile(p, []byte("discord:\n  token: \"\"\nstorage:\n  path: db\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m.reload(ctx)
	if len(ch) != 0 || m.Get().Discord.Token != "a" {
		t.Fatalf("invalid config was committed")
	}

	if err := os.WriteFile(p, []byte("discord:\n  token: b\nstorage:\n  path: db\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m.reload(ctx)
	if got := <-ch; got.Discord.Token != "b" || m.Get() != got {
		t.Fatalf("reload did not commit and publish the new config")
	}
}
