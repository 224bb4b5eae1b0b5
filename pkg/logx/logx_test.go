package logx

import (
	"strings"
	"testing"
)

func TestFormatRemoteLine(t *testing.T) {
	t.Parallel()

	got := formatRemoteLine([]byte(`{"level":"warn","message":"poll failed","comp":"announce","err":"db locked","time":"x"}` + "\n"))
	want := "[WARN] poll failed\n- comp=announce\n- err=db locked"
	if got != want {
		t.Fatalf("formatRemoteLine = %q, want %q", got, want)
	}

	raw := formatRemoteLine([]byte("  not json  "))
	if raw != "not json" {
		t.Fatalf("formatRemoteLine(raw) = %q, want %q", raw, "not json")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 50)
	if got := truncate(long, 20); len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 20); got != "short" {
		t.Fatalf("truncate(short) = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in, LevelInfo); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestZeroLoggerIsSafe(t *testing.T) {
	t.Parallel()

	var l Logger
	if !l.IsZero() {
		t.Fatalf("zero Logger should report IsZero")
	}
	l.With(String("k", "v")).Info("dropped")
	Nop().Error("dropped")
}
