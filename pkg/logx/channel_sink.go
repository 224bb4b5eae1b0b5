package logx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Discord caps message content at 2000 characters; keep headroom for the code fence.
const remoteMaxLen = 1900

type channelWriter struct{ svc *Service }

func (w *channelWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

func (w *channelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	s := w.svc
	if s == nil {
		return len(p), nil
	}

	s.mu.Lock()
	ch := s.channel
	lim := s.limiter
	minLevel := s.minLevel
	hasSender := s.sender != nil
	s.mu.Unlock()

	if ch == "" || !hasSender || lim == nil || level < minLevel {
		return len(p), nil
	}
	if !lim.Allow() {
		return len(p), nil
	}
	if msg := formatRemoteLine(p); msg != "" {
		s.enqueueRemote(msg)
	}
	return len(p), nil
}

// formatRemoteLine turns one zerolog JSON line into a compact chat message.
func formatRemoteLine(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(p))), &m); err != nil {
		return truncate(strings.TrimSpace(string(p)), remoteMaxLen)
	}

	lvl, _ := m["level"].(string)
	msg, _ := m["message"].(string)

	var b strings.Builder
	if lvl != "" {
		b.WriteString("[")
		b.WriteString(strings.ToUpper(lvl))
		b.WriteString("] ")
	}
	b.WriteString(msg)

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case "time", "level", "message":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "stack" {
			b.WriteString("\n```\n")
			b.WriteString(truncate(fmt.Sprint(m[k]), 800))
			b.WriteString("\n```")
			continue
		}
		b.WriteString("\n- ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(truncate(fmt.Sprint(m[k]), 400))
	}
	return truncate(b.String(), remoteMaxLen)
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:maxN]
	}
	return s[:maxN-3] + "..."
}
