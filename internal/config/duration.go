package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses a Go duration string found at key. Blank means
// zero; negative values are rejected.
func ParseDurationField(key, raw string) (time.Duration, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: %q is not a duration (e.g. 30s, 5m): %w", key, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: %q is negative", key, raw)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def substituted for zero.
func ParseDurationOrDefault(key, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(key, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}
