package config

import (
	"os"
	"strings"
)

// expandEnv substitutes $VAR and ${VAR} references with environment values.
func expandEnv(b []byte) []byte {
	s := string(b)
	if !strings.Contains(s, "$") {
		return b
	}
	return []byte(os.ExpandEnv(s))
}

// applyEnvOverrides fills secrets that are commonly kept out of the config file.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DISCORD_TOKEN")); v != "" {
		cfg.Discord.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("XSPORTBOT_STATUS_TOKEN")); v != "" {
		cfg.Status.Token = v
	}
}
