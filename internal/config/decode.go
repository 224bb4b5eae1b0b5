package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// Decode turns raw file content into a Config. YAML is first re-encoded as
// JSON so both formats go through the same strict decoder: unknown fields and
// trailing documents are errors. name only selects the format by extension.
func Decode(name string, raw []byte) (*Config, error) {
	raw = expandEnv(raw)
	if isYAML(name) {
		j, err := yamlToJSON(raw)
		if err != nil {
			return nil, err
		}
		raw = j
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(name), err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("trailing data")
		}
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(name), err)
	}
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func yamlToJSON(raw []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	j, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return nil, fmt.Errorf("yaml to json: %w", err)
	}
	return j, nil
}

// stringKeys rewrites nested map[any]any nodes so encoding/json accepts them.
func stringKeys(node any) any {
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			n[k] = stringKeys(v)
		}
		return n
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[fmt.Sprint(k)] = stringKeys(v)
		}
		return out
	case []any:
		for i, v := range n {
			n[i] = stringKeys(v)
		}
		return n
	}
	return node
}

// fingerprint identifies a config by content; 0 means unknown.
func fingerprint(cfg *Config) uint64 {
	if cfg == nil {
		return 0
	}
	b, err := json.Marshal(cfg)
	if err != nil || len(b) == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
