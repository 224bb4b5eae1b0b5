package config

import (
	"context"
	"os"
	"sync"

	logx "xsportbot/pkg/logx"
)

// ConfigManager holds the committed config and fans reloads out to subscribers.
type ConfigManager struct {
	path string

	mu   sync.RWMutex
	cfg  *Config
	hash uint64

	// subsMu is held while sending so Unsubscribe never closes a channel mid-send.
	subsMu sync.Mutex
	subs   []chan *Config

	log       logx.Logger
	validator func(ctx context.Context, cfg *Config) error
}

func NewConfigManager(path string) *ConfigManager {
	return &ConfigManager{path: path, log: logx.Nop()}
}

func (m *ConfigManager) SetLogger(log logx.Logger) {
	if log.IsZero() {
		log = logx.Nop()
	}
	m.log = log
}

// SetValidator installs the check Watch runs before committing a reload.
func (m *ConfigManager) SetValidator(fn func(ctx context.Context, cfg *Config) error) {
	m.validator = fn
}

// Parse reads and decodes the file without committing it.
func (m *ConfigManager) Parse() (*Config, error) {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	return Decode(m.path, raw)
}

func (m *ConfigManager) Commit(cfg *Config) {
	h := fingerprint(cfg)
	m.mu.Lock()
	m.cfg, m.hash = cfg, h
	m.mu.Unlock()
}

func (m *ConfigManager) Load() (*Config, error) {
	cfg, err := m.Parse()
	if err != nil {
		return nil, err
	}
	m.Commit(cfg)
	return cfg, nil
}

func (m *ConfigManager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *ConfigManager) unchanged(cfg *Config) bool {
	h := fingerprint(cfg)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return h != 0 && h == m.hash
}

func (m *ConfigManager) Subscribe(buffer int) chan *Config {
	ch := make(chan *Config, buffer)
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch.
func (m *ConfigManager) Unsubscribe(ch chan *Config) {
	if ch == nil {
		return
	}
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for i, s := range m.subs {
		if s != ch {
			continue
		}
		m.subs = append(m.subs[:i], m.subs[i+1:]...)
		close(ch)
		return
	}
}

// publish hands cfg to every subscriber. A full buffer loses its oldest entry;
// only the newest config matters.
func (m *ConfigManager) publish(cfg *Config) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		for range 2 {
			select {
			case ch <- cfg:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}
