package config

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "xsportbot/pkg/logx"
)

const (
	reloadDebounce  = 250 * time.Millisecond
	validateTimeout = 5 * time.Second
	watchRetryMin   = 200 * time.Millisecond
	watchRetryMax   = 5 * time.Second
)

// errWatcherGone ends one watcher session; Watch builds a new one.
var errWatcherGone = errors.New("watcher closed")

// Watch reloads the file whenever it changes on disk until ctx ends. The
// parent directory is watched so editors that replace the file by rename are
// still seen. A rejected config is logged and the committed one stays.
func (m *ConfigManager) Watch(ctx context.Context) error {
	abs, err := filepath.Abs(m.path)
	if err != nil {
		abs = m.path
	}
	dir, file := filepath.Dir(abs), filepath.Base(abs)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() { m.reload(ctx) })
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	retry := watchRetryMin
	for ctx.Err() == nil {
		started, err := m.watchSession(ctx, dir, file, schedule)
		if ctx.Err() != nil {
			return nil
		}
		if started {
			retry = watchRetryMin
		}
		wait := retry + rand.N(retry/2+1)
		retry = min(retry*2, watchRetryMax)
		m.log.Warn("config watcher restarting",
			logx.String("dir", dir),
			logx.Err(err),
			logx.Duration("backoff", wait),
		)
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}
	return nil
}

// watchSession runs one fsnotify watcher. started reports whether the watch
// was established before it failed.
func (m *ConfigManager) watchSession(ctx context.Context, dir, file string, changed func()) (started bool, err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return false, fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return false, fmt.Errorf("watch %s: %w", dir, err)
	}
	m.log.Debug("config watcher started", logx.String("dir", dir), logx.String("file", file))

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove | fsnotify.Chmod
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case ev, ok := <-w.Events:
			if !ok {
				return true, errWatcherGone
			}
			if ev.Op&relevant != 0 && strings.EqualFold(filepath.Base(ev.Name), file) {
				changed()
			}
		case werr, ok := <-w.Errors:
			if !ok {
				return true, errWatcherGone
			}
			if werr == nil {
				continue
			}
			if errors.Is(werr, fsnotify.ErrEventOverflow) {
				// Events were lost; re-read rather than trust the gap.
				m.log.Warn("config watch overflow; forcing reload", logx.String("dir", dir))
				changed()
				continue
			}
			if errors.Is(werr, fsnotify.ErrClosed) {
				return true, werr
			}
			m.log.Warn("config watch error", logx.String("dir", dir), logx.Err(werr))
		}
	}
}

// reload parses, validates, commits and publishes. Content identical to the
// committed config is dropped silently.
func (m *ConfigManager) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cfg, err := m.Parse()
	if err != nil {
		m.log.Warn("config parse failed", logx.String("path", m.path), logx.Err(err))
		return
	}
	if m.unchanged(cfg) {
		m.log.Debug("config unchanged", logx.String("path", m.path))
		return
	}
	if m.validator != nil {
		vctx, cancel := context.WithTimeout(ctx, validateTimeout)
		err := m.validator(vctx, cfg)
		cancel()
		if err != nil {
			m.log.Warn("config rejected", logx.String("path", m.path), logx.Err(err))
			return
		}
	}
	m.Commit(cfg)
	m.publish(cfg)
	m.log.Debug("config published", logx.String("path", m.path))
}
