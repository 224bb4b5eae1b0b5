// Package systemd reports service state to systemd through sd_notify.
// Every call is a no-op when the process is not run by systemd.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Ready tells systemd that startup finished (Type=notify units).
func Ready() (bool, error) {
	return daemon.SdNotify(false, daemon.SdNotifyReady)
}

// Stopping tells systemd that shutdown has begun.
func Stopping() (bool, error) {
	return daemon.SdNotify(false, daemon.SdNotifyStopping)
}

// WatchdogInterval reports how often keepalives are expected, or 0 when the
// unit has no WatchdogSec.
func WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return 0
	}
	return d
}

// Watchdog pings systemd at half the configured interval until ctx ends or
// alive reports false. It returns at once when no watchdog is configured.
func Watchdog(ctx context.Context, alive func() bool) {
	every := WatchdogInterval() / 2
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if alive != nil && !alive() {
				continue
			}
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
