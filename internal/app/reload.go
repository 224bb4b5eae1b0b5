package app

import (
	"context"
	"slices"
	"strings"
	"time"

	"xsportbot/internal/config"
	"xsportbot/internal/eventbus"
	logx "xsportbot/pkg/logx"
)

// restartOnly lists sections whose changes are read once at startup.
var restartOnly = []string{"discord", "storage", "scheduler", "reminders"}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config in the channel.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			if newCfg == nil {
				continue
			}
			a.applyConfig(ctx, lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

// applyConfig pushes the live-tunable parts of newCfg into running services.
func (a *App) applyConfig(ctx context.Context, prev, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	for _, s := range sections {
		if slices.Contains(restartOnly, s) {
			a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
		}
	}

	a.logs.Apply(mapLogConfig(newCfg))

	if engCfg, err := mapTaskEngineConfig(newCfg); err != nil {
		a.log.Warn("invalid task_engine config; keeping previous", logx.Err(err))
	} else {
		a.engine.Apply(ctx, engCfg)
	}

	if bcCfg, err := mapBroadcastConfig(newCfg); err != nil {
		a.log.Warn("invalid broadcast config; keeping previous", logx.Err(err))
	} else {
		a.broadcast.Apply(bcCfg)
	}

	if annCfg, err := mapAnnounceConfig(newCfg); err != nil {
		a.log.Warn("invalid announcements config; keeping previous", logx.Err(err))
	} else {
		a.dispatcher.Apply(annCfg.Dispatcher)
		if prevAnn, err := mapAnnounceConfig(prev); err != nil || prevAnn.PollInterval != annCfg.PollInterval {
			if err := a.schedulePoll(annCfg.PollInterval); err != nil {
				a.log.Warn("announcement poll not rescheduled", logx.Err(err))
			}
		}
	}

	// ctx also parents a restarted server, so it must outlive this call.
	a.status.Reconfigure(ctx, mapStatusConfig(newCfg))

	a.bus.Publish(eventbus.Event{Type: eventbus.ConfigReloaded, Time: time.Now(), Data: sections})

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}
