package app

import (
	"context"
	"fmt"
	"time"

	"xsportbot/internal/announce"
	"xsportbot/internal/commands"
	"xsportbot/internal/config"
	"xsportbot/internal/eventbus"
	"xsportbot/internal/match"
	"xsportbot/internal/notifier"
	"xsportbot/internal/notifier/broadcast"
	"xsportbot/internal/observability/status"
	"xsportbot/internal/reminder"
	rtsup "xsportbot/internal/runtime/supervisor"
	"xsportbot/internal/standings"
	"xsportbot/internal/storage"
	"xsportbot/internal/task/engine"
	"xsportbot/internal/task/scheduler"
	"xsportbot/internal/transport"
	"xsportbot/internal/transport/discord"
	logx "xsportbot/pkg/logx"
)

const (
	pollTaskName = "announcements.poll"
	pollTimeout  = 2 * time.Minute
)

type App struct {
	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  *eventbus.MemBus

	store   *storage.Store
	adapter *discord.Adapter

	engine     *engine.Service
	sched      *scheduler.Service
	broadcast  *broadcast.Service
	notif      *notifier.Service
	dispatcher *announce.Dispatcher
	router     *commands.Router
	status     *status.Service

	registry *match.Registry

	updates chan transport.Update
}

// NewApp loads and validates the config and builds every service. Nothing runs
// until Start. A storage schema failure is returned here.
func NewApp(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// The Discord log sink needs the adapter and the adapter needs a logger;
	// the sender is attached once both exist.
	logSvc, log := logx.New(mapLogConfig(cfg), nil)
	appLog := log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	ad, err := discord.New(mapDiscordConfig(cfg), log.With(logx.String("comp", "discord")), bus)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	logSvc.SetSender(ad)

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	store, err := storage.Open(ctx, sc, log)
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	appLog.Info("storage ready", logx.String("path", sc.Path))

	fail := func(err error) (*App, error) {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}

	engCfg, err := mapTaskEngineConfig(cfg)
	if err != nil {
		return fail(err)
	}
	bcCfg, err := mapBroadcastConfig(cfg)
	if err != nil {
		return fail(err)
	}
	annCfg, err := mapAnnounceConfig(cfg)
	if err != nil {
		return fail(err)
	}
	offsets, err := config.ReminderOffsets(cfg.Reminders)
	if err != nil {
		return fail(err)
	}

	loc := config.Location(cfg.Scheduler)
	clock := match.SystemClock{Loc: loc}

	engineSvc := engine.New(engCfg, log, bus)
	schedSvc := scheduler.New(scheduler.Config{Timezone: loc.String()}, engineSvc, log, bus)

	bcSvc := broadcast.New(bcCfg, ad, log)
	bcSvc.OnJobDone(func(st broadcast.JobStatus) {
		bus.Publish(eventbus.Event{Type: eventbus.BroadcastFinished, Time: time.Now(), Data: st})
	})

	notifSvc := notifier.New(notifier.Config{}, ad, log, bus)
	registry := match.NewRegistry()

	remSvc := reminder.New(reminder.Deps{
		Timers:    schedSvc,
		Registry:  registry,
		Directory: ad,
		Broadcast: bcSvc,
		Clock:     clock,
		Location:  loc,
		Log:       log,
		Bus:       bus,
	}, offsets)

	dispatcher := announce.New(annCfg.Dispatcher, store, ad, clock, log, bus)

	router := commands.New(commands.Config{
		Timeout:       requestTimeout(cfg),
		DefaultLocale: cfg.Discord.DefaultLocale,
	}, commands.Deps{
		Store:     store,
		Ledger:    standings.New(store, log),
		Registry:  registry,
		Reminders: remSvc,
		Broadcast: bcSvc,
		Notifier:  notifSvc,
		Gateway:   ad,
		Directory: ad,
		Clock:     clock,
		Location:  loc,
		Log:       log,
	})
	ad.SetCommands(router.Specs())

	statusSvc := status.New(mapStatusConfig(cfg), ad, log.With(logx.String("comp", "status")))

	return &App{
		cfgm:       cfgm,
		log:        appLog,
		logs:       logSvc,
		bus:        bus,
		store:      store,
		adapter:    ad,
		engine:     engineSvc,
		sched:      schedSvc,
		broadcast:  bcSvc,
		notif:      notifSvc,
		dispatcher: dispatcher,
		router:     router,
		status:     statusSvc,
		registry:   registry,
		updates:    router.NewFeed(),
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	runCtx := a.sup.Context()

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return config.Validate(cfg)
	})

	// Executors before triggers.
	a.engine.Start(runCtx)
	a.sched.Start(runCtx)
	a.broadcast.Start(runCtx)
	a.notif.Start(runCtx)

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		a.sup.Cancel()
		return fmt.Errorf("start discord: %w", err)
	}
	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.router.DispatchLoop(c, a.updates)
	})

	cfg := a.cfgm.Get()
	annCfg, err := mapAnnounceConfig(cfg)
	if err != nil {
		return err
	}
	if err := a.schedulePoll(annCfg.PollInterval); err != nil {
		return err
	}
	// Recover announcements that came due while the process was down.
	if err := a.engine.Enqueue(a.pollTask()); err != nil {
		a.log.Warn("initial announcement poll not queued", logx.Err(err))
	}

	a.status.Reconfigure(runCtx, mapStatusConfig(cfg))

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go("eventbus.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
		return nil
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started",
		logx.Int("commands", len(a.router.Specs())),
		logx.Duration("poll_interval", annCfg.PollInterval),
		logx.String("timezone", a.sched.Location().String()),
	)
	return nil
}

func (a *App) pollTask() engine.Task {
	return engine.Task{
		Name:    pollTaskName + ".startup",
		Timeout: pollTimeout,
		Run:     a.pollAnnouncements,
		Opt:     engine.TaskOptions{RetryMax: -1},
	}
}

// schedulePoll registers (or replaces) the dispatcher trigger.
func (a *App) schedulePoll(every time.Duration) error {
	return a.sched.AddIntervalOpt(pollTaskName, every, pollTimeout,
		scheduler.TaskOptions{Overlap: scheduler.OverlapSkipIfRunning, RetryMax: -1},
		a.pollAnnouncements,
	)
}

func (a *App) pollAnnouncements(ctx context.Context) error {
	_, err := a.dispatcher.Poll(ctx)
	return err
}

// Healthy reports whether the app is still running.
func (a *App) Healthy() bool {
	select {
	case <-a.Done():
		return false
	default:
		return true
	}
}
