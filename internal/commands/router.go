// Package commands routes slash commands and guild events to the match,
// standings and announcement services.
package commands

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"sync"
	"time"

	"xsportbot/internal/locale"
	"xsportbot/internal/match"
	"xsportbot/internal/notifier"
	"xsportbot/internal/notifier/broadcast"
	rtsup "xsportbot/internal/runtime/supervisor"
	"xsportbot/internal/standings"
	"xsportbot/internal/storage"
	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

// Store is the persistence the commands read and write directly.
type Store interface {
	LogCommand(ctx context.Context, guildID, userID, name string) error
	LogEvent(ctx context.Context, guildID, eventType, description string) error
	LogMemberActivity(ctx context.Context, guildID, userID, activity string) error
	CommandStats(ctx context.Context, guildID string, limit int) ([]storage.CommandStat, error)
	RecentEvents(ctx context.Context, guildID string, limit int) ([]storage.EventLog, error)
	GuildSettings(ctx context.Context, guildID string) (storage.GuildSettings, error)
	SaveGuildSettings(ctx context.Context, gs storage.GuildSettings) error
	CreateTournament(ctx context.Context, t storage.Tournament) (int64, error)
	Tournaments(ctx context.Context, guildID, status string) ([]storage.Tournament, error)
	ScheduleAnnouncement(ctx context.Context, a storage.Announcement) (int64, error)
}

type Ledger interface {
	RecordResult(ctx context.Context, r standings.Result) (storage.MatchResult, error)
	Rank(ctx context.Context, guildID string, limit int) ([]storage.Team, error)
	Team(ctx context.Context, guildID, name string) (storage.Team, error)
	History(ctx context.Context, guildID string, limit int) ([]storage.MatchResult, error)
}

type Reminders interface {
	ArmMatch(m match.Match) []string
	CancelMatch(matchID int64) int
}

type Broadcaster interface {
	NewJob(name string, recipients []string, msg transport.Message, opt broadcast.Options) (string, error)
	Run(ctx context.Context, name string, recipients []string, msg transport.Message, opt broadcast.Options) broadcast.Result
}

type Notifier interface {
	Notify(ctx context.Context, n notifier.Notice) error
}

type Deps struct {
	Store     Store
	Ledger    Ledger
	Registry  *match.Registry
	Reminders Reminders
	Broadcast Broadcaster
	Notifier  Notifier
	Gateway   transport.Gateway
	Directory transport.Directory
	Clock     match.Clock
	// Location renders and resolves wall-clock input.
	Location *time.Location
	Log      logx.Logger
}

type Config struct {
	// Timeout bounds one command handler.
	Timeout       time.Duration
	DefaultLocale string
	Workers       int
	QueueSize     int
}

// Command binds a slash command definition to its handler.
type Command struct {
	Spec   transport.CommandSpec
	Admin  bool
	Handle HandlerFunc
}

type Router struct {
	d   Deps
	cfg Config
	log logx.Logger

	cmds  map[string]Command
	chain map[string]HandlerFunc
	order []string

	runMu   sync.Mutex
	running bool
	sup     *rtsup.Supervisor
}

func New(cfg Config, d Deps) *Router {
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Clock == nil {
		d.Clock = match.SystemClock{Loc: d.Location}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
		if cfg.Workers < 2 {
			cfg.Workers = 2
		}
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	r := &Router{d: d, cfg: cfg, log: d.Log.With(logx.String("comp", "commands"))}
	r.register(r.registry())
	return r
}

func (r *Router) register(cmds []Command) {
	r.cmds = make(map[string]Command, len(cmds))
	r.chain = make(map[string]HandlerFunc, len(cmds))
	r.order = r.order[:0]
	for _, c := range cmds {
		if c.Spec.Name == "" || c.Handle == nil {
			continue
		}
		r.cmds[c.Spec.Name] = c
		r.order = append(r.order, c.Spec.Name)
		r.chain[c.Spec.Name] = Chain(c.Handle,
			MWPanicRecover(),
			MWRequestLog(),
			MWTimeout(r.cfg.Timeout),
			MWAudit(r.d.Store),
			MWGuard(c.Admin),
		)
	}
}

// Specs lists the command definitions in registration order.
func (r *Router) Specs() []transport.CommandSpec {
	out := make([]transport.CommandSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.cmds[name].Spec)
	}
	return out
}

// NewFeed returns a channel sized for the dispatch queue.
func (r *Router) NewFeed() chan transport.Update {
	return make(chan transport.Update, r.cfg.QueueSize)
}

// Supervisor returns the dispatch supervisor (nil if not running).
func (r *Router) Supervisor() *rtsup.Supervisor {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if !r.running {
		return nil
	}
	return r.sup
}

// DispatchLoop consumes updates with a bounded worker pool until ctx ends or
// updates is closed.
func (r *Router) DispatchLoop(ctx context.Context, updates <-chan transport.Update) error {
	sup := rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(r.log),
		rtsup.WithCancelOnError(false),
	)
	r.runMu.Lock()
	r.sup, r.running = sup, true
	r.runMu.Unlock()
	defer func() {
		r.runMu.Lock()
		r.running = false
		r.runMu.Unlock()
	}()

	r.log.Info("command dispatcher started", logx.Int("workers", r.cfg.Workers))
	for i := 0; i < r.cfg.Workers; i++ {
		idx := i
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case up, ok := <-updates:
					if !ok {
						return nil
					}
					r.dispatch(c, up)
				}
			}
		})
	}
	if err := sup.Wait(ctx); ctx.Err() == nil {
		return err
	}
	// Let in-flight commands finish their reply.
	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sup.Wait(waitCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func (r *Router) dispatch(ctx context.Context, up transport.Update) {
	switch {
	case up.Interaction != nil:
		r.HandleInteraction(ctx, *up.Interaction)
	case up.Event != nil:
		r.HandleEvent(ctx, *up.Event)
	}
}

// HandleInteraction runs one command and turns refusals and failures into an
// ephemeral reply.
func (r *Router) HandleInteraction(ctx context.Context, in transport.Interaction) {
	h, ok := r.chain[in.Command]
	if !ok {
		r.log.Warn("unknown command", logx.String("cmd", in.Command))
		return
	}
	settings, err := r.d.Store.GuildSettings(ctx, in.GuildID)
	if err != nil {
		r.log.Warn("load guild settings failed", logx.String("guild_id", in.GuildID), logx.Err(err))
		settings = storage.GuildSettings{GuildID: in.GuildID, Language: storage.DefaultLanguage}
	}
	req := &Request{
		In:       in,
		Lang:     locale.Resolve(in.Locale, storedLanguage(settings), r.cfg.DefaultLocale),
		Settings: settings,
		Logger:   r.log.With(logx.String("cmd", in.Command), logx.String("interaction_id", in.ID)),
	}

	err = h(ctx, req)
	if err == nil {
		return
	}
	var re *replyError
	text := req.T(locale.KeyInternalError)
	if errors.As(err, &re) {
		text = req.T(re.key, re.args...)
	}
	// The handler context may be spent; the refusal still needs to go out.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if rerr := req.Reply(rctx, transport.Text(text), true); rerr != nil {
		req.Logger.Warn("error reply failed", logx.Err(rerr))
	}
}

func (r *Router) now() time.Time {
	return r.d.Clock.Now().In(r.d.Location)
}

// storedLanguage drops a guild language the bot has no strings for, so the
// configured default applies instead.
func storedLanguage(gs storage.GuildSettings) string {
	if locale.Valid(gs.Language) {
		return gs.Language
	}
	return ""
}
