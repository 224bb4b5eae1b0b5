package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"xsportbot/internal/eventbus"
	rtsup "xsportbot/internal/runtime/supervisor"
	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages

type Config struct {
	Token string
	// GuildID registers commands on a single guild. Empty registers globally.
	GuildID  string
	Activity string
	// RequestTimeout bounds every REST call made outside an explicit context.
	RequestTimeout time.Duration
}

type Adapter struct {
	cfg Config
	log logx.Logger
	bus eventbus.Bus

	s   *discordgo.Session
	out atomic.Value // stores (chan<- transport.Update)

	runMu   sync.Mutex
	running bool
	sup     *rtsup.Supervisor

	cmdMu    sync.Mutex
	commands []transport.CommandSpec

	// guilds the session already knew about at READY. GUILD_CREATE for these is a
	// reconnect backfill, not a join.
	knownMu sync.Mutex
	known   map[string]bool

	droppedUpdates uint64
}

func New(cfg Config, log logx.Logger, bus eventbus.Bus) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("discord token is empty")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = intents
	s.StateEnabled = true
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.Activity) == "" {
		cfg.Activity = "xSportBS Server"
	}
	a := &Adapter{cfg: cfg, log: log, bus: bus, s: s, known: map[string]bool{}}
	var nilOut chan<- transport.Update
	a.out.Store(nilOut)
	a.registerHandlers()
	return a, nil
}

// Supervisor returns the adapter's internal supervisor (nil if not started).
func (a *Adapter) Supervisor() *rtsup.Supervisor {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.sup
}

// SetCommands replaces the command set registered on the next Start.
func (a *Adapter) SetCommands(cmds []transport.CommandSpec) {
	a.cmdMu.Lock()
	a.commands = append([]transport.CommandSpec(nil), cmds...)
	a.cmdMu.Unlock()
}

func (a *Adapter) registerHandlers() {
	a.s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.knownMu.Lock()
		for _, g := range r.Guilds {
			a.known[g.ID] = true
		}
		a.knownMu.Unlock()
		if err := s.UpdateWatchStatus(0, a.cfg.Activity); err != nil {
			a.log.Warn("update presence failed", logx.Err(err))
		}
		a.log.Info("gateway ready", logx.String("user", r.User.Username), logx.Int("guilds", len(r.Guilds)))
		a.publish(eventbus.GatewayReady, map[string]any{"guilds": len(r.Guilds)})
	})

	a.s.AddHandler(func(_ *discordgo.Session, d *discordgo.Disconnect) {
		a.log.Warn("gateway disconnected")
		a.publish(eventbus.GatewayDisconnected, nil)
	})

	a.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		in := toInteraction(ic.Interaction)
		in.Responder = &responder{s: s, i: ic.Interaction}
		a.sendUpdate(transport.Update{Interaction: &in})
	})

	a.s.AddHandler(func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		if g.Guild == nil || g.Unavailable {
			return
		}
		a.knownMu.Lock()
		seen := a.known[g.ID]
		a.known[g.ID] = true
		a.knownMu.Unlock()
		if seen {
			return
		}
		a.sendUpdate(transport.Update{Event: &transport.Event{
			Kind: transport.EventGuildJoin, GuildID: g.ID, GuildName: g.Name,
		}})
	})

	a.s.AddHandler(func(_ *discordgo.Session, g *discordgo.GuildDelete) {
		// Unavailable means an outage, not a removal.
		if g.Guild == nil || g.Unavailable {
			return
		}
		a.knownMu.Lock()
		delete(a.known, g.ID)
		a.knownMu.Unlock()
		name := g.Name
		if name == "" && g.BeforeDelete != nil {
			name = g.BeforeDelete.Name
		}
		a.sendUpdate(transport.Update{Event: &transport.Event{
			Kind: transport.EventGuildLeave, GuildID: g.ID, GuildName: name,
		}})
	})

	a.s.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if m.Member == nil || m.User == nil {
			return
		}
		a.sendUpdate(transport.Update{Event: &transport.Event{
			Kind: transport.EventMemberJoin, GuildID: m.GuildID, UserID: m.User.ID, UserName: displayName(m.Member),
		}})
	})

	a.s.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
		if m.Member == nil || m.User == nil {
			return
		}
		a.sendUpdate(transport.Update{Event: &transport.Event{
			Kind: transport.EventMemberLeave, GuildID: m.GuildID, UserID: m.User.ID, UserName: displayName(m.Member),
		}})
	})

	a.s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot || m.GuildID == "" {
			return
		}
		a.sendUpdate(transport.Update{Event: &transport.Event{
			Kind: transport.EventMessage, GuildID: m.GuildID, UserID: m.Author.ID, UserName: m.Author.Username,
		}})
	})
}

func (a *Adapter) sendUpdate(up transport.Update) {
	out, _ := a.out.Load().(chan<- transport.Update)
	if out == nil {
		return
	}
	select {
	case out <- up:
	default:
		atomic.AddUint64(&a.droppedUpdates, 1)
	}
}

func (a *Adapter) publish(topic string, data map[string]any) {
	if a.bus == nil {
		return
	}
	a.bus.Publish(eventbus.Event{Type: topic, Time: time.Now(), Data: data})
}

// Start opens the gateway, registers commands and begins feeding out.
func (a *Adapter) Start(ctx context.Context, out chan<- transport.Update) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.out.Store(out)
	a.sup = rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "discord.adapter"))),
		rtsup.WithCancelOnError(false),
	)
	sup := a.sup
	a.runMu.Unlock()

	sup.Go("updates.drop_report", func(c context.Context) error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		report := func() {
			if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
				a.log.Warn("incoming updates dropped (channel full)", logx.Uint64("count", n), logx.Int("chan_cap", cap(out)))
			}
		}
		for {
			select {
			case <-c.Done():
				report()
				return nil
			case <-ticker.C:
				report()
			}
		}
	})

	if err := a.s.Open(); err != nil {
		a.abortStart(sup)
		return fmt.Errorf("open discord gateway: %w", err)
	}
	if err := a.syncCommands(ctx); err != nil {
		// The session is usable without fresh commands; stale ones still route.
		a.log.Error("register commands failed", logx.Err(err))
	}
	return nil
}

func (a *Adapter) abortStart(sup *rtsup.Supervisor) {
	a.runMu.Lock()
	a.running = false
	a.sup = nil
	var nilOut chan<- transport.Update
	a.out.Store(nilOut)
	a.runMu.Unlock()
	sup.Cancel()
}

func (a *Adapter) syncCommands(ctx context.Context) error {
	a.cmdMu.Lock()
	specs := append([]transport.CommandSpec(nil), a.commands...)
	a.cmdMu.Unlock()
	if len(specs) == 0 || a.s.State == nil || a.s.State.User == nil {
		return nil
	}
	cmds := make([]*discordgo.ApplicationCommand, 0, len(specs))
	for _, c := range specs {
		cmds = append(cmds, toCommand(c))
	}
	cctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()
	got, err := a.s.ApplicationCommandBulkOverwrite(a.s.State.User.ID, a.cfg.GuildID, cmds, discordgo.WithContext(cctx))
	if err != nil {
		return err
	}
	scope := "global"
	if a.cfg.GuildID != "" {
		scope = "guild:" + a.cfg.GuildID
	}
	a.log.Info("slash commands registered", logx.Int("count", len(got)), logx.String("scope", scope))
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	wasRunning := a.running
	a.running = false
	var nilOut chan<- transport.Update
	a.out.Store(nilOut)
	a.runMu.Unlock()

	if !wasRunning {
		a.log.Debug("discord stop called but not running")
		return nil
	}
	a.log.Info("stopping", logx.Uint64("dropped_updates_pending", atomic.LoadUint64(&a.droppedUpdates)))

	if sup != nil {
		sup.Cancel()
	}
	closeErr := a.s.Close()

	if sup != nil {
		grace := 2 * time.Second
		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem > 0 && rem < grace {
				grace = rem
			}
		}
		wctx, cancel := context.WithTimeout(ctx, grace)
		defer cancel()
		if err := sup.Wait(wctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("discord adapter stop", logx.Err(err))
		}
	}
	if closeErr != nil {
		return fmt.Errorf("close discord gateway: %w", closeErr)
	}
	return nil
}
