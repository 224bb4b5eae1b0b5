package logx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type Config struct {
	Level   string
	Console bool
	File    FileConfig
	Discord DiscordConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

// DiscordConfig controls the log-channel sink.
type DiscordConfig struct {
	Enabled    bool
	ChannelID  string
	MinLevel   string
	RatePerSec int
}

// ChannelSender posts plain text into a chat channel.
// The Discord adapter satisfies it; logx does not import transport code.
type ChannelSender interface {
	SendChannelText(ctx context.Context, channelID, text string) error
}

// Service owns the active sinks and can swap them at runtime.
type Service struct {
	mu  sync.Mutex
	cfg Config

	root atomic.Value // zerolog.Logger

	file *os.File

	sender   ChannelSender
	queue    chan string
	once     sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	dropped  atomic.Uint64
	limiter  *rate.Limiter
	minLevel zerolog.Level
	channel  string
}

// New creates the logging service, applies the initial config immediately,
// and returns both the Service and a root Logger.
func New(cfg Config, sender ChannelSender) (*Service, Logger) {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = consoleTimeFormat

	s := &Service{
		sender: sender,
		queue:  make(chan string, 256),
	}
	s.root.Store(zerolog.New(newConsoleWriter(Stdout())).Level(parseLevel(cfg.Level, zerolog.InfoLevel)).With().Timestamp().Logger())
	s.Apply(cfg)
	return s, Logger{svc: s}
}

func (s *Service) current() zerolog.Logger {
	zl, ok := s.root.Load().(zerolog.Logger)
	if !ok {
		return zerolog.Nop()
	}
	return zl
}

func (s *Service) Logger() Logger { return Logger{svc: s} }

// SetSender attaches the channel sender once the chat session exists.
func (s *Service) SetSender(sender ChannelSender) {
	s.mu.Lock()
	s.sender = sender
	s.mu.Unlock()
}

// Dropped reports how many remote log lines were discarded because the queue was full.
func (s *Service) Dropped() uint64 { return s.dropped.Load() }

func (s *Service) Close() error {
	s.mu.Lock()
	f := s.file
	s.file = nil
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.wg.Wait()
	}
	if f != nil {
		_ = f.Close()
	}
	return nil
}

// Apply swaps logger outputs and levels at runtime.
// It is safe to call concurrently.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = cfg
	s.minLevel = parseLevel(cfg.Discord.MinLevel, zerolog.WarnLevel)
	rps := max(1, cfg.Discord.RatePerSec)
	s.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	s.channel = strings.TrimSpace(cfg.Discord.ChannelID)

	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}

	writers := make([]io.Writer, 0, 3)
	if cfg.Console {
		writers = append(writers, newConsoleWriter(Stdout()))
	}
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = "./xsportbot.log"
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logx: failed opening log file %q: %v\n", path, err)
		} else {
			s.file = f
			writers = append(writers, zerolog.SyncWriter(f))
		}
	}
	if cfg.Discord.Enabled {
		s.once.Do(func() {
			ctx, cancel := context.WithCancel(context.Background())
			s.cancel = cancel
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.remoteWorker(ctx)
			}()
		})
		writers = append(writers, &channelWriter{svc: s})
		if s.channel == "" {
			fmt.Fprintln(os.Stderr, "logx: discord logging enabled but logging.discord.channel_id is empty")
		}
	}
	if len(writers) == 0 {
		writers = append(writers, newConsoleWriter(Stdout()))
	}

	lvl := parseLevel(cfg.Level, zerolog.InfoLevel)
	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(lvl).With().Timestamp().Logger()
	s.root.Store(zl)
}

func newConsoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
}

func (s *Service) remoteWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.queue:
			s.mu.Lock()
			sender, ch := s.sender, s.channel
			s.mu.Unlock()
			if sender == nil || ch == "" {
				continue
			}
			_ = sender.SendChannelText(ctx, ch, msg)
		}
	}
}

func (s *Service) enqueueRemote(msg string) {
	// Never block core logging.
	select {
	case s.queue <- msg:
	default:
		s.dropped.Add(1)
	}
}

// Stdout returns the configured stdout sink.
func Stdout() io.Writer { return os.Stdout }

// Stderr returns the configured stderr sink.
func Stderr() io.Writer { return os.Stderr }
