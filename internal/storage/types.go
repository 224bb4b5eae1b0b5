package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("storage: not found")
	ErrClosed   = errors.New("storage: closed")
)

// Config configures the sqlite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means sqlite default
}

// Executor is satisfied by *sql.DB and *sql.Tx so writes can join a transaction.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DrawMarker is stored as the winner of a drawn match.
const DrawMarker = "draw"

type GuildSettings struct {
	GuildID         string
	LogChannelID    string
	AllowedChannels []string
	Language        string
}

type Team struct {
	ID        int64
	GuildID   string
	Name      string
	Points    int
	Wins      int
	Losses    int
	Draws     int
	CreatedAt time.Time
}

// TeamDelta is an increment applied to one team's record.
type TeamDelta struct {
	GuildID string
	Name    string
	Points  int
	Wins    int
	Losses  int
	Draws   int
}

type MatchResult struct {
	ID         int64
	MatchID    int64
	GuildID    string
	Team1      string
	Team2      string
	Score1     int
	Score2     int
	Winner     string
	MatchAt    time.Time
	RecordedAt time.Time
}

const (
	TournamentActive = "active"
	TournamentClosed = "closed"
)

type Tournament struct {
	ID        int64
	GuildID   string
	Name      string
	Status    string
	StartDate time.Time
	EndDate   time.Time
	CreatedBy string
	CreatedAt time.Time
}

type Announcement struct {
	ID            int64
	GuildID       string
	ChannelID     string
	Message       string
	ScheduleAt    time.Time
	Sent          bool
	Failed        bool
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedBy     string
	CreatedAt     time.Time
	SentAt        time.Time
}

type CommandStat struct {
	Name  string
	Count int
}

type EventLog struct {
	ID          int64
	GuildID     string
	Type        string
	Description string
	At          time.Time
}
