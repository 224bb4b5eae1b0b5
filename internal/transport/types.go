package transport

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrForbidden means the platform refused delivery (DMs closed, missing permission).
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the guild, channel, role or user no longer resolves.
	ErrNotFound = errors.New("not found")
)

// Destination is a channel or a user (direct message). Exactly one is set.
type Destination struct {
	ChannelID string
	UserID    string
}

func Channel(id string) Destination { return Destination{ChannelID: id} }
func User(id string) Destination    { return Destination{UserID: id} }

func (d Destination) IsDM() bool { return d.UserID != "" }

func (d Destination) String() string {
	if d.IsDM() {
		return "user:" + d.UserID
	}
	return "channel:" + d.ChannelID
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title       string
	Description string
	Color       int
	Footer      string
	Fields      []EmbedField
	Timestamp   time.Time
}

// Message carries text, an embed, or both.
type Message struct {
	Text  string
	Embed *Embed
}

func Text(s string) Message { return Message{Text: s} }

// Gateway delivers messages. Implementations return ErrForbidden or ErrNotFound
// (wrapped) for permanent per-destination failures; anything else is transient.
type Gateway interface {
	Send(ctx context.Context, to Destination, msg Message) error
}

type GuildStats struct {
	Guilds int
	Users  int
}

// Directory resolves platform identifiers. Lookups return ErrNotFound when absent.
type Directory interface {
	RoleName(ctx context.Context, guildID, roleID string) (string, error)
	RoleMembers(ctx context.Context, guildID, roleID string) ([]string, error)
	MemberDisplayName(ctx context.Context, guildID, userID string) (string, error)
	GuildStats(ctx context.Context) (GuildStats, error)
}
