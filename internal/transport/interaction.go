package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

type OptionType int

const (
	OptionString OptionType = iota
	OptionInteger
	OptionChannel
	OptionUser
	OptionRole
)

type OptionSpec struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
	// Min and Max bound integer options when Max > 0.
	Min int
	Max int
}

// CommandSpec is what the adapter registers with the platform.
type CommandSpec struct {
	Name        string
	Description string
	Options     []OptionSpec
}

// Responder answers a single interaction.
type Responder interface {
	// Defer acknowledges now and promises a FollowUp.
	Defer(ctx context.Context, ephemeral bool) error
	Respond(ctx context.Context, msg Message, ephemeral bool) error
	FollowUp(ctx context.Context, msg Message, ephemeral bool) error
}

// Interaction is an invoked command. Option values are kept in string form;
// channel, user and role options hold the bare id.
type Interaction struct {
	ID        string
	Command   string
	GuildID   string
	ChannelID string
	UserID    string
	UserName  string
	Locale    string
	Admin     bool
	Options   map[string]string
	Responder Responder
}

func (in Interaction) Has(name string) bool {
	_, ok := in.Options[name]
	return ok
}

func (in Interaction) String(name string) string {
	return strings.TrimSpace(in.Options[name])
}

// Int parses an integer option. Missing options are an error.
func (in Interaction) Int(name string) (int, error) {
	v, ok := in.Options[name]
	if !ok {
		return 0, fmt.Errorf("option %s missing", name)
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("option %s: %w", name, err)
	}
	return n, nil
}

type EventKind string

const (
	EventGuildJoin   EventKind = "guild_join"
	EventGuildLeave  EventKind = "guild_leave"
	EventMemberJoin  EventKind = "member_join"
	EventMemberLeave EventKind = "member_leave"
	EventMessage     EventKind = "message"
)

// Event is a non-command platform signal.
type Event struct {
	Kind      EventKind
	GuildID   string
	GuildName string
	UserID    string
	UserName  string
}

// Handler consumes the inbound feed of an adapter.
type Handler interface {
	HandleInteraction(ctx context.Context, in Interaction)
	HandleEvent(ctx context.Context, ev Event)
}

// Update is one item of an adapter's inbound feed. Exactly one field is set.
type Update struct {
	Interaction *Interaction
	Event       *Event
}
