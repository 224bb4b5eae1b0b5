package transport

import (
	"context"
	"strings"
)

type MentionKind int

const (
	MentionNone MentionKind = iota
	MentionUser
	MentionRole
)

// ParseMention recognizes <@id>, <@!id> and <@&id>. Anything else is MentionNone.
func ParseMention(token string) (MentionKind, string) {
	t := strings.TrimSpace(token)
	if !strings.HasPrefix(t, "<@") || !strings.HasSuffix(t, ">") {
		return MentionNone, ""
	}
	body := t[2 : len(t)-1]
	kind := MentionUser
	switch {
	case strings.HasPrefix(body, "&"):
		kind, body = MentionRole, body[1:]
	case strings.HasPrefix(body, "!"):
		body = body[1:]
	}
	if body == "" || strings.Trim(body, "0123456789") != "" {
		return MentionNone, ""
	}
	return kind, body
}

// Participant is a match side resolved for display and delivery.
type Participant struct {
	Label      string
	Recipients []string
}

// ResolveParticipant turns a participant token into a display label and the users
// to notify. A role yields all its members; a user yields itself; literal text
// yields no recipients. Lookup failures fall back to the raw token.
func ResolveParticipant(ctx context.Context, dir Directory, guildID, token string) Participant {
	kind, id := ParseMention(token)
	switch kind {
	case MentionRole:
		p := Participant{Label: token}
		if name, err := dir.RoleName(ctx, guildID, id); err == nil {
			p.Label = "@" + name
		}
		if members, err := dir.RoleMembers(ctx, guildID, id); err == nil {
			p.Recipients = members
		}
		return p
	case MentionUser:
		p := Participant{Label: token, Recipients: []string{id}}
		if name, err := dir.MemberDisplayName(ctx, guildID, id); err == nil {
			p.Label = "@" + name
		}
		return p
	default:
		return Participant{Label: token}
	}
}
