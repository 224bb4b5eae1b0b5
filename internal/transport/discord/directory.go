package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"xsportbot/internal/transport"
)

const membersPage = 1000

// RoleName prefers the gateway cache and falls back to REST.
func (a *Adapter) RoleName(ctx context.Context, guildID, roleID string) (string, error) {
	if r, err := a.s.State.Role(guildID, roleID); err == nil && r != nil {
		return r.Name, nil
	}
	roles, err := a.s.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("guild roles %s: %w", guildID, classifyError(err))
	}
	for _, r := range roles {
		if r.ID == roleID {
			return r.Name, nil
		}
	}
	return "", fmt.Errorf("role %s: %w", roleID, transport.ErrNotFound)
}

// RoleMembers pages through the guild member list. Bots are excluded.
func (a *Adapter) RoleMembers(ctx context.Context, guildID, roleID string) ([]string, error) {
	var (
		ids   []string
		after string
	)
	for {
		page, err := a.s.GuildMembers(guildID, after, membersPage, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("guild members %s: %w", guildID, classifyError(err))
		}
		ids = append(ids, membersWithRole(page, roleID)...)
		if len(page) < membersPage {
			return ids, nil
		}
		last := page[len(page)-1]
		if last.User == nil {
			return ids, nil
		}
		after = last.User.ID
	}
}

func (a *Adapter) MemberDisplayName(ctx context.Context, guildID, userID string) (string, error) {
	if m, err := a.s.State.Member(guildID, userID); err == nil && m != nil {
		return displayName(m), nil
	}
	m, err := a.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("guild member %s: %w", userID, classifyError(err))
	}
	return displayName(m), nil
}

// GuildStats sums the cached guilds. Users is the sum of member counts, so a
// person in two guilds counts twice.
func (a *Adapter) GuildStats(context.Context) (transport.GuildStats, error) {
	a.s.State.RLock()
	defer a.s.State.RUnlock()
	st := transport.GuildStats{Guilds: len(a.s.State.Guilds)}
	for _, g := range a.s.State.Guilds {
		st.Users += g.MemberCount
	}
	return st, nil
}

func membersWithRole(members []*discordgo.Member, roleID string) []string {
	var ids []string
	for _, m := range members {
		if m == nil || m.User == nil || m.User.Bot {
			continue
		}
		for _, r := range m.Roles {
			if r == roleID {
				ids = append(ids, m.User.ID)
				break
			}
		}
	}
	return ids
}

func displayName(m *discordgo.Member) string {
	if m == nil {
		return ""
	}
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}
