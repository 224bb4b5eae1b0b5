package discord

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"xsportbot/internal/transport"
)

const adminPerms = discordgo.PermissionAdministrator |
	discordgo.PermissionManageServer |
	discordgo.PermissionManageChannels

func isAdmin(perms int64) bool { return perms&adminPerms != 0 }

var optionTypes = map[transport.OptionType]discordgo.ApplicationCommandOptionType{
	transport.OptionString:  discordgo.ApplicationCommandOptionString,
	transport.OptionInteger: discordgo.ApplicationCommandOptionInteger,
	transport.OptionChannel: discordgo.ApplicationCommandOptionChannel,
	transport.OptionUser:    discordgo.ApplicationCommandOptionUser,
	transport.OptionRole:    discordgo.ApplicationCommandOptionRole,
}

func toCommand(c transport.CommandSpec) *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{Name: c.Name, Description: c.Description}
	for _, o := range c.Options {
		opt := &discordgo.ApplicationCommandOption{
			Type:        optionTypes[o.Type],
			Name:        o.Name,
			Description: o.Description,
			Required:    o.Required,
		}
		if o.Type == transport.OptionInteger && o.Max > 0 {
			lo := float64(o.Min)
			opt.MinValue = &lo
			opt.MaxValue = float64(o.Max)
		}
		cmd.Options = append(cmd.Options, opt)
	}
	return cmd
}

func toEmbed(e transport.Embed) *discordgo.MessageEmbed {
	me := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Footer != "" {
		me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	if !e.Timestamp.IsZero() {
		me.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	for _, f := range e.Fields {
		me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return me
}

func toEmbeds(msg transport.Message) []*discordgo.MessageEmbed {
	if msg.Embed == nil {
		return nil
	}
	return []*discordgo.MessageEmbed{toEmbed(*msg.Embed)}
}

func toInteraction(i *discordgo.Interaction) transport.Interaction {
	in := transport.Interaction{
		ID:        i.ID,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Locale:    string(i.Locale),
		Options:   map[string]string{},
	}
	if in.Locale == "" && i.GuildLocale != nil {
		in.Locale = string(*i.GuildLocale)
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		in.UserID = i.Member.User.ID
		in.UserName = displayName(i.Member)
		in.Admin = isAdmin(i.Member.Permissions)
	case i.User != nil:
		in.UserID = i.User.ID
		in.UserName = i.User.Username
	}
	if i.Type != discordgo.InteractionApplicationCommand {
		return in
	}
	data := i.ApplicationCommandData()
	in.Command = data.Name
	for _, o := range data.Options {
		if o == nil {
			continue
		}
		in.Options[o.Name] = optionValue(o)
	}
	return in
}

func optionValue(o *discordgo.ApplicationCommandInteractionDataOption) string {
	switch o.Type {
	case discordgo.ApplicationCommandOptionInteger:
		return strconv.FormatInt(o.IntValue(), 10)
	case discordgo.ApplicationCommandOptionString:
		return o.StringValue()
	default:
		// Channel, user and role options carry the snowflake as a string.
		return fmt.Sprint(o.Value)
	}
}

func ephemeralFlag(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

type responder struct {
	s *discordgo.Session
	i *discordgo.Interaction
}

func (r *responder) Defer(ctx context.Context, ephemeral bool) error {
	err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: ephemeralFlag(ephemeral)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("defer interaction: %w", classifyError(err))
	}
	return nil
}

func (r *responder) Respond(ctx context.Context, msg transport.Message, ephemeral bool) error {
	err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: truncate(msg.Text, textLimit),
			Embeds:  toEmbeds(msg),
			Flags:   ephemeralFlag(ephemeral),
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("respond interaction: %w", classifyError(err))
	}
	return nil
}

func (r *responder) FollowUp(ctx context.Context, msg transport.Message, ephemeral bool) error {
	_, err := r.s.FollowupMessageCreate(r.i, true, &discordgo.WebhookParams{
		Content: truncate(msg.Text, textLimit),
		Embeds:  toEmbeds(msg),
		Flags:   ephemeralFlag(ephemeral),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("follow up interaction: %w", classifyError(err))
	}
	return nil
}

func truncate(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit-1]) + "…"
}
