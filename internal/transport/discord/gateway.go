package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"

	"xsportbot/internal/transport"
)

const textLimit = 2000

// Send delivers msg to a channel or, for a user destination, to that user's DM channel.
// Long text is split; the embed rides on the first chunk.
func (a *Adapter) Send(ctx context.Context, to transport.Destination, msg transport.Message) error {
	channelID := to.ChannelID
	if to.IsDM() {
		ch, err := a.s.UserChannelCreate(to.UserID, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("open dm %s: %w", to.UserID, classifyError(err))
		}
		channelID = ch.ID
	}
	if channelID == "" {
		return fmt.Errorf("send: empty destination: %w", transport.ErrNotFound)
	}

	chunks := splitText(msg.Text, textLimit)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		data := &discordgo.MessageSend{Content: chunk}
		if i == 0 && msg.Embed != nil {
			data.Embeds = []*discordgo.MessageEmbed{toEmbed(*msg.Embed)}
		}
		if data.Content == "" && len(data.Embeds) == 0 {
			continue
		}
		if _, err := a.s.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("send %s: %w", to, classifyError(err))
		}
	}
	return nil
}

// SendChannelText satisfies the log sink.
func (a *Adapter) SendChannelText(ctx context.Context, channelID, text string) error {
	return a.Send(ctx, transport.Channel(channelID), transport.Text(text))
}

// classifyError maps permanent REST failures onto the transport sentinels.
func classifyError(err error) error {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return err
	}
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeCannotSendMessagesToThisUser,
			discordgo.ErrCodeMissingAccess,
			discordgo.ErrCodeMissingPermissions:
			return fmt.Errorf("%w: %v", transport.ErrForbidden, err)
		case discordgo.ErrCodeUnknownChannel,
			discordgo.ErrCodeUnknownGuild,
			discordgo.ErrCodeUnknownMember,
			discordgo.ErrCodeUnknownUser,
			discordgo.ErrCodeUnknownRole:
			return fmt.Errorf("%w: %v", transport.ErrNotFound, err)
		}
	}
	if rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", transport.ErrForbidden, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", transport.ErrNotFound, err)
		}
	}
	return err
}

// splitText cuts s into chunks of at most limit runes, preferring newline boundaries.
func splitText(s string, limit int) []string {
	if limit <= 0 {
		limit = textLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				// Avoid tiny chunks.
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}
		chunk := strings.TrimRight(string(rs[start:end]), "\n")
		out = append(out, chunk)
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
