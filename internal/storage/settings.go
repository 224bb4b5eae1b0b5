package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const DefaultLanguage = "es"

// SaveGuildSettings replaces the stored settings of a guild.
func (s *Store) SaveGuildSettings(ctx context.Context, gs GuildSettings) error {
	lang := strings.TrimSpace(gs.Language)
	if lang == "" {
		lang = DefaultLanguage
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bot_settings(guild_id, log_channel_id, allowed_channels, language) VALUES(?,?,?,?)
		 ON CONFLICT(guild_id) DO UPDATE SET
		   log_channel_id = excluded.log_channel_id,
		   allowed_channels = excluded.allowed_channels,
		   language = excluded.language`,
		gs.GuildID, nullStr(gs.LogChannelID), nullStr(strings.Join(gs.AllowedChannels, " ")), lang,
	)
	if err != nil {
		return fmt.Errorf("save guild settings: %w", err)
	}
	return nil
}

// GuildSettings loads a guild's settings. Unknown guilds get defaults, not ErrNotFound.
func (s *Store) GuildSettings(ctx context.Context, guildID string) (GuildSettings, error) {
	var (
		logCh, allowed sql.NullString
		lang           string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT log_channel_id, allowed_channels, language FROM bot_settings WHERE guild_id = ?`,
		guildID,
	).Scan(&logCh, &allowed, &lang)
	if errors.Is(err, sql.ErrNoRows) {
		return GuildSettings{GuildID: guildID, Language: DefaultLanguage}, nil
	}
	if err != nil {
		return GuildSettings{}, fmt.Errorf("load guild settings: %w", err)
	}
	return GuildSettings{
		GuildID:         guildID,
		LogChannelID:    logCh.String,
		AllowedChannels: strings.Fields(allowed.String),
		Language:        lang,
	}, nil
}

// AllowsChannel reports whether commands may run in channelID. An empty allow-list allows all.
func (gs GuildSettings) AllowsChannel(channelID string) bool {
	if len(gs.AllowedChannels) == 0 {
		return true
	}
	for _, id := range gs.AllowedChannels {
		if id == channelID {
			return true
		}
	}
	return false
}
