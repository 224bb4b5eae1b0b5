package storage

import (
	"context"
	"fmt"
)

func (s *Store) LogCommand(ctx context.Context, guildID, userID, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO command_logs(command_name, user_id, guild_id, timestamp) VALUES(?,?,?,?)`,
		name, userID, nullStr(guildID), formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("log command: %w", err)
	}
	return nil
}

func (s *Store) LogEvent(ctx context.Context, guildID, eventType, description string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_logs(event_type, guild_id, description, timestamp) VALUES(?,?,?,?)`,
		eventType, nullStr(guildID), nullStr(description), formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

func (s *Store) LogMemberActivity(ctx context.Context, guildID, userID, activity string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO member_activity(guild_id, user_id, activity_type, timestamp) VALUES(?,?,?,?)`,
		guildID, userID, activity, formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("log member activity: %w", err)
	}
	return nil
}

// CommandStats returns the most used commands in a guild, busiest first.
func (s *Store) CommandStats(ctx context.Context, guildID string, limit int) ([]CommandStat, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT command_name, COUNT(*) AS n FROM command_logs
		 WHERE guild_id = ?
		 GROUP BY command_name
		 ORDER BY n DESC, command_name ASC
		 LIMIT ?`,
		guildID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("command stats: %w", err)
	}
	defer rows.Close()

	var out []CommandStat
	for rows.Next() {
		var c CommandStat
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecentEvents returns the newest audit events of a guild.
func (s *Store) RecentEvents(ctx context.Context, guildID string, limit int) ([]EventLog, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(guild_id,''), event_type, COALESCE(description,''), timestamp
		 FROM event_logs WHERE guild_id = ?
		 ORDER BY id DESC LIMIT ?`,
		guildID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var out []EventLog
	for rows.Next() {
		var (
			e  EventLog
			ts string
		)
		if err := rows.Scan(&e.ID, &e.GuildID, &e.Type, &e.Description, &ts); err != nil {
			return nil, err
		}
		e.At = parseTime(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}
