package storage

import (
	"context"
	"fmt"
	"strings"
)

func (s *Store) CreateTournament(ctx context.Context, t Tournament) (int64, error) {
	status := strings.TrimSpace(t.Status)
	if status == "" {
		status = TournamentActive
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tournaments(guild_id, tournament_name, status, start_date, end_date, created_by, created_at)
		 VALUES(?,?,?,?,?,?,?)`,
		t.GuildID, t.Name, status, formatTime(t.StartDate), formatTime(t.EndDate), t.CreatedBy, formatTime(s.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("create tournament: %w", err)
	}
	return res.LastInsertId()
}

// Tournaments lists a guild's tournaments with the given status, newest first.
func (s *Store) Tournaments(ctx context.Context, guildID, status string) ([]Tournament, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, guild_id, tournament_name, status, start_date, end_date, created_by, created_at
		 FROM tournaments WHERE guild_id = ? AND status = ?
		 ORDER BY created_at DESC, id DESC`,
		guildID, status,
	)
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	defer rows.Close()

	var out []Tournament
	for rows.Next() {
		var (
			t                   Tournament
			start, end, created string
		)
		if err := rows.Scan(&t.ID, &t.GuildID, &t.Name, &t.Status, &start, &end, &t.CreatedBy, &created); err != nil {
			return nil, err
		}
		t.StartDate = parseTime(start)
		t.EndDate = parseTime(end)
		t.CreatedAt = parseTime(created)
		out = append(out, t)
	}
	return out, rows.Err()
}
