package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertMatchResult appends a result row. Pass a *sql.Tx to join a transaction, or nil.
func (s *Store) InsertMatchResult(ctx context.Context, e Executor, r MatchResult) (int64, error) {
	recorded := r.RecordedAt
	if recorded.IsZero() {
		recorded = s.now()
	}
	res, err := s.exec(e).ExecContext(ctx,
		`INSERT INTO match_results(match_id, guild_id, team1_name, team2_name, team1_score, team2_score, winner, match_date, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		r.MatchID, r.GuildID, r.Team1, r.Team2, r.Score1, r.Score2, r.Winner, formatTime(r.MatchAt), formatTime(recorded),
	)
	if err != nil {
		return 0, fmt.Errorf("insert match result: %w", err)
	}
	return res.LastInsertId()
}

// AddTeamRecord creates the team on first reference and adds d to its counters in one statement.
func (s *Store) AddTeamRecord(ctx context.Context, e Executor, d TeamDelta) error {
	_, err := s.exec(e).ExecContext(ctx,
		`INSERT INTO teams(guild_id, team_name, points, wins, losses, draws, created_at) VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(guild_id, team_name) DO UPDATE SET
		   points = points + excluded.points,
		   wins   = wins   + excluded.wins,
		   losses = losses + excluded.losses,
		   draws  = draws  + excluded.draws`,
		d.GuildID, d.Name, d.Points, d.Wins, d.Losses, d.Draws, formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("update team %q: %w", d.Name, err)
	}
	return nil
}

const teamColumns = `id, guild_id, team_name, points, wins, losses, draws, created_at`

// RankTeams orders a guild's teams by points, then wins. Remaining ties keep insertion order.
func (s *Store) RankTeams(ctx context.Context, guildID string, limit int) ([]Team, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE guild_id = ?
		 ORDER BY points DESC, wins DESC, id ASC LIMIT ?`,
		guildID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("rank teams: %w", err)
	}
	defer rows.Close()

	var out []Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) Team(ctx context.Context, guildID, name string) (Team, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE guild_id = ? AND team_name = ?`,
		guildID, name,
	)
	t, err := scanTeam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Team{}, ErrNotFound
	}
	if err != nil {
		return Team{}, fmt.Errorf("load team: %w", err)
	}
	return t, nil
}

// RecentMatchResults returns a guild's results, newest first.
func (s *Store) RecentMatchResults(ctx context.Context, guildID string, limit int) ([]MatchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, match_id, guild_id, team1_name, team2_name, team1_score, team2_score, winner, match_date, created_at
		 FROM match_results WHERE guild_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		guildID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent match results: %w", err)
	}
	defer rows.Close()

	var out []MatchResult
	for rows.Next() {
		var (
			r                 MatchResult
			matchAt, recorded string
		)
		if err := rows.Scan(&r.ID, &r.MatchID, &r.GuildID, &r.Team1, &r.Team2, &r.Score1, &r.Score2, &r.Winner, &matchAt, &recorded); err != nil {
			return nil, err
		}
		r.MatchAt = parseTime(matchAt)
		r.RecordedAt = parseTime(recorded)
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeam(r rowScanner) (Team, error) {
	var (
		t       Team
		created string
	)
	if err := r.Scan(&t.ID, &t.GuildID, &t.Name, &t.Points, &t.Wins, &t.Losses, &t.Draws, &created); err != nil {
		return Team{}, err
	}
	t.CreatedAt = parseTime(created)
	return t, nil
}
