package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *Store) ScheduleAnnouncement(ctx context.Context, a Announcement) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_announcements(guild_id, channel_id, message, schedule_time, created_by, created_at)
		 VALUES(?,?,?,?,?,?)`,
		a.GuildID, a.ChannelID, a.Message, formatTime(a.ScheduleAt), a.CreatedBy, formatTime(s.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("schedule announcement: %w", err)
	}
	return res.LastInsertId()
}

const announcementColumns = `id, guild_id, channel_id, message, schedule_time, is_sent, failed, attempts,
	COALESCE(next_attempt_at,''), COALESCE(last_error,''), created_by, created_at, COALESCE(sent_at,'')`

// DueAnnouncements returns unsent, non-failed rows whose time has come and whose backoff expired.
func (s *Store) DueAnnouncements(ctx context.Context, now time.Time, limit int) ([]Announcement, error) {
	if limit <= 0 {
		limit = 50
	}
	ts := formatTime(now)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+announcementColumns+` FROM scheduled_announcements
		 WHERE is_sent = 0 AND failed = 0 AND schedule_time <= ?
		   AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
		 ORDER BY schedule_time ASC, id ASC LIMIT ?`,
		ts, ts, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("due announcements: %w", err)
	}
	defer rows.Close()

	var out []Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Announcement(ctx context.Context, id int64) (Announcement, error) {
	a, err := scanAnnouncement(s.db.QueryRowContext(ctx,
		`SELECT `+announcementColumns+` FROM scheduled_announcements WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Announcement{}, ErrNotFound
	}
	if err != nil {
		return Announcement{}, fmt.Errorf("load announcement: %w", err)
	}
	return a, nil
}

// MarkAnnouncementSent flips is_sent. Marking an already sent row again is harmless.
func (s *Store) MarkAnnouncementSent(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_announcements SET is_sent = 1, sent_at = COALESCE(sent_at, ?), last_error = NULL WHERE id = ?`,
		formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("mark announcement sent: %w", err)
	}
	return nil
}

// MarkAnnouncementRetry records a failed attempt and when the next one is allowed.
func (s *Store) MarkAnnouncementRetry(ctx context.Context, id int64, attempts int, next time.Time, lastErr string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_announcements SET attempts = ?, next_attempt_at = ?, last_error = ? WHERE id = ? AND is_sent = 0`,
		attempts, nullTime(next), nullStr(lastErr), id,
	)
	if err != nil {
		return fmt.Errorf("mark announcement retry: %w", err)
	}
	return nil
}

// MarkAnnouncementFailed parks a row permanently. It stays in the table for audit.
func (s *Store) MarkAnnouncementFailed(ctx context.Context, id int64, attempts int, lastErr string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_announcements SET failed = 1, attempts = ?, next_attempt_at = NULL, last_error = ? WHERE id = ? AND is_sent = 0`,
		attempts, nullStr(lastErr), id,
	)
	if err != nil {
		return fmt.Errorf("mark announcement failed: %w", err)
	}
	return nil
}

func scanAnnouncement(r rowScanner) (Announcement, error) {
	var (
		a                          Announcement
		sched, next, created, sent string
		sentFlag, failedFlag       int
	)
	if err := r.Scan(&a.ID, &a.GuildID, &a.ChannelID, &a.Message, &sched, &sentFlag, &failedFlag, &a.Attempts,
		&next, &a.LastError, &a.CreatedBy, &created, &sent); err != nil {
		return Announcement{}, err
	}
	a.ScheduleAt = parseTime(sched)
	a.Sent = sentFlag != 0
	a.Failed = failedFlag != 0
	a.NextAttemptAt = parseTime(next)
	a.CreatedAt = parseTime(created)
	a.SentAt = parseTime(sent)
	return a, nil
}
