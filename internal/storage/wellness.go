package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

func (s *Store) SubmitCheckin(ctx context.Context, userID int64, mood, note string) (Checkin, error) {
	if _, ok := MoodLabels[mood]; !ok {
		return Checkin{}, fmt.Errorf("%w %q", ErrInvalidMood, mood)
	}
	q := s.sql.Insert("checkins").
		Columns("user_id", "mood", "note").
		Values(userID, mood, note).
		Suffix("RETURNING id, user_id, mood, note, recorded_at")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Checkin{}, fmt.Errorf("build checkin insert: %w", err)
	}

	var c Checkin
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&c.ID, &c.UserID, &c.Mood, &c.Note, &c.RecordedAt,
	); err != nil {
		return Checkin{}, fmt.Errorf("submit checkin: %w", err)
	}
	return c, nil
}

// TodaysCheckin returns the user's first check-in since UTC midnight.
func (s *Store) TodaysCheckin(ctx context.Context, userID int64, now time.Time) (Checkin, bool, error) {
	dayStart := now.UTC().Truncate(24 * time.Hour)
	q := s.sql.Select("id", "user_id", "mood", "note", "recorded_at").
		From("checkins").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"recorded_at": dayStart}).
		OrderBy("recorded_at ASC").
		Limit(1)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Checkin{}, false, fmt.Errorf("build todays checkin query: %w", err)
	}

	var c Checkin
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&c.ID, &c.UserID, &c.Mood, &c.Note, &c.RecordedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Checkin{}, false, nil
		}
		return Checkin{}, false, fmt.Errorf("get todays checkin: %w", err)
	}
	return c, true, nil
}

func (s *Store) CheckinHistory(ctx context.Context, userID int64, days int, now time.Time) ([]Checkin, error) {
	since := now.UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)
	q := s.sql.Select("id", "user_id", "mood", "note", "recorded_at").
		From("checkins").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"recorded_at": since}).
		OrderBy("recorded_at ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build checkin history query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	defer rows.Close()

	out := make([]Checkin, 0)
	for rows.Next() {
		var c Checkin
		if err := rows.Scan(&c.ID, &c.UserID, &c.Mood, &c.Note, &c.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan checkin row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkin rows: %w", err)
	}
	return out, nil
}

const goalColumns = "id, user_id, title, streak, last_done_at, archived, created_at"

func (s *Store) CreateGoal(ctx context.Context, userID int64, title string) (Goal, error) {
	q := s.sql.Insert("goals").
		Columns("user_id", "title").
		Values(userID, title).
		Suffix("RETURNING " + goalColumns)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Goal{}, fmt.Errorf("build create goal query: %w", err)
	}
	return s.scanGoalRow(s.db.QueryRowContext(ctx, sqlStr, args...))
}

func (s *Store) ActiveGoals(ctx context.Context, userID int64) ([]Goal, error) {
	q := s.sql.Select(goalColumns).
		From("goals").
		Where(sq.Eq{"user_id": userID, "archived": false}).
		OrderBy("created_at ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active goals query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := make([]Goal, 0)
	for rows.Next() {
		var g Goal
		var lastDone sql.NullTime
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Streak, &lastDone, &g.Archived, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan goal row: %w", err)
		}
		if lastDone.Valid {
			t := lastDone.Time
			g.LastDoneAt = &t
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goal rows: %w", err)
	}
	return out, nil
}

// CompleteGoal marks the goal done for today. Consecutive days extend
// the streak; a gap quietly restarts it at 1 instead of punishing the
// user. Completing twice in one day is a no-op.
func (s *Store) CompleteGoal(ctx context.Context, userID, goalID int64, now time.Time) (Goal, error) {
	g, err := s.goalByID(ctx, userID, goalID)
	if err != nil {
		return Goal{}, err
	}

	today := now.UTC().Truncate(24 * time.Hour)
	streak := 1
	if g.LastDoneAt != nil {
		lastDay := g.LastDoneAt.UTC().Truncate(24 * time.Hour)
		switch {
		case lastDay.Equal(today):
			return g, nil
		case lastDay.Equal(today.AddDate(0, 0, -1)):
			streak = g.Streak + 1
		}
	}

	q := s.sql.Update("goals").
		Set("streak", streak).
		Set("last_done_at", now.UTC()).
		Where(sq.Eq{"id": goalID, "user_id": userID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Goal{}, fmt.Errorf("build complete goal query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return Goal{}, fmt.Errorf("complete goal: %w", err)
	}
	return s.goalByID(ctx, userID, goalID)
}

func (s *Store) ArchiveGoal(ctx context.Context, userID, goalID int64) error {
	q := s.sql.Update("goals").
		Set("archived", true).
		Where(sq.Eq{"id": goalID, "user_id": userID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build archive goal query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("archive goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) goalByID(ctx context.Context, userID, goalID int64) (Goal, error) {
	q := s.sql.Select(goalColumns).
		From("goals").
		Where(sq.Eq{"id": goalID, "user_id": userID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Goal{}, fmt.Errorf("build goal query: %w", err)
	}
	return s.scanGoalRow(s.db.QueryRowContext(ctx, sqlStr, args...))
}

func (s *Store) scanGoalRow(row *sql.Row) (Goal, error) {
	var g Goal
	var lastDone sql.NullTime
	if err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Streak, &lastDone, &g.Archived, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Goal{}, ErrNotFound
		}
		return Goal{}, fmt.Errorf("scan goal: %w", err)
	}
	if lastDone.Valid {
		t := lastDone.Time
		g.LastDoneAt = &t
	}
	return g, nil
}

const cardColumns = "id, user_id, lane, title, position, created_at"

func (s *Store) ListCards(ctx context.Context, userID int64) ([]KanbanCard, error) {
	q := s.sql.Select(cardColumns).
		From("kanban_cards").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("lane ASC", "position ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list cards query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	out := make([]KanbanCard, 0)
	for rows.Next() {
		var c KanbanCard
		if err := rows.Scan(&c.ID, &c.UserID, &c.Lane, &c.Title, &c.Position, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan card row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card rows: %w", err)
	}
	return out, nil
}

func (s *Store) CreateCard(ctx context.Context, userID int64, lane, title string) (KanbanCard, error) {
	if !validLane(lane) {
		return KanbanCard{}, fmt.Errorf("%w %q", ErrInvalidLane, lane)
	}

	pos := s.sql.Select("COALESCE(MAX(position), 0) + 1").
		From("kanban_cards").
		Where(sq.Eq{"user_id": userID, "lane": lane})
	posSQL, posArgs, err := pos.ToSql()
	if err != nil {
		return KanbanCard{}, fmt.Errorf("build card position query: %w", err)
	}
	var next int
	if err := s.db.QueryRowContext(ctx, posSQL, posArgs...).Scan(&next); err != nil {
		return KanbanCard{}, fmt.Errorf("next card position: %w", err)
	}

	q := s.sql.Insert("kanban_cards").
		Columns("user_id", "lane", "title", "position").
		Values(userID, lane, title, next).
		Suffix("RETURNING " + cardColumns)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return KanbanCard{}, fmt.Errorf("build create card query: %w", err)
	}

	var c KanbanCard
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&c.ID, &c.UserID, &c.Lane, &c.Title, &c.Position, &c.CreatedAt,
	); err != nil {
		return KanbanCard{}, fmt.Errorf("create card: %w", err)
	}
	return c, nil
}

func (s *Store) MoveCard(ctx context.Context, userID, cardID int64, lane string, position int) error {
	if !validLane(lane) {
		return fmt.Errorf("%w %q", ErrInvalidLane, lane)
	}
	q := s.sql.Update("kanban_cards").
		Set("lane", lane).
		Set("position", position).
		Where(sq.Eq{"id": cardID, "user_id": userID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build move card query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("move card: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCard(ctx context.Context, userID, cardID int64) error {
	q := s.sql.Delete("kanban_cards").Where(sq.Eq{"id": cardID, "user_id": userID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete card query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func validLane(lane string) bool {
	return lane == LaneNow || lane == LaneNext || lane == LaneDone
}
