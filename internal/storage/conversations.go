package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

const conversationColumns = "id, user_id, title, created_at, updated_at"

func (s *Store) CreateConversation(ctx context.Context, userID int64, title string) (Conversation, error) {
	q := s.sql.Insert("conversations").
		Columns("user_id", "title").
		Values(userID, title).
		Suffix("RETURNING id, user_id, title, created_at, updated_at")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Conversation{}, fmt.Errorf("build create conversation query: %w", err)
	}

	var c Conversation
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return c, nil
}

func (s *Store) ConversationByID(ctx context.Context, userID, conversationID int64) (Conversation, error) {
	q := s.sql.Select(conversationColumns).
		From("conversations").
		Where(sq.Eq{"id": conversationID, "user_id": userID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Conversation{}, fmt.Errorf("build conversation query: %w", err)
	}

	var c Conversation
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

func (s *Store) LatestConversation(ctx context.Context, userID int64) (Conversation, bool, error) {
	q := s.sql.Select(conversationColumns).
		From("conversations").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("updated_at DESC").
		Limit(1)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Conversation{}, false, fmt.Errorf("build latest conversation query: %w", err)
	}

	var c Conversation
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversation{}, false, nil
		}
		return Conversation{}, false, fmt.Errorf("get latest conversation: %w", err)
	}
	return c, true, nil
}

func (s *Store) ListConversations(ctx context.Context, userID int64) ([]Conversation, error) {
	q := s.sql.Select(conversationColumns).
		From("conversations").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("updated_at DESC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list conversations query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]Conversation, 0)
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation rows: %w", err)
	}
	return out, nil
}

func (s *Store) RenameConversation(ctx context.Context, userID, conversationID int64, title string) error {
	q := s.sql.Update("conversations").
		Set("title", title).
		Where(sq.Eq{"id": conversationID, "user_id": userID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build rename conversation query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("rename conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteConversations removes the given conversations and their
// messages, scoped to the user. Returns the ids actually deleted.
func (s *Store) DeleteConversations(ctx context.Context, userID int64, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := s.sql.Select("id").From("conversations").Where(sq.Eq{"user_id": userID, "id": ids})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build owned conversations query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("select owned conversations: %w", err)
	}
	owned := make([]int64, 0, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan conversation id: %w", err)
		}
		owned = append(owned, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation ids: %w", err)
	}
	if len(owned) == 0 {
		return nil, nil
	}

	delMsgs := s.sql.Delete("messages").Where(sq.Eq{"conversation_id": owned})
	sqlStr, args, err = delMsgs.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build delete messages query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("delete messages: %w", err)
	}

	delConvs := s.sql.Delete("conversations").Where(sq.Eq{"id": owned})
	sqlStr, args, err = delConvs.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build delete conversations query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("delete conversations: %w", err)
	}
	return owned, nil
}

func (s *Store) AppendMessage(ctx context.Context, conversationID int64, role, content string) error {
	q := s.sql.Insert("messages").
		Columns("conversation_id", "role", "content").
		Values(conversationID, role, content)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build append message query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *Store) Messages(ctx context.Context, conversationID int64) ([]Message, error) {
	q := s.sql.Select("id", "conversation_id", "role", "content", "created_at").
		From("messages").
		Where(sq.Eq{"conversation_id": conversationID}).
		OrderBy("created_at ASC", "id ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build messages query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return out, nil
}

func (s *Store) RecentMessages(ctx context.Context, conversationID int64, limit uint64) ([]Message, error) {
	q := s.sql.Select("id", "conversation_id", "role", "content", "created_at").
		From("messages").
		Where(sq.Eq{"conversation_id": conversationID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent messages query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()

	out := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	// chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) LastMessage(ctx context.Context, conversationID int64) (Message, bool, error) {
	msgs, err := s.RecentMessages(ctx, conversationID, 1)
	if err != nil {
		return Message{}, false, err
	}
	if len(msgs) == 0 {
		return Message{}, false, nil
	}
	return msgs[0], true, nil
}

func (s *Store) TouchConversation(ctx context.Context, conversationID int64) error {
	q := s.sql.Update("conversations").
		Set("updated_at", nowExpr(s.driver)).
		Where(sq.Eq{"id": conversationID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build touch conversation query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

func (s *Store) SearchMessages(ctx context.Context, userID int64, term string, limit uint64) ([]SearchHit, error) {
	pattern := "%" + strings.TrimSpace(term) + "%"
	q := s.sql.Select("c.id", "c.title", "m.id", "m.role", "m.content", "m.created_at").
		From("messages m").
		Join("conversations c ON c.id = m.conversation_id").
		Where(sq.Eq{"c.user_id": userID}).
		Where(sq.Expr("lower(m.content) LIKE lower(?)", pattern)).
		OrderBy("m.created_at DESC").
		Limit(limit)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()

	out := make([]SearchHit, 0)
	for rows.Next() {
		var h SearchHit
		var content string
		if err := rows.Scan(&h.ConversationID, &h.ConversationTitle, &h.MessageID, &h.Role, &content, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		h.Snippet = snippet(content, 160)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, nil
}

func snippet(content string, max int) string {
	content = strings.ReplaceAll(content, "\n", " ")
	r := []rune(content)
	if len(r) > max {
		return string(r[:max])
	}
	return content
}
