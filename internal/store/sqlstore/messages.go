package sqlstore

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"chatroom/internal/models"
	"chatroom/internal/store"
)

func (s *SQLStore) AppendMessage(author, body string) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		ID:        "msg_" + uuid.NewString(),
		Username:  author,
		Message:   body,
		Timestamp: time.Now().UTC(),
		Kind:      models.KindMessage,
	}

	_, err := s.db.Exec(
		`INSERT INTO messages (id, username, message, timestamp, kind) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.Username, msg.Message, msg.Timestamp, msg.Kind,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// RecentMessages returns up to limit messages, oldest first.
func (s *SQLStore) RecentMessages(limit int) ([]models.ChatMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, username, message, timestamp, kind FROM messages
		 ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Query order is newest-first for the LIMIT; callers want
	// chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ListMessages returns up to f.Limit matching messages newest-first,
// along with the total number of matches before the limit was applied.
func (s *SQLStore) ListMessages(f store.Filter) ([]models.ChatMessage, int, error) {
	where := " WHERE 1=1"
	var args []any
	if f.Username != "" {
		where += " AND username = ? COLLATE NOCASE"
		args = append(args, f.Username)
	}
	if !f.Before.IsZero() {
		where += " AND timestamp < ?"
		args = append(args, f.Before.UTC())
	}
	if f.Contains != "" {
		where += " AND LOWER(message) LIKE '%' || LOWER(?) || '%'"
		args = append(args, f.Contains)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, username, message, timestamp, kind FROM messages`+where+
			` ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		append(args, limit)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (s *SQLStore) GetMessageByID(id string) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	err := s.db.QueryRow(
		`SELECT id, username, message, timestamp, kind FROM messages WHERE id = ?`,
		id,
	).Scan(&msg.ID, &msg.Username, &msg.Message, &msg.Timestamp, &msg.Kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *SQLStore) DeleteMessage(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *SQLStore) CountMessages() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// PruneMessages deletes everything older than the newest keep rows.
func (s *SQLStore) PruneMessages(keep int) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM messages WHERE id IN (
			SELECT id FROM messages ORDER BY timestamp DESC, rowid DESC LIMIT -1 OFFSET ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanMessages(rows *sql.Rows) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.Username, &m.Message, &m.Timestamp, &m.Kind); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
