// Copyright 2025 Joseph Cumines
//
// Messages (chat.db) read path

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Message is one row from the Messages database. Sender is the raw handle
// (phone number or email) as Messages stores it; it is empty for outgoing
// messages, where IsFromMe is true instead.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Message struct {
	RowID    int64     `json:"rowId"`
	Sender   string    `json:"sender,omitempty"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
	IsFromMe bool      `json:"isFromMe"`
	IsRead   bool      `json:"isRead"`
}

// MessagesStore reads chat.db. Open with OpenMessages; close when done.
type MessagesStore struct {
	db *sql.DB
}

// OpenMessages opens the Messages database at path
// (typically ~/Library/Messages/chat.db) read-only.
func OpenMessages(path string) (*MessagesStore, error) {
	db, err := openReadOnly(path)
	if err != nil {
		return nil, err
	}
	return &MessagesStore{db: db}, nil
}

// Close releases the database handle.
func (s *MessagesStore) Close() error {
	return s.db.Close()
}

const recentMessagesQuery = `
SELECT m.ROWID, COALESCE(h.id, ''), COALESCE(m.text, ''), m.date, m.is_from_me, m.is_read
FROM message m
LEFT JOIN handle h ON m.handle_id = h.ROWID
ORDER BY m.date DESC
LIMIT ?`

const messagesWithQuery = `
SELECT m.ROWID, COALESCE(h.id, ''), COALESCE(m.text, ''), m.date, m.is_from_me, m.is_read
FROM message m
JOIN handle h ON m.handle_id = h.ROWID
WHERE h.id LIKE '%' || ?
ORDER BY m.date DESC
LIMIT ?`

const unreadMessagesQuery = `
SELECT m.ROWID, COALESCE(h.id, ''), COALESCE(m.text, ''), m.date, m.is_from_me, m.is_read
FROM message m
LEFT JOIN handle h ON m.handle_id = h.ROWID
WHERE m.is_read = 0 AND m.is_from_me = 0 AND m.text IS NOT NULL
ORDER BY m.date DESC
LIMIT ?`

// RecentMessages returns the most recent messages across all conversations.
func (s *MessagesStore) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	return s.query(ctx, recentMessagesQuery, limit)
}

// MessagesWith returns the most recent messages exchanged with a handle
// matching the given suffix. For phone handles callers pass the last 10
// digits, which matches chat.db's stored form regardless of country-code
// formatting; for email handles the full address.
func (s *MessagesStore) MessagesWith(ctx context.Context, handleSuffix string, limit int) ([]Message, error) {
	return s.query(ctx, messagesWithQuery, handleSuffix, limit)
}

// UnreadMessages returns unread incoming messages, newest first.
func (s *MessagesStore) UnreadMessages(ctx context.Context, limit int) ([]Message, error) {
	return s.query(ctx, unreadMessagesQuery, limit)
}

func (s *MessagesStore) query(ctx context.Context, q string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("messages query failed: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var date int64
		var fromMe, read int
		if err := rows.Scan(&m.RowID, &m.Sender, &m.Text, &date, &fromMe, &read); err != nil {
			return nil, fmt.Errorf("messages scan failed: %w", err)
		}
		m.SentAt = appleTime(date)
		m.IsFromMe = fromMe != 0
		m.IsRead = read != 0
		out = append(out, m)
	}
	return out, rows.Err()
}
