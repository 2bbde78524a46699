// Copyright 2025 Joseph Cumines
//
// Mail (Envelope Index) read path

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MailMessage is one row from Mail's Envelope Index. SenderName is the
// display name Mail recorded alongside the address ("comment" in the
// addresses table); it may be empty, in which case enrichment or the raw
// address fills in at render time.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type MailMessage struct {
	RowID         int64     `json:"rowId"`
	SenderAddress string    `json:"senderAddress"`
	SenderName    string    `json:"senderName,omitempty"`
	Subject       string    `json:"subject"`
	ReceivedAt    time.Time `json:"receivedAt"`
	Unread        bool      `json:"unread"`
}

// MailStore reads the Envelope Index. Open with OpenMail; close when done.
type MailStore struct {
	db *sql.DB
}

// OpenMail opens the Envelope Index at path (typically
// ~/Library/Mail/V10/MailData/Envelope Index) read-only.
func OpenMail(path string) (*MailStore, error) {
	db, err := openReadOnly(path)
	if err != nil {
		return nil, err
	}
	return &MailStore{db: db}, nil
}

// Close releases the database handle.
func (s *MailStore) Close() error {
	return s.db.Close()
}

const unreadMailQuery = `
SELECT m.ROWID, COALESCE(a.address, ''), COALESCE(a.comment, ''), COALESCE(s.subject, ''), m.date_received, m.read
FROM messages m
LEFT JOIN addresses a ON m.sender = a.ROWID
LEFT JOIN subjects s ON m.subject = s.ROWID
WHERE m.read = 0
ORDER BY m.date_received DESC
LIMIT ?`

const searchMailQuery = `
SELECT m.ROWID, COALESCE(a.address, ''), COALESCE(a.comment, ''), COALESCE(s.subject, ''), m.date_received, m.read
FROM messages m
LEFT JOIN addresses a ON m.sender = a.ROWID
LEFT JOIN subjects s ON m.subject = s.ROWID
WHERE s.subject LIKE '%' || ? || '%' OR a.address LIKE '%' || ? || '%'
ORDER BY m.date_received DESC
LIMIT ?`

// UnreadMessages returns unread mail, newest first.
func (s *MailStore) UnreadMessages(ctx context.Context, limit int) ([]MailMessage, error) {
	return s.query(ctx, unreadMailQuery, limit)
}

// SearchMessages returns mail whose subject or sender address contains the
// query, newest first.
func (s *MailStore) SearchMessages(ctx context.Context, query string, limit int) ([]MailMessage, error) {
	return s.query(ctx, searchMailQuery, query, query, limit)
}

func (s *MailStore) query(ctx context.Context, q string, args ...any) ([]MailMessage, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("mail query failed: %w", err)
	}
	defer rows.Close()

	var out []MailMessage
	for rows.Next() {
		var m MailMessage
		var date int64
		var read int
		if err := rows.Scan(&m.RowID, &m.SenderAddress, &m.SenderName, &m.Subject, &date, &read); err != nil {
			return nil, fmt.Errorf("mail scan failed: %w", err)
		}
		m.ReceivedAt = unixTime(date)
		m.Unread = read == 0
		out = append(out, m)
	}
	return out, rows.Err()
}
