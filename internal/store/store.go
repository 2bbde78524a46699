// Copyright 2025 Joseph Cumines

// Package store provides read-only SQLite access to the Messages and Mail
// databases. These are plain query paths: rows come back already shaped for
// rendering, and nothing here mutates the underlying files (the DSN forces
// read-only mode so a macOS update mid-query cannot corrupt anything).
//
// Full Disk Access is required for both databases; without it sqlite returns
// "unable to open database file", which surfaces as a normal error from Open.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// appleEpoch is 2001-01-01T00:00:00Z as a Unix timestamp. Messages stores
// dates relative to it.
const appleEpoch = 978307200

// openPingTimeout bounds the connectivity check in openReadOnly.
const openPingTimeout = 5 * time.Second

// openReadOnly opens a SQLite database in read-only mode.
func openReadOnly(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=2000", url.PathEscape(path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// Single connection: these are small point reads and sqlite handles
	// cross-connection WAL snapshots poorly on live databases.
	db.SetMaxOpenConns(1)
	// sql.Open is lazy; force the connection now so a missing file or denied
	// Full Disk Access fails here instead of on the first query.
	ctx, cancel := context.WithTimeout(context.Background(), openPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return db, nil
}

// appleTime converts a Messages date value to time.Time. Modern macOS stores
// nanoseconds since the Apple epoch; older exports store whole seconds.
func appleTime(v int64) time.Time {
	if v > 1e12 {
		return time.Unix(appleEpoch+v/1e9, v%1e9)
	}
	return time.Unix(appleEpoch+v, 0)
}

// unixTime converts a Mail date_received value (Unix seconds) to time.Time.
func unixTime(v int64) time.Time {
	return time.Unix(v, 0)
}
