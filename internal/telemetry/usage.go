// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records per-send stream usage locally, so the client
// can show response latency and volume history without any server help.
package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Usage is one completed (or terminated) send.
type Usage struct {
	ConversationID string
	Model          string
	Deltas         int
	Bytes          int
	TTFT           time.Duration
	Duration       time.Duration
	Status         string // "closed", "aborted", "error"
	CreatedAt      time.Time
}

// Totals aggregates recorded usage.
type Totals struct {
	Sends  int
	Deltas int
	Bytes  int
}

// UsageStore is a sqlite-backed usage log. Safe for concurrent use; the
// driver serializes access.
type UsageStore struct {
	db *sql.DB
}

// OpenUsageStore opens (and migrates) the usage database at
// ~/.relaychat/usage.db.
func OpenUsageStore() (*UsageStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".relaychat")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return OpenUsageStoreAt(filepath.Join(dir, "usage.db"))
}

// OpenUsageStoreAt opens the usage database at a specific path, mainly
// for tests.
func OpenUsageStoreAt(path string) (*UsageStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS stream_usage (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		model           TEXT NOT NULL,
		deltas          INTEGER NOT NULL,
		bytes           INTEGER NOT NULL,
		ttft_ms         INTEGER NOT NULL,
		duration_ms     INTEGER NOT NULL,
		status          TEXT NOT NULL,
		created_at      TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stream_usage_conversation
		ON stream_usage(conversation_id);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate usage database: %w", err)
	}
	return &UsageStore{db: db}, nil
}

// Record appends one usage row.
func (s *UsageStore) Record(u Usage) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO stream_usage
			(conversation_id, model, deltas, bytes, ttft_ms, duration_ms, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ConversationID, u.Model, u.Deltas, u.Bytes,
		u.TTFT.Milliseconds(), u.Duration.Milliseconds(), u.Status, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// Recent returns the latest n usage rows, newest first.
func (s *UsageStore) Recent(n int) ([]Usage, error) {
	rows, err := s.db.Query(
		`SELECT conversation_id, model, deltas, bytes, ttft_ms, duration_ms, status, created_at
		 FROM stream_usage ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usages []Usage
	for rows.Next() {
		var u Usage
		var ttftMs, durMs int64
		if err := rows.Scan(&u.ConversationID, &u.Model, &u.Deltas, &u.Bytes,
			&ttftMs, &durMs, &u.Status, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.TTFT = time.Duration(ttftMs) * time.Millisecond
		u.Duration = time.Duration(durMs) * time.Millisecond
		usages = append(usages, u)
	}
	return usages, rows.Err()
}

// TotalsFor aggregates usage for one conversation; an empty id aggregates
// everything.
func (s *UsageStore) TotalsFor(conversationID string) (Totals, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(deltas), 0), COALESCE(SUM(bytes), 0) FROM stream_usage`
	args := []any{}
	if conversationID != "" {
		query += ` WHERE conversation_id = ?`
		args = append(args, conversationID)
	}

	var t Totals
	if err := s.db.QueryRow(query, args...).Scan(&t.Sends, &t.Deltas, &t.Bytes); err != nil {
		return Totals{}, err
	}
	return t, nil
}

// Close releases the database handle.
func (s *UsageStore) Close() error {
	return s.db.Close()
}
