// SPDX-License-Identifier: Apache-2.0

// Package history persists chat transcripts in SQLite so a run can be
// inspected after the process exits.
package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/colloquyhq/colloquy/pkg/chat"
)

// Entry is one persisted transcript message.
type Entry struct {
	RunID     string
	Seq       int
	MessageID string
	Speaker   chat.Role
	Content   string
	CreatedAt time.Time
}

// Store persists transcript messages in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at path and ensures schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an existing database handle and ensures schema.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureTranscriptSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a single transcript message.
func (s *Store) Record(ctx context.Context, runID string, seq int, msg chat.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcript_messages (
			run_id, seq, message_id, speaker, content, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		runID,
		seq,
		msg.ID,
		string(msg.Speaker),
		msg.Content,
		msg.CreatedAt.UTC(),
	)
	return err
}

// List returns the messages of a run in conversation order.
func (s *Store) List(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, message_id, speaker, content, created_at
		FROM transcript_messages
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry   Entry
			speaker string
			created sql.NullTime
		)
		if err := rows.Scan(
			&entry.RunID,
			&entry.Seq,
			&entry.MessageID,
			&speaker,
			&entry.Content,
			&created,
		); err != nil {
			return nil, err
		}
		entry.Speaker = chat.Role(speaker)
		if created.Valid {
			entry.CreatedAt = created.Time
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Runs returns the distinct run ids present in the store, oldest first.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id FROM transcript_messages
		GROUP BY run_id
		ORDER BY MIN(rowid) ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

func ensureTranscriptSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transcript_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			message_id TEXT,
			speaker TEXT NOT NULL,
			content TEXT,
			created_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_transcript_run ON transcript_messages(run_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_transcript_run_seq ON transcript_messages(run_id, seq);
	`)
	return err
}

// Ensure Store satisfies the chat recorder contract.
var _ chat.HistoryRecorder = (*Store)(nil)
