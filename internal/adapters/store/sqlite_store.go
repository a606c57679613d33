package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/llm-smish-guard/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the MessageStore interface
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite message store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			sender TEXT,
			body TEXT,
			received_at TIMESTAMP,
			classification TEXT,
			explanation TEXT,
			processed BOOLEAN
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_received_at ON messages(received_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// Add inserts a new message
func (s *SQLiteStore) Add(ctx context.Context, msg *core.Message) error {
	return s.Update(ctx, msg)
}

// Update upserts a message by id
func (s *SQLiteStore) Update(ctx context.Context, msg *core.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO messages (id, sender, body, received_at, classification, explanation, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.Sender, msg.Body, msg.Timestamp.Format(time.RFC3339), string(msg.Classification), msg.Explanation, msg.Processed)

	if err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}
	return nil
}

// Get retrieves a message by id
func (s *SQLiteStore) Get(ctx context.Context, id string) (*core.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sender, body, received_at, classification, explanation, processed
		FROM messages
		WHERE id = ?
	`, id)

	msg, err := scanMessage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query message: %w", err)
	}
	return msg, nil
}

// All returns every stored message, newest first
func (s *SQLiteStore) All(ctx context.Context) ([]core.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, body, received_at, classification, explanation, processed
		FROM messages
		ORDER BY received_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []core.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*core.Message, error) {
	var msg core.Message
	var receivedAt, classification string

	if err := row.Scan(&msg.ID, &msg.Sender, &msg.Body, &receivedAt, &classification, &msg.Explanation, &msg.Processed); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339, receivedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse received_at timestamp: %w", err)
	}
	msg.Timestamp = ts
	msg.Classification = core.Classification(classification)
	return &msg, nil
}
