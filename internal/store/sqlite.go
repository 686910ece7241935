// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides a local send-log sink with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite. It serves as a
// local alternative to the Supabase sink so sends remain auditable without a
// cloud dependency.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sms_sends (
			message_sid TEXT PRIMARY KEY,
			from_number TEXT NOT NULL,
			to_number TEXT NOT NULL,
			original_message TEXT NOT NULL,
			sent_message TEXT NOT NULL,
			original_length INTEGER NOT NULL,
			sent_length INTEGER NOT NULL,
			truncated INTEGER NOT NULL,
			status TEXT NOT NULL,
			twilio_status TEXT,
			sent_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sms_sends_sent_at
			ON sms_sends(sent_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// AppendSendRecord inserts one record into the sms_sends table.
func (s *SQLiteStore) AppendSendRecord(ctx context.Context, rec *SendRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sms_sends (
			message_sid, from_number, to_number,
			original_message, sent_message,
			original_length, sent_length, truncated,
			status, twilio_status, sent_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.MessageSID, rec.FromNumber, rec.ToNumber,
		rec.OriginalMessage, rec.SentMessage,
		rec.OriginalLength, rec.SentLength, rec.Truncated,
		rec.Status, rec.TwilioStatus, rec.SentAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting send record: %w", err)
	}

	s.logger.Debug("send record appended", "message_sid", rec.MessageSID)
	return nil
}

// CountSendRecords returns the number of stored send records.
func (s *SQLiteStore) CountSendRecords(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sms_sends").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting send records: %w", err)
	}
	return count, nil
}

// GetSendRecord fetches a record by message SID. Returns sql.ErrNoRows
// wrapped when the record does not exist.
func (s *SQLiteStore) GetSendRecord(ctx context.Context, messageSID string) (*SendRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT message_sid, from_number, to_number,
			original_message, sent_message,
			original_length, sent_length, truncated,
			status, twilio_status, sent_at
		FROM sms_sends WHERE message_sid = ?`, messageSID)

	var rec SendRecord
	var truncated int
	var twilioStatus sql.NullString
	var sentAt string
	if err := row.Scan(
		&rec.MessageSID, &rec.FromNumber, &rec.ToNumber,
		&rec.OriginalMessage, &rec.SentMessage,
		&rec.OriginalLength, &rec.SentLength, &truncated,
		&rec.Status, &twilioStatus, &sentAt,
	); err != nil {
		return nil, fmt.Errorf("fetching send record: %w", err)
	}

	rec.Truncated = truncated != 0
	rec.TwilioStatus = twilioStatus.String
	if t, err := time.Parse(time.RFC3339Nano, sentAt); err == nil {
		rec.SentAt = t
	}
	return &rec, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
