package store

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/paperless-upload/internal/source"
)

// SQLiteStore is a local mailbox backed by a SQLite database. It keeps the
// raw RFC 822 bytes of imported messages and a native tag catalogue.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ source.Mailbox = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// ImportMessage stores a raw RFC 822 message and returns its id. A message
// whose Message-Id header is already stored is not imported twice; the
// existing id is returned.
func (s *SQLiteStore) ImportMessage(ctx context.Context, raw []byte) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", fmt.Errorf("importing message: empty input")
	}

	messageID := headerMessageID(raw)
	if messageID != "" {
		var existing string
		err := s.db.GetContext(ctx, &existing, "SELECT id FROM messages WHERE message_id = ?", messageID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("checking for duplicate message: %w", err)
		}
	}

	id := uuid.New().String()
	env, err := source.EnvelopeOf(id, raw)
	if err != nil {
		return "", fmt.Errorf("importing message: %w", err)
	}
	if env.Date.IsZero() {
		env.Date = time.Now()
	}
	recipients, err := json.Marshal(env.Recipients)
	if err != nil {
		return "", fmt.Errorf("marshaling recipients: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, message_id, subject, author, recipients, date, raw, size, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, messageID, env.Subject, env.Author, string(recipients),
		env.Date.UTC(), raw, len(raw), time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting message: %w", err)
	}
	return id, nil
}

// ListMessages returns message summaries, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, f MessageFilter) ([]MessageSummary, error) {
	query := "SELECT id, subject, author, date, size, imported_at FROM messages"
	var args []any
	if q := strings.TrimSpace(f.Query); q != "" {
		query += " WHERE subject LIKE ? OR author LIKE ?"
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	query += " ORDER BY date DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	var out []MessageSummary
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return out, nil
}

// DeleteMessage removes a message and its tag assignments.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting message %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("message %s: %w", id, source.ErrMessageNotFound)
	}
	return nil
}

func headerMessageID(raw []byte) string {
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return ""
	}
	mh := mail.Header{Header: message.Header{Header: h}}
	id, err := mh.MessageID()
	if err != nil {
		return ""
	}
	return id
}
