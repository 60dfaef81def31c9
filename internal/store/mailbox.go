package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/source"
)

type messageRow struct {
	ID         string    `db:"id"`
	Subject    string    `db:"subject"`
	Author     string    `db:"author"`
	Recipients string    `db:"recipients"`
	Date       time.Time `db:"date"`
}

// Message returns the stored envelope fields and tag keys of a message.
func (s *SQLiteStore) Message(ctx context.Context, messageID string) (*model.MessageRef, error) {
	var row messageRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, subject, author, recipients, date FROM messages WHERE id = ?", messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", messageID, source.ErrMessageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting message %s: %w", messageID, err)
	}

	ref := &model.MessageRef{
		ID:      row.ID,
		Subject: row.Subject,
		Author:  row.Author,
		Date:    row.Date,
	}
	if err := json.Unmarshal([]byte(row.Recipients), &ref.Recipients); err != nil {
		return nil, fmt.Errorf("unmarshaling recipients for message %s: %w", messageID, err)
	}

	ref.Tags, err = s.messageTags(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// RawMessage returns the stored RFC 822 bytes.
func (s *SQLiteStore) RawMessage(ctx context.Context, messageID string) ([]byte, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw, "SELECT raw FROM messages WHERE id = ?", messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", messageID, source.ErrMessageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting raw message %s: %w", messageID, err)
	}
	return raw, nil
}

// ParsedMessage parses the stored message into a part tree.
func (s *SQLiteStore) ParsedMessage(ctx context.Context, messageID string) (*model.Part, error) {
	raw, err := s.RawMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return source.ParseTree(raw)
}

// ListAttachments enumerates the attachments of a stored message.
func (s *SQLiteStore) ListAttachments(ctx context.Context, messageID string) ([]model.AttachmentRef, error) {
	root, err := s.ParsedMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return source.AttachmentsOf(root), nil
}

// AttachmentBytes returns the decoded content of one attachment.
func (s *SQLiteStore) AttachmentBytes(ctx context.Context, messageID, partRef string) ([]byte, error) {
	raw, err := s.RawMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return source.PartBytes(raw, partRef)
}

// Capabilities reports a native tag catalogue.
func (s *SQLiteStore) Capabilities(context.Context) (source.Capabilities, error) {
	return source.Capabilities{TagCatalogue: true}, nil
}
