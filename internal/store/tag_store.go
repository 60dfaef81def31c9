package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/source"
)

// CreateTag adds a tag to the catalogue.
func (s *SQLiteStore) CreateTag(ctx context.Context, tag model.MailTag) error {
	if strings.TrimSpace(tag.Key) == "" {
		return fmt.Errorf("tag key must not be empty")
	}
	if strings.TrimSpace(tag.Label) == "" {
		tag.Label = tag.Key
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO mail_tags (key, label, color, created_at) VALUES (?, ?, ?, ?)",
		tag.Key, tag.Label, tag.Color, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating tag %s: %w", tag.Key, err)
	}
	return nil
}

// ListTags retrieves the tag catalogue ordered by label.
func (s *SQLiteStore) ListTags(ctx context.Context) ([]model.MailTag, error) {
	var tags []model.MailTag
	err := s.db.SelectContext(ctx, &tags,
		"SELECT key, label, color FROM mail_tags ORDER BY label")
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	return tags, nil
}

// SetMessageTags replaces the tag keys of a message. Every key must exist
// in the catalogue.
func (s *SQLiteStore) SetMessageTags(ctx context.Context, messageID string, keys []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.GetContext(ctx, &exists, "SELECT COUNT(*) FROM messages WHERE id = ?", messageID); err != nil {
		return fmt.Errorf("checking message %s: %w", messageID, err)
	}
	if exists == 0 {
		return fmt.Errorf("message %s: %w", messageID, source.ErrMessageNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM message_tags WHERE message_id = ?", messageID); err != nil {
		return fmt.Errorf("clearing tags for message %s: %w", messageID, err)
	}

	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO message_tags (message_id, tag_key) VALUES (?, ?)",
			messageID, key,
		); err != nil {
			return fmt.Errorf("setting tag %s on message %s: %w", key, messageID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) messageTags(ctx context.Context, messageID string) ([]string, error) {
	var keys []string
	err := s.db.SelectContext(ctx, &keys,
		"SELECT tag_key FROM message_tags WHERE message_id = ? ORDER BY tag_key", messageID)
	if err != nil {
		return nil, fmt.Errorf("querying tags for message %s: %w", messageID, err)
	}
	return keys, nil
}
