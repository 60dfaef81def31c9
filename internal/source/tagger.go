package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nhle/paperless-upload/internal/model"
)

// TagStrategy is the tagging approach chosen once at startup.
type TagStrategy int

const (
	TagsUnavailable TagStrategy = iota
	TagsNative
	TagsKeywords
)

func (s TagStrategy) String() string {
	switch s {
	case TagsNative:
		return "native"
	case TagsKeywords:
		return "keywords"
	}
	return "unavailable"
}

// Tagger marks uploaded messages with a mail tag using a negotiated
// strategy.
type Tagger struct {
	mailbox  Mailbox
	tag      model.MailTag
	strategy TagStrategy
	logger   *slog.Logger
}

// Negotiate probes the mailbox once and returns a Tagger bound to the
// resulting strategy. A failed probe yields TagsUnavailable.
func Negotiate(ctx context.Context, mb Mailbox, tag model.MailTag, logger *slog.Logger) *Tagger {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tagger{mailbox: mb, tag: tag, strategy: TagsUnavailable, logger: logger}

	caps, err := mb.Capabilities(ctx)
	switch {
	case err != nil:
		logger.Warn("probing mail tag support", "error", err)
	case caps.TagCatalogue:
		t.strategy = TagsNative
	case caps.Keywords:
		t.strategy = TagsKeywords
	}
	logger.Debug("mail tag strategy", "strategy", t.strategy.String())
	return t
}

// Strategy returns the negotiated strategy.
func (t *Tagger) Strategy() TagStrategy { return t.strategy }

// TagMessage adds the configured tag to a message. It is idempotent.
func (t *Tagger) TagMessage(ctx context.Context, messageID string) error {
	switch t.strategy {
	case TagsUnavailable:
		return nil
	case TagsNative:
		key, err := t.ensureTag(ctx)
		if err != nil {
			return err
		}
		return t.addKey(ctx, messageID, key)
	default:
		return t.addKey(ctx, messageID, t.tag.Key)
	}
}

// ensureTag finds the tag by key, then by label ignoring case, and creates
// it when missing. A failed creation is followed by one more lookup since
// another client may have created it concurrently.
func (t *Tagger) ensureTag(ctx context.Context) (string, error) {
	if key, ok, err := t.findTag(ctx); err != nil || ok {
		return key, err
	}

	createErr := t.mailbox.CreateTag(ctx, t.tag)
	if createErr == nil {
		return t.tag.Key, nil
	}
	if key, ok, err := t.findTag(ctx); err == nil && ok {
		return key, nil
	}
	return "", fmt.Errorf("creating mail tag %q: %w", t.tag.Label, createErr)
}

func (t *Tagger) findTag(ctx context.Context) (string, bool, error) {
	tags, err := t.mailbox.ListTags(ctx)
	if err != nil {
		return "", false, fmt.Errorf("listing mail tags: %w", err)
	}
	for _, tag := range tags {
		if tag.Key == t.tag.Key {
			return tag.Key, true, nil
		}
	}
	for _, tag := range tags {
		if strings.EqualFold(tag.Label, t.tag.Label) {
			return tag.Key, true, nil
		}
	}
	return "", false, nil
}

func (t *Tagger) addKey(ctx context.Context, messageID, key string) error {
	msg, err := t.mailbox.Message(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.HasTag(key) {
		return nil
	}
	keys := append(append([]string{}, msg.Tags...), key)
	if err := t.mailbox.SetMessageTags(ctx, messageID, keys); err != nil {
		return fmt.Errorf("tagging message %s: %w", messageID, err)
	}
	t.logger.Debug("message tagged", "message_id", messageID, "tag", key)
	return nil
}
