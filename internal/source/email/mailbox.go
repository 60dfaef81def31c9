package email

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/source"
)

// Mailbox exposes one IMAP folder as a source.Mailbox. Message ids are
// UIDs and mail tags are IMAP keywords.
type Mailbox struct {
	client *IMAPClient
	folder string
	logger *slog.Logger
}

var _ source.Mailbox = (*Mailbox)(nil)

// NewMailbox returns a mailbox over folder (INBOX when empty).
func NewMailbox(client *IMAPClient, folder string, logger *slog.Logger) *Mailbox {
	if folder == "" {
		folder = "INBOX"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailbox{client: client, folder: folder, logger: logger}
}

func parseUID(messageID string) (imap.UID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(messageID), 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("message %q: not an IMAP UID: %w", messageID, source.ErrMessageNotFound)
	}
	return imap.UID(n), nil
}

// fetchOne fetches a single message by UID with the given options.
func fetchOne(
	client *imapclient.Client,
	uid imap.UID,
	opts *imap.FetchOptions,
) (*imapclient.FetchMessageBuffer, error) {
	fetchCmd := client.Fetch(imap.UIDSetNum(uid), opts)
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d: %w", uid, source.ErrMessageNotFound)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("closing fetch: %w", err)
	}
	return buf, nil
}

// Message returns the envelope and keywords of a message.
func (m *Mailbox) Message(ctx context.Context, messageID string) (*model.MessageRef, error) {
	uid, err := parseUID(messageID)
	if err != nil {
		return nil, err
	}

	var ref *model.MessageRef
	err = m.client.session(ctx, m.folder, true, func(client *imapclient.Client, _ *imap.SelectData) error {
		buf, err := fetchOne(client, uid, &imap.FetchOptions{Envelope: true, Flags: true, UID: true})
		if err != nil {
			return err
		}
		ref = refFromBuffer(buf)
		return nil
	})
	return ref, err
}

// RawMessage fetches BODY.PEEK[] so the \Seen flag is left untouched.
func (m *Mailbox) RawMessage(ctx context.Context, messageID string) ([]byte, error) {
	uid, err := parseUID(messageID)
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = m.client.session(ctx, m.folder, true, func(client *imapclient.Client, _ *imap.SelectData) error {
		section := &imap.FetchItemBodySection{Peek: true}
		buf, err := fetchOne(client, uid, &imap.FetchOptions{
			UID:         true,
			BodySection: []*imap.FetchItemBodySection{section},
		})
		if err != nil {
			return err
		}
		raw = buf.FindBodySection(section)
		if raw == nil {
			return fmt.Errorf("message UID %d: empty body", uid)
		}
		return nil
	})
	return raw, err
}

// ParsedMessage fetches and parses the full message.
func (m *Mailbox) ParsedMessage(ctx context.Context, messageID string) (*model.Part, error) {
	raw, err := m.RawMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return source.ParseTree(raw)
}

// ListAttachments enumerates the attachments of a message.
func (m *Mailbox) ListAttachments(ctx context.Context, messageID string) ([]model.AttachmentRef, error) {
	root, err := m.ParsedMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return source.AttachmentsOf(root), nil
}

// AttachmentBytes returns the decoded content of one part.
func (m *Mailbox) AttachmentBytes(ctx context.Context, messageID, partRef string) ([]byte, error) {
	raw, err := m.RawMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return source.PartBytes(raw, partRef)
}

// Capabilities checks PERMANENTFLAGS for \* which allows new keywords.
func (m *Mailbox) Capabilities(ctx context.Context) (source.Capabilities, error) {
	var caps source.Capabilities
	err := m.client.session(ctx, m.folder, false, func(_ *imapclient.Client, sel *imap.SelectData) error {
		caps.Keywords = slices.Contains(sel.PermanentFlags, imap.FlagWildcard)
		return nil
	})
	return caps, err
}

// ListTags returns the keywords the folder already knows.
func (m *Mailbox) ListTags(ctx context.Context) ([]model.MailTag, error) {
	var tags []model.MailTag
	err := m.client.session(ctx, m.folder, true, func(_ *imapclient.Client, sel *imap.SelectData) error {
		for _, f := range sel.Flags {
			if isKeyword(f) {
				tags = append(tags, model.MailTag{Key: string(f), Label: string(f)})
			}
		}
		return nil
	})
	return tags, err
}

// CreateTag is a no-op: keywords come into existence when first stored.
func (m *Mailbox) CreateTag(context.Context, model.MailTag) error {
	return nil
}

// SetMessageTags makes the message's keywords equal to keys. System flags
// are left untouched.
func (m *Mailbox) SetMessageTags(ctx context.Context, messageID string, keys []string) error {
	uid, err := parseUID(messageID)
	if err != nil {
		return err
	}

	return m.client.session(ctx, m.folder, false, func(client *imapclient.Client, _ *imap.SelectData) error {
		buf, err := fetchOne(client, uid, &imap.FetchOptions{Flags: true, UID: true})
		if err != nil {
			return err
		}

		current := make(map[string]bool)
		for _, f := range buf.Flags {
			if isKeyword(f) {
				current[string(f)] = true
			}
		}
		want := make(map[string]bool, len(keys))
		var add []imap.Flag
		for _, k := range keys {
			want[k] = true
			if !current[k] {
				add = append(add, imap.Flag(k))
			}
		}
		var del []imap.Flag
		for k := range current {
			if !want[k] {
				del = append(del, imap.Flag(k))
			}
		}

		uidSet := imap.UIDSetNum(uid)
		if len(add) > 0 {
			if err := client.Store(uidSet, &imap.StoreFlags{Op: imap.StoreFlagsAdd, Silent: true, Flags: add}, nil).Close(); err != nil {
				return fmt.Errorf("adding keywords: %w", err)
			}
		}
		if len(del) > 0 {
			if err := client.Store(uidSet, &imap.StoreFlags{Op: imap.StoreFlagsDel, Silent: true, Flags: del}, nil).Close(); err != nil {
				return fmt.Errorf("removing keywords: %w", err)
			}
		}
		m.logger.Debug("keywords stored", "message_id", messageID, "added", len(add), "removed", len(del))
		return nil
	})
}

// ListRecent returns envelopes of messages received in the last days,
// newest last, capped at limit.
func (m *Mailbox) ListRecent(ctx context.Context, days, limit int) ([]model.MessageRef, error) {
	var refs []model.MessageRef
	err := m.client.session(ctx, m.folder, true, func(client *imapclient.Client, _ *imap.SelectData) error {
		criteria := &imap.SearchCriteria{Since: time.Now().AddDate(0, 0, -days)}
		searchData, err := client.UIDSearch(criteria, nil).Wait()
		if err != nil {
			return fmt.Errorf("searching messages: %w", err)
		}

		uids := searchData.AllUIDs()
		if len(uids) == 0 {
			return nil
		}
		if limit > 0 && len(uids) > limit {
			uids = uids[len(uids)-limit:]
		}

		fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
			Envelope: true,
			Flags:    true,
			UID:      true,
		})
		defer fetchCmd.Close()

		for {
			msg := fetchCmd.Next()
			if msg == nil {
				break
			}
			buf, err := msg.Collect()
			if err != nil {
				continue
			}
			refs = append(refs, *refFromBuffer(buf))
		}
		return fetchCmd.Close()
	})
	return refs, err
}

// refFromBuffer converts fetched envelope data into a MessageRef.
func refFromBuffer(buf *imapclient.FetchMessageBuffer) *model.MessageRef {
	ref := &model.MessageRef{ID: strconv.FormatUint(uint64(buf.UID), 10)}

	if buf.Envelope != nil {
		ref.Subject = buf.Envelope.Subject
		ref.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			ref.Author = formatAddress(buf.Envelope.From[0])
		}
		for _, list := range [][]imap.Address{buf.Envelope.To, buf.Envelope.Cc} {
			for _, a := range list {
				ref.Recipients = append(ref.Recipients, formatAddress(a))
			}
		}
	}

	for _, f := range buf.Flags {
		if isKeyword(f) {
			ref.Tags = append(ref.Tags, string(f))
		}
	}
	return ref
}

func formatAddress(a imap.Address) string {
	if a.Name != "" {
		return fmt.Sprintf("%s <%s>", a.Name, a.Addr())
	}
	return a.Addr()
}

// isKeyword reports whether f is a user keyword rather than a system flag.
func isKeyword(f imap.Flag) bool {
	return f != "" && !strings.HasPrefix(string(f), `\`)
}
