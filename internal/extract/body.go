// Package extract locates the displayable body of a mail message.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/nhle/paperless-upload/internal/model"
)

// Body is the best available message body.
type Body struct {
	Text   string
	IsHTML bool

	// Found is false when no part carried a body.
	Found bool
}

// Extract walks the part tree depth first and returns the HTML body if
// one exists, else the plain text body. Among several candidates of the
// same kind the longer one wins.
func Extract(root *model.Part) Body {
	var html, plain string
	var visit func(p *model.Part)
	visit = func(p *model.Part) {
		if p == nil {
			return
		}
		if p.Body != "" {
			switch mediaType(p.ContentType) {
			case "text/html":
				html = longer(html, p.Body)
			case "text/plain", "":
				plain = longer(plain, p.Body)
			}
		}
		for _, c := range p.Parts {
			visit(c)
		}
	}
	visit(root)
	return choose(html, plain)
}

// mediaType lowercases a Content-Type value and strips its parameters.
func mediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

func longer(current, candidate string) string {
	if len(candidate) > len(current) {
		return candidate
	}
	return current
}

func choose(html, plain string) Body {
	switch {
	case html != "":
		return Body{Text: html, IsHTML: true, Found: true}
	case plain != "":
		return Body{Text: plain, Found: true}
	}
	return Body{}
}

// FindOpaque returns the first signed or encrypted envelope attachment.
func FindOpaque(atts []model.AttachmentRef) (model.AttachmentRef, bool) {
	for _, a := range atts {
		ct := strings.ToLower(a.ContentType)
		name := strings.ToLower(a.Name)
		if strings.Contains(ct, "pkcs7-mime") ||
			strings.HasSuffix(name, ".p7m") ||
			strings.Contains(name, "smime") {
			return a, true
		}
	}
	return model.AttachmentRef{}, false
}

// MessageReader is the part of a mailbox the extractor needs.
type MessageReader interface {
	ParsedMessage(ctx context.Context, messageID string) (*model.Part, error)
	ListAttachments(ctx context.Context, messageID string) ([]model.AttachmentRef, error)
	AttachmentBytes(ctx context.Context, messageID, partRef string) ([]byte, error)
}

// ExtractMessage returns the body of a message, unwrapping an opaque
// envelope attachment when the structured parts carry no body.
func ExtractMessage(ctx context.Context, r MessageReader, messageID string, logger *slog.Logger) (Body, error) {
	if logger == nil {
		logger = slog.Default()
	}

	root, err := r.ParsedMessage(ctx, messageID)
	if err != nil {
		return Body{}, fmt.Errorf("reading message %s: %w", messageID, err)
	}
	if body := Extract(root); body.Found {
		return body, nil
	}

	atts, err := r.ListAttachments(ctx, messageID)
	if err != nil {
		return Body{}, fmt.Errorf("listing attachments of %s: %w", messageID, err)
	}
	opaque, ok := FindOpaque(atts)
	if !ok {
		return Body{}, nil
	}

	raw, err := r.AttachmentBytes(ctx, messageID, opaque.PartRef)
	if err != nil {
		logger.Warn("reading opaque envelope", "message_id", messageID, "attachment", opaque.Name, "error", err)
		return Body{}, nil
	}
	body := Unwrap(string(raw))
	logger.Debug("unwrapped opaque envelope", "message_id", messageID, "found", body.Found, "html", body.IsHTML)
	return body, nil
}
