package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/paperless-upload/internal/model"
)

// ErrMessageNotFound is returned when a mailbox has no message with the
// requested id.
var ErrMessageNotFound = errors.New("message not found")

// ErrPartNotFound is returned when a part reference does not address a
// part of the message.
var ErrPartNotFound = errors.New("message part not found")

// AuthError indicates that the mail host rejected the credentials.
type AuthError struct {
	Host    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Host, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Capabilities describes what a mail host supports. It is probed once
// through Mailbox.Capabilities.
type Capabilities struct {
	// TagCatalogue means the host keeps a list of tags with labels and
	// colours that must contain a tag before messages can carry it.
	TagCatalogue bool

	// Keywords means messages can carry arbitrary tag keys that need no
	// prior creation, like IMAP keywords.
	Keywords bool
}

// Mailbox is the mail host capability surface consumed by the upload
// workflows.
type Mailbox interface {
	// Message returns a snapshot of the message including its tag keys.
	Message(ctx context.Context, messageID string) (*model.MessageRef, error)

	// ListAttachments enumerates the message's attachments.
	ListAttachments(ctx context.Context, messageID string) ([]model.AttachmentRef, error)

	// AttachmentBytes returns the decoded content of one attachment.
	AttachmentBytes(ctx context.Context, messageID, partRef string) ([]byte, error)

	// RawMessage returns the message in RFC 822 form.
	RawMessage(ctx context.Context, messageID string) ([]byte, error)

	// ParsedMessage returns the message's MIME part tree.
	ParsedMessage(ctx context.Context, messageID string) (*model.Part, error)

	// ListTags returns the host's tag catalogue.
	ListTags(ctx context.Context) ([]model.MailTag, error)

	// CreateTag adds a tag to the catalogue.
	CreateTag(ctx context.Context, tag model.MailTag) error

	// SetMessageTags replaces the tag keys of a message.
	SetMessageTags(ctx context.Context, messageID string, keys []string) error

	// Capabilities reports the host's tagging support.
	Capabilities(ctx context.Context) (Capabilities, error)
}
