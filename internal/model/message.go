package model

import (
	"path"
	"strings"
	"time"
)

// MessageRef is a read-only snapshot of a mail message taken once per
// workflow invocation.
type MessageRef struct {
	// ID is the host's identifier for the message (IMAP UID or local uuid).
	ID string `json:"id" db:"id"`

	Subject    string    `json:"subject" db:"subject"`
	Author     string    `json:"author" db:"author"`
	Recipients []string  `json:"recipients" db:"-"`
	Date       time.Time `json:"date" db:"date"`

	// Tags holds the keys of the mail tags currently set on the message.
	Tags []string `json:"tags" db:"-"`
}

// HasTag reports whether key is among the message's tags.
func (m *MessageRef) HasTag(key string) bool {
	for _, t := range m.Tags {
		if t == key {
			return true
		}
	}
	return false
}

// AttachmentRef describes one attachment of a message.
type AttachmentRef struct {
	Name string `json:"name"`

	// PartRef addresses the MIME part, e.g. "2" or "1.3".
	PartRef string `json:"part_ref"`

	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// IsPDF reports whether the attachment is a PDF by content type or name.
func (a AttachmentRef) IsPDF() bool {
	return strings.EqualFold(a.ContentType, "application/pdf") ||
		strings.HasSuffix(strings.ToLower(a.Name), ".pdf")
}

// Stem returns the file name without its extension.
func (a AttachmentRef) Stem() string {
	return strings.TrimSuffix(a.Name, path.Ext(a.Name))
}

// FilterPDFs returns the PDF attachments of atts.
func FilterPDFs(atts []AttachmentRef) []AttachmentRef {
	var out []AttachmentRef
	for _, a := range atts {
		if a.IsPDF() {
			out = append(out, a)
		}
	}
	return out
}

// Part is a node of a parsed message tree.
type Part struct {
	PartRef string

	// ContentType is the declared media type, possibly with parameters.
	ContentType string

	// Name is the attachment file name, if any.
	Name string

	// Body is the decoded text of inline text parts. Other parts leave it
	// empty.
	Body string

	Size  int64
	Parts []*Part
}
