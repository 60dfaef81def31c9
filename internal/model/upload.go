package model

import (
	"context"
	"fmt"
	"time"
)

// Strategy selects how the primary document is produced.
type Strategy string

const (
	StrategyAttachment Strategy = "attachment"
	StrategyLocalPDF   Strategy = "local-pdf"
	StrategyRemotePDF  Strategy = "remote-pdf"
	StrategyHTML       Strategy = "html"
	StrategyEML        Strategy = "eml"
)

// ParseStrategy converts a config or flag value into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyLocalPDF, StrategyRemotePDF, StrategyHTML, StrategyEML:
		return Strategy(s), nil
	case "pdf":
		return StrategyLocalPDF, nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// Role distinguishes the message document from its attachments.
type Role string

const (
	RolePrimary    Role = "primary"
	RoleAttachment Role = "attachment"
)

// Metadata is attached to a document at submission time.
type Metadata struct {
	Title           string
	CorrespondentID *int
	DocumentTypeID  *int
	TagIDs          []int
	Created         *time.Time
	Source          string

	// Direction is set afterwards through the direction custom field.
	Direction string
}

// UploadTarget is one unit of content to ingest.
type UploadTarget struct {
	Role     Role
	Filename string

	// ContentType is declared on the multipart file part. Empty leaves the
	// type to the server's own detection.
	ContentType string

	Metadata Metadata

	// Payload produces the document bytes on demand.
	Payload func(ctx context.Context) ([]byte, error)
}

// UploadResult is the outcome of one workflow invocation.
type UploadResult struct {
	Success  bool     `json:"success"`
	Strategy Strategy `json:"strategy,omitempty"`

	// EmailDocID is nil when the primary document is still processing.
	EmailDocID       *int     `json:"email_doc_id"`
	AttachmentDocIDs []int    `json:"attachment_doc_ids"`
	AttachmentErrors []string `json:"attachment_errors,omitempty"`

	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Uploaded returns the number of documents with a known id.
func (r *UploadResult) Uploaded() int {
	n := len(r.AttachmentDocIDs)
	if r.EmailDocID != nil {
		n++
	}
	return n
}
