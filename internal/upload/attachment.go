package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/source"
)

// DefaultSource is sent as the document source when none is given.
const DefaultSource = "E-Mail"

// AttachmentRequest uploads one attachment with explicit metadata.
type AttachmentRequest struct {
	MessageID string
	PartRef   string

	// Metadata overrides. An empty title falls back to the file name stem,
	// a nil Created to the message date.
	Metadata model.Metadata

	// TagNames are resolved, and created when missing, in addition to
	// Metadata.TagIDs.
	TagNames []string
}

// Attachment uploads a single attachment. Any failure to submit or
// process the document is a hard failure, since it is the only document.
func (s *Service) Attachment(ctx context.Context, req AttachmentRequest) (*model.UploadResult, error) {
	result := &model.UploadResult{Strategy: model.StrategyAttachment}

	ss, release, err := s.begin("attachment", req.MessageID)
	if err != nil {
		return fail(result, err)
	}
	defer release()

	msg, err := s.mailbox.Message(ctx, req.MessageID)
	if err != nil {
		return fail(result, fmt.Errorf("reading message: %w", err))
	}
	atts, err := s.mailbox.ListAttachments(ctx, req.MessageID)
	if err != nil {
		return fail(result, fmt.Errorf("listing attachments: %w", err))
	}
	selected, _ := selectAttachments(atts, []string{req.PartRef})
	if len(selected) == 0 {
		return fail(result, fmt.Errorf("part %s: %w", req.PartRef, source.ErrPartNotFound))
	}
	att := selected[0]

	meta := req.Metadata
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = att.Stem()
	}
	if meta.Created == nil {
		meta.Created = createdFrom(msg.Date)
	}
	if meta.Source == "" {
		meta.Source = DefaultSource
	}
	meta.TagIDs = s.resolveTags(ctx, ss, meta.TagIDs, req.TagNames)

	target := s.renderer.Attachment(req.MessageID, att)
	target.Metadata = meta

	ss.logger.Info("uploading attachment", "attachment", att.Name, "title", meta.Title)
	taskID, err := ss.submit(ctx, target)
	if err != nil {
		return fail(result, err)
	}
	s.tagMessage(ctx, ss, req.MessageID)

	id, err := ss.poller.Wait(ctx, taskID)
	switch {
	case err == nil:
		result.AttachmentDocIDs = []int{id}
	case isTimeout(err):
		result.Warning = "The document is still being processed."
	default:
		return fail(result, err)
	}

	result.Success = true
	return result, nil
}
