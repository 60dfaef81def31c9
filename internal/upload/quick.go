package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/source"
)

// QuickRequest uploads PDF attachments with their file name as title.
type QuickRequest struct {
	MessageID string

	// PartRefs selects attachments. Empty means every PDF attachment.
	PartRefs []string
}

// errNoPDFs is returned when a quick upload has nothing to send.
var errNoPDFs = errors.New("no PDF attachments selected")

// Quick submits each selected PDF and waits for its document id. It
// succeeds when at least one submission was accepted; the rest are
// reported per attachment.
func (s *Service) Quick(ctx context.Context, req QuickRequest) (*model.UploadResult, error) {
	result := &model.UploadResult{Strategy: model.StrategyAttachment}

	ss, release, err := s.begin("quick", req.MessageID)
	if err != nil {
		return fail(result, err)
	}
	defer release()

	atts, err := s.mailbox.ListAttachments(ctx, req.MessageID)
	if err != nil {
		return fail(result, fmt.Errorf("listing attachments: %w", err))
	}

	var selected []model.AttachmentRef
	if len(req.PartRefs) == 0 {
		selected = model.FilterPDFs(atts)
	} else {
		var missing []string
		selected, missing = selectAttachments(atts, req.PartRefs)
		for _, ref := range missing {
			result.AttachmentErrors = append(result.AttachmentErrors,
				attachmentError("part "+ref, source.ErrPartNotFound))
		}
		pdfs := model.FilterPDFs(selected)
		for _, a := range selected {
			if !a.IsPDF() {
				result.AttachmentErrors = append(result.AttachmentErrors,
					attachmentError(a.Name, errors.New("not a PDF")))
			}
		}
		selected = pdfs
	}
	if len(selected) == 0 {
		return fail(result, errNoPDFs)
	}

	accepted := 0
	var pending []string
	for _, att := range selected {
		target := s.renderer.Attachment(req.MessageID, att)
		target.Metadata.Title = att.Stem()

		taskID, err := ss.submit(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return fail(result, ctx.Err())
			}
			ss.logger.Warn("quick upload failed", "attachment", att.Name, "error", err)
			result.AttachmentErrors = append(result.AttachmentErrors, attachmentError(att.Name, err))
			continue
		}
		accepted++
		if accepted == 1 {
			s.tagMessage(ctx, ss, req.MessageID)
		}

		id, err := ss.poller.Wait(ctx, taskID)
		switch {
		case err == nil:
			result.AttachmentDocIDs = append(result.AttachmentDocIDs, id)
		case isTimeout(err):
			pending = append(pending, att.Name)
		case ctx.Err() != nil:
			return fail(result, ctx.Err())
		default:
			result.AttachmentErrors = append(result.AttachmentErrors, attachmentError(att.Name, err))
		}
	}

	if len(pending) > 0 {
		result.Warning = fmt.Sprintf("%d document(s) still being processed.", len(pending))
	}
	if accepted == 0 {
		return fail(result, fmt.Errorf("all %d uploads failed", len(selected)))
	}

	result.Success = true
	ss.logger.Info("quick upload finished",
		"accepted", accepted,
		"resolved", len(result.AttachmentDocIDs),
		"errors", len(result.AttachmentErrors),
	)
	return result, nil
}
