package upload

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/nhle/paperless-upload/internal/crossref"
	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/source"
)

// EmailRequest uploads a message as a document, optionally with some of
// its attachments.
type EmailRequest struct {
	MessageID string

	// Strategy defaults to render.strategy from the settings.
	Strategy model.Strategy

	// PartRefs selects the attachments to upload alongside.
	PartRefs []string

	// Direction is a label of the direction select field. Empty skips it.
	Direction string

	// CorrespondentID overrides the sender mapping.
	CorrespondentID *int

	TagIDs   []int
	TagNames []string
}

// Email runs the full upload: resolve metadata, submit the rendered email,
// wait for its id, upload the selected attachments one after another and
// link everything through custom fields.
//
// Only configuration problems, an unresolvable related-documents field
// and a failed email document are hard failures. They are returned as the
// error and in result.Error. Attachment problems end up in
// result.AttachmentErrors.
func (s *Service) Email(ctx context.Context, req EmailRequest) (*model.UploadResult, error) {
	result := &model.UploadResult{Strategy: req.Strategy}

	ss, release, err := s.begin("email", req.MessageID)
	if err != nil {
		return fail(result, err)
	}
	defer release()

	strategy := req.Strategy
	if strategy == "" {
		if strategy, err = model.ParseStrategy(ss.settings.Render.Strategy); err != nil {
			return fail(result, &model.ConfigurationError{Field: "render.strategy", Reason: err.Error()})
		}
	}
	result.Strategy = strategy

	msg, err := s.mailbox.Message(ctx, req.MessageID)
	if err != nil {
		return fail(result, fmt.Errorf("reading message: %w", err))
	}
	atts, err := s.mailbox.ListAttachments(ctx, req.MessageID)
	if err != nil {
		return fail(result, fmt.Errorf("listing attachments: %w", err))
	}
	selected, missing := selectAttachments(atts, req.PartRefs)
	for _, ref := range missing {
		result.AttachmentErrors = append(result.AttachmentErrors,
			attachmentError("part "+ref, source.ErrPartNotFound))
	}

	fields, err := s.resolveLinkFields(ctx, ss, req.Direction)
	if err != nil {
		return fail(result, err)
	}

	meta := model.Metadata{
		CorrespondentID: req.CorrespondentID,
		TagIDs:          s.resolveTags(ctx, ss, req.TagIDs, req.TagNames),
		Created:         createdFrom(msg.Date),
		Direction:       req.Direction,
	}
	if meta.CorrespondentID == nil {
		if id, ok := ss.settings.CorrespondentFor(senderAddress(msg.Author)); ok {
			meta.CorrespondentID = &id
		}
	}

	target, err := s.renderer.Render(ctx, strategy, msg, atts)
	if err != nil {
		return fail(result, err)
	}
	target.Metadata = meta
	target.Metadata.Title = emailTitle(msg.Subject, target.Filename)
	target.Metadata.DocumentTypeID = fields.documentType

	ss.logger.Info("uploading email document", "filename", target.Filename, "strategy", string(strategy))
	taskID, err := ss.submit(ctx, target)
	if err != nil {
		return fail(result, err)
	}
	s.tagMessage(ctx, ss, req.MessageID)

	var primary *int
	id, err := ss.poller.Wait(ctx, taskID)
	switch {
	case err == nil:
		primary = &id
		result.EmailDocID = primary
	case isTimeout(err):
		if ss.settings.Workflow.OnPrimaryTimeout != model.OnTimeoutUploadUnlinked {
			result.Warning = "The email document is still being processed; attachments were not uploaded."
			result.Success = true
			ss.logger.Warn("email document still processing, skipping attachments", "task_id", taskID)
			return result, nil
		}
		result.Warning = "The email document is still being processed; attachments were uploaded without links."
		ss.logger.Warn("email document still processing, uploading attachments unlinked", "task_id", taskID)
	default:
		return fail(result, err)
	}

	// Attachments get no document type.
	attMeta := model.Metadata{
		CorrespondentID: meta.CorrespondentID,
		TagIDs:          meta.TagIDs,
		Created:         meta.Created,
	}
	for _, att := range selected {
		docID, err := s.uploadAttachment(ctx, ss, msg.ID, att, attMeta)
		if err != nil {
			if ctx.Err() != nil {
				return fail(result, ctx.Err())
			}
			ss.logger.Warn("attachment upload failed", "attachment", att.Name, "error", err)
			result.AttachmentErrors = append(result.AttachmentErrors, attachmentError(att.Name, err))
			continue
		}
		result.AttachmentDocIDs = append(result.AttachmentDocIDs, docID)
	}

	s.link(ctx, ss, primary, result.AttachmentDocIDs, fields)
	addWarning(result, fields.warning)

	result.Success = true
	ss.logger.Info("email upload finished",
		"email_doc_id", derefOr(primary, 0),
		"attachments", len(result.AttachmentDocIDs),
		"attachment_errors", len(result.AttachmentErrors),
	)
	return result, nil
}

// uploadAttachment submits one attachment and waits for its document id.
func (s *Service) uploadAttachment(
	ctx context.Context,
	ss *session,
	messageID string,
	att model.AttachmentRef,
	meta model.Metadata,
) (int, error) {
	target := s.renderer.Attachment(messageID, att)
	target.Metadata = meta
	target.Metadata.Title = att.Stem()

	taskID, err := ss.submit(ctx, target)
	if err != nil {
		return 0, err
	}
	id, err := ss.poller.Wait(ctx, taskID)
	if isTimeout(err) {
		return 0, fmt.Errorf("still processing, not linked (task %s)", taskID)
	}
	return id, err
}

// link applies the cross-link plan. Failures are logged, never returned.
func (s *Service) link(ctx context.Context, ss *session, primary *int, attachmentIDs []int, lf *linkFields) {
	for _, p := range crossref.Plan(primary, attachmentIDs, crossref.Fields{Related: lf.related, Direction: lf.direction}) {
		if err := ss.client.PatchDocumentCustomFields(ctx, p.DocumentID, p.Values); err != nil {
			ss.logger.Warn("linking documents", "error", &model.LinkingError{DocumentID: p.DocumentID, Err: err})
			continue
		}
		ss.logger.Debug("document linked", "document_id", p.DocumentID, "fields", len(p.Values))
	}
}

// addWarning appends msg to the result's warning.
func addWarning(result *model.UploadResult, msg string) {
	switch {
	case msg == "":
	case result.Warning == "":
		result.Warning = msg
	default:
		result.Warning += " " + msg
	}
}

// selectAttachments returns the attachments named by refs in mailbox
// order, and the refs that matched nothing.
func selectAttachments(atts []model.AttachmentRef, refs []string) ([]model.AttachmentRef, []string) {
	want := make(map[string]bool, len(refs))
	for _, r := range refs {
		want[r] = true
	}
	var selected []model.AttachmentRef
	for _, a := range atts {
		if want[a.PartRef] {
			selected = append(selected, a)
			delete(want, a.PartRef)
		}
	}
	var missing []string
	for _, r := range refs {
		if want[r] {
			missing = append(missing, r)
			delete(want, r)
		}
	}
	return selected, missing
}

// emailTitle is the subject, or the file name stem for messages without
// one.
func emailTitle(subject, filename string) string {
	if s := strings.TrimSpace(subject); s != "" {
		return s
	}
	return strings.TrimSuffix(filename, path.Ext(filename))
}

// createdFrom returns a pointer to t, or nil for the zero time.
func createdFrom(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
