// Package upload runs the workflows that push mail content to Paperless:
// quick PDF upload, single attachment upload and the full email upload
// with cross-linked attachments.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/paperless"
	"github.com/nhle/paperless-upload/internal/poller"
	"github.com/nhle/paperless-upload/internal/source"
)

// Ingestor is the document server API used by the workflows.
type Ingestor interface {
	poller.StatusSource
	BaseURL() string
	SubmitDocument(ctx context.Context, u paperless.Upload) (string, error)
	PatchDocumentCustomFields(ctx context.Context, documentID int, fields []paperless.CustomFieldValue) error
	GetOrCreateCustomField(ctx context.Context, name, dataType string, options []string) (*paperless.CustomField, error)
	GetOrCreateDocumentType(ctx context.Context, name string) (*paperless.DocumentType, error)
	GetOrCreateTag(ctx context.Context, name string) (*paperless.Tag, error)
}

// Waiter resolves a task id into a document id.
type Waiter interface {
	Wait(ctx context.Context, taskID string) (int, error)
}

// Renderer produces upload targets.
type Renderer interface {
	Render(ctx context.Context, strategy model.Strategy, msg *model.MessageRef, atts []model.AttachmentRef) (*model.UploadTarget, error)
	Attachment(messageID string, att model.AttachmentRef) *model.UploadTarget
}

// SettingsLoader returns validated settings. It is called at the start of
// every workflow so configuration changes apply without a restart.
type SettingsLoader func() (*model.Settings, error)

// ClientFactory builds the document server client for one invocation.
type ClientFactory func(s *model.Settings) Ingestor

// PollerFactory builds the task poller for one invocation.
type PollerFactory func(client Ingestor, s *model.Settings) Waiter

// Service runs upload workflows against one mailbox.
type Service struct {
	settings  SettingsLoader
	mailbox   source.Mailbox
	renderer  Renderer
	tagger    *source.Tagger
	newClient ClientFactory
	newPoller PollerFactory
	logger    *slog.Logger

	inflight inflight
	locks    keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithClientFactory replaces the default Paperless client.
func WithClientFactory(f ClientFactory) Option {
	return func(s *Service) { s.newClient = f }
}

// WithPollerFactory replaces the default task poller.
func WithPollerFactory(f PollerFactory) Option {
	return func(s *Service) { s.newPoller = f }
}

// WithTagger sets the negotiated mail tagger. Without one, uploaded
// messages are not tagged.
func WithTagger(t *source.Tagger) Option {
	return func(s *Service) { s.tagger = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service.
func New(settings SettingsLoader, mailbox source.Mailbox, renderer Renderer, opts ...Option) *Service {
	s := &Service{
		settings: settings,
		mailbox:  mailbox,
		renderer: renderer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newClient == nil {
		s.newClient = func(st *model.Settings) Ingestor {
			return paperless.NewFromSettings(st, s.logger)
		}
	}
	if s.newPoller == nil {
		s.newPoller = func(client Ingestor, st *model.Settings) Waiter {
			return poller.New(client,
				poller.WithMaxAttempts(st.Poll.MaxAttempts),
				poller.WithDelay(st.Poll.Delay),
				poller.WithLogger(s.logger),
			)
		}
	}
	return s
}

// session is the per-invocation state shared by the workflow steps.
type session struct {
	settings *model.Settings
	client   Ingestor
	poller   Waiter
	logger   *slog.Logger
}

// begin takes the in-flight slot for messageID and loads fresh settings.
// The returned release func must be called when the workflow ends.
func (s *Service) begin(workflow, messageID string) (*session, func(), error) {
	release, err := s.inflight.acquire(messageID)
	if err != nil {
		return nil, nil, err
	}

	settings, err := s.settings()
	if err != nil {
		release()
		return nil, nil, err
	}

	client := s.newClient(settings)
	return &session{
		settings: settings,
		client:   client,
		poller:   s.newPoller(client, settings),
		logger:   s.logger.With("workflow", workflow, "message_id", messageID),
	}, release, nil
}

// submit produces the payload of target and posts it.
func (ss *session) submit(ctx context.Context, target *model.UploadTarget) (string, error) {
	data, err := target.Payload(ctx)
	if err != nil {
		return "", err
	}
	m := target.Metadata
	return ss.client.SubmitDocument(ctx, paperless.Upload{
		Filename:        target.Filename,
		Content:         data,
		ContentType:     target.ContentType,
		Title:           m.Title,
		CorrespondentID: m.CorrespondentID,
		DocumentTypeID:  m.DocumentTypeID,
		TagIDs:          m.TagIDs,
		Created:         m.Created,
		Source:          m.Source,
	})
}

// tagMessage marks the message as uploaded. Failures are logged only.
func (s *Service) tagMessage(ctx context.Context, ss *session, messageID string) {
	if s.tagger == nil {
		return
	}
	if err := s.tagger.TagMessage(ctx, messageID); err != nil {
		ss.logger.Warn("tagging message", "error", err)
	}
}

// fail marks result as a hard failure.
func fail(result *model.UploadResult, err error) (*model.UploadResult, error) {
	result.Success = false
	result.Error = err.Error()
	return result, err
}

// isTimeout reports whether err means the task is still processing.
func isTimeout(err error) bool {
	var w *model.TaskTimeoutWarning
	return errors.As(err, &w)
}

// attachmentError formats a per-attachment error entry.
func attachmentError(name string, err error) string {
	return fmt.Sprintf("%s: %v", name, err)
}

// senderAddress extracts the bare address from a From value such as
// "Alice <alice@example.com>".
func senderAddress(author string) string {
	if a, err := mail.ParseAddress(author); err == nil {
		return a.Address
	}
	return author
}

// uniqueInts deduplicates ids preserving order.
func uniqueInts(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	var out []int
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
