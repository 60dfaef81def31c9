package render

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nhle/paperless-upload/internal/extract"
	"github.com/nhle/paperless-upload/internal/model"
)

// MessageSource is the part of a mailbox the renderer reads from.
type MessageSource interface {
	extract.MessageReader
	RawMessage(ctx context.Context, messageID string) ([]byte, error)
}

// Renderer builds upload targets. Payloads are produced lazily, when the
// orchestrator asks for them.
type Renderer struct {
	mailbox MessageSource
	local   PDFPrinter
	remote  PDFPrinter
	logger  *slog.Logger

	pageCount func([]byte) (int, error)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithPrinter sets the printer for the local-pdf strategy.
func WithPrinter(p PDFPrinter) Option {
	return func(r *Renderer) { r.local = p }
}

// WithRemote sets the printer for the remote-pdf strategy, normally a
// Converter.
func WithRemote(p PDFPrinter) Option {
	return func(r *Renderer) { r.remote = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// New returns a renderer over mailbox. Without WithPrinter the local-pdf
// strategy prints through a ChromePrinter.
func New(mailbox MessageSource, opts ...Option) *Renderer {
	r := &Renderer{
		mailbox:   mailbox,
		logger:    slog.Default(),
		pageCount: pdfPageCount,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.local == nil {
		r.local = NewChromePrinter("", 0, r.logger)
	}
	return r
}

// NewFromConfig wires the printers from render settings.
func NewFromConfig(mailbox MessageSource, cfg model.RenderConfig, logger *slog.Logger) *Renderer {
	opts := []Option{
		WithLogger(logger),
		WithPrinter(NewChromePrinter(cfg.ChromePath, cfg.Timeout, logger)),
	}
	if cfg.ServiceURL != "" {
		opts = append(opts, WithRemote(NewConverter(cfg.ServiceURL, cfg.Timeout, logger)))
	}
	return New(mailbox, opts...)
}

// Render returns the primary document target of msg for strategy.
func (r *Renderer) Render(
	ctx context.Context,
	strategy model.Strategy,
	msg *model.MessageRef,
	atts []model.AttachmentRef,
) (*model.UploadTarget, error) {
	target := &model.UploadTarget{Role: model.RolePrimary}
	logger := r.logger.With("message_id", msg.ID, "strategy", string(strategy))

	switch strategy {
	case model.StrategyEML:
		target.Filename = Filename(msg.Date, msg.Subject, "eml")
		target.Payload = func(ctx context.Context) ([]byte, error) {
			raw, err := r.mailbox.RawMessage(ctx, msg.ID)
			if err != nil {
				return nil, fmt.Errorf("reading raw message: %w", err)
			}
			return FixEnvelope(raw), nil
		}

	case model.StrategyHTML:
		target.Filename = Filename(msg.Date, msg.Subject, "html")
		target.ContentType = "text/html"
		target.Payload = func(ctx context.Context) ([]byte, error) {
			return r.document(ctx, msg, atts)
		}

	case model.StrategyLocalPDF, model.StrategyRemotePDF:
		printer := r.local
		if strategy == model.StrategyRemotePDF {
			if r.remote == nil {
				return nil, &model.ConfigurationError{
					Field:  "render.service_url",
					Reason: "required for the remote-pdf strategy",
				}
			}
			printer = r.remote
		}
		target.Filename = Filename(msg.Date, msg.Subject, "pdf")
		target.ContentType = "application/pdf"
		target.Payload = func(ctx context.Context) ([]byte, error) {
			doc, err := r.document(ctx, msg, atts)
			if err != nil {
				return nil, err
			}
			pdf, err := printer.PrintPDF(ctx, doc)
			if err != nil {
				return nil, err
			}
			pages, err := r.pageCount(pdf)
			if err != nil {
				return nil, fmt.Errorf("rendered PDF is invalid: %w", err)
			}
			logger.Info("rendered email document", "pages", pages, "bytes", len(pdf))
			return pdf, nil
		}

	default:
		return nil, fmt.Errorf("strategy %q cannot render a message", strategy)
	}
	return target, nil
}

func (r *Renderer) document(ctx context.Context, msg *model.MessageRef, atts []model.AttachmentRef) ([]byte, error) {
	body, err := extract.ExtractMessage(ctx, r.mailbox, msg.ID, r.logger)
	if err != nil {
		return nil, err
	}
	return Document(msg, atts, body)
}

// Attachment returns a passthrough target for one attachment. Read
// failures and empty content surface from the payload as
// *model.AttachmentReadError.
func (r *Renderer) Attachment(messageID string, att model.AttachmentRef) *model.UploadTarget {
	return &model.UploadTarget{
		Role:        model.RoleAttachment,
		Filename:    att.Name,
		ContentType: att.ContentType,
		Payload: func(ctx context.Context) ([]byte, error) {
			data, err := r.mailbox.AttachmentBytes(ctx, messageID, att.PartRef)
			if err != nil {
				return nil, &model.AttachmentReadError{Name: att.Name, Err: err}
			}
			if len(data) == 0 {
				return nil, &model.AttachmentReadError{Name: att.Name, Err: model.ErrEmptyAttachment}
			}
			return data, nil
		},
	}
}
