package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/paperless"
	"github.com/nhle/paperless-upload/internal/upload"
)

// Uploader runs the upload workflows.
type Uploader interface {
	Quick(ctx context.Context, req upload.QuickRequest) (*model.UploadResult, error)
	Attachment(ctx context.Context, req upload.AttachmentRequest) (*model.UploadResult, error)
	Email(ctx context.Context, req upload.EmailRequest) (*model.UploadResult, error)
}

// Lookup answers the read-only server queries.
type Lookup interface {
	BaseURL() string
	CheckConnection(ctx context.Context) error
	ListCorrespondents(ctx context.Context) ([]paperless.Correspondent, error)
	ListTags(ctx context.Context) ([]paperless.Tag, error)
	ListDocumentTypes(ctx context.Context) ([]paperless.DocumentType, error)
}

// LookupFactory builds a Lookup from the current settings.
type LookupFactory func() (Lookup, error)

// Request is one command with its arguments. Only the field matching
// Command is read.
type Request struct {
	Command Command

	Quick      *upload.QuickRequest
	Attachment *upload.AttachmentRequest
	Email      *upload.EmailRequest

	// Handoff, when set, supplies the message id and attachment selection
	// of a quick or email upload.
	Handoff uuid.UUID
}

// Response holds the outcome of a command.
type Response struct {
	Command Command

	Result *model.UploadResult

	Correspondents []paperless.Correspondent
	Tags           []paperless.Tag
	DocumentTypes  []paperless.DocumentType

	// ServerURL is set by CmdCheckConnection.
	ServerURL string
}

// Dispatcher routes requests to the uploader and the lookup client.
type Dispatcher struct {
	uploader  Uploader
	newLookup LookupFactory
	handoffs  *Handoffs
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHandoffs shares a handoff store with the caller.
func WithHandoffs(h *Handoffs) Option {
	return func(d *Dispatcher) {
		if h != nil {
			d.handoffs = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Dispatcher.
func New(uploader Uploader, newLookup LookupFactory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		uploader:  uploader,
		newLookup: newLookup,
		handoffs:  NewHandoffs(DefaultHandoffTTL),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handoffs returns the dispatcher's handoff store.
func (d *Dispatcher) Handoffs() *Handoffs { return d.handoffs }

// Dispatch runs req. Upload commands return the workflow result even when
// the error is non-nil.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Response, error) {
	resp := Response{Command: req.Command}
	d.logger.Debug("dispatching command", "command", req.Command.String())

	var err error
	switch req.Command {
	case CmdQuickUpload:
		resp.Result, err = d.quick(ctx, req)
	case CmdAttachmentUpload:
		if req.Attachment == nil {
			return resp, missingArgs(req.Command)
		}
		resp.Result, err = d.uploader.Attachment(ctx, *req.Attachment)
	case CmdEmailUpload:
		resp.Result, err = d.email(ctx, req)
	case CmdListCorrespondents:
		err = d.lookup(func(l Lookup) (err error) {
			resp.Correspondents, err = l.ListCorrespondents(ctx)
			return err
		})
	case CmdListTags:
		err = d.lookup(func(l Lookup) (err error) {
			resp.Tags, err = l.ListTags(ctx)
			return err
		})
	case CmdListDocumentTypes:
		err = d.lookup(func(l Lookup) (err error) {
			resp.DocumentTypes, err = l.ListDocumentTypes(ctx)
			return err
		})
	case CmdCheckConnection:
		err = d.lookup(func(l Lookup) error {
			resp.ServerURL = l.BaseURL()
			return l.CheckConnection(ctx)
		})
	default:
		return resp, fmt.Errorf("dispatch: unknown command %s", req.Command)
	}

	if err != nil && req.Command.IsUpload() {
		d.logger.Error("upload failed", "command", req.Command.String(), "error", err)
	}
	return resp, err
}

func (d *Dispatcher) quick(ctx context.Context, req Request) (*model.UploadResult, error) {
	var q upload.QuickRequest
	if req.Quick != nil {
		q = *req.Quick
	}
	if req.Handoff != uuid.Nil {
		ho, err := d.handoffs.Take(req.Handoff)
		if err != nil {
			return nil, fmt.Errorf("dispatch: %w", err)
		}
		q.MessageID, q.PartRefs = ho.MessageID, ho.Attachments
	}
	if q.MessageID == "" {
		return nil, missingArgs(req.Command)
	}
	return d.uploader.Quick(ctx, q)
}

func (d *Dispatcher) email(ctx context.Context, req Request) (*model.UploadResult, error) {
	var e upload.EmailRequest
	if req.Email != nil {
		e = *req.Email
	}
	if req.Handoff != uuid.Nil {
		ho, err := d.handoffs.Take(req.Handoff)
		if err != nil {
			return nil, fmt.Errorf("dispatch: %w", err)
		}
		e.MessageID, e.PartRefs = ho.MessageID, ho.Attachments
	}
	if e.MessageID == "" {
		return nil, missingArgs(req.Command)
	}
	return d.uploader.Email(ctx, e)
}

func (d *Dispatcher) lookup(fn func(Lookup) error) error {
	if d.newLookup == nil {
		return errors.New("dispatch: no server configured")
	}
	l, err := d.newLookup()
	if err != nil {
		return err
	}
	return fn(l)
}

func missingArgs(c Command) error {
	return fmt.Errorf("dispatch: %s: missing arguments", c)
}
