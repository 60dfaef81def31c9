package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nhle/paperless-upload/internal/dispatch"
	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/source"
	"github.com/nhle/paperless-upload/internal/ui"
	"github.com/nhle/paperless-upload/internal/upload"
)

func uploadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a message or its attachments",
	}
	cmd.AddCommand(uploadQuickCmd(a))
	cmd.AddCommand(uploadAttachmentCmd(a))
	cmd.AddCommand(uploadEmailCmd(a))
	return cmd
}

func uploadQuickCmd(a *app) *cobra.Command {
	var (
		refs        []string
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "quick <message-id>",
		Short: "Upload PDF attachments titled after their file names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := a.dispatcher(ctx)
			if err != nil {
				return err
			}
			req := dispatch.Request{
				Command: dispatch.CmdQuickUpload,
				Quick:   &upload.QuickRequest{MessageID: args[0], PartRefs: refs},
			}
			if interactive {
				atts, err := a.mailbox.ListAttachments(ctx, args[0])
				if err != nil {
					return err
				}
				selected, err := ui.SelectAttachments(atts)
				if err != nil {
					return err
				}
				req.Handoff = d.Handoffs().Put(args[0], selected)
			}
			return runUpload(ctx, d, req)
		},
	}
	cmd.Flags().StringSliceVarP(&refs, "attachment", "a", nil, "part ref of a PDF attachment (repeatable, default: all PDFs)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "choose attachments in a form")
	return cmd
}

func uploadAttachmentCmd(a *app) *cobra.Command {
	var (
		title         string
		correspondent int
		documentType  int
		tags          []string
		created       string
		interactive   bool
	)
	cmd := &cobra.Command{
		Use:   "attachment <message-id> <part-ref>",
		Short: "Upload one attachment with explicit metadata",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := a.dispatcher(ctx)
			if err != nil {
				return err
			}

			req := &upload.AttachmentRequest{MessageID: args[0], PartRef: args[1], TagNames: tags}
			if interactive {
				meta, err := attachmentFormMetadata(ctx, a, args[0], args[1])
				if err != nil {
					return err
				}
				req.Metadata = *meta
			} else {
				req.Metadata = model.Metadata{
					Title:           title,
					CorrespondentID: optionalFlag(cmd, "correspondent", correspondent),
					DocumentTypeID:  optionalFlag(cmd, "document-type", documentType),
				}
				if created != "" {
					t, err := time.Parse("2006-01-02", created)
					if err != nil {
						return fmt.Errorf("--created: use YYYY-MM-DD: %w", err)
					}
					req.Metadata.Created = &t
				}
			}

			return runUpload(ctx, d, dispatch.Request{Command: dispatch.CmdAttachmentUpload, Attachment: req})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "document title (default: file name)")
	cmd.Flags().IntVar(&correspondent, "correspondent", 0, "correspondent id")
	cmd.Flags().IntVar(&documentType, "document-type", 0, "document type id")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag name, created when missing (repeatable)")
	cmd.Flags().StringVar(&created, "created", "", "created date YYYY-MM-DD (default: message date)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "enter metadata in a form")
	return cmd
}

func uploadEmailCmd(a *app) *cobra.Command {
	var (
		strategy       string
		direction      string
		correspondent  int
		tags           []string
		refs           []string
		allAttachments bool
		interactive    bool
	)
	cmd := &cobra.Command{
		Use:   "email <message-id>",
		Short: "Upload the message as a document and link its attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := a.dispatcher(ctx)
			if err != nil {
				return err
			}
			messageID := args[0]

			req := &upload.EmailRequest{
				MessageID:       messageID,
				Direction:       direction,
				CorrespondentID: optionalFlag(cmd, "correspondent", correspondent),
				TagNames:        tags,
				PartRefs:        refs,
			}
			if strategy != "" {
				if req.Strategy, err = model.ParseStrategy(strategy); err != nil {
					return err
				}
			}
			if allAttachments {
				atts, err := a.mailbox.ListAttachments(ctx, messageID)
				if err != nil {
					return err
				}
				req.PartRefs = nil
				for _, att := range atts {
					req.PartRefs = append(req.PartRefs, att.PartRef)
				}
			}

			dreq := dispatch.Request{Command: dispatch.CmdEmailUpload, Email: req}
			if interactive {
				id, err := emailForm(ctx, a, d, req)
				if err != nil {
					return err
				}
				dreq.Handoff = id
			}
			return runUpload(ctx, d, dreq)
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "local-pdf, remote-pdf, html or eml (default: render.strategy)")
	cmd.Flags().StringVarP(&direction, "direction", "d", "", "direction option, e.g. Eingang")
	cmd.Flags().IntVar(&correspondent, "correspondent", 0, "correspondent id (default: sender mapping)")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag name, created when missing (repeatable)")
	cmd.Flags().StringSliceVarP(&refs, "attachment", "a", nil, "part ref of an attachment to upload alongside (repeatable)")
	cmd.Flags().BoolVar(&allAttachments, "all-attachments", false, "upload every attachment alongside")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "choose options in a form")
	return cmd
}

// emailForm fills req from the form and hands the attachment selection
// over to the dispatcher.
func emailForm(ctx context.Context, a *app, d *dispatch.Dispatcher, req *upload.EmailRequest) (uuid.UUID, error) {
	msg, err := a.mailbox.Message(ctx, req.MessageID)
	if err != nil {
		return uuid.Nil, err
	}
	atts, err := a.mailbox.ListAttachments(ctx, req.MessageID)
	if err != nil {
		return uuid.Nil, err
	}
	client, err := a.client()
	if err != nil {
		return uuid.Nil, err
	}
	opts, err := ui.LoadOptions(ctx, client)
	if err != nil {
		return uuid.Nil, err
	}
	cfg, err := a.config()
	if err != nil {
		return uuid.Nil, err
	}

	defaults := ui.EmailDefaults{
		Strategy:        req.Strategy,
		Directions:      cfg.Workflow.Directions,
		CorrespondentID: req.CorrespondentID,
	}
	if defaults.Strategy == "" {
		defaults.Strategy, _ = model.ParseStrategy(cfg.Render.Strategy)
	}
	choices, err := ui.EmailForm(msg, atts, opts, defaults)
	if err != nil {
		return uuid.Nil, err
	}

	req.Strategy = choices.Strategy
	req.Direction = choices.Direction
	req.CorrespondentID = choices.CorrespondentID
	req.TagIDs = choices.TagIDs
	return d.Handoffs().Put(req.MessageID, choices.PartRefs), nil
}

func attachmentFormMetadata(ctx context.Context, a *app, messageID, partRef string) (*model.Metadata, error) {
	msg, err := a.mailbox.Message(ctx, messageID)
	if err != nil {
		return nil, err
	}
	atts, err := a.mailbox.ListAttachments(ctx, messageID)
	if err != nil {
		return nil, err
	}
	var att *model.AttachmentRef
	for i := range atts {
		if atts[i].PartRef == partRef {
			att = &atts[i]
		}
	}
	if att == nil {
		return nil, fmt.Errorf("part %s: %w", partRef, source.ErrPartNotFound)
	}

	client, err := a.client()
	if err != nil {
		return nil, err
	}
	opts, err := ui.LoadOptions(ctx, client)
	if err != nil {
		return nil, err
	}
	choices, err := ui.AttachmentForm(*att, msg.Date, opts)
	if err != nil {
		return nil, err
	}
	return &choices.Metadata, nil
}

// runUpload dispatches req and prints the summary.
func runUpload(ctx context.Context, d *dispatch.Dispatcher, req dispatch.Request) error {
	resp, err := d.Dispatch(ctx, req)
	if resp.Result != nil {
		fmt.Println(ui.RenderSummary(resp.Result))
	}
	switch {
	case errors.Is(err, context.Canceled):
		return errors.New("upload cancelled")
	case errors.Is(err, model.ErrUploadInFlight):
		return fmt.Errorf("%w: wait for the running upload to finish", err)
	}
	return err
}

// optionalFlag returns &v when the flag was given explicitly.
func optionalFlag(cmd *cobra.Command, name string, v int) *int {
	if !cmd.Flags().Changed(name) || v <= 0 {
		return nil
	}
	return &v
}
