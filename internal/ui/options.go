// Package ui holds the interactive upload forms and the result summary.
package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/paperless"
)

// OptionSource lists the server objects offered in the forms.
type OptionSource interface {
	ListCorrespondents(ctx context.Context) ([]paperless.Correspondent, error)
	ListTags(ctx context.Context) ([]paperless.Tag, error)
	ListDocumentTypes(ctx context.Context) ([]paperless.DocumentType, error)
}

// Options are the choices loaded from the server.
type Options struct {
	Correspondents []paperless.Correspondent
	Tags           []paperless.Tag
	DocumentTypes  []paperless.DocumentType
}

// LoadOptions fetches correspondents, tags and document types
// concurrently. The first failure cancels the others.
func LoadOptions(ctx context.Context, src OptionSource) (*Options, error) {
	var opts Options
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		opts.Correspondents, err = src.ListCorrespondents(ctx)
		if err != nil {
			return fmt.Errorf("loading correspondents: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		opts.Tags, err = src.ListTags(ctx)
		if err != nil {
			return fmt.Errorf("loading tags: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		opts.DocumentTypes, err = src.ListDocumentTypes(ctx)
		if err != nil {
			return fmt.Errorf("loading document types: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	byName := func(a, b string) int { return strings.Compare(strings.ToLower(a), strings.ToLower(b)) }
	slices.SortFunc(opts.Correspondents, func(a, b paperless.Correspondent) int { return byName(a.Name, b.Name) })
	slices.SortFunc(opts.Tags, func(a, b paperless.Tag) int { return byName(a.Name, b.Name) })
	slices.SortFunc(opts.DocumentTypes, func(a, b paperless.DocumentType) int { return byName(a.Name, b.Name) })
	return &opts, nil
}

func correspondentOptions(cs []paperless.Correspondent) []huh.Option[int] {
	opts := []huh.Option[int]{huh.NewOption("None", 0)}
	for _, c := range cs {
		opts = append(opts, huh.NewOption(c.Name, c.ID))
	}
	return opts
}

func documentTypeOptions(dts []paperless.DocumentType) []huh.Option[int] {
	opts := []huh.Option[int]{huh.NewOption("None", 0)}
	for _, dt := range dts {
		opts = append(opts, huh.NewOption(dt.Name, dt.ID))
	}
	return opts
}

func tagOptions(tags []paperless.Tag) []huh.Option[int] {
	opts := make([]huh.Option[int], len(tags))
	for i, t := range tags {
		opts[i] = huh.NewOption(t.Name, t.ID)
	}
	return opts
}

// attachmentOptions lists atts by part ref. When pdfOnly is set, other
// attachments are left out. Every option starts selected.
func attachmentOptions(atts []model.AttachmentRef, pdfOnly bool) []huh.Option[string] {
	var opts []huh.Option[string]
	for _, a := range atts {
		if pdfOnly && !a.IsPDF() {
			continue
		}
		label := fmt.Sprintf("%s (%s)", a.Name, humanize.IBytes(uint64(a.Size)))
		opts = append(opts, huh.NewOption(label, a.PartRef).Selected(true))
	}
	return opts
}


// optionalID maps the "None" choice to nil.
func optionalID(id int) *int {
	if id == 0 {
		return nil
	}
	return &id
}
