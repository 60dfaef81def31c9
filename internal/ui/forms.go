package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/nhle/paperless-upload/internal/model"
)

// ErrNothingSelected is returned when a form completes with no attachment
// chosen where one is required.
var ErrNothingSelected = errors.New("no attachment selected")

const dateLayout = "2006-01-02"

// SelectAttachments asks which PDF attachments a quick upload sends.
func SelectAttachments(atts []model.AttachmentRef) ([]string, error) {
	opts := attachmentOptions(atts, true)
	if len(opts) == 0 {
		return nil, ErrNothingSelected
	}

	var refs []string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("PDF attachments").
				Description("Each file becomes a document titled after its name.").
				Options(opts...).
				Value(&refs).
				Validate(requireSelection),
		),
	)
	if err := form.Run(); err != nil {
		return nil, err
	}
	return refs, nil
}

// EmailChoices are the answers of the email upload form.
type EmailChoices struct {
	Strategy        model.Strategy
	Direction       string
	CorrespondentID *int
	TagIDs          []int
	PartRefs        []string
}

// emailBindings holds the form values on the heap for huh's Value
// pointers.
type emailBindings struct {
	strategy      string
	direction     string
	correspondent int
	tagIDs        []int
	partRefs      []string
}

func (b *emailBindings) choices() *EmailChoices {
	return &EmailChoices{
		Strategy:        model.Strategy(b.strategy),
		Direction:       b.direction,
		CorrespondentID: optionalID(b.correspondent),
		TagIDs:          b.tagIDs,
		PartRefs:        b.partRefs,
	}
}

// EmailDefaults preselects form values.
type EmailDefaults struct {
	Strategy        model.Strategy
	Directions      []string
	CorrespondentID *int
}

// EmailForm asks how to upload msg and which attachments go along.
func EmailForm(msg *model.MessageRef, atts []model.AttachmentRef, opts *Options, d EmailDefaults) (*EmailChoices, error) {
	b := &emailBindings{strategy: string(d.Strategy)}
	if d.CorrespondentID != nil {
		b.correspondent = *d.CorrespondentID
	}
	form := buildEmailForm(msg, atts, opts, d, b)
	if err := form.Run(); err != nil {
		return nil, err
	}
	return b.choices(), nil
}

func buildEmailForm(msg *model.MessageRef, atts []model.AttachmentRef, opts *Options, d EmailDefaults, b *emailBindings) *huh.Form {
	fields := []huh.Field{
		huh.NewNote().
			Title(subjectOrPlaceholder(msg.Subject)).
			Description(fmt.Sprintf("From %s, %s", msg.Author, msg.Date.Local().Format("02.01.2006 15:04"))),
		huh.NewSelect[string]().
			Title("Format").
			Options(
				huh.NewOption("PDF (local browser)", string(model.StrategyLocalPDF)),
				huh.NewOption("PDF (conversion service)", string(model.StrategyRemotePDF)),
				huh.NewOption("HTML", string(model.StrategyHTML)),
				huh.NewOption("Original message (.eml)", string(model.StrategyEML)),
			).
			Value(&b.strategy),
	}
	if len(d.Directions) > 0 {
		dirs := []huh.Option[string]{huh.NewOption("None", "")}
		for _, dir := range d.Directions {
			dirs = append(dirs, huh.NewOption(dir, dir))
		}
		fields = append(fields, huh.NewSelect[string]().
			Title("Direction").
			Options(dirs...).
			Value(&b.direction))
	}
	fields = append(fields, huh.NewSelect[int]().
		Title("Correspondent").
		Options(correspondentOptions(opts.Correspondents)...).
		Value(&b.correspondent))

	groups := []*huh.Group{huh.NewGroup(fields...)}

	var second []huh.Field
	if len(opts.Tags) > 0 {
		second = append(second, huh.NewMultiSelect[int]().
			Title("Tags").
			Options(tagOptions(opts.Tags)...).
			Value(&b.tagIDs))
	}
	if attOpts := attachmentOptions(atts, false); len(attOpts) > 0 {
		second = append(second, huh.NewMultiSelect[string]().
			Title("Attachments").
			Description("Uploaded as separate documents and linked to the email.").
			Options(attOpts...).
			Value(&b.partRefs))
	}
	if len(second) > 0 {
		groups = append(groups, huh.NewGroup(second...))
	}
	return huh.NewForm(groups...)
}

// AttachmentChoices are the answers of the single attachment form.
type AttachmentChoices struct {
	Metadata model.Metadata
}

type attachmentBindings struct {
	title         string
	correspondent int
	documentType  int
	tagIDs        []int
	created       string
}

func (b *attachmentBindings) choices() (*AttachmentChoices, error) {
	meta := model.Metadata{
		Title:           strings.TrimSpace(b.title),
		CorrespondentID: optionalID(b.correspondent),
		DocumentTypeID:  optionalID(b.documentType),
		TagIDs:          b.tagIDs,
	}
	if s := strings.TrimSpace(b.created); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("created: %w", err)
		}
		meta.Created = &t
	}
	return &AttachmentChoices{Metadata: meta}, nil
}

// AttachmentForm asks for the metadata of a single attachment upload.
func AttachmentForm(att model.AttachmentRef, created time.Time, opts *Options) (*AttachmentChoices, error) {
	b := &attachmentBindings{title: att.Stem()}
	if !created.IsZero() {
		b.created = created.Format(dateLayout)
	}
	if err := buildAttachmentForm(att, opts, b).Run(); err != nil {
		return nil, err
	}
	return b.choices()
}

func buildAttachmentForm(att model.AttachmentRef, opts *Options, b *attachmentBindings) *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Description(att.Name).
			Value(&b.title).
			Validate(validateRequired("Title")),
		huh.NewSelect[int]().
			Title("Correspondent").
			Options(correspondentOptions(opts.Correspondents)...).
			Value(&b.correspondent),
		huh.NewSelect[int]().
			Title("Document type").
			Options(documentTypeOptions(opts.DocumentTypes)...).
			Value(&b.documentType),
	}
	if len(opts.Tags) > 0 {
		fields = append(fields, huh.NewMultiSelect[int]().
			Title("Tags").
			Options(tagOptions(opts.Tags)...).
			Value(&b.tagIDs))
	}
	fields = append(fields, huh.NewInput().
		Title("Created").
		Placeholder("YYYY-MM-DD (optional)").
		Value(&b.created).
		Validate(validateOptionalDate))

	return huh.NewForm(huh.NewGroup(fields...))
}

func subjectOrPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(no subject)"
	}
	return s
}

func requireSelection(refs []string) error {
	if len(refs) == 0 {
		return ErrNothingSelected
	}
	return nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
