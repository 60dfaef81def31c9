package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/theme"
)

// Outcome classifies a result for display.
func Outcome(r *model.UploadResult) string {
	switch {
	case !r.Success:
		return theme.OutcomeFailed
	case r.Warning != "" || len(r.AttachmentErrors) > 0:
		return theme.OutcomeWarning
	default:
		return theme.OutcomeSuccess
	}
}

// RenderSummary renders the single notification shown when a workflow
// ends.
func RenderSummary(r *model.UploadResult) string {
	outcome := Outcome(r)
	title := map[string]string{
		theme.OutcomeSuccess: "Upload complete",
		theme.OutcomeWarning: "Upload finished with warnings",
		theme.OutcomeFailed:  "Upload failed",
	}[outcome]

	head := theme.OutcomeStyle(outcome).Render(title)
	if r.Strategy != "" && r.Strategy != model.StrategyAttachment {
		head += " " + theme.StrategyLabelStyle(string(r.Strategy)).Render(string(r.Strategy))
	}

	lines := []string{head, ""}
	row := func(label, value string) {
		lines = append(lines, theme.LabelStyle.Render(label)+value)
	}

	if r.EmailDocID != nil {
		row("Email document", fmt.Sprintf("#%d", *r.EmailDocID))
	}
	row("Documents uploaded", fmt.Sprintf("%d", r.Uploaded()))
	if len(r.AttachmentDocIDs) > 0 {
		ids := make([]string, len(r.AttachmentDocIDs))
		for i, id := range r.AttachmentDocIDs {
			ids[i] = fmt.Sprintf("#%d", id)
		}
		row("Attachments", strings.Join(ids, ", "))
	}
	if n := len(r.AttachmentErrors); n > 0 {
		row("Attachment errors", fmt.Sprintf("%d", n))
		for _, e := range r.AttachmentErrors {
			lines = append(lines, theme.ListItemStyle.Render("- "+e))
		}
	}
	if r.Warning != "" {
		lines = append(lines, "", theme.OutcomeStyle(theme.OutcomeWarning).Render(r.Warning))
	}
	if r.Error != "" {
		lines = append(lines, "", theme.OutcomeStyle(theme.OutcomeFailed).Render(r.Error))
	}

	return theme.PanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
