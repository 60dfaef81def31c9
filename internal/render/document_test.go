package render

import (
	"strings"
	"testing"
	"time"

	"github.com/nhle/paperless-upload/internal/extract"
	"github.com/nhle/paperless-upload/internal/model"
)

func testMessageRef() *model.MessageRef {
	return &model.MessageRef{
		ID:         "m1",
		Subject:    "Invoice #42",
		Author:     "Alice <alice@example.com>",
		Recipients: []string{"bob@example.com", "carol@example.com"},
		Date:       time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		Tags:       []string{"paperless"},
	}
}

func TestDocument_headerBlock(t *testing.T) {
	atts := []model.AttachmentRef{
		{Name: "invoice.pdf", ContentType: "application/pdf", Size: 2048},
		{Name: "photo.JPG", ContentType: "image/jpeg", Size: 3 * 1024 * 1024},
		{Name: "data.bin", ContentType: "application/octet-stream", Size: 12},
	}
	doc, err := Document(testMessageRef(), atts, extract.Body{Text: "<p>Hello</p>", IsHTML: true, Found: true})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}

	out := string(doc)
	for _, want := range []string{
		"Datum:", "01.03.2024 10:30",
		"Von:", "Alice &lt;alice@example.com&gt;",
		"An:", "bob@example.com, carol@example.com",
		"Betreff:", "Invoice #42",
		"Tags:", "paperless",
		"Anhänge:",
		"[PDF] invoice.pdf (2.0 KiB)",
		"[IMG] photo.JPG (3.0 MiB)",
		"[FILE] data.bin (12 B)",
		"<p>Hello</p>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("document missing %q", want)
		}
	}
}

func TestDocument_sanitizesHTMLBody(t *testing.T) {
	doc, err := Document(testMessageRef(), nil, extract.Body{
		Text:   `<p onclick="x()">Hi</p><script>alert(1)</script>`,
		IsHTML: true,
		Found:  true,
	})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	out := string(doc)
	if strings.Contains(out, "<script") || strings.Contains(out, "onclick") {
		t.Errorf("document kept active content:\n%s", out)
	}
	if strings.Contains(out, "Anhänge:") {
		t.Error("attachment row rendered without attachments")
	}
}

func TestDocument_plainTextIsEscaped(t *testing.T) {
	doc, err := Document(testMessageRef(), nil, extract.Body{Text: "a < b\n<script>", Found: true})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	out := string(doc)
	if !strings.Contains(out, "<pre>a &lt; b\n&lt;script&gt;</pre>") {
		t.Errorf("plain body not escaped into pre:\n%s", out)
	}
}

func TestTypeIndicator(t *testing.T) {
	tests := []struct {
		att  model.AttachmentRef
		want string
	}{
		{model.AttachmentRef{Name: "a.pdf"}, "[PDF]"},
		{model.AttachmentRef{Name: "a", ContentType: "application/pdf"}, "[PDF]"},
		{model.AttachmentRef{Name: "a.docx"}, "[DOC]"},
		{model.AttachmentRef{Name: "a.xlsx"}, "[XLS]"},
		{model.AttachmentRef{Name: "a.csv"}, "[XLS]"},
		{model.AttachmentRef{Name: "a", ContentType: "image/png"}, "[IMG]"},
		{model.AttachmentRef{Name: "a.zip"}, "[ZIP]"},
		{model.AttachmentRef{Name: "a.txt"}, "[TXT]"},
		{model.AttachmentRef{Name: "a.bin"}, "[FILE]"},
	}
	for _, tt := range tests {
		if got := typeIndicator(tt.att); got != tt.want {
			t.Errorf("typeIndicator(%+v) = %s, want %s", tt.att, got, tt.want)
		}
	}
}
