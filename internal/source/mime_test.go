package source

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const sampleMessage = "From: Alice Example <alice@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Cc: Carol <carol@example.com>\r\n" +
	"Subject: Invoice #42\r\n" +
	"Date: Fri, 01 Mar 2024 10:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=\"inner\"\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello Bob\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Hello <b>Bob</b></p>\r\n" +
	"--inner--\r\n" +
	"--outer\r\n" +
	"Content-Type: application/pdf; name=\"invoice.pdf\"\r\n" +
	"Content-Disposition: attachment; filename=\"invoice.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQK\r\n" +
	"--outer\r\n" +
	"Content-Type: image/png\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"iVBORw0K\r\n" +
	"--outer--\r\n"

func TestParseTree(t *testing.T) {
	root, err := ParseTree([]byte(sampleMessage))
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	if len(root.Parts) != 3 {
		t.Fatalf("root has %d parts, want 3", len(root.Parts))
	}
	alt := root.Parts[0]
	if alt.PartRef != "1" || len(alt.Parts) != 2 {
		t.Fatalf("alternative part = %+v", alt)
	}
	if alt.Parts[1].PartRef != "1.2" || !strings.Contains(alt.Parts[1].Body, "<b>Bob</b>") {
		t.Errorf("html part = %+v", alt.Parts[1])
	}
	if root.Parts[1].Body != "" {
		t.Error("attachment body should not be kept as text")
	}
}

func TestAttachmentsOf(t *testing.T) {
	root, err := ParseTree([]byte(sampleMessage))
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	atts := AttachmentsOf(root)
	if len(atts) != 2 {
		t.Fatalf("got %d attachments, want 2: %+v", len(atts), atts)
	}
	if atts[0].Name != "invoice.pdf" || atts[0].PartRef != "2" || atts[0].ContentType != "application/pdf" || !atts[0].IsPDF() {
		t.Errorf("first attachment = %+v", atts[0])
	}
	if atts[1].Name != "part-3" || atts[1].ContentType != "image/png" {
		t.Errorf("second attachment = %+v", atts[1])
	}
}

func TestPartBytes(t *testing.T) {
	data, err := PartBytes([]byte(sampleMessage), "2")
	if err != nil {
		t.Fatalf("PartBytes: %v", err)
	}
	if string(data) != "%PDF-1.4\n" {
		t.Errorf("data = %q", data)
	}

	nested, err := PartBytes([]byte(sampleMessage), "1.1")
	if err != nil || !strings.HasPrefix(string(nested), "Hello Bob") {
		t.Errorf("PartBytes(1.1) = %q, %v", nested, err)
	}

	if _, err := PartBytes([]byte(sampleMessage), "9"); !errors.Is(err, ErrPartNotFound) {
		t.Errorf("error = %v, want ErrPartNotFound", err)
	}
}

func TestParseTree_singlePart(t *testing.T) {
	raw := "From: a@example.com\r\nSubject: plain\r\n\r\njust text\r\n"
	root, err := ParseTree([]byte(raw))
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	if root.PartRef != "1" || !strings.HasPrefix(root.Body, "just text") {
		t.Errorf("root = %+v", root)
	}
	if atts := AttachmentsOf(root); len(atts) != 0 {
		t.Errorf("attachments = %+v", atts)
	}
}

func TestEnvelopeOf(t *testing.T) {
	ref, err := EnvelopeOf("m1", []byte(sampleMessage))
	if err != nil {
		t.Fatalf("EnvelopeOf: %v", err)
	}
	if ref.Subject != "Invoice #42" {
		t.Errorf("Subject = %q", ref.Subject)
	}
	if !strings.Contains(ref.Author, "alice@example.com") {
		t.Errorf("Author = %q", ref.Author)
	}
	if len(ref.Recipients) != 2 {
		t.Errorf("Recipients = %v", ref.Recipients)
	}
	want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if !ref.Date.Equal(want) {
		t.Errorf("Date = %v", ref.Date)
	}
}
