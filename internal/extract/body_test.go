package extract_test

import (
	"context"
	"strings"
	"testing"

	"github.com/nhle/paperless-upload/internal/extract"
	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/tests/testutil"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		root   *model.Part
		want   string
		isHTML bool
		found  bool
	}{
		{
			name: "html preferred over plain",
			root: &model.Part{ContentType: "multipart/alternative", Parts: []*model.Part{
				{PartRef: "1", ContentType: "text/plain", Body: "a much longer plain text body"},
				{PartRef: "2", ContentType: "text/html; charset=utf-8", Body: "<p>x</p>"},
			}},
			want: "<p>x</p>", isHTML: true, found: true,
		},
		{
			name: "longer html wins",
			root: &model.Part{ContentType: "multipart/mixed", Parts: []*model.Part{
				{PartRef: "1", ContentType: "text/html", Body: "<p>short</p>"},
				{PartRef: "2", ContentType: "multipart/alternative", Parts: []*model.Part{
					{PartRef: "2.1", ContentType: "TEXT/HTML", Body: "<p>considerably longer</p>"},
				}},
			}},
			want: "<p>considerably longer</p>", isHTML: true, found: true,
		},
		{
			name: "plain only",
			root: &model.Part{PartRef: "1", ContentType: "text/plain", Body: "hello"},
			want: "hello", found: true,
		},
		{
			name: "missing content type counts as plain",
			root: &model.Part{PartRef: "1", Body: "untyped"},
			want: "untyped", found: true,
		},
		{
			name: "no body",
			root: &model.Part{ContentType: "multipart/mixed", Parts: []*model.Part{
				{PartRef: "1", ContentType: "application/pdf", Name: "a.pdf"},
			}},
		},
		{name: "nil root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract.Extract(tt.root)
			if got.Text != tt.want || got.IsHTML != tt.isHTML || got.Found != tt.found {
				t.Errorf("Extract() = %+v, want text %q html %v found %v", got, tt.want, tt.isHTML, tt.found)
			}
		})
	}
}

func TestFindOpaque(t *testing.T) {
	atts := []model.AttachmentRef{
		{Name: "invoice.pdf", PartRef: "2", ContentType: "application/pdf"},
		{Name: "smime.p7m", PartRef: "3", ContentType: "application/pkcs7-mime"},
	}
	got, ok := extract.FindOpaque(atts)
	if !ok || got.PartRef != "3" {
		t.Errorf("FindOpaque = %+v, %v", got, ok)
	}

	if _, ok := extract.FindOpaque(atts[:1]); ok {
		t.Error("plain attachments must not be treated as opaque")
	}
}

func TestExtractMessage_unwrapsOpaqueEnvelope(t *testing.T) {
	inner := "Content-Type: multipart/alternative; boundary=\"XYZ\"\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>Signed body</p>\r\n" +
		"--XYZ--\r\n"

	mb := testutil.NewFakeMailbox()
	mb.Add(&testutil.FakeMessage{
		Ref: model.MessageRef{ID: "m1"},
		Tree: &model.Part{ContentType: "multipart/signed", Parts: []*model.Part{
			{PartRef: "1", ContentType: "application/pkcs7-mime", Name: "smime.p7m"},
		}},
		Attachments: []model.AttachmentRef{{Name: "smime.p7m", PartRef: "1", ContentType: "application/pkcs7-mime"}},
		Content:     map[string][]byte{"1": []byte(inner)},
	})

	body, err := extract.ExtractMessage(context.Background(), mb, "m1", testutil.TestLogger())
	if err != nil {
		t.Fatalf("ExtractMessage: %v", err)
	}
	if !body.Found || !body.IsHTML || body.Text != "<p>Signed body</p>" {
		t.Errorf("body = %+v", body)
	}
}

func TestExtractMessage_noBody(t *testing.T) {
	mb := testutil.NewFakeMailbox()
	mb.Add(&testutil.FakeMessage{Ref: model.MessageRef{ID: "m1"}})

	body, err := extract.ExtractMessage(context.Background(), mb, "m1", nil)
	if err != nil {
		t.Fatalf("ExtractMessage: %v", err)
	}
	if body.Found {
		t.Errorf("body = %+v, want not found", body)
	}

	if _, err := extract.ExtractMessage(context.Background(), mb, "missing", nil); err == nil {
		t.Error("expected error for unknown message")
	}
}

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		isHTML bool
		found  bool
	}{
		{
			name: "quoted boundary",
			raw: "Content-Type: multipart/alternative; boundary=\"XYZ\"\r\n\r\n" +
				"preamble\r\n" +
				"--XYZ\r\nContent-Type: text/plain\r\n\r\nplain text\r\n" +
				"--XYZ\r\nContent-Type: text/html\r\n\r\n<b>html</b>\r\n" +
				"--XYZ--\r\n",
			want: "<b>html</b>", isHTML: true, found: true,
		},
		{
			name: "single quoted boundary with LF endings",
			raw: "Content-Type: multipart/mixed; boundary='abc'\n\n" +
				"--abc\nContent-Type: text/plain\n\nfirst\n" +
				"--abc\nContent-Type: text/plain\n\nthe longer second\n" +
				"--abc--\n",
			want: "the longer second", found: true,
		},
		{
			name: "bare boundary after leading headers",
			raw: "MIME-Version: 1.0\r\n" +
				"Content-Type: multipart/alternative; boundary=b42; charset=utf-8\r\n\r\n" +
				"--b42\r\nContent-Type: text/plain\r\n\r\nbody\r\n--b42--",
			want: "body", found: true,
		},
		{
			name: "quoted printable part",
			raw: "Content-Type: multipart/alternative; boundary=q\r\n\r\n" +
				"--q\r\nContent-Type: text/plain; charset=utf-8\r\nContent-Transfer-Encoding: quoted-printable\r\n\r\n" +
				"Gr=C3=BC=C3=9Fe\r\n--q--\r\n",
			want: "Grüße", found: true,
		},
		{
			name: "no boundary falls back to text after blank line",
			raw:  "Content-Type: text/plain\r\n\r\n  Just text.  \r\n",
			want: "Just text.", found: true,
		},
		{
			name: "nothing usable",
			raw:  "garbage without structure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract.Unwrap(tt.raw)
			if got.Text != tt.want || got.IsHTML != tt.isHTML || got.Found != tt.found {
				t.Errorf("Unwrap() = %+v, want text %q html %v found %v", got, tt.want, tt.isHTML, tt.found)
			}
		})
	}
}

func TestUnwrap_nestedMultipart(t *testing.T) {
	raw := "Content-Type: multipart/mixed; boundary=outer\r\n\r\n" +
		"--outer\r\n" +
		"Content-Type: multipart/alternative; boundary=inner\r\n\r\n" +
		"--inner\r\nContent-Type: text/html\r\n\r\n<i>nested</i>\r\n--inner--\r\n" +
		"--outer\r\nContent-Type: application/octet-stream\r\n\r\nbinary\r\n" +
		"--outer--\r\n"

	got := extract.Unwrap(raw)
	if !got.IsHTML || !strings.Contains(got.Text, "nested") {
		t.Errorf("Unwrap() = %+v", got)
	}
}

func TestUnwrap_innerBoundarySharesOuterPrefix(t *testing.T) {
	raw := "Content-Type: multipart/mixed; boundary=\"B\"\r\n\r\n" +
		"--B\r\n" +
		"Content-Type: multipart/alternative; boundary=\"B-inner\"\r\n\r\n" +
		"--B-inner\r\nContent-Type: text/plain\r\n\r\nplain\r\n" +
		"--B-inner\r\nContent-Type: text/html\r\n\r\n<p>shared prefix</p>\r\n" +
		"--B-inner--\r\n" +
		"--B--\r\n"

	got := extract.Unwrap(raw)
	if !got.IsHTML || got.Text != "<p>shared prefix</p>" {
		t.Errorf("Unwrap() = %+v", got)
	}
}
