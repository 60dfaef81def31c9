package render

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/tests/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakePrinter struct {
	calls int
	html  string
	pdf   []byte
	err   error
}

func (p *fakePrinter) PrintPDF(_ context.Context, html []byte) ([]byte, error) {
	p.calls++
	p.html = string(html)
	return p.pdf, p.err
}

const rawMessage = "To: bob@example.com\r\n" +
	"Subject: Invoice #42\r\n" +
	"From: Alice <alice@example.com>\r\n" +
	"\r\n" +
	"Hello Bob\r\n"

func newTestRenderer(t *testing.T, opts ...Option) (*Renderer, *testutil.FakeMailbox) {
	t.Helper()
	mb := testutil.NewFakeMailbox()
	mb.Add(&testutil.FakeMessage{
		Ref:  *testMessageRef(),
		Raw:  []byte(rawMessage),
		Tree: &model.Part{PartRef: "1", ContentType: "text/plain", Body: "Hello Bob"},
		Attachments: []model.AttachmentRef{
			{Name: "invoice.pdf", PartRef: "2", ContentType: "application/pdf", Size: 8},
			{Name: "empty.txt", PartRef: "3", ContentType: "text/plain"},
		},
		Content: map[string][]byte{"2": []byte("%PDF-1.4"), "3": {}},
	})

	r := New(mb, append([]Option{WithLogger(testLogger())}, opts...)...)
	r.pageCount = func(b []byte) (int, error) {
		if !strings.HasPrefix(string(b), "%PDF") {
			return 0, errors.New("not a PDF")
		}
		return 2, nil
	}
	return r, mb
}

func TestRenderer_localPDF(t *testing.T) {
	printer := &fakePrinter{pdf: []byte("%PDF-1.7 rendered")}
	r, _ := newTestRenderer(t, WithPrinter(printer))

	target, err := r.Render(context.Background(), model.StrategyLocalPDF, testMessageRef(), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if target.Role != model.RolePrimary || target.Filename != "2024-03-01_Invoice_42.pdf" || target.ContentType != "application/pdf" {
		t.Errorf("target = %+v", target)
	}
	if printer.calls != 0 {
		t.Error("payload must not be produced before it is requested")
	}

	pdf, err := target.Payload(context.Background())
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if string(pdf) != "%PDF-1.7 rendered" {
		t.Errorf("pdf = %q", pdf)
	}
	if !strings.Contains(printer.html, "<pre>Hello Bob</pre>") {
		t.Errorf("printed document lacks the body:\n%s", printer.html)
	}
}

func TestRenderer_invalidPDF(t *testing.T) {
	r, _ := newTestRenderer(t, WithPrinter(&fakePrinter{pdf: []byte("<html>error page</html>")}))

	target, err := r.Render(context.Background(), model.StrategyLocalPDF, testMessageRef(), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := target.Payload(context.Background()); err == nil {
		t.Error("expected validation error for non-PDF output")
	}
}

func TestRenderer_remotePDF(t *testing.T) {
	r, _ := newTestRenderer(t, WithPrinter(&fakePrinter{}))
	_, err := r.Render(context.Background(), model.StrategyRemotePDF, testMessageRef(), nil)
	var ce *model.ConfigurationError
	if !errors.As(err, &ce) || ce.Field != "render.service_url" {
		t.Fatalf("error = %v, want ConfigurationError for render.service_url", err)
	}

	remote := &fakePrinter{pdf: []byte("%PDF remote")}
	r, _ = newTestRenderer(t, WithPrinter(&fakePrinter{}), WithRemote(remote))
	target, err := r.Render(context.Background(), model.StrategyRemotePDF, testMessageRef(), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if pdf, err := target.Payload(context.Background()); err != nil || string(pdf) != "%PDF remote" {
		t.Errorf("Payload = %q, %v", pdf, err)
	}
	if remote.calls != 1 {
		t.Errorf("remote calls = %d", remote.calls)
	}
}

func TestRenderer_eml(t *testing.T) {
	r, _ := newTestRenderer(t, WithPrinter(&fakePrinter{}))

	target, err := r.Render(context.Background(), model.StrategyEML, testMessageRef(), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if target.ContentType != "" {
		t.Errorf("eml target declares content type %q", target.ContentType)
	}
	if target.Filename != "2024-03-01_Invoice_42.eml" {
		t.Errorf("Filename = %q", target.Filename)
	}
	raw, err := target.Payload(context.Background())
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if !strings.HasPrefix(string(raw), "From: Alice <alice@example.com>\r\nTo: bob@example.com\r\n") {
		t.Errorf("raw = %q", raw)
	}
}

func TestRenderer_html(t *testing.T) {
	r, _ := newTestRenderer(t, WithPrinter(&fakePrinter{}))

	target, err := r.Render(context.Background(), model.StrategyHTML, testMessageRef(), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	doc, err := target.Payload(context.Background())
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if target.Filename != "2024-03-01_Invoice_42.html" || !strings.Contains(string(doc), "Betreff:") {
		t.Errorf("target = %+v", target)
	}

	if _, err := r.Render(context.Background(), model.StrategyAttachment, testMessageRef(), nil); err == nil {
		t.Error("attachment strategy cannot render a message")
	}
}

func TestRenderer_Attachment(t *testing.T) {
	r, _ := newTestRenderer(t, WithPrinter(&fakePrinter{}))
	ctx := context.Background()

	target := r.Attachment("m1", model.AttachmentRef{Name: "invoice.pdf", PartRef: "2", ContentType: "application/pdf"})
	data, err := target.Payload(ctx)
	if err != nil || string(data) != "%PDF-1.4" {
		t.Errorf("Payload = %q, %v", data, err)
	}
	if target.Role != model.RoleAttachment || target.Filename != "invoice.pdf" {
		t.Errorf("target = %+v", target)
	}

	var readErr *model.AttachmentReadError
	_, err = r.Attachment("m1", model.AttachmentRef{Name: "empty.txt", PartRef: "3"}).Payload(ctx)
	if !errors.As(err, &readErr) || !errors.Is(err, model.ErrEmptyAttachment) {
		t.Errorf("empty attachment error = %v", err)
	}

	_, err = r.Attachment("m1", model.AttachmentRef{Name: "gone.pdf", PartRef: "9"}).Payload(ctx)
	if !errors.As(err, &readErr) || readErr.Name != "gone.pdf" {
		t.Errorf("missing part error = %v", err)
	}
}
