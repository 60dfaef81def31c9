package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/nhle/paperless-upload/internal/model"
)

// maxErrorBody caps how much of a failed response is kept in an HTTPError.
const maxErrorBody = 4096

// Converter posts HTML documents to an external HTML-to-PDF service.
type Converter struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewConverter returns a converter for serviceURL.
func NewConverter(serviceURL string, timeout time.Duration, logger *slog.Logger) *Converter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		url:        serviceURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// PrintPDF sends html as the multipart file "files" named index.html and
// returns the response body.
func (c *Converter) PrintPDF(ctx context.Context, html []byte) ([]byte, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="files"; filename="index.html"`)
	h.Set("Content-Type", "text/html; charset=utf-8")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating form part: %w", err)
	}
	if _, err := part.Write(html); err != nil {
		return nil, fmt.Errorf("writing form part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, fmt.Errorf("creating convert request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling render service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &model.HTTPError{
			Op:         "convert",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(text)),
		}
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading converted PDF: %w", err)
	}
	c.logger.Debug("render service converted document", "bytes", len(pdf), "duration", time.Since(start))
	return pdf, nil
}
