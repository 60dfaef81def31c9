package paperless

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

// Upload is a document submission.
type Upload struct {
	Filename string
	Content  []byte

	// ContentType is declared on the file part. Empty omits the header so
	// the server detects the type from the content.
	ContentType string

	Title           string
	CorrespondentID *int
	DocumentTypeID  *int
	TagIDs          []int
	Created         *time.Time
	Source          string
}

// SubmitDocument posts a document for asynchronous consumption and
// returns the task id used to poll for the result. Empty metadata fields
// are omitted and each tag is sent as its own form field.
func (c *Client) SubmitDocument(ctx context.Context, u Upload) (string, error) {
	const op = "submit document"
	if u.Filename == "" {
		return "", fmt.Errorf("%s: filename is required", op)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="document"; filename="%s"`, escapeQuotes(u.Filename)))
	if u.ContentType != "" {
		h.Set("Content-Type", u.ContentType)
	}
	part, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if _, err := part.Write(u.Content); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	fields := []struct {
		name, value string
	}{
		{"title", strings.TrimSpace(u.Title)},
		{"correspondent", optionalInt(u.CorrespondentID)},
		{"document_type", optionalInt(u.DocumentTypeID)},
		{"created", optionalDate(u.Created)},
		{"source", u.Source},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}
	for _, id := range u.TagIDs {
		if err := w.WriteField("tags", strconv.Itoa(id)); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	body, err := c.raw(ctx, op, http.MethodPost, "/api/documents/post_document/", &payload{
		contentType: w.FormDataContentType(),
		body:        buf.Bytes(),
	})
	if err != nil {
		return "", err
	}

	taskID := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if taskID == "" {
		return "", fmt.Errorf("%s: server returned an empty task id", op)
	}
	c.logger.Info("document submitted", "filename", u.Filename, "task_id", taskID)
	return taskID, nil
}

// PatchDocumentCustomFields replaces the custom field values of a document.
func (c *Client) PatchDocumentCustomFields(ctx context.Context, documentID int, fields []CustomFieldValue) error {
	body := struct {
		CustomFields []CustomFieldValue `json:"custom_fields"`
	}{CustomFields: fields}
	path := fmt.Sprintf("/api/documents/%d/", documentID)
	return c.doJSON(ctx, "patch document custom fields", http.MethodPatch, path, body, nil)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optionalDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
