package render

import (
	"bytes"
	"fmt"
	"html/template"
	"path"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/nhle/paperless-upload/internal/extract"
	"github.com/nhle/paperless-upload/internal/model"
)

var documentTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="de">
<head>
<meta charset="utf-8">
<title>{{.Subject}}</title>
<style>
@page { size: A4; margin: 15mm; }
body { font-family: Arial, Helvetica, sans-serif; font-size: 11pt; color: #222; }
table.header { border-collapse: collapse; margin-bottom: 12px; width: 100%; }
table.header td { padding: 2px 8px 2px 0; vertical-align: top; }
table.header td.label { font-weight: bold; white-space: nowrap; width: 80px; }
ul.attachments { margin: 0; padding-left: 18px; }
hr { border: 0; border-top: 1px solid #999; margin: 12px 0; }
pre { white-space: pre-wrap; word-wrap: break-word; font-family: inherit; }
</style>
</head>
<body>
<table class="header">
<tr><td class="label">Datum:</td><td>{{.Date}}</td></tr>
<tr><td class="label">Von:</td><td>{{.From}}</td></tr>
<tr><td class="label">An:</td><td>{{.To}}</td></tr>
<tr><td class="label">Betreff:</td><td>{{.Subject}}</td></tr>
{{- if .Tags}}
<tr><td class="label">Tags:</td><td>{{.Tags}}</td></tr>
{{- end}}
{{- if .Attachments}}
<tr><td class="label">Anhänge:</td><td><ul class="attachments">
{{- range .Attachments}}
<li>{{.Indicator}} {{.Name}} ({{.Size}})</li>
{{- end}}
</ul></td></tr>
{{- end}}
</table>
<hr>
{{if .HTML}}<div class="body">{{.HTML}}</div>{{else}}<pre>{{.Plain}}</pre>{{end}}
</body>
</html>
`))

type documentData struct {
	Date        string
	From        string
	To          string
	Subject     string
	Tags        string
	Attachments []attachmentLine
	HTML        template.HTML
	Plain       string
}

type attachmentLine struct {
	Indicator string
	Name      string
	Size      string
}

// Document builds the HTML representation of a message: a header block
// followed by the sanitized body.
func Document(msg *model.MessageRef, atts []model.AttachmentRef, body extract.Body) ([]byte, error) {
	data := documentData{
		From:    msg.Author,
		To:      strings.Join(msg.Recipients, ", "),
		Subject: msg.Subject,
		Tags:    strings.Join(msg.Tags, ", "),
	}
	if !msg.Date.IsZero() {
		data.Date = msg.Date.Format("02.01.2006 15:04")
	}
	for _, a := range atts {
		data.Attachments = append(data.Attachments, attachmentLine{
			Indicator: typeIndicator(a),
			Name:      a.Name,
			Size:      humanize.IBytes(uint64(a.Size)),
		})
	}

	switch {
	case body.IsHTML:
		// Sanitize is the only path by which mail HTML enters the document.
		data.HTML = template.HTML(Sanitize(body.Text))
	case body.Found:
		data.Plain = body.Text
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("building email document: %w", err)
	}
	return buf.Bytes(), nil
}

func typeIndicator(a model.AttachmentRef) string {
	ct := strings.ToLower(a.ContentType)
	switch strings.TrimPrefix(strings.ToLower(path.Ext(a.Name)), ".") {
	case "pdf":
		return "[PDF]"
	case "doc", "docx", "odt", "rtf":
		return "[DOC]"
	case "xls", "xlsx", "ods", "csv":
		return "[XLS]"
	case "png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff", "webp", "heic":
		return "[IMG]"
	case "zip", "rar", "7z", "tar", "gz":
		return "[ZIP]"
	case "txt", "log", "md":
		return "[TXT]"
	}
	switch {
	case ct == "application/pdf":
		return "[PDF]"
	case strings.HasPrefix(ct, "image/"):
		return "[IMG]"
	case strings.HasPrefix(ct, "text/"):
		return "[TXT]"
	case strings.Contains(ct, "zip"):
		return "[ZIP]"
	}
	return "[FILE]"
}

