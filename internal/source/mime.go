package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"

	_ "github.com/emersion/go-message/charset"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/paperless-upload/internal/model"
)

// ParseTree reads an RFC 822 message into a part tree. Part references
// follow IMAP numbering: children of a multipart are "1", "2", nested
// parts "1.2", and the body of a single-part message is "1".
func ParseTree(raw []byte) (*model.Part, error) {
	e, err := readEntity(raw)
	if err != nil {
		return nil, err
	}
	if e.MultipartReader() == nil {
		return walk(e, "1")
	}
	return walk(e, "")
}

// PartBytes returns the decoded content of the part addressed by ref.
func PartBytes(raw []byte, ref string) ([]byte, error) {
	e, err := readEntity(raw)
	if err != nil {
		return nil, err
	}
	start := ""
	if e.MultipartReader() == nil {
		start = "1"
	}
	data, ok, err := find(e, start, ref)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("part %s: %w", ref, ErrPartNotFound)
	}
	return data, nil
}

// AttachmentsOf lists the attachment leaves of a part tree in document
// order.
func AttachmentsOf(root *model.Part) []model.AttachmentRef {
	var out []model.AttachmentRef
	var visit func(p *model.Part)
	visit = func(p *model.Part) {
		if len(p.Parts) > 0 {
			for _, c := range p.Parts {
				visit(c)
			}
			return
		}
		if !isAttachment(p) {
			return
		}
		mediaType, _, _ := mime.ParseMediaType(p.ContentType)
		name := p.Name
		if name == "" {
			name = "part-" + p.PartRef
		}
		out = append(out, model.AttachmentRef{
			Name:        name,
			PartRef:     p.PartRef,
			ContentType: mediaType,
			Size:        p.Size,
		})
	}
	visit(root)
	return out
}

// EnvelopeOf reads the header fields a MessageRef needs.
func EnvelopeOf(id string, raw []byte) (*model.MessageRef, error) {
	e, err := readEntity(raw)
	if err != nil {
		return nil, err
	}
	h := mail.Header{Header: e.Header}

	ref := &model.MessageRef{ID: id}
	ref.Subject, _ = h.Subject()
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		ref.Author = from[0].String()
	} else {
		ref.Author = strings.TrimSpace(h.Get("From"))
	}
	for _, key := range []string{"To", "Cc"} {
		list, err := h.AddressList(key)
		if err != nil {
			continue
		}
		for _, a := range list {
			ref.Recipients = append(ref.Recipients, a.String())
		}
	}
	if date, err := h.Date(); err == nil {
		ref.Date = date
	}
	return ref, nil
}

func readEntity(raw []byte) (*message.Entity, error) {
	e, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	return e, nil
}

func childRef(parent string, n int) string {
	if parent == "" {
		return strconv.Itoa(n)
	}
	return parent + "." + strconv.Itoa(n)
}

func walk(e *message.Entity, ref string) (*model.Part, error) {
	p := &model.Part{
		PartRef:     ref,
		ContentType: e.Header.Get("Content-Type"),
	}

	if mr := e.MultipartReader(); mr != nil {
		for n := 1; ; n++ {
			child, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil && !message.IsUnknownCharset(err) {
				return nil, fmt.Errorf("reading part %s: %w", childRef(ref, n), err)
			}
			cp, err := walk(child, childRef(ref, n))
			if err != nil {
				return nil, err
			}
			p.Parts = append(p.Parts, cp)
		}
		return p, nil
	}

	ah := mail.AttachmentHeader{Header: e.Header}
	p.Name, _ = ah.Filename()

	data, err := io.ReadAll(e.Body)
	if err != nil {
		return nil, fmt.Errorf("reading part %s: %w", ref, err)
	}
	p.Size = int64(len(data))

	disposition, _, _ := e.Header.ContentDisposition()
	if disposition != "attachment" && p.Name == "" && isText(p.ContentType) {
		p.Body = string(data)
	}
	return p, nil
}

func find(e *message.Entity, ref, target string) ([]byte, bool, error) {
	mr := e.MultipartReader()
	if mr == nil {
		if ref != target {
			return nil, false, nil
		}
		data, err := io.ReadAll(e.Body)
		if err != nil {
			return nil, false, fmt.Errorf("reading part %s: %w", ref, err)
		}
		return data, true, nil
	}

	for n := 1; ; n++ {
		child, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return nil, false, fmt.Errorf("reading part %s: %w", childRef(ref, n), err)
		}
		cr := childRef(ref, n)
		if cr != target && !strings.HasPrefix(target, cr+".") {
			continue
		}
		return find(child, cr, target)
	}
}

// isText reports whether a Content-Type value denotes an inline body
// type. A missing type counts as text/plain.
func isText(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/plain" || mediaType == "text/html"
}

func isAttachment(p *model.Part) bool {
	if p.Name != "" {
		return true
	}
	return !isText(p.ContentType)
}
