package extract

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/textproto"
)

var (
	contentTypeHeader = regexp.MustCompile(`(?i)content-type:`)
	boundaryParam     = regexp.MustCompile(`(?i)boundary\s*=\s*(?:"([^"]+)"|'([^']+)'|([^\s;"']+))`)
)

// maxUnwrapDepth bounds recursion into nested multiparts.
const maxUnwrapDepth = 5

// Unwrap recovers a body from the raw text of an opaque attachment, such
// as an S/MIME envelope whose inner MIME structure the mail host did not
// expose. Without a boundary, everything after the first blank line is
// returned as plain text.
func Unwrap(raw string) Body {
	return unwrap(raw, 0)
}

func unwrap(raw string, depth int) Body {
	text := raw
	if loc := contentTypeHeader.FindStringIndex(raw); loc != nil {
		text = raw[loc[0]:]
	}

	m := boundaryParam.FindStringSubmatch(text)
	if m == nil {
		_, body, ok := splitHeader(text)
		if !ok {
			return Body{}
		}
		return choose("", strings.TrimSpace(body))
	}
	boundary := firstNonEmpty(m[1], m[2], m[3])

	var html, plain string
	for _, chunk := range splitParts(text, boundary) {
		if strings.HasPrefix(chunk, "--") {
			continue
		}
		chunk = strings.TrimLeft(chunk, "\r\n")
		header, body, ok := splitHeader(chunk)
		if !ok {
			continue
		}

		h := parseHeader(header)
		ct := mediaType(h.Get("Content-Type"))
		if strings.HasPrefix(ct, "multipart/") && depth < maxUnwrapDepth {
			inner := unwrap(chunk, depth+1)
			if inner.IsHTML {
				html = longer(html, inner.Text)
			} else {
				plain = longer(plain, inner.Text)
			}
			continue
		}

		content := strings.TrimSpace(decode(h, body))
		switch ct {
		case "text/html":
			html = longer(html, content)
		case "text/plain", "":
			plain = longer(plain, content)
		}
	}
	return choose(html, plain)
}

// splitParts returns the text following each delimiter line of boundary.
// A delimiter must start a line and be followed by a line break,
// whitespace or "--", so a longer boundary sharing the prefix is not cut.
func splitParts(text, boundary string) []string {
	delim := "--" + boundary
	var starts []int
	for i := 0; i < len(text); {
		j := strings.Index(text[i:], delim)
		if j < 0 {
			break
		}
		at := i + j
		end := at + len(delim)
		if (at == 0 || text[at-1] == '\n') && delimiterEnds(text[end:]) {
			starts = append(starts, at)
		}
		i = end
	}

	parts := make([]string, 0, len(starts))
	for n, at := range starts {
		stop := len(text)
		if n+1 < len(starts) {
			stop = starts[n+1]
		}
		parts = append(parts, text[at+len(delim):stop])
	}
	return parts
}

func delimiterEnds(rest string) bool {
	if rest == "" || strings.HasPrefix(rest, "--") {
		return true
	}
	switch rest[0] {
	case '\r', '\n', ' ', '\t':
		return true
	}
	return false
}

// splitHeader splits at the first blank line, accepting CRLF and LF.
func splitHeader(s string) (header, body string, ok bool) {
	crlf := strings.Index(s, "\r\n\r\n")
	lf := strings.Index(s, "\n\n")
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return s[:crlf], s[crlf+4:], true
	case lf >= 0:
		return s[:lf], s[lf+2:], true
	}
	return "", "", false
}

func parseHeader(header string) textproto.Header {
	h, err := textproto.ReadHeader(bufio.NewReader(strings.NewReader(header + "\r\n\r\n")))
	if err != nil {
		return textproto.Header{}
	}
	return h
}

// decode applies the part's transfer encoding and charset. On failure the
// body is returned as is.
func decode(h textproto.Header, body string) string {
	if h.Get("Content-Transfer-Encoding") == "" && h.Get("Content-Type") == "" {
		return body
	}
	e, err := message.New(message.Header{Header: h}, strings.NewReader(body))
	if e == nil || (err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err)) {
		return body
	}
	data, err := io.ReadAll(e.Body)
	if err != nil {
		return body
	}
	return string(data)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
