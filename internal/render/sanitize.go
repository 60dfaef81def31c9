package render

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxSanitizePasses bounds the fixed-point loop in Sanitize.
const maxSanitizePasses = 8

// dropped elements are removed together with their content.
var dropped = map[string]bool{
	"script": true, "style": true, "iframe": true, "object": true, "embed": true,
	"form": true, "input": true, "button": true, "textarea": true, "select": true,
	"link": true, "meta": true, "base": true, "frame": true, "frameset": true,
	"applet": true, "svg": true, "math": true, "noscript": true, "template": true,
	"title": true, "head": true,
}

// allowedTags are kept. Any other element is replaced by its children.
var allowedTags = map[string]bool{
	"a": true, "abbr": true, "address": true, "article": true, "b": true,
	"blockquote": true, "br": true, "caption": true, "center": true, "cite": true,
	"code": true, "col": true, "colgroup": true, "dd": true, "del": true,
	"div": true, "dl": true, "dt": true, "em": true, "figcaption": true,
	"figure": true, "font": true, "footer": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"i": true, "img": true, "ins": true, "kbd": true, "li": true, "main": true,
	"mark": true, "ol": true, "p": true, "pre": true, "q": true, "s": true,
	"section": true, "small": true, "span": true, "strike": true, "strong": true,
	"sub": true, "sup": true, "table": true, "tbody": true, "td": true,
	"tfoot": true, "th": true, "thead": true, "tr": true, "tt": true, "u": true,
	"ul": true, "wbr": true,
}

var allowedAttrs = map[string]bool{
	"align": true, "alt": true, "background": true, "bgcolor": true, "border": true,
	"cellpadding": true, "cellspacing": true, "class": true, "color": true,
	"colspan": true, "dir": true, "face": true, "height": true, "href": true,
	"lang": true, "rowspan": true, "size": true, "src": true, "start": true,
	"style": true, "title": true, "type": true, "valign": true, "width": true,
}

var urlAttrs = map[string]bool{
	"href": true, "src": true, "action": true, "background": true,
}

var unsafeSchemes = []string{"javascript:", "vbscript:", "data:"}

// Sanitize reduces an HTML mail body to an allow-list of tags and
// attributes. Event handlers, script URLs and comments are removed. Passes
// repeat until the output no longer changes.
func Sanitize(s string) string {
	for range maxSanitizePasses {
		out := sanitizeOnce(s)
		if out == s {
			break
		}
		s = out
	}
	return s
}

func sanitizeOnce(s string) string {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), body)
	if err != nil {
		return html.EscapeString(s)
	}

	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	clean(root)

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return html.EscapeString(s)
		}
	}
	return buf.String()
}

func clean(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch c.Type {
		case html.TextNode:
		case html.ElementNode:
			name := strings.ToLower(c.Data)
			switch {
			case dropped[name] || c.Namespace != "":
				n.RemoveChild(c)
			case allowedTags[name]:
				c.Attr = filterAttrs(c.Attr)
				clean(c)
			default:
				clean(c)
				unwrap(n, c)
			}
		default:
			n.RemoveChild(c)
		}
		c = next
	}
}

// unwrap replaces c with its children.
func unwrap(parent, c *html.Node) {
	for gc := c.FirstChild; gc != nil; {
		next := gc.NextSibling
		c.RemoveChild(gc)
		parent.InsertBefore(gc, c)
		gc = next
	}
	parent.RemoveChild(c)
}

func filterAttrs(attrs []html.Attribute) []html.Attribute {
	out := attrs[:0]
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if a.Namespace != "" || strings.HasPrefix(key, "on") || !allowedAttrs[key] {
			continue
		}
		if urlAttrs[key] && unsafeURL(a.Val) {
			continue
		}
		if key == "style" && unsafeStyle(a.Val) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// compact lowercases v and drops whitespace and control characters, which
// browsers ignore inside a URL scheme.
func compact(v string) string {
	return strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, strings.ToLower(v))
}

func unsafeURL(v string) bool {
	v = compact(v)
	for _, scheme := range unsafeSchemes {
		if strings.HasPrefix(v, scheme) {
			return true
		}
	}
	return false
}

func unsafeStyle(v string) bool {
	v = compact(v)
	return strings.Contains(v, "expression(") ||
		strings.Contains(v, "javascript:") ||
		strings.Contains(v, "vbscript:")
}
