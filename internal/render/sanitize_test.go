package render

import (
	"regexp"
	"strings"
	"testing"
)

// These patterns are checked against markup. Text nodes are inert and
// kept as written, so prose such as "javascript:" may still appear in them.
var (
	scriptTag    = regexp.MustCompile(`(?i)<script`)
	eventHandler = regexp.MustCompile(`(?i)\son\w+=`)
	scriptURL    = regexp.MustCompile(`(?i)javascript:`)
)

func TestSanitize_removesActiveContent(t *testing.T) {
	inputs := []string{
		`<p>Hello</p><script>alert(1)</script>`,
		`<scr<script>ipt>alert(1)</scr</script>ipt>`,
		`<img src="x" onerror="alert(1)">`,
		`<a href="javascript:alert(1)">click</a>`,
		`<a href=" JaVaScRiPt:alert(1)">click</a>`,
		"<a href=\"java\tscript:alert(1)\">click</a>",
		`<a href="vbscript:msgbox(1)">x</a><img src="data:text/html;base64,PHNjcmlwdD4=">`,
		`<div onclick="x()" onmouseover='y()'>text</div>`,
		`<iframe src="https://evil.example"></iframe><object data="x"></object>`,
		`<svg><script>alert(1)</script></svg><math><mi>x</mi></math>`,
		`<form action="javascript:alert(1)"><input value="x"><button>go</button></form>`,
		`<style>body{background:url(javascript:alert(1))}</style><p>ok</p>`,
		`<!-- <script>alert(1)</script> --><p>after comment</p>`,
		`<p style="width: expression(alert(1))">styled</p>`,
	}

	for _, in := range inputs {
		out := Sanitize(in)
		if scriptTag.MatchString(out) || eventHandler.MatchString(out) || scriptURL.MatchString(out) {
			t.Errorf("Sanitize(%q) = %q still contains active content", in, out)
		}
		if again := Sanitize(out); again != out {
			t.Errorf("Sanitize is not idempotent on %q: %q then %q", in, out, again)
		}
	}
}

func TestSanitize_keepsFormatting(t *testing.T) {
	in := `<html><head><title>T</title><meta charset="utf-8"></head><body>` +
		`<table border="1"><tr><td style="color: red">cell</td></tr></table>` +
		`<p>Text with <b>bold</b> and <a href="https://example.com">a link</a>.</p>` +
		`<custom-tag>inner text</custom-tag>` +
		`</body></html>`

	out := Sanitize(in)
	for _, want := range []string{
		`<table border="1">`,
		`<td style="color: red">cell</td>`,
		`<b>bold</b>`,
		`<a href="https://example.com">a link</a>`,
		`inner text`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Sanitize() lost %q:\n%s", want, out)
		}
	}
	for _, gone := range []string{"<custom-tag", "<title", "<meta", "<html", "<body"} {
		if strings.Contains(out, gone) {
			t.Errorf("Sanitize() kept %q:\n%s", gone, out)
		}
	}
}

func TestSanitize_escapedTextStaysText(t *testing.T) {
	out := Sanitize(`<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>`)
	if scriptTag.MatchString(out) {
		t.Errorf("escaped text was turned into markup: %q", out)
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Errorf("escaped text lost: %q", out)
	}
}

func TestSanitize_inertTextIsKept(t *testing.T) {
	in := `<p>Type javascript:alert(1) or onload=x into the field</p>`
	out := Sanitize(in)
	if out != in {
		t.Errorf("Sanitize(%q) = %q, want text left alone", in, out)
	}
	if again := Sanitize(out); again != out {
		t.Errorf("not idempotent: %q then %q", out, again)
	}
}
