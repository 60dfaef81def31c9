// Package render produces the primary document of a message and the
// upload targets of its attachments.
package render

import (
	"regexp"
	"strings"
	"time"
)

const (
	maxSubjectLen  = 50
	defaultSubject = "Kein_Betreff"
)

var (
	subjectStrip = regexp.MustCompile(`[^A-Za-z0-9äöüÄÖÜß\s-]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Filename builds "{YYYY-MM-DD}_{subject}.{ext}". The subject keeps only
// letters, digits, German umlauts, whitespace and hyphens, with whitespace
// runs turned into underscores and the result cut to 50 characters.
func Filename(date time.Time, subject, ext string) string {
	if date.IsZero() {
		date = time.Now()
	}
	return date.UTC().Format("2006-01-02") + "_" + sanitizeSubject(subject) + "." + ext
}

func sanitizeSubject(subject string) string {
	s := subjectStrip.ReplaceAllString(subject, "")
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), "_")
	if r := []rune(s); len(r) > maxSubjectLen {
		s = string(r[:maxSubjectLen])
	}
	if s == "" {
		return defaultSubject
	}
	return s
}
