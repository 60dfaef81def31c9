package render

import (
	"strings"
	"testing"
	"time"
)

func TestFilename(t *testing.T) {
	date := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		date    time.Time
		subject string
		ext     string
		want    string
	}{
		{"punctuation stripped", date, "Invoice #42", "pdf", "2024-03-01_Invoice_42.pdf"},
		{"umlauts kept", date, "  Grüße  aus   Köln! ", "eml", "2024-03-01_Grüße_aus_Köln.eml"},
		{"hyphen kept", date, "Re: Q1-Report", "html", "2024-03-01_Re_Q1-Report.html"},
		{"empty subject", date, "", "pdf", "2024-03-01_Kein_Betreff.pdf"},
		{"nothing left", date, "!!! ???", "pdf", "2024-03-01_Kein_Betreff.pdf"},
		{
			"date is taken in UTC",
			time.Date(2024, 3, 1, 1, 0, 0, 0, time.FixedZone("CET", 2*60*60)),
			"x", "pdf", "2024-02-29_x.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.date, tt.subject, tt.ext); got != tt.want {
				t.Errorf("Filename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilename_truncatesRunes(t *testing.T) {
	got := Filename(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), strings.Repeat("ä", 60), "pdf")
	want := "2024-01-02_" + strings.Repeat("ä", 50) + ".pdf"
	if got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}
