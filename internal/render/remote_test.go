package render

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nhle/paperless-upload/internal/model"
)

func TestConverter_PrintPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		file, header, err := r.FormFile("files")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "index.html" {
			t.Errorf("filename = %q", header.Filename)
		}
		body, _ := io.ReadAll(file)
		if string(body) != "<p>doc</p>" {
			t.Errorf("body = %q", body)
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	c := NewConverter(srv.URL, 5*time.Second, testLogger())
	pdf, err := c.PrintPDF(context.Background(), []byte("<p>doc</p>"))
	if err != nil {
		t.Fatalf("PrintPDF: %v", err)
	}
	if string(pdf) != "%PDF-1.7" {
		t.Errorf("pdf = %q", pdf)
	}
}

func TestConverter_PrintPDF_httpError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewConverter(srv.URL, time.Second, testLogger()).PrintPDF(context.Background(), []byte("x"))
	var he *model.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("error = %v, want *model.HTTPError", err)
	}
	if he.StatusCode != http.StatusBadGateway || he.Body != "chromium crashed" {
		t.Errorf("HTTPError = %+v", he)
	}
}
