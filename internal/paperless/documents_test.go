package paperless

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/nhle/paperless-upload/internal/model"
)

func TestClient_SubmitDocument(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		corr, dtype := 3, 9
		created := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/documents/post_document/" {
				t.Errorf("got %s %s", r.Method, r.URL.Path)
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("ParseMultipartForm: %v", err)
				return
			}
			form := r.MultipartForm
			want := map[string][]string{
				"title":         {"Invoice #42"},
				"correspondent": {"3"},
				"document_type": {"9"},
				"created":       {"2024-03-01"},
				"tags":          {"1", "5"},
			}
			for k, v := range want {
				if !reflect.DeepEqual(form.Value[k], v) {
					t.Errorf("field %s = %v, want %v", k, form.Value[k], v)
				}
			}
			if _, ok := form.Value["source"]; ok {
				t.Error("empty source should be omitted")
			}
			files := form.File["document"]
			if len(files) != 1 || files[0].Filename != "invoice.pdf" {
				t.Errorf("document file = %v", files)
				return
			}
			if ct := files[0].Header.Get("Content-Type"); ct != "application/pdf" {
				t.Errorf("file content type = %q", ct)
			}
			f, _ := files[0].Open()
			data, _ := io.ReadAll(f)
			if string(data) != "%PDF-1.4" {
				t.Errorf("file content = %q", data)
			}
			w.Write([]byte(`"b8f6c2a0-1111-2222-3333-444455556666"`))
		})

		taskID, err := c.SubmitDocument(context.Background(), Upload{
			Filename:        "invoice.pdf",
			Content:         []byte("%PDF-1.4"),
			ContentType:     "application/pdf",
			Title:           "Invoice #42",
			CorrespondentID: &corr,
			DocumentTypeID:  &dtype,
			TagIDs:          []int{1, 5},
			Created:         &created,
		})
		if err != nil {
			t.Fatalf("SubmitDocument: %v", err)
		}
		if taskID != "b8f6c2a0-1111-2222-3333-444455556666" {
			t.Errorf("taskID = %q, quotes should be stripped", taskID)
		}
	})

	t.Run("minimal without content type", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("ParseMultipartForm: %v", err)
				return
			}
			if len(r.MultipartForm.Value) != 0 {
				t.Errorf("unexpected fields %v", r.MultipartForm.Value)
			}
			if ct := r.MultipartForm.File["document"][0].Header.Get("Content-Type"); ct != "" {
				t.Errorf("content type = %q, want none", ct)
			}
			w.Write([]byte("task-1\n"))
		})

		taskID, err := c.SubmitDocument(context.Background(), Upload{Filename: "mail.eml", Content: []byte("From: a@b")})
		if err != nil {
			t.Fatalf("SubmitDocument: %v", err)
		}
		if taskID != "task-1" {
			t.Errorf("taskID = %q", taskID)
		}
	})

	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"document":["File type not supported"]}`))
		})
		_, err := c.SubmitDocument(context.Background(), Upload{Filename: "x.bin", Content: []byte{1}})
		var he *model.HTTPError
		if !errors.As(err, &he) || he.StatusCode != http.StatusBadRequest {
			t.Fatalf("error = %v, want HTTP 400", err)
		}
	})
}

func TestClient_PatchDocumentCustomFields(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/documents/465/" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"id":465}`))
	})

	field := &CustomField{ID: 2, Name: "Richtung", DataType: FieldTypeSelect,
		ExtraData: ExtraData{SelectOptions: []SelectOption{{ID: "7", Label: "Eingang"}}}}
	sel, err := SelectValue(field, "Eingang")
	if err != nil {
		t.Fatalf("SelectValue: %v", err)
	}
	link := DocumentLinkValue(&CustomField{ID: 4}, []int{466, 467})

	if err := c.PatchDocumentCustomFields(context.Background(), 465, []CustomFieldValue{sel, link}); err != nil {
		t.Fatalf("PatchDocumentCustomFields: %v", err)
	}

	fields := got["custom_fields"].([]any)
	if v := fields[0].(map[string]any)["value"]; v != "7" {
		t.Errorf("select value = %#v, want \"7\"", v)
	}
	if v := fields[1].(map[string]any)["value"]; !reflect.DeepEqual(v, []any{466.0, 467.0}) {
		t.Errorf("link value = %#v", v)
	}
}
