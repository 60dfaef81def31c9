package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/paperless"
)

// FakeToken is the API token FakePaperless accepts.
const FakeToken = "test-token"

// FakeUpload records one post_document call.
type FakeUpload struct {
	Filename      string
	ContentType   string
	Content       []byte
	Title         string
	Correspondent string
	DocumentType  string
	Tags          []string
	Created       string
	Source        string

	TaskID     string
	DocumentID int
}

// FakePatch records one PATCH of a document's custom fields.
type FakePatch struct {
	DocumentID int
	Fields     []FakeFieldValue
}

// FakeFieldValue keeps the raw JSON of a patched value so tests can check
// its exact encoding.
type FakeFieldValue struct {
	Field int             `json:"field"`
	Value json.RawMessage `json:"value"`
}

// FakePaperless is an in-memory Paperless-ngx server. Documents resolve on
// the first task query unless listed in PendingFiles or FailedFiles.
type FakePaperless struct {
	Server *httptest.Server

	mu             sync.Mutex
	nextID         int
	uploads        []*FakeUpload
	patches        []FakePatch
	fields         []paperless.CustomField
	documentTypes  []paperless.DocumentType
	tags           []paperless.Tag
	correspondents []paperless.Correspondent
	taskQueries    int

	// UploadStatus maps a file name to the status its upload fails with.
	UploadStatus map[string]int

	// PendingFiles never leave the STARTED state.
	PendingFiles map[string]bool

	// FailedFiles end in FAILURE.
	FailedFiles map[string]bool

	// FailFieldCreate rejects custom field creation.
	FailFieldCreate bool

	// FailPatch rejects every PATCH.
	FailPatch bool
}

// NewFakePaperless starts a server that is closed when the test ends.
func NewFakePaperless(t *testing.T) *FakePaperless {
	t.Helper()
	f := &FakePaperless{
		nextID:       465,
		UploadStatus: make(map[string]int),
		PendingFiles: make(map[string]bool),
		FailedFiles:  make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/documents/post_document/", f.postDocument)
	mux.HandleFunc("GET /api/tasks/", f.getTasks)
	mux.HandleFunc("PATCH /api/documents/{id}/", f.patchDocument)
	mux.HandleFunc("GET /api/documents/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, paperless.List[struct{}]{})
	})
	mux.HandleFunc("GET /api/custom_fields/", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, paperless.List[paperless.CustomField]{Count: len(f.fields), Results: f.fields})
	})
	mux.HandleFunc("POST /api/custom_fields/", f.createField)
	mux.HandleFunc("GET /api/document_types/", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, paperless.List[paperless.DocumentType]{Count: len(f.documentTypes), Results: f.documentTypes})
	})
	mux.HandleFunc("POST /api/document_types/", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Name string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, f.AddDocumentType(body.Name))
	})
	mux.HandleFunc("GET /api/tags/", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, paperless.List[paperless.Tag]{Count: len(f.tags), Results: f.tags})
	})
	mux.HandleFunc("POST /api/tags/", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Name string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, f.AddTag(body.Name))
	})
	mux.HandleFunc("GET /api/correspondents/", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, paperless.List[paperless.Correspondent]{Count: len(f.correspondents), Results: f.correspondents})
	})

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token "+FakeToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Server.Close)
	return f
}

// Settings returns settings pointing at the fake with polling that does
// not sleep.
func (f *FakePaperless) Settings() *model.Settings {
	d := model.DefaultAppConfig()
	return &model.Settings{
		BaseURL:  f.Server.URL,
		Token:    FakeToken,
		PageSize: 1000,
		Render:   d.Render,
		Poll:     model.PollConfig{MaxAttempts: 3},
		Workflow: d.Workflow,
	}
}

func (f *FakePaperless) postDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"document": "This field is required."})
		return
	}
	defer file.Close()
	content, _ := io.ReadAll(file)

	if status := f.UploadStatus[header.Filename]; status != 0 {
		writeJSON(w, status, map[string]string{"detail": "upload rejected: " + header.Filename})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	u := &FakeUpload{
		Filename:      header.Filename,
		ContentType:   header.Header.Get("Content-Type"),
		Content:       content,
		Title:         r.FormValue("title"),
		Correspondent: r.FormValue("correspondent"),
		DocumentType:  r.FormValue("document_type"),
		Tags:          r.MultipartForm.Value["tags"],
		Created:       r.FormValue("created"),
		Source:        r.FormValue("source"),
		TaskID:        fmt.Sprintf("task-%d", len(f.uploads)+1),
	}
	f.uploads = append(f.uploads, u)
	writeJSON(w, http.StatusOK, u.TaskID)
}

func (f *FakePaperless) getTasks(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskQueries++

	var u *FakeUpload
	for _, c := range f.uploads {
		if c.TaskID == taskID {
			u = c
		}
	}
	switch {
	case u == nil:
		writeJSON(w, http.StatusOK, []any{})
	case f.PendingFiles[u.Filename]:
		writeJSON(w, http.StatusOK, []map[string]any{{"task_id": taskID, "status": "STARTED"}})
	case f.FailedFiles[u.Filename]:
		writeJSON(w, http.StatusOK, []map[string]any{{
			"task_id": taskID, "status": "FAILURE", "result": u.Filename + ": Not consuming: duplicate",
		}})
	default:
		if u.DocumentID == 0 {
			u.DocumentID = f.nextID
			f.nextID++
		}
		writeJSON(w, http.StatusOK, []map[string]any{{
			"task_id": taskID, "status": "SUCCESS", "related_document": strconv.Itoa(u.DocumentID),
		}})
	}
}

func (f *FakePaperless) patchDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if f.FailPatch {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "custom fields rejected"})
		return
	}
	var body struct {
		CustomFields []FakeFieldValue `json:"custom_fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, FakePatch{DocumentID: id, Fields: body.CustomFields})
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (f *FakePaperless) createField(w http.ResponseWriter, r *http.Request) {
	if f.FailFieldCreate {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "field creation disabled"})
		return
	}
	var body struct {
		Name      string `json:"name"`
		DataType  string `json:"data_type"`
		ExtraData struct {
			SelectOptions []struct {
				Label string `json:"label"`
			} `json:"select_options"`
		} `json:"extra_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var labels []string
	for _, o := range body.ExtraData.SelectOptions {
		labels = append(labels, o.Label)
	}
	writeJSON(w, http.StatusCreated, f.AddField(body.Name, body.DataType, labels...))
}

// AddField registers a custom field. Select option ids are derived from
// the field id so they differ from the option index.
func (f *FakePaperless) AddField(name, dataType string, labels ...string) paperless.CustomField {
	f.mu.Lock()
	id := len(f.fields) + 1
	f.mu.Unlock()

	var opts []paperless.SelectOption
	for i, l := range labels {
		opts = append(opts, paperless.SelectOption{ID: strconv.Itoa(id*10 + i), Label: l})
	}
	return f.AddSelectField(name, dataType, opts...)
}

// AddSelectField registers a custom field with explicit options.
func (f *FakePaperless) AddSelectField(name, dataType string, opts ...paperless.SelectOption) paperless.CustomField {
	f.mu.Lock()
	defer f.mu.Unlock()
	field := paperless.CustomField{ID: len(f.fields) + 1, Name: name, DataType: dataType}
	field.ExtraData.SelectOptions = opts
	f.fields = append(f.fields, field)
	return field
}

// AddDocumentType registers a document type.
func (f *FakePaperless) AddDocumentType(name string) paperless.DocumentType {
	f.mu.Lock()
	defer f.mu.Unlock()
	dt := paperless.DocumentType{ID: len(f.documentTypes) + 1, Name: name}
	f.documentTypes = append(f.documentTypes, dt)
	return dt
}

// AddTag registers a tag.
func (f *FakePaperless) AddTag(name string) paperless.Tag {
	f.mu.Lock()
	defer f.mu.Unlock()
	tag := paperless.Tag{ID: len(f.tags) + 1, Name: name}
	f.tags = append(f.tags, tag)
	return tag
}

// AddCorrespondent registers a correspondent.
func (f *FakePaperless) AddCorrespondent(name string) paperless.Correspondent {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := paperless.Correspondent{ID: len(f.correspondents) + 1, Name: name}
	f.correspondents = append(f.correspondents, c)
	return c
}

// Field returns the custom field named name.
func (f *FakePaperless) Field(name string) (paperless.CustomField, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range f.fields {
		if field.Name == name {
			return field, true
		}
	}
	return paperless.CustomField{}, false
}

// Uploads returns the accepted uploads in order.
func (f *FakePaperless) Uploads() []FakeUpload {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeUpload, len(f.uploads))
	for i, u := range f.uploads {
		out[i] = *u
	}
	return out
}

// Patches returns the recorded PATCH calls in order.
func (f *FakePaperless) Patches() []FakePatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakePatch(nil), f.patches...)
}

// PatchFor returns the patch of one document.
func (f *FakePaperless) PatchFor(documentID int) (FakePatch, bool) {
	for _, p := range f.Patches() {
		if p.DocumentID == documentID {
			return p, true
		}
	}
	return FakePatch{}, false
}

// TaskQueries returns how many task status requests were served.
func (f *FakePaperless) TaskQueries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.taskQueries
}

// Compact returns raw without whitespace.
func Compact(raw json.RawMessage) string {
	return strings.Join(strings.Fields(string(raw)), "")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
