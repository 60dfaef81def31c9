package paperless

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

func TestParseDocumentID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "integer", raw: `465`, want: 465},
		{name: "numeric string", raw: `"465"`, want: 465},
		{name: "path", raw: `"/api/documents/465/"`, want: 465},
		{name: "path without trailing slash", raw: `"/api/documents/465"`, want: 465},
		{name: "zero", raw: `0`, want: 0},
		{name: "null", raw: `null`, wantErr: true},
		{name: "empty", raw: ``, wantErr: true},
		{name: "negative", raw: `-3`, wantErr: true},
		{name: "fraction", raw: `4.5`, wantErr: true},
		{name: "garbage string", raw: `"duplicate of #12"`, wantErr: true},
		{name: "object", raw: `{"id":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDocumentID(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDocumentID(%s) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseDocumentID(%s) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestClient_TaskStatus(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/tasks/" || r.URL.Query().Get("task_id") != "abc" {
				t.Errorf("got %s", r.URL)
			}
			w.Write([]byte(`[{"task_id":"abc","status":"SUCCESS","related_document":"465"}]`))
		})
		task, err := c.TaskStatus(context.Background(), "abc")
		if err != nil {
			t.Fatalf("TaskStatus: %v", err)
		}
		if task == nil || !task.Succeeded() || !task.HasRelatedDocument() {
			t.Fatalf("task = %+v", task)
		}
		if id, _ := ParseDocumentID(task.RelatedDocument); id != 465 {
			t.Errorf("id = %d", id)
		}
	})

	t.Run("not yet visible", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		})
		task, err := c.TaskStatus(context.Background(), "abc")
		if err != nil || task != nil {
			t.Fatalf("got %+v, %v; want nil, nil", task, err)
		}
	})

	t.Run("failure", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"task_id":"abc","status":"FAILURE","result":"duplicate","related_document":null}]`))
		})
		task, err := c.TaskStatus(context.Background(), "abc")
		if err != nil {
			t.Fatalf("TaskStatus: %v", err)
		}
		if !task.Failed() || task.HasRelatedDocument() || task.Result != "duplicate" {
			t.Errorf("task = %+v", task)
		}
	})
}
