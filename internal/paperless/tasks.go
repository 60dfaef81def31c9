package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Task status values reported by the server.
const (
	TaskPending = "PENDING"
	TaskStarted = "STARTED"
	TaskRetry   = "RETRY"
	TaskSuccess = "SUCCESS"
	TaskFailure = "FAILURE"
	TaskRevoked = "REVOKED"
)

// Task is a consumption task as reported by /api/tasks/.
type Task struct {
	TaskID          string          `json:"task_id"`
	Status          string          `json:"status"`
	Result          string          `json:"result"`
	TaskFileName    string          `json:"task_file_name"`
	RelatedDocument json.RawMessage `json:"related_document"`
}

// Succeeded reports whether the task finished successfully.
func (t *Task) Succeeded() bool { return t.Status == TaskSuccess }

// Failed reports whether the task ended without producing a document.
func (t *Task) Failed() bool { return t.Status == TaskFailure || t.Status == TaskRevoked }

// HasRelatedDocument reports whether a document reference is present.
func (t *Task) HasRelatedDocument() bool {
	raw := bytes.TrimSpace(t.RelatedDocument)
	return len(raw) > 0 && string(raw) != "null" && string(raw) != `""`
}

// TaskStatus returns the task with the given id, or nil when the server
// does not list it yet.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*Task, error) {
	q := url.Values{}
	q.Set("task_id", taskID)

	var tasks []Task
	if err := c.get(ctx, "get task status", "/api/tasks/", q, &tasks); err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return &tasks[0], nil
}

var documentPathID = regexp.MustCompile(`/documents/(\d+)/?$`)

// ParseDocumentID normalizes a related_document value. The server sends a
// bare integer, a numeric string, or a path such as "/api/documents/465/".
func ParseDocumentID(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("no related document")
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return nonNegative(string(n))
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("related document %s: unsupported format", raw)
	}
	s = strings.TrimSpace(s)
	if m := documentPathID.FindStringSubmatch(s); m != nil {
		return nonNegative(m[1])
	}
	return nonNegative(s)
}

func nonNegative(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("related document %q: not an id", s)
	}
	if id < 0 {
		return 0, fmt.Errorf("related document %d: negative id", id)
	}
	return id, nil
}
