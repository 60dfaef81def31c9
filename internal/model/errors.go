package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyAttachment is wrapped by AttachmentReadError for zero-length
// attachment bytes.
var ErrEmptyAttachment = errors.New("attachment is empty")

// ErrUploadInFlight is returned when an upload for the same message is
// already running.
var ErrUploadInFlight = errors.New("upload already in progress for this message")

// ConfigurationError reports missing or malformed settings.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// HTTPError is returned for any non-2xx response from the document server
// or the render service.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
}

// IsNotFound reports whether err is an HTTPError with status 404.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is an HTTPError with status 401 or 403.
func IsUnauthorized(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) &&
		(he.StatusCode == http.StatusUnauthorized || he.StatusCode == http.StatusForbidden)
}

// TaskTimeoutWarning means polling gave up while the task was still
// pending. The document probably still gets created.
type TaskTimeoutWarning struct {
	TaskID   string
	Attempts int
}

func (e *TaskTimeoutWarning) Error() string {
	return fmt.Sprintf("task %s still processing after %d attempts", e.TaskID, e.Attempts)
}

// TaskFailure means the server reported a terminal failure for a task,
// or a result that cannot be turned into a document id.
type TaskFailure struct {
	TaskID  string
	Status  string
	Message string
}

func (e *TaskFailure) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("task %s %s: %s", e.TaskID, e.Status, e.Message)
	}
	return fmt.Sprintf("task %s %s", e.TaskID, e.Status)
}

// MetadataResolutionError reports a failed get-or-create of a custom field
// the workflow cannot do without.
type MetadataResolutionError struct {
	Name string
	Err  error
}

func (e *MetadataResolutionError) Error() string {
	return fmt.Sprintf("resolving custom field %q: %v", e.Name, e.Err)
}

func (e *MetadataResolutionError) Unwrap() error { return e.Err }

// AttachmentReadError reports empty or unreadable attachment bytes.
type AttachmentReadError struct {
	Name string
	Err  error
}

func (e *AttachmentReadError) Error() string {
	return fmt.Sprintf("reading attachment %q: %v", e.Name, e.Err)
}

func (e *AttachmentReadError) Unwrap() error { return e.Err }

// LinkingError reports a failed custom-field patch during cross-linking.
type LinkingError struct {
	DocumentID int
	Err        error
}

func (e *LinkingError) Error() string {
	return fmt.Sprintf("linking document %d: %v", e.DocumentID, e.Err)
}

func (e *LinkingError) Unwrap() error { return e.Err }
