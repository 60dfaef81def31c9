// Package poller turns a consumption task id into a document id by
// querying the task status at a fixed interval.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/paperless"
)

// State is the poll state of one task.
type State int

const (
	StatePending State = iota
	StateSuccess
	StateFailure
	StateTimeout
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	case StateTimeout:
		return "timeout"
	}
	return "unknown"
}

const (
	DefaultMaxAttempts = 60
	DefaultDelay       = time.Second
)

// StatusSource reports the status of a task. A nil task means the server
// does not list it yet.
type StatusSource interface {
	TaskStatus(ctx context.Context, taskID string) (*paperless.Task, error)
}

// Progress is reported after every attempt.
type Progress struct {
	TaskID  string
	Attempt int
	State   State
}

// Poller waits for tasks to finish. It is safe for sequential use by one
// workflow; each Wait call owns its own loop.
type Poller struct {
	source      StatusSource
	maxAttempts int
	delay       time.Duration
	logger      *slog.Logger
	progress    func(Progress)
}

// Option configures a Poller.
type Option func(*Poller)

// WithMaxAttempts bounds the number of status queries.
func WithMaxAttempts(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithDelay sets the fixed delay between attempts.
func WithDelay(d time.Duration) Option {
	return func(p *Poller) {
		if d >= 0 {
			p.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithProgress registers a callback invoked after every attempt.
func WithProgress(fn func(Progress)) Option {
	return func(p *Poller) { p.progress = fn }
}

// New creates a Poller reading task status from source.
func New(source StatusSource, opts ...Option) *Poller {
	p := &Poller{
		source:      source,
		maxAttempts: DefaultMaxAttempts,
		delay:       DefaultDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait polls until the task resolves. It returns the document id on
// success, *model.TaskFailure on a failed task or malformed result,
// *model.TaskTimeoutWarning when attempts run out, and ctx.Err() when the
// context ends first.
func (p *Poller) Wait(ctx context.Context, taskID string) (int, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		state, id, err := p.check(ctx, taskID, attempt)
		if p.progress != nil {
			p.progress(Progress{TaskID: taskID, Attempt: attempt, State: state})
		}
		switch state {
		case StateSuccess:
			p.logger.Info("task resolved", "task_id", taskID, "document_id", id, "attempt", attempt)
			return id, nil
		case StateFailure:
			p.logger.Warn("task failed", "task_id", taskID, "error", err)
			return 0, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}

		if attempt == p.maxAttempts {
			break
		}
		if err := sleep(ctx, p.delay); err != nil {
			return 0, err
		}
	}

	p.logger.Warn("task still processing", "task_id", taskID, "attempts", p.maxAttempts)
	return 0, &model.TaskTimeoutWarning{TaskID: taskID, Attempts: p.maxAttempts}
}

// check performs one status query and classifies the answer.
func (p *Poller) check(ctx context.Context, taskID string, attempt int) (State, int, error) {
	task, err := p.source.TaskStatus(ctx, taskID)
	if err != nil {
		p.logger.Debug("task status query failed", "task_id", taskID, "attempt", attempt, "error", err)
		return StatePending, 0, nil
	}
	if task == nil {
		p.logger.Debug("task not listed yet", "task_id", taskID, "attempt", attempt)
		return StatePending, 0, nil
	}

	p.logger.Debug("task status", "task_id", taskID, "attempt", attempt, "status", task.Status)

	switch {
	case task.Failed():
		return StateFailure, 0, &model.TaskFailure{TaskID: taskID, Status: task.Status, Message: task.Result}
	case task.Succeeded() && task.HasRelatedDocument():
		id, err := paperless.ParseDocumentID(task.RelatedDocument)
		if err != nil {
			return StateFailure, 0, &model.TaskFailure{TaskID: taskID, Status: task.Status, Message: err.Error()}
		}
		return StateSuccess, id, nil
	}
	return StatePending, 0, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
