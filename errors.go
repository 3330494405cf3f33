package taskqueue

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by SetPriority when the id does not match any
// currently-waiting task.
var ErrNotFound = errors.New("taskqueue: no waiting task with that id")

// errQueueCleared is the CancelledError reason given to waiting tasks
// discarded by Clear.
var errQueueCleared = errors.New("taskqueue: queue cleared")

// ConfigurationError reports an invalid construction or runtime-setter
// argument. It is always returned synchronously to the caller that
// triggered it, never delivered through an event or a task future.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("taskqueue: invalid %s: %s", e.Field, e.Reason)
}

func configErr(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

// NotFoundError wraps ErrNotFound with the id that was looked up, so
// callers can log or match against the sentinel with errors.Is.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("taskqueue: task %q not found in waiting queue", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// TimeoutError is delivered to a task's Outcome and to the error event
// when the task's deadline elapses before its function returns. The
// function is not interrupted; its eventual result is simply discarded.
type TimeoutError struct {
	ID      string
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("taskqueue: task %q timed out after %s", e.ID, e.Timeout)
}

// CancelledError wraps the reason supplied by the task's cancel context
// (context.Context.Err / context.Cause), passed through verbatim.
type CancelledError struct {
	ID     string
	Reason error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("taskqueue: task %q cancelled: %v", e.ID, e.Reason)
}

func (e *CancelledError) Unwrap() error { return e.Reason }

// TaskFailureError wraps any other error returned by a task's function,
// unmodified, tagged with the task's id.
type TaskFailureError struct {
	ID  string
	Err error
}

func (e *TaskFailureError) Error() string {
	return fmt.Sprintf("taskqueue: task %q failed: %v", e.ID, e.Err)
}

func (e *TaskFailureError) Unwrap() error { return e.Err }
