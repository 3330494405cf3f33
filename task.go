package taskqueue

import (
	"context"
	"time"
)

// TaskFunc is a unit of deferred work. It receives a context that is
// cancelled when the task's cancel context is cancelled or its timeout
// elapses, whichever happens first (spec.md §5: "Cancellation
// semantics"). The function is never forcibly interrupted — if it
// ignores ctx, it keeps running to completion but its result is
// discarded once ctx is done.
type TaskFunc func(ctx context.Context) (any, error)

// Outcome is what a task settles with: either a Value (Err nil) or an
// Err (Value unused). Exactly one Outcome is ever delivered per task,
// matching spec.md §8's "future resolves or rejects exactly once".
type Outcome struct {
	Value any
	Err   error
}

// TaskInfo is a point-in-time snapshot of a task, used for RunningTasks
// and SizeBy. It never aliases live queue state.
type TaskInfo struct {
	ID       string
	Priority int
	Start    time.Time     // zero for waiting (not yet admitted) tasks
	Timeout  time.Duration // 0 if none configured
}

// taskConfig accumulates TaskOption values before a task record is built.
type taskConfig struct {
	id         string
	hasID      bool
	priority   int
	timeout    time.Duration
	hasTimeout bool
	ctx        context.Context
}

// TaskOption customizes a single Add/AddAll submission.
type TaskOption func(*taskConfig)

// WithTaskID assigns an explicit id to the task instead of letting the
// queue auto-assign one. Explicit and auto-assigned ids ("#" followed by
// a decimal counter) share one namespace: Add rejects an explicit id
// that matches a task still waiting or running, and auto-assignment
// skips ids in use, but an explicit id of the "#N" form is accepted.
func WithTaskID(id string) TaskOption {
	return func(c *taskConfig) {
		c.id = id
		c.hasID = true
	}
}

// WithPriority sets the task's priority (default 0); higher runs
// earlier among waiting tasks.
func WithPriority(priority int) TaskOption {
	return func(c *taskConfig) { c.priority = priority }
}

// WithTaskTimeout overrides the queue's default timeout for this task
// only. A zero or negative duration is rejected by Add (ConfigurationError).
func WithTaskTimeout(d time.Duration) TaskOption {
	return func(c *taskConfig) {
		c.timeout = d
		c.hasTimeout = true
	}
}

// WithCancel supplies the cancel context for this task — the Go
// equivalent of spec.md's external "cancel token": Done(), Err(), and
// context.Cause(ctx) already provide the is-cancelled query,
// throw-if-cancelled check, subscription, and cancellation reason the
// spec assumes as a pre-existing abstraction. Defaults to
// context.Background() (never cancelled) if not supplied.
func WithCancel(ctx context.Context) TaskOption {
	return func(c *taskConfig) { c.ctx = ctx }
}

// taskRecord is the queue's internal record for a submitted task, owned
// by the queue from Add until it finishes or is aborted pre-start.
type taskRecord struct {
	id         string
	priority   int
	timeout    time.Duration
	hasTimeout bool
	ctx        context.Context
	fn         TaskFunc
	outcome    chan Outcome
}

// QueueItem is the payload-bearing view of a waiting record exposed
// across the PriorityContainer boundary (spec.md §9: the queue-class
// customization point is a capability contract, not an inheritance
// hierarchy).
type QueueItem struct {
	ID       string
	Priority int
	Payload  any
}

// PriorityContainer is the contract an alternative queue-class
// implementation must satisfy (spec.md §4.A, §9). The default
// implementation (internal/pqueue) is a stable, priority-descending
// binary heap.
type PriorityContainer interface {
	Enqueue(id string, priority int, payload any)
	Dequeue() (QueueItem, bool)
	Peek() (QueueItem, bool)
	Filter(keep func(QueueItem) bool) []QueueItem
	SetPriority(id string, priority int) bool
	Len() int
}
