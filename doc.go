// Package taskqueue implements an embeddable, in-process asynchronous
// task queue with priority scheduling, a concurrency cap, and interval
// rate limiting.
//
// A Queue accepts deferred units of work (tasks) via Add/AddAll,
// schedules them by priority subject to a concurrency limit and an
// optional admission-rate limit, and reports progress through a stream
// of lifecycle events plus a set of one-shot "wait until" helpers
// (OnEmpty, OnIdle, OnPendingZero, ...).
//
// The queue does not persist tasks, does not cross process boundaries,
// and does not perform I/O of its own; it is a scheduling primitive to
// be embedded in a larger program. All state mutation happens on a
// single internal goroutine (the dispatcher), so the public API needs no
// external locking and task submission from multiple goroutines is
// always safe.
package taskqueue
