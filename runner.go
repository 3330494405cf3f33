package taskqueue

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// errTaskTimeout is the context.Cause used when a task's effective
// timeout elapses, distinguishing it from a caller-supplied cancel
// context's own cause so completeTask can tell TimeoutError and
// CancelledError apart.
var errTaskTimeout = errors.New("taskqueue: task timeout elapsed")

// startTask admits rec: it consumes one unit of rate-limit budget, then
// either aborts it immediately if its cancel context is already done
// (spec.md's pre-start-abort path, which must not count as having run
// and must roll the consumed budget back) or launches it on its own
// goroutine.
func startTask(q *Queue, s *state, rec *taskRecord, now time.Time) {
	s.limiter.Consume(now)

	if err := rec.ctx.Err(); err != nil {
		// Pre-start abort: startTask is itself called from within
		// drain's admission loop, so settle in place rather than
		// re-entering drain — the enclosing loop already continues on
		// to the next waiting task.
		s.limiter.Rollback()
		delete(s.records, rec.id)
		settle(s, rec, Outcome{Err: &CancelledError{ID: rec.id, Reason: context.Cause(rec.ctx)}}, outcomeCancelled)
		return
	}

	runCtx := rec.ctx
	var cancel context.CancelFunc
	if !rec.hasTimeout && s.hasDefaultTimeout {
		rec.timeout, rec.hasTimeout = s.defaultTimeout, true
	}
	timeout, hasTimeout := rec.timeout, rec.hasTimeout
	if hasTimeout {
		runCtx, cancel = context.WithTimeoutCause(runCtx, timeout, errTaskTimeout)
	} else {
		runCtx, cancel = context.WithCancel(runCtx)
	}

	rt := &runningTask{rec: rec, cancel: cancel, start: now}
	s.running[rec.id] = rt
	s.metrics.recordAdmitted()
	s.hub.emit(Event{Kind: EventActive, TaskID: rec.id})

	go func() {
		value, err := race(runCtx, rec.fn)
		elapsed := time.Since(now)

		outcome, kind := classify(runCtx, err, rec.id, value, timeout)
		cancel()
		q.post(func(s *state) {
			if _, stillRunning := s.running[rec.id]; !stillRunning {
				return
			}
			delete(s.running, rec.id)
			delete(s.records, rec.id)
			s.metrics.recordLatency(elapsed.Seconds())
			settle(s, rec, outcome, kind)
			// This command runs on its own dispatcher turn (posted from
			// the task's goroutine, not nested inside drain's loop), so
			// re-draining here is the single place a freed concurrency
			// slot gets put back to use.
			drain(q, s)
		})
	}()
}

// taskResult carries a TaskFunc's return across the goroutine boundary in
// race.
type taskResult struct {
	value any
	err   error
}

// race runs fn on its own goroutine and returns as soon as either fn
// returns or runCtx is done, whichever happens first. Per spec.md §5,
// the running function is never interrupted — if runCtx wins the race,
// fn keeps running in the background and its eventual result (delivered
// into the buffered channel below) is simply never read.
func race(runCtx context.Context, fn TaskFunc) (any, error) {
	done := make(chan taskResult, 1)
	go func() {
		value, err := fn(runCtx)
		done <- taskResult{value, err}
	}()
	select {
	case r := <-done:
		return r.value, r.err
	case <-runCtx.Done():
		return nil, runCtx.Err()
	}
}

// classify maps a TaskFunc's return into the settled Outcome and metrics
// bucket, distinguishing ordinary failure from timeout and cancellation
// by the run context's cause.
func classify(runCtx context.Context, err error, id string, value any, timeout time.Duration) (Outcome, outcomeKind) {
	if err == nil {
		return Outcome{Value: value}, outcomeCompleted
	}
	if runCtx.Err() != nil {
		switch cause := context.Cause(runCtx); {
		case errors.Is(cause, errTaskTimeout):
			return Outcome{Err: &TimeoutError{ID: id, Timeout: timeout.String()}}, outcomeTimedOut
		default:
			return Outcome{Err: &CancelledError{ID: id, Reason: cause}}, outcomeCancelled
		}
	}
	return Outcome{Err: &TaskFailureError{ID: id, Err: err}}, outcomeFailed
}

// settle delivers rec's final Outcome and records metrics/events. It
// never re-drains itself; callers already running inside drain's loop
// rely on that loop to continue, and callers on a fresh dispatcher turn
// call drain explicitly afterward.
func settle(s *state, rec *taskRecord, outcome Outcome, kind outcomeKind) {
	rec.outcome <- outcome
	close(rec.outcome)

	s.metrics.recordOutcome(kind)
	if outcome.Err != nil {
		s.logger.WithFields(logrus.Fields{"task_id": rec.id, "error": outcome.Err}).Debug("task settled with error")
		s.hub.emit(Event{Kind: EventError, TaskID: rec.id, Outcome: outcome})
		s.hub.dispatchError(outcome.Err)
	} else {
		s.logger.WithField("task_id", rec.id).Debug("task completed")
		s.hub.emit(Event{Kind: EventCompleted, TaskID: rec.id, Outcome: outcome})
	}
}
