package taskqueue

import (
	"context"
	"strconv"
	"time"
)

// Add submits fn for scheduling and returns a Future for its eventual
// Outcome. Add never blocks on fn running; it only waits for the
// dispatcher to record the submission.
func (q *Queue) Add(fn TaskFunc, opts ...TaskOption) (*Future, error) {
	cfg := taskConfig{ctx: context.Background()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.hasTimeout && cfg.timeout <= 0 {
		return nil, configErr("timeout", "must be a positive duration")
	}

	var future *Future
	var cfgErr error
	q.postSync(func(s *state) {
		if s.closed {
			cfgErr = configErr("queue", "closed")
			return
		}
		id := cfg.id
		if !cfg.hasID {
			id = autoID(s)
		} else if _, exists := s.records[id]; exists {
			cfgErr = configErr("task-id", "already in use: "+id)
			return
		}

		rec := &taskRecord{
			id:         id,
			priority:   cfg.priority,
			timeout:    cfg.timeout,
			hasTimeout: cfg.hasTimeout,
			ctx:        cfg.ctx,
			fn:         fn,
			outcome:    make(chan Outcome, 1),
		}
		s.records[id] = rec
		s.container.Enqueue(id, cfg.priority, nil)
		future = newFuture(id, rec.outcome)
		drain(q, s)
	})
	if cfgErr != nil {
		return nil, cfgErr
	}
	return future, nil
}

// AddAll submits every fn in fns with the same TaskOption set (beyond
// WithTaskID, which would collide — callers needing distinct ids should
// call Add individually) and returns their Futures in the same order.
func (q *Queue) AddAll(fns []TaskFunc, opts ...TaskOption) ([]*Future, error) {
	futures := make([]*Future, 0, len(fns))
	for _, fn := range fns {
		f, err := q.Add(fn, opts...)
		if err != nil {
			return futures, err
		}
		futures = append(futures, f)
	}
	return futures, nil
}

func autoID(s *state) string {
	for {
		s.autoCounter++
		id := "#" + strconv.Itoa(s.autoCounter)
		if _, exists := s.records[id]; !exists {
			return id
		}
	}
}

// Pause stops admitting new tasks. Tasks already running continue to
// completion.
func (q *Queue) Pause() {
	q.post(func(s *state) { s.paused = true })
}

// Start resumes admission, waking any tasks that were eligible to run
// while paused.
func (q *Queue) Start() {
	q.post(func(s *state) {
		s.paused = false
		drain(q, s)
	})
}

// IsPaused reports whether the queue is currently paused.
func (q *Queue) IsPaused() bool {
	var paused bool
	q.postSync(func(s *state) { paused = s.paused })
	return paused
}

// Clear discards every waiting (not yet started) task, settling each
// with a CancelledError. Running tasks are unaffected.
func (q *Queue) Clear() {
	q.post(func(s *state) {
		for {
			item, ok := s.container.Dequeue()
			if !ok {
				break
			}
			rec, known := s.records[item.ID]
			if !known {
				continue
			}
			delete(s.records, item.ID)
			settle(s, rec, Outcome{Err: &CancelledError{ID: item.ID, Reason: errQueueCleared}}, outcomeCancelled)
		}
		updateRateLimitState(s)
		updateIdleEmptyState(s)
		s.metrics.refreshGauges(s.container.Len(), len(s.running), s.rateLimited, computeSaturated(s))
	})
}

// SetPriority changes the priority of a still-waiting task. Returns a
// *NotFoundError if id is unknown or no longer waiting (already running
// or settled).
func (q *Queue) SetPriority(id string, priority int) error {
	var found bool
	q.postSync(func(s *state) {
		found = s.container.SetPriority(id, priority)
		if found {
			if rec, exists := s.records[id]; exists {
				rec.priority = priority
			}
		}
	})
	if !found {
		return &NotFoundError{ID: id}
	}
	return nil
}

// SetConcurrency changes the maximum number of simultaneously running
// tasks (Unbounded or >= 1), admitting more waiting tasks immediately if
// the new limit allows it.
func (q *Queue) SetConcurrency(n int) error {
	if n != Unbounded && n < 1 {
		return configErr("concurrency", "must be >= 1 or taskqueue.Unbounded")
	}
	q.post(func(s *state) {
		s.concurrency = n
		drain(q, s)
	})
	return nil
}

// SetDefaultTimeout changes the timeout inherited by future tasks that
// don't supply their own. Does not affect tasks already running.
func (q *Queue) SetDefaultTimeout(d time.Duration) error {
	if d <= 0 {
		return configErr("timeout", "must be a positive duration")
	}
	q.post(func(s *state) {
		s.defaultTimeout = d
		s.hasDefaultTimeout = true
	})
	return nil
}

// Size returns the number of tasks waiting to be admitted.
func (q *Queue) Size() int {
	var n int
	q.postSync(func(s *state) { n = s.container.Len() })
	return n
}

// SizeBy returns the number of waiting tasks matching filter.
func (q *Queue) SizeBy(filter func(TaskInfo) bool) int {
	var n int
	q.postSync(func(s *state) {
		items := s.container.Filter(func(item QueueItem) bool {
			rec, ok := s.records[item.ID]
			if !ok {
				return false
			}
			return filter(TaskInfo{ID: rec.id, Priority: rec.priority, Timeout: rec.timeout})
		})
		n = len(items)
	})
	return n
}

// Pending returns the number of tasks admitted but not yet finished
// (i.e. currently running). Waiting tasks are reported by Size, not
// Pending; Pending is unaffected by Clear, which only discards waiting
// tasks.
func (q *Queue) Pending() int {
	var n int
	q.postSync(func(s *state) { n = len(s.running) })
	return n
}

// IsRateLimited reports whether tasks are waiting and their admission is
// currently blocked by the configured rate limiter.
func (q *Queue) IsRateLimited() bool {
	var limited bool
	q.postSync(func(s *state) { limited = s.rateLimited })
	return limited
}

// IsSaturated reports whether the queue can't admit another task right
// now: either its concurrency cap is full, or it has a backlog that the
// rate limiter is currently blocking.
func (q *Queue) IsSaturated() bool {
	var saturated bool
	q.postSync(func(s *state) { saturated = computeSaturated(s) })
	return saturated
}

// RunningTasks returns a snapshot of the currently running tasks.
func (q *Queue) RunningTasks() []TaskInfo {
	var out []TaskInfo
	q.postSync(func(s *state) {
		out = make([]TaskInfo, 0, len(s.running))
		for _, rt := range s.running {
			out = append(out, TaskInfo{
				ID:       rt.rec.id,
				Priority: rt.rec.priority,
				Start:    rt.start,
				Timeout:  rt.rec.timeout,
			})
		}
	})
	return out
}

// Subscribe registers a channel that receives every lifecycle Event
// until the returned unsubscribe func is called. buffer sets the
// channel's capacity; events are dropped, never blocked on, if the
// consumer falls behind.
func (q *Queue) Subscribe(buffer int) (events <-chan Event, unsubscribe func()) {
	var ch <-chan Event
	var unsub func()
	q.postSync(func(s *state) { ch, unsub = s.hub.Subscribe(buffer) })
	return ch, unsub
}

// OnEmpty returns a channel closed the next time the waiting count
// reaches zero (tasks may still be running); already closed if that is
// already true.
func (q *Queue) OnEmpty() <-chan struct{} {
	var ch <-chan struct{}
	q.postSync(func(s *state) {
		if s.container.Len() == 0 {
			ch = closedSignal()
			return
		}
		ch = s.hub.waitEmpty()
	})
	return ch
}

// OnIdle returns a channel closed the next time nothing is waiting and
// nothing is running; already closed if that is already true.
func (q *Queue) OnIdle() <-chan struct{} {
	var ch <-chan struct{}
	q.postSync(func(s *state) {
		if s.container.Len() == 0 && len(s.running) == 0 {
			ch = closedSignal()
			return
		}
		ch = s.hub.waitIdle()
	})
	return ch
}

// OnPendingZero returns a channel closed the next time Pending (the
// running count) reaches zero; already closed if that is already true.
func (q *Queue) OnPendingZero() <-chan struct{} {
	var ch <-chan struct{}
	q.postSync(func(s *state) {
		if len(s.running) == 0 {
			ch = closedSignal()
			return
		}
		ch = s.hub.waitPendingZero()
	})
	return ch
}

// OnSizeLessThan returns a channel closed the next time the waiting
// count drops below threshold; already closed if that is already true.
func (q *Queue) OnSizeLessThan(threshold int) <-chan struct{} {
	var ch <-chan struct{}
	q.postSync(func(s *state) {
		if s.container.Len() < threshold {
			ch = closedSignal()
			return
		}
		ch = s.hub.waitSizeLessThan(threshold)
	})
	return ch
}

// OnRateLimit returns a channel closed the next time admission becomes
// blocked by the rate limiter; already closed if that is already true.
func (q *Queue) OnRateLimit() <-chan struct{} {
	var ch <-chan struct{}
	q.postSync(func(s *state) {
		if s.rateLimited {
			ch = closedSignal()
			return
		}
		ch = s.hub.waitRateLimit()
	})
	return ch
}

// OnRateLimitCleared returns a channel closed the next time the rate
// limiter stops blocking admission; already closed if that is already
// true.
func (q *Queue) OnRateLimitCleared() <-chan struct{} {
	var ch <-chan struct{}
	q.postSync(func(s *state) {
		if !s.rateLimited {
			ch = closedSignal()
			return
		}
		ch = s.hub.waitRateLimitCleared()
	})
	return ch
}

// OnError returns a channel that receives the next task error, once.
func (q *Queue) OnError() <-chan error {
	var ch <-chan error
	q.postSync(func(s *state) { ch = s.hub.waitError() })
	return ch
}
