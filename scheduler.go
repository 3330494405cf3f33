package taskqueue

import (
	"time"

	"github.com/fluxqueue/taskqueue/internal/ratelimit"
)

// concurrencyAllows reports whether another task may start right now,
// ignoring rate limiting.
func concurrencyAllows(s *state) bool {
	return s.concurrency == Unbounded || len(s.running) < s.concurrency
}

// computeSaturated reports whether the queue can't admit another task
// right now: either its concurrency cap is full, or it has a backlog
// that the rate limiter is currently blocking.
func computeSaturated(s *state) bool {
	concurrencyFull := s.concurrency != Unbounded && len(s.running) >= s.concurrency
	backlogged := s.container.Len() > 0
	return concurrencyFull || (s.rateLimited && backlogged)
}

// drain admits as many waiting tasks as the concurrency cap and rate
// limiter currently allow. It is the sole entry point that starts
// tasks, called after every command that could change how many may run
// (Add, a task finishing, Start, SetConcurrency, ...). Because it's a
// plain for-loop rather than a recursive descent, the call depth stays
// bounded however many tasks are ready to admit; the loop itself admits
// every task that concurrency and the rate limiter allow in this call.
func drain(q *Queue, s *state) {
	if !s.closed && !s.paused {
		for concurrencyAllows(s) && s.container.Len() > 0 {
			now := time.Now()
			paused, delay := s.limiter.IsPausedAt(now, len(s.running))
			if paused {
				armResumeTimer(q, s, delay)
				break
			}
			item, ok := s.container.Dequeue()
			if !ok {
				break
			}
			rec, known := s.records[item.ID]
			if !known {
				continue
			}
			startTask(q, s, rec, now)
		}
	}
	updateRateLimitState(s)
	updateIdleEmptyState(s)
	s.metrics.refreshGauges(s.container.Len(), len(s.running), s.rateLimited, computeSaturated(s))
}

// armResumeTimer schedules a single re-evaluation of drain after delay.
// A timer already in flight is left alone — it will call drain again
// when it fires, which re-arms a fresh one if still needed.
func armResumeTimer(q *Queue, s *state, delay time.Duration) {
	if s.resumeTimer != nil {
		return
	}
	if delay < 0 {
		delay = 0
	}
	s.resumeTimer = time.AfterFunc(delay, func() {
		q.post(func(s *state) {
			s.resumeTimer = nil
			drain(q, s)
		})
	})
}

// currentlyRateLimited is a side-effect-free read of whether a waiting
// task's admission would be blocked by the rate limiter right now, used
// for the public IsRateLimited observable and the transition-detection
// below. It intentionally does not call limiter.IsPausedAt, which
// performs window bookkeeping that belongs only to the admission path in
// drain.
func currentlyRateLimited(s *state, now time.Time) bool {
	if s.limiter.Ignored() || s.container.Len() == 0 {
		return false
	}
	limit := s.limiter.Cap()
	if limit == ratelimit.Unbounded {
		return false
	}
	return s.limiter.Admitted(now) >= limit
}

// updateRateLimitState evaluates the rate-limited transition exactly
// once per dispatcher command (called at the end of drain, the single
// place admission decisions are made), coalescing what would otherwise
// be a burst of spurious enter/exit notifications into at most one
// EventRateLimitReached or EventRateLimitCleared per command.
func updateRateLimitState(s *state) {
	limited := currentlyRateLimited(s, time.Now())
	if limited == s.rateLimited {
		return
	}
	s.rateLimited = limited
	if limited {
		s.metrics.recordRateLimitTransition()
		s.hub.resolveRateLimit()
		s.hub.emit(Event{Kind: EventRateLimitReached})
	} else {
		s.hub.resolveRateCleared()
		s.hub.emit(Event{Kind: EventRateLimitCleared})
	}
}

// updateIdleEmptyState edge-triggers EventEmpty (waiting count reaches
// zero), pending-zero (nothing running, waiting tasks notwithstanding),
// and EventIdle (both at once), resolving their one-shot waiters. On the
// transition to idle it also stops the resume timer and compacts the
// rate limiter's admission history.
func updateIdleEmptyState(s *state) {
	empty := s.container.Len() == 0
	if empty && !s.wasEmpty {
		s.hub.resolveEmpty()
		s.hub.emit(Event{Kind: EventEmpty})
	}
	s.wasEmpty = empty

	pendingZero := len(s.running) == 0
	if pendingZero && !s.wasPendingZero {
		s.hub.resolvePendingZero()
	}
	s.wasPendingZero = pendingZero

	idle := empty && pendingZero
	if idle && !s.wasIdle {
		if s.resumeTimer != nil {
			s.resumeTimer.Stop()
			s.resumeTimer = nil
		}
		s.limiter.Compact(time.Now())
		s.hub.resolveIdle()
		s.hub.emit(Event{Kind: EventIdle})
	}
	s.wasIdle = idle

	s.hub.resolveSizeLessThan(s.container.Len())
}
