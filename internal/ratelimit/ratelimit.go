// Package ratelimit implements component B of the task queue core: the
// admission-rate state machine described in spec.md §4.B, in its two
// modes (fixed window, strict/sliding window) plus the no-op limiter used
// when rate limiting is configured off.
//
// The teacher's own rate limiter (FluxForge's control_plane/scheduler/limiter.go)
// is a golang.org/x/time/rate token bucket keyed per node/tenant; it was
// not reused here because the spec's two modes need operations
// (Rollback on a pre-start abort, a precise resume delay from
// IsPausedAt, carryover-on-window-roll) that a token bucket doesn't
// expose. See DESIGN.md for the full accounting of what was and wasn't
// carried over from the teacher.
package ratelimit

import "time"

// Unbounded marks an infinite interval-cap (spec.md §6: "interval-cap:
// pos. integer or +∞").
const Unbounded = -1

// Limiter is the capability contract every mode implements. All methods
// are pure functions of the supplied `now` (and, for the fixed-window
// mode, `pending`) so the state machine can be unit tested without real
// timers.
type Limiter interface {
	// Ignored reports whether rate limiting is configured off
	// (interval == 0 or interval-cap == +∞); when true no admission is
	// ever blocked by this limiter.
	Ignored() bool

	// IsPausedAt reports whether an admission is blocked right now, and
	// if so, the delay after which the caller should re-consult (the
	// scheduler arms a one-shot resume timer for that delay). pending is
	// the queue's current in-flight count, needed only by the
	// carryover-interval-count fixed-window behavior.
	IsPausedAt(now time.Time, pending int) (paused bool, delay time.Duration)

	// Consume records an admission at `now`.
	Consume(now time.Time)

	// Rollback undoes the most recent Consume. Used on the pre-start
	// abort path (a cancelled task must not count against the limit).
	Rollback()

	// Admitted reports how many admissions currently count against the
	// cap, and Cap reports the configured interval-cap (Unbounded if
	// infinite). Together these back the is-rate-limited derived
	// observable. Strict mode evicts as of `now` first; fixed-window mode
	// ignores `now` and reports the count of the window as last rolled
	// by IsPausedAt.
	Admitted(now time.Time) int
	Cap() int

	// Compact releases any memory that eviction alone wouldn't reclaim
	// immediately (strict mode's circular buffer). A no-op for modes
	// that don't retain per-admission history.
	Compact(now time.Time)

	// ClearCondition reports whether no admissions are counted against
	// the current fixed window and nothing is pending. Strict mode keeps
	// no window count and always reports true.
	ClearCondition(pending int) bool
}

// none is the limiter used when rate limiting is configured off.
type none struct{}

// NewUnlimited returns the no-op limiter (rate limiting ignored).
func NewUnlimited() Limiter { return none{} }

func (none) Ignored() bool                                   { return true }
func (none) IsPausedAt(time.Time, int) (bool, time.Duration) { return false, 0 }
func (none) Consume(time.Time)                               {}
func (none) Rollback()                                       {}
func (none) Admitted(time.Time) int                          { return 0 }
func (none) Cap() int                                        { return Unbounded }
func (none) Compact(time.Time)                               {}
func (none) ClearCondition(int) bool                         { return true }

// FixedWindowConfig configures the fixed-window mode.
type FixedWindowConfig struct {
	Interval               time.Duration
	IntervalCap            int // must be >= 1; use NewUnlimited instead of Unbounded here
	CarryoverIntervalCount bool
}

// FixedWindow is the classic "N per interval, counted since the last
// reset" mode (spec.md §4.B).
type FixedWindow struct {
	interval   time.Duration
	cap        int
	carryover  bool
	count         int
	intervalEnd   time.Time // zero until the first Consume
	lastExecution time.Time // zero until the first Consume
}

// NewFixedWindow constructs a fixed-window limiter. Callers are expected
// to have already validated interval > 0 and cap >= 1 (see the root
// package's option validation); this constructor does not re-validate.
func NewFixedWindow(cfg FixedWindowConfig) *FixedWindow {
	return &FixedWindow{
		interval:  cfg.Interval,
		cap:       cfg.IntervalCap,
		carryover: cfg.CarryoverIntervalCount,
	}
}

func (f *FixedWindow) Ignored() bool { return false }

func (f *FixedWindow) IsPausedAt(now time.Time, pending int) (bool, time.Duration) {
	if f.intervalEnd.IsZero() {
		// Never admitted anything yet: nothing to wait for.
		return false, 0
	}
	if now.Before(f.intervalEnd) {
		if f.count < f.cap {
			return false, 0
		}
		return true, f.intervalEnd.Sub(now)
	}
	// The window boundary has passed. Roll it forward, but honor a
	// minimum spacing since the last admission even if the queue has
	// been fully idle in between (otherwise a task admitted a moment
	// before an idle stretch, followed by one right after, could run
	// back-to-back instead of interval ms apart).
	if !f.lastExecution.IsZero() {
		if spacing := f.interval - now.Sub(f.lastExecution); spacing > 0 {
			return true, spacing
		}
	}
	if f.carryover {
		f.count = pending
	} else {
		f.count = 0
	}
	f.intervalEnd = now.Add(f.interval)
	return false, 0
}

func (f *FixedWindow) Consume(now time.Time) {
	f.count++
	f.lastExecution = now
	if f.intervalEnd.IsZero() {
		f.intervalEnd = now.Add(f.interval)
	}
}

func (f *FixedWindow) Rollback() {
	if f.count > 0 {
		f.count--
	}
}

func (f *FixedWindow) Admitted(time.Time) int { return f.count }
func (f *FixedWindow) Cap() int               { return f.cap }
func (f *FixedWindow) Compact(time.Time)       {}

func (f *FixedWindow) ClearCondition(pending int) bool {
	return f.count == 0 && pending == 0
}

// StrictConfig configures the sliding-window mode.
type StrictConfig struct {
	Interval    time.Duration
	IntervalCap int // must be >= 1 and finite
}

// compactThreshold is the number of evicted-but-not-yet-reclaimed ticks
// at the front of the buffer that triggers a compaction, per spec.md
// §4.B's "fixed threshold and more than half of entries are wasted".
const compactThreshold = 64

// Strict is the sliding-window mode: it keeps one timestamp per
// admission in a slice used as a circular buffer (a start index,
// advanced on eviction, stands in for removing from the front) and
// enforces the cap over any rolling interval-ms window, eliminating the
// classic N-at-end-of-window + N-at-start-of-next burst.
type Strict struct {
	interval time.Duration
	cap      int
	ticks    []time.Time
	start    int
}

// NewStrict constructs a strict/sliding-window limiter.
func NewStrict(cfg StrictConfig) *Strict {
	return &Strict{interval: cfg.Interval, cap: cfg.IntervalCap}
}

func (s *Strict) Ignored() bool { return false }

func (s *Strict) evict(now time.Time) {
	cutoff := now.Add(-s.interval)
	for s.start < len(s.ticks) && !s.ticks[s.start].After(cutoff) {
		s.start++
	}
}

func (s *Strict) Compact(now time.Time) {
	s.evict(now)
	if s.start == len(s.ticks) {
		s.ticks = s.ticks[:0]
		s.start = 0
		return
	}
	if s.start > compactThreshold && s.start*2 > len(s.ticks) {
		s.ticks = append([]time.Time(nil), s.ticks[s.start:]...)
		s.start = 0
	}
}

func (s *Strict) live() int { return len(s.ticks) - s.start }

func (s *Strict) IsPausedAt(now time.Time, _ int) (bool, time.Duration) {
	s.evict(now)
	if s.live() < s.cap {
		return false, 0
	}
	oldest := s.ticks[s.start]
	delay := s.interval - now.Sub(oldest)
	if delay < 0 {
		delay = 0
	}
	return true, delay
}

func (s *Strict) Consume(now time.Time) {
	s.ticks = append(s.ticks, now)
}

func (s *Strict) Rollback() {
	if s.live() > 0 {
		s.ticks = s.ticks[:len(s.ticks)-1]
	}
}

func (s *Strict) Admitted(now time.Time) int {
	s.evict(now)
	return s.live()
}

func (s *Strict) Cap() int { return s.cap }

// ClearCondition is always true: strict mode keeps per-admission
// timestamps, not a window count, and has no window state to clear.
func (s *Strict) ClearCondition(int) bool { return true }

