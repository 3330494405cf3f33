package taskqueue

import "sync"

// EventKind identifies the lifecycle events a Queue emits (spec.md §5,
// component E).
type EventKind int

const (
	// EventActive fires whenever a task transitions from waiting to
	// running.
	EventActive EventKind = iota
	// EventIdle fires when a previously non-idle queue has no waiting
	// and no running tasks.
	EventIdle
	// EventEmpty fires when the waiting count drops to zero (tasks may
	// still be running).
	EventEmpty
	// EventCompleted fires when a task settles with a value.
	EventCompleted
	// EventError fires when a task settles with an error (failure,
	// timeout, or cancellation).
	EventError
	// EventRateLimitReached fires on the transition into the
	// rate-limited state.
	EventRateLimitReached
	// EventRateLimitCleared fires on the transition out of the
	// rate-limited state.
	EventRateLimitCleared
)

// Event is a single lifecycle notification delivered to a Subscribe
// channel.
type Event struct {
	Kind EventKind
	// TaskID is set for EventActive, EventCompleted and EventError.
	TaskID string
	// Outcome is set for EventCompleted and EventError; its Err field
	// distinguishes task failure (TaskFailureError), timeout
	// (TimeoutError), and cancellation (CancelledError).
	Outcome Outcome
}

// eventHub fans lifecycle events out to Subscribe channels and resolves
// one-shot waiters (OnEmpty, OnIdle, ...). Every method here runs on the
// dispatcher goroutine; delivery to subscribers/waiters is always
// non-blocking (buffered send-or-drop, or close(ch)) so a slow or absent
// consumer can never stall the dispatcher — spec.md §5's "observers must
// not be able to deadlock the scheduler".
type eventHub struct {
	mu          sync.Mutex // guards subs only; dispatcher-only fields need no lock
	subs        map[int]chan Event
	nextSubID   int

	onEmpty       []chan struct{}
	onIdle        []chan struct{}
	onPendingZero []chan struct{}
	onSizeLess    []sizeWaiter
	onRateLimit   []chan struct{}
	onRateCleared []chan struct{}
	onError       []chan error
}

type sizeWaiter struct {
	threshold int
	ch        chan struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[int]chan Event)}
}

// closedSignal returns a channel that is already closed, for waiters
// whose condition is already satisfied at registration time (spec.md §8:
// "resolve immediately ... if already true").
func closedSignal() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

// Subscribe registers a buffered channel that receives every Event until
// unsubscribe is called. Matches the teacher's ws_hub.go fan-out
// registration shape, adapted from websocket clients to plain channels.
func (h *eventHub) Subscribe(buffer int) (ch <-chan Event, unsubscribe func()) {
	if buffer < 1 {
		buffer = 1
	}
	c := make(chan Event, buffer)
	h.mu.Lock()
	id := h.nextSubID
	h.nextSubID++
	h.subs[id] = c
	h.mu.Unlock()
	return c, func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *eventHub) emit(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.subs {
		select {
		case c <- ev:
		default:
			// Slow consumer: drop rather than block the dispatcher.
		}
	}
}

func (h *eventHub) waitEmpty() <-chan struct{} {
	c := make(chan struct{})
	h.onEmpty = append(h.onEmpty, c)
	return c
}

func (h *eventHub) waitIdle() <-chan struct{} {
	c := make(chan struct{})
	h.onIdle = append(h.onIdle, c)
	return c
}

func (h *eventHub) waitPendingZero() <-chan struct{} {
	c := make(chan struct{})
	h.onPendingZero = append(h.onPendingZero, c)
	return c
}

func (h *eventHub) waitSizeLessThan(threshold int) <-chan struct{} {
	c := make(chan struct{})
	h.onSizeLess = append(h.onSizeLess, sizeWaiter{threshold: threshold, ch: c})
	return c
}

func (h *eventHub) waitRateLimit() <-chan struct{} {
	c := make(chan struct{})
	h.onRateLimit = append(h.onRateLimit, c)
	return c
}

func (h *eventHub) waitRateLimitCleared() <-chan struct{} {
	c := make(chan struct{})
	h.onRateCleared = append(h.onRateCleared, c)
	return c
}

// waitError returns a channel that receives exactly one error the next
// time a task settles with one, then is never written to again (spec.md
// §5: "error" is framed as a one-shot observation, not a stream).
func (h *eventHub) waitError() <-chan error {
	c := make(chan error, 1)
	h.onError = append(h.onError, c)
	return c
}

func closeAll(chans []chan struct{}) []chan struct{} {
	for _, c := range chans {
		close(c)
	}
	return nil
}

// resolveEmpty/resolveIdle/resolvePendingZero/resolveRateLimit*/resolveSizeLess
// are called by the dispatcher after each state transition; each clears
// and closes the relevant waiter slice, signalling every registrant.

func (h *eventHub) resolveEmpty()         { h.onEmpty = closeAll(h.onEmpty) }
func (h *eventHub) resolveIdle()          { h.onIdle = closeAll(h.onIdle) }
func (h *eventHub) resolvePendingZero()   { h.onPendingZero = closeAll(h.onPendingZero) }
func (h *eventHub) resolveRateLimit()     { h.onRateLimit = closeAll(h.onRateLimit) }
func (h *eventHub) resolveRateCleared()   { h.onRateCleared = closeAll(h.onRateCleared) }

func (h *eventHub) resolveSizeLessThan(size int) {
	remaining := h.onSizeLess[:0]
	for _, w := range h.onSizeLess {
		if size < w.threshold {
			close(w.ch)
		} else {
			remaining = append(remaining, w)
		}
	}
	h.onSizeLess = remaining
}

func (h *eventHub) dispatchError(err error) {
	for _, c := range h.onError {
		select {
		case c <- err:
		default:
		}
		close(c)
	}
	h.onError = nil
}
