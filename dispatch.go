package taskqueue

import (
	"time"

	"github.com/fluxqueue/taskqueue/internal/ratelimit"
	"github.com/sirupsen/logrus"
)

// state holds every piece of mutable Queue state. It is only ever
// touched from the dispatcher goroutine, which is what lets the rest of
// the package skip locking entirely — the single-goroutine "actor"
// pattern the teacher's control_plane/scheduler/scheduler.go also
// follows for its run loop, generalized here to an explicit command
// channel instead of a fixed poll interval.
type state struct {
	container PriorityContainer
	records   map[string]*taskRecord
	running   map[string]*runningTask

	concurrency int // Unbounded (0) or >= 1
	paused      bool
	closed      bool

	limiter           ratelimit.Limiter
	defaultTimeout    time.Duration
	hasDefaultTimeout bool

	autoCounter int

	hub     *eventHub
	metrics *metricsSet
	logger  logrus.FieldLogger

	resumeTimer *time.Timer

	wasIdle        bool
	wasEmpty       bool
	wasPendingZero bool
	rateLimited    bool
}

type runningTask struct {
	rec    *taskRecord
	cancel func()
	start  time.Time
}

// command is a unit of work posted to the dispatcher goroutine. It
// always runs to completion, uninterrupted, before the next command is
// taken off the channel — this is the entire concurrency story for
// Queue's public API.
type command func(s *state)

// Queue is an embeddable, priority-ordered, concurrency- and rate-limited
// asynchronous task runner (spec.md's core subject). The zero value is
// not usable; construct with NewQueue.
type Queue struct {
	commands chan command
	done     chan struct{}
}

// NewQueue constructs a Queue and starts its dispatcher goroutine.
func NewQueue(opts ...Option) (*Queue, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &state{
		container:         cfg.queueClass(),
		records:           make(map[string]*taskRecord),
		running:           make(map[string]*runningTask),
		concurrency:       cfg.concurrency,
		paused:            !cfg.autoStart,
		limiter:           newLimiter(cfg),
		defaultTimeout:    cfg.timeout,
		hasDefaultTimeout: cfg.hasTimeout,
		hub:               newEventHub(),
		metrics:           cfg.metrics,
		logger:            cfg.logger,
		wasIdle:           true,
		wasEmpty:          true,
		wasPendingZero:    true,
	}

	q := &Queue{
		commands: make(chan command, 64),
		done:     make(chan struct{}),
	}
	go q.run(s)
	return q, nil
}

func (q *Queue) run(s *state) {
	defer close(q.done)
	for cmd := range q.commands {
		cmd(s)
	}
}

// post enqueues cmd and returns immediately; use for fire-and-forget
// state changes (e.g. timer callbacks) where the caller has nothing to
// wait for.
func (q *Queue) post(cmd command) {
	select {
	case q.commands <- cmd:
	case <-q.done:
	}
}

// postSync enqueues cmd and blocks until it has run, so the caller can
// safely read results cmd computed.
func (q *Queue) postSync(cmd command) {
	reply := make(chan struct{})
	q.post(func(s *state) {
		cmd(s)
		close(reply)
	})
	select {
	case <-reply:
	case <-q.done:
	}
}

// Close stops accepting new commands and releases queue-owned timers.
// Running tasks are not interrupted; it does not wait for them.
func (q *Queue) Close() {
	q.postSync(func(s *state) {
		if s.closed {
			return
		}
		s.closed = true
		if s.resumeTimer != nil {
			s.resumeTimer.Stop()
		}
	})
	close(q.commands)
	<-q.done
}
