package taskqueue

import (
	"time"

	"github.com/fluxqueue/taskqueue/internal/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Unbounded, passed to WithConcurrency or WithIntervalCap, requests the
// "+∞" value spec.md's option table describes. It is the zero value, so
// simply omitting the option also means unbounded.
const Unbounded = 0

// config accumulates Option values into validated construction settings.
type config struct {
	concurrency int // Unbounded (0) or >= 1
	autoStart   bool
	intervalCap int // Unbounded (0) or >= 1
	interval    time.Duration
	carryover   bool
	strict      bool

	timeout    time.Duration
	hasTimeout bool

	queueClass func() PriorityContainer

	logger  logrus.FieldLogger
	metrics *metricsSet
}

func defaultConfig() *config {
	return &config{
		concurrency: Unbounded,
		autoStart:   true,
		intervalCap: Unbounded,
		interval:    0,
		queueClass:  newDefaultContainer,
		logger:      discardLogger(),
	}
}

// Option customizes Queue construction.
type Option func(*config) error

// WithConcurrency sets the maximum number of tasks running
// simultaneously. Unbounded (the default) means no cap; any other value
// must be >= 1.
func WithConcurrency(n int) Option {
	return func(c *config) error {
		if n != Unbounded && n < 1 {
			return configErr("concurrency", "must be >= 1 or taskqueue.Unbounded")
		}
		c.concurrency = n
		return nil
	}
}

// WithAutoStart controls whether the queue begins paused. Default true
// (not paused).
func WithAutoStart(autoStart bool) Option {
	return func(c *config) error {
		c.autoStart = autoStart
		return nil
	}
}

// WithIntervalCap sets the maximum number of admissions per Interval.
// Unbounded (the default) disables rate limiting regardless of Interval.
func WithIntervalCap(n int) Option {
	return func(c *config) error {
		if n != Unbounded && n < 1 {
			return configErr("interval-cap", "must be >= 1 or taskqueue.Unbounded")
		}
		c.intervalCap = n
		return nil
	}
}

// WithInterval sets the rate-limit window length. Zero (the default)
// disables rate limiting regardless of IntervalCap. Must be
// non-negative.
func WithInterval(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return configErr("interval", "must be a non-negative duration")
		}
		c.interval = d
		return nil
	}
}

// WithCarryoverIntervalCount enables carryover: at a fixed-window
// boundary, the next window begins with its admission count seeded from
// the number of currently-pending tasks rather than zero.
func WithCarryoverIntervalCount(carryover bool) Option {
	return func(c *config) error {
		c.carryover = carryover
		return nil
	}
}

// WithStrict selects the sliding-window rate-limit mode, which enforces
// IntervalCap over any rolling Interval-ms window instead of a fixed
// window. Requires a positive Interval and a finite IntervalCap.
func WithStrict(strict bool) Option {
	return func(c *config) error {
		c.strict = strict
		return nil
	}
}

// WithDefaultTimeout sets the per-task timeout inherited by tasks that
// don't supply their own via WithTaskTimeout. Must be positive and
// finite (Go durations are always finite).
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return configErr("timeout", "must be a positive duration")
		}
		c.timeout = d
		c.hasTimeout = true
		return nil
	}
}

// WithQueueClass supplies a factory for an alternative PriorityContainer
// implementation (spec.md §9's "queue-class" customization point). The
// factory is called once, at construction.
func WithQueueClass(factory func() PriorityContainer) Option {
	return func(c *config) error {
		if factory == nil {
			return configErr("queue-class", "factory must not be nil")
		}
		c.queueClass = factory
		return nil
	}
}

// WithLogger injects a structured logger for internal diagnostics (each
// task's settlement, with its error if any, at Debug level). Discarded
// by default so embedding the queue never logs unless asked to.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *config) error {
		if logger == nil {
			return configErr("logger", "must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics registers a Prometheus metrics bundle against reg. Off by
// default; see metrics.go.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) error {
		if reg == nil {
			return configErr("metrics", "registerer must not be nil")
		}
		m, err := newMetricsSet(reg)
		if err != nil {
			return configErr("metrics", err.Error())
		}
		c.metrics = m
		return nil
	}
}

// newLimiter builds the ratelimit.Limiter matching a validated config:
// no-op if rate limiting isn't configured, strict/sliding-window if
// WithStrict(true), fixed-window otherwise.
func newLimiter(c *config) ratelimit.Limiter {
	if c.interval <= 0 || c.intervalCap == Unbounded {
		return ratelimit.NewUnlimited()
	}
	if c.strict {
		return ratelimit.NewStrict(ratelimit.StrictConfig{
			Interval:    c.interval,
			IntervalCap: c.intervalCap,
		})
	}
	return ratelimit.NewFixedWindow(ratelimit.FixedWindowConfig{
		Interval:               c.interval,
		IntervalCap:            c.intervalCap,
		CarryoverIntervalCount: c.carryover,
	})
}

func (c *config) validate() error {
	if c.strict {
		if c.interval <= 0 {
			return configErr("strict", "requires a positive interval")
		}
		if c.intervalCap == Unbounded {
			return configErr("strict", "requires a finite interval-cap")
		}
	}
	return nil
}
