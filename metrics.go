package taskqueue

import "github.com/prometheus/client_golang/prometheus"

// metricsSet is the optional Prometheus bundle wired in by WithMetrics,
// grounded on the teacher's observability/metrics.go registration
// pattern (one struct of pre-created collectors, registered together,
// updated inline by the dispatcher rather than scraped from live state).
type metricsSet struct {
	queueDepth           prometheus.Gauge
	pending              prometheus.Gauge
	admitted             prometheus.Counter
	completed            prometheus.Counter
	failed               prometheus.Counter
	timedOut             prometheus.Counter
	cancelled            prometheus.Counter
	rateLimitTransitions prometheus.Counter
	isRateLimited        prometheus.Gauge
	isSaturated          prometheus.Gauge
	taskLatency          prometheus.Histogram
}

func newMetricsSet(reg prometheus.Registerer) (*metricsSet, error) {
	m := &metricsSet{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskqueue", Name: "queue_depth", Help: "Tasks waiting to be admitted.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskqueue", Name: "pending_tasks", Help: "Tasks admitted but not yet finished (currently running).",
		}),
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskqueue", Name: "admitted_total", Help: "Tasks that left the waiting queue and started running.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskqueue", Name: "completed_total", Help: "Tasks that settled successfully.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskqueue", Name: "failed_total", Help: "Tasks that settled with a task-returned error.",
		}),
		timedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskqueue", Name: "timed_out_total", Help: "Tasks that settled due to timeout.",
		}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskqueue", Name: "cancelled_total", Help: "Tasks that settled due to cancellation.",
		}),
		rateLimitTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskqueue", Name: "rate_limited_transitions_total", Help: "Transitions into the rate-limited state.",
		}),
		isRateLimited: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskqueue", Name: "is_rate_limited", Help: "1 if admission is currently blocked by the rate limiter, else 0.",
		}),
		isSaturated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskqueue", Name: "is_saturated", Help: "1 if the queue cannot admit another task right now, else 0.",
		}),
		taskLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "taskqueue", Name: "task_duration_seconds", Help: "Task execution wall time.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	collectors := []prometheus.Collector{
		m.queueDepth, m.pending, m.admitted, m.completed, m.failed,
		m.timedOut, m.cancelled, m.rateLimitTransitions,
		m.isRateLimited, m.isSaturated, m.taskLatency,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metricsSet) recordAdmitted() {
	if m == nil {
		return
	}
	m.admitted.Inc()
}

func (m *metricsSet) recordOutcome(kind outcomeKind) {
	if m == nil {
		return
	}
	switch kind {
	case outcomeCompleted:
		m.completed.Inc()
	case outcomeFailed:
		m.failed.Inc()
	case outcomeTimedOut:
		m.timedOut.Inc()
	case outcomeCancelled:
		m.cancelled.Inc()
	}
}

func (m *metricsSet) recordLatency(seconds float64) {
	if m == nil {
		return
	}
	m.taskLatency.Observe(seconds)
}

func (m *metricsSet) recordRateLimitTransition() {
	if m == nil {
		return
	}
	m.rateLimitTransitions.Inc()
}

// refreshGauges is called once per dispatcher command that could have
// changed any of these observables (the same choke point drain already
// uses for the rate-limit/idle/empty transition checks), so the gauges
// never drift from the state those events were derived from.
func (m *metricsSet) refreshGauges(queueDepth, pending int, rateLimited, saturated bool) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(queueDepth))
	m.pending.Set(float64(pending))
	m.isRateLimited.Set(boolToFloat(rateLimited))
	m.isSaturated.Set(boolToFloat(saturated))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// outcomeKind classifies a settled task for metrics/logging purposes
// without overloading the public Outcome.Err type-switch at every call
// site.
type outcomeKind int

const (
	outcomeCompleted outcomeKind = iota
	outcomeFailed
	outcomeTimedOut
	outcomeCancelled
)
