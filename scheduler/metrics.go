package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports scheduler observability counters. All recording methods are
// nil-receiver safe so collaborators can run without metrics in tests.
type Metrics struct {
	dispatchAttempts *prometheus.CounterVec
	dispatchLatency  *prometheus.HistogramVec
	instructions     prometheus.Histogram
	queueDepth       prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueLocalFires  prometheus.Counter
	queueReplays     *prometheus.CounterVec
	cancellations    prometheus.Counter
}

// NewMetrics registers the scheduler metrics on the given registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		dispatchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remindwise",
			Subsystem: "scheduler",
			Name:      "dispatch_attempts_total",
			Help:      "Delivery attempts per backend and outcome",
		}, []string{"backend", "outcome"}),
		dispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "remindwise",
			Subsystem: "scheduler",
			Name:      "dispatch_latency_seconds",
			Help:      "Backend call latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"backend"}),
		instructions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "remindwise",
			Subsystem: "scheduler",
			Name:      "instructions_per_task",
			Help:      "Number of reminder instructions generated per scheduling call",
			Buckets:   []float64{1, 2, 3},
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "remindwise",
			Subsystem: "scheduler",
			Name:      "offline_queue_depth",
			Help:      "Offline queue entries observed at the last scan",
		}),
		queueEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "remindwise",
			Subsystem: "scheduler",
			Name:      "offline_queue_enqueued_total",
			Help:      "Reminders persisted to the offline queue",
		}),
		queueLocalFires: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "remindwise",
			Subsystem: "scheduler",
			Name:      "offline_queue_local_fires_total",
			Help:      "Queued reminders fired through the local notifier",
		}),
		queueReplays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remindwise",
			Subsystem: "scheduler",
			Name:      "offline_queue_replays_total",
			Help:      "Replay attempts of queued reminders per outcome",
		}, []string{"outcome"}),
		cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "remindwise",
			Subsystem: "scheduler",
			Name:      "cancellations_total",
			Help:      "Pending reminders cancelled by task completion",
		}),
	}
	registry.MustRegister(
		m.dispatchAttempts,
		m.dispatchLatency,
		m.instructions,
		m.queueDepth,
		m.queueEnqueued,
		m.queueLocalFires,
		m.queueReplays,
		m.cancellations,
	)
	return m
}

func (m *Metrics) RecordDispatch(backend, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.dispatchAttempts.WithLabelValues(backend, outcome).Inc()
	m.dispatchLatency.WithLabelValues(backend).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordInstructions(n int) {
	if m == nil {
		return
	}
	m.instructions.Observe(float64(n))
}

func (m *Metrics) RecordQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) RecordEnqueue() {
	if m == nil {
		return
	}
	m.queueEnqueued.Inc()
}

func (m *Metrics) RecordLocalFire() {
	if m == nil {
		return
	}
	m.queueLocalFires.Inc()
}

func (m *Metrics) RecordReplay(outcome string) {
	if m == nil {
		return
	}
	m.queueReplays.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordCancellation() {
	if m == nil {
		return
	}
	m.cancellations.Inc()
}
