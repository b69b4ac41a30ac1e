// Package metrics exports scheduler activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"coopsched/internal/sched"
)

const namespace = "coopsched"

const (
	outcomeOK        = "ok"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
)

// Collector is a [sched.Observer] that records scheduler events.
type Collector struct {
	scheduled *prometheus.CounterVec
	completed *prometheus.CounterVec
	pending   prometheus.Gauge
	yields    prometheus.Counter
	wait      *prometheus.HistogramVec
	run       *prometheus.HistogramVec
}

// New creates a collector and registers it with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_scheduled_total",
			Help:      "Tasks submitted to the scheduler.",
		}, []string{"priority"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_completed_total",
			Help:      "Tasks removed from the queue, by outcome.",
		}, []string{"priority", "outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_pending",
			Help:      "Tasks waiting to run, cancelled ones excluded.",
		}),
		yields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_yields_total",
			Help:      "Times the work loop gave control back to the host with work left.",
		}),
		wait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_wait_seconds",
			Help:      "Time from submission to dispatch.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"priority"}),
		run: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_run_seconds",
			Help:      "Callback run time.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"priority"}),
	}

	for _, col := range []prometheus.Collector{c.scheduled, c.completed, c.pending, c.yields, c.wait, c.run} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Observe implements [sched.Observer].
func (c *Collector) Observe(ev sched.Event) {
	prio := ev.Priority.String()

	switch ev.Kind {
	case sched.EventEnqueue:
		c.scheduled.WithLabelValues(prio).Inc()
		c.pending.Set(float64(ev.Pending))
	case sched.EventCancel:
		c.pending.Set(float64(ev.Pending))
	case sched.EventSkip:
		c.completed.WithLabelValues(prio, outcomeCancelled).Inc()
	case sched.EventDispatch:
		c.pending.Set(float64(ev.Pending))
		c.wait.WithLabelValues(prio).Observe(ev.Elapsed.Seconds())
	case sched.EventFinish:
		c.completed.WithLabelValues(prio, outcomeOK).Inc()
		c.run.WithLabelValues(prio).Observe(ev.Elapsed.Seconds())
	case sched.EventFail:
		c.completed.WithLabelValues(prio, outcomeError).Inc()
		c.run.WithLabelValues(prio).Observe(ev.Elapsed.Seconds())
	case sched.EventYield:
		c.yields.Inc()
		c.pending.Set(float64(ev.Pending))
	case sched.EventIdle:
		c.pending.Set(0)
	}
}
