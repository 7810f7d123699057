// Package metrics exposes Prometheus metrics for the loan workflow and background tasks.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records workflow outcomes and latencies.
// It satisfies circulation.Recorder.
type Collector struct {
	borrows     *prometheus.CounterVec
	returns     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	activeLoans prometheus.Gauge
	overdue     prometheus.Gauge
	taskRuns    *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		borrows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "library_borrow_total",
			Help: "Borrow attempts by outcome",
		}, []string{"outcome"}),
		returns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "library_return_total",
			Help: "Return attempts by outcome and actor",
		}, []string{"outcome", "actor"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "library_workflow_duration_seconds",
			Help:    "Time spent in the borrow and return workflow",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		activeLoans: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "library_active_loans",
			Help: "Active loans at the last stats refresh",
		}),
		overdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "library_overdue_loans",
			Help: "Overdue loans at the last stats refresh or overdue scan",
		}),
		taskRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "library_task_runs_total",
			Help: "Background task executions by queue and result",
		}, []string{"queue", "result"}),
	}

	reg.MustRegister(
		c.borrows,
		c.returns,
		c.duration,
		c.activeLoans,
		c.overdue,
		c.taskRuns,
	)

	return c
}

// RecordBorrow counts one borrow attempt.
func (c *Collector) RecordBorrow(outcome string, elapsed time.Duration) {
	c.borrows.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues("borrow").Observe(elapsed.Seconds())
}

// RecordReturn counts one return attempt.
func (c *Collector) RecordReturn(outcome, actor string, elapsed time.Duration) {
	c.returns.WithLabelValues(outcome, actor).Inc()
	c.duration.WithLabelValues("return").Observe(elapsed.Seconds())
}

func (c *Collector) SetActiveLoans(n int64) {
	c.activeLoans.Set(float64(n))
}

func (c *Collector) SetOverdueLoans(n int64) {
	c.overdue.Set(float64(n))
}

// RecordTaskRun counts one background task execution.
func (c *Collector) RecordTaskRun(queue string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.taskRuns.WithLabelValues(queue, result).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
