// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records application metrics. Handlers and services hold it as an
// interface-free struct; a nil Collector is safe to call.
type Collector struct {
	webhookEvents   *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	judgeRuns       prometheus.Counter
	judgeLatency    prometheus.Histogram
}

// Reconciliation results
const (
	ReconcileCreated    = "created"
	ReconcileUpdated    = "updated"
	ReconcileUnresolved = "unresolved"
	ReconcileError      = "error"
)

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strathlearn_webhook_events_total",
			Help: "Webhook deliveries by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strathlearn_reconciliations_total",
			Help: "Subscription reconciliations by result.",
		}, []string{"result"}),
		judgeRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strathlearn_judge_runs_total",
			Help: "Submissions sent to the code-execution judge.",
		}),
		judgeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "strathlearn_judge_run_seconds",
			Help:    "End-to-end judge run latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(c.webhookEvents, c.reconciliations, c.judgeRuns, c.judgeLatency)

	return c
}

func (c *Collector) RecordWebhookEvent(eventType, outcome string) {
	if c == nil {
		return
	}
	c.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (c *Collector) RecordReconciliation(result string) {
	if c == nil {
		return
	}
	c.reconciliations.WithLabelValues(result).Inc()
}

func (c *Collector) RecordJudgeRun(duration time.Duration) {
	if c == nil {
		return
	}
	c.judgeRuns.Inc()
	c.judgeLatency.Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
