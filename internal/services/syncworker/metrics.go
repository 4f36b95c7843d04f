package syncworker

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	subsystem = "inspectsync"

	jobsTotal   = "sync_jobs_total"
	passesTotal = "sync_passes_total"
	queueDepth  = "sync_queue_depth"

	// Labels
	outcomeLabel = "outcome"
	triggerLabel = "trigger"
	queueLabel   = "queue"
)

var jobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      jobsTotal,
		Help:      "number of upload jobs processed by outcome",
	},
	[]string{queueLabel, outcomeLabel},
)

var passesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      passesTotal,
		Help:      "number of drain passes by trigger",
	},
	[]string{queueLabel, triggerLabel},
)

var queueDepthMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      queueDepth,
		Help:      "jobs left in the queue after the last pass",
	},
	[]string{queueLabel},
)

func observeJob(queue string, o Outcome) {
	jobsTotalMetric.With(prometheus.Labels{queueLabel: queue, outcomeLabel: string(o)}).Inc()
}

func observePass(queue, trigger string, remaining int) {
	passesTotalMetric.With(prometheus.Labels{queueLabel: queue, triggerLabel: trigger}).Inc()
	queueDepthMetric.With(prometheus.Labels{queueLabel: queue}).Set(float64(remaining))
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsTotalMetric)
	prometheus.MustRegister(passesTotalMetric)
	prometheus.MustRegister(queueDepthMetric)
}
