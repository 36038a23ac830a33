// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	LeadEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_evaluations_total",
			Help: "Guidance evaluations by pipeline stage and cascade branch",
		},
		[]string{"stage", "branch", "source"},
	)

	BuyerIntentScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lead_buyer_intent_score",
			Help:    "Distribution of buyer-intent scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	AgentActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_actions_total",
			Help: "Agent decisions by action and intent",
		},
		[]string{"action", "intent"},
	)

	JudgeFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judge_fallbacks_total",
			Help: "External judgments discarded in favour of the heuristic result",
		},
		[]string{"kind", "reason"},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Outbound messages by transport and result",
		},
		[]string{"transport", "result"},
	)

	DraftsDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drafts_discarded_total",
			Help: "Drafts dropped because a newer inbound message arrived",
		},
	)

	MarketplaceLeadsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_leads_imported_total",
			Help: "Marketplace rows processed by outcome",
		},
		[]string{"outcome"},
	)
)

// ObserveJob records the outcome of one job. An empty errorCode means success.
func ObserveJob(taskType string, started time.Time, errorCode string) {
	WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(started).Seconds())
	if errorCode == "" {
		WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		return
	}
	WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
}

// TrackActive increments the active gauge and returns the matching decrement.
func TrackActive(taskType string) func() {
	g := WorkerJobsActive.WithLabelValues(taskType)
	g.Inc()
	return g.Dec
}
