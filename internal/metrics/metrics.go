package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "daily_summarizer"

var (
	PartialData = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_data_warnings_total",
			Help:      "Channel, thread or user fetches that degraded to a partial result.",
		},
		[]string{"scope"},
	)

	WorkflowAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_attempts_total",
			Help:      "Daily workflow attempts, including retries.",
		},
	)

	WorkflowRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Completed daily workflow runs by outcome.",
		},
		[]string{"outcome"},
	)

	TagsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tags_created_total",
			Help:      "Tags written to the tag store.",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications by channel and result.",
		},
		[]string{"notifier", "result"},
	)
)
