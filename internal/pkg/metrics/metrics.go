package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assignhub_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignhub_notifications_published_total",
			Help: "Notifications handed to the delivery relay, by type",
		},
		[]string{"type"},
	)

	NotificationPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assignhub_notification_publish_errors_total",
			Help: "Notifications the relay failed to accept",
		},
	)

	NotificationEmails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignhub_notification_emails_total",
			Help: "Notification e-mails by outcome",
		},
		[]string{"outcome"},
	)

	WebSocketDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignhub_websocket_deliveries_total",
			Help: "Notification frames by whether a connection of the recipient was reached",
		},
		[]string{"reached"},
	)

	DeadlineRemindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assignhub_deadline_reminders_total",
			Help: "Deadline reminders stored by the scheduler",
		},
	)

	SchedulerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignhub_scheduler_runs_total",
			Help: "Scheduled job runs by job and outcome",
		},
		[]string{"job", "outcome"},
	)
)
