package services

import (
	"context"
	"time"

	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/db"
)

// Services defined in this package:
// - AuthService: registration, login and refresh token rotation
// - UserService: account management and profiles
// - AssignmentService: assignment lifecycle and dashboards
// - SubmissionService: submissions, grading and feedback
// - NotificationService: notification feed and deadline reminders

// TxManager runs fn inside a database transaction
type TxManager interface {
	WithTransaction(ctx context.Context, fn db.TransactionFn) error
}

// NotificationPublisher delivers notifications after the transaction that
// created them has committed. Delivery is best effort.
type NotificationPublisher interface {
	Publish(ctx context.Context, notifications ...*models.Notification)
}

// NopPublisher drops every notification
type NopPublisher struct{}

// Publish implements NotificationPublisher
func (NopPublisher) Publish(context.Context, ...*models.Notification) {}

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func defaultClock(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

func publisherOrNop(p NotificationPublisher) NotificationPublisher {
	if p == nil {
		return NopPublisher{}
	}
	return p
}
