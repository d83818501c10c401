// Package notify delivers stored notifications to their recipients: over the
// pubsub relay to WebSocket clients and, when configured, by e-mail.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/pkg/email"
	"github.com/yigit/assignhub/internal/pkg/metrics"
	"github.com/yigit/assignhub/internal/pkg/pubsub"
)

const (
	emailTimeout        = 15 * time.Second
	maxConcurrentEmails = 8
)

// emailedTypes are the notifications worth an e-mail; the rest only reach
// open WebSocket connections and the feed.
var emailedTypes = map[models.NotificationType]bool{
	models.NotificationAssignmentGraded:   true,
	models.NotificationAssignmentFeedback: true,
	models.NotificationDeadlineReminder:   true,
}

// UserLookup resolves the e-mail recipient of a notification
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Dispatcher implements services.NotificationPublisher
type Dispatcher struct {
	relay  pubsub.Relay
	mailer email.EmailService
	users  UserLookup
	logger zerolog.Logger

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. mailer may be nil.
func NewDispatcher(relay pubsub.Relay, mailer email.EmailService, users UserLookup, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		relay:  relay,
		mailer: mailer,
		users:  users,
		logger: logger.With().Str("component", "notify").Logger(),
		sem:    make(chan struct{}, maxConcurrentEmails),
	}
}

// Publish relays every notification and queues e-mails for grading,
// feedback and reminder types. Failures are logged; the notifications are
// already stored.
func (d *Dispatcher) Publish(ctx context.Context, notifications ...*models.Notification) {
	for _, n := range notifications {
		if n == nil {
			continue
		}

		payload, err := json.Marshal(n)
		if err != nil {
			d.logger.Error().Err(err).Str("notificationID", n.ID.String()).Msg("Failed to encode notification")
			continue
		}

		if err := d.relay.Publish(ctx, pubsub.Envelope{UserID: n.UserID, Payload: payload}); err != nil {
			metrics.NotificationPublishErrors.Inc()
			d.logger.Error().Err(err).Str("notificationID", n.ID.String()).Msg("Failed to relay notification")
		} else {
			metrics.NotificationsPublished.WithLabelValues(string(n.Type)).Inc()
		}

		if emailedTypes[n.Type] && d.mailer != nil && d.mailer.Enabled() && d.users != nil {
			d.wg.Add(1)
			go d.sendEmail(*n)
		}
	}
}

func (d *Dispatcher) sendEmail(n models.Notification) {
	defer d.wg.Done()

	d.sem <- struct{}{}
	defer func() { <-d.sem }()

	ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
	defer cancel()

	user, err := d.users.GetByID(ctx, n.UserID)
	if err != nil {
		metrics.NotificationEmails.WithLabelValues("lookup_failed").Inc()
		d.logger.Warn().Err(err).Str("userID", n.UserID.String()).Msg("Notification recipient lookup failed")
		return
	}
	if !user.IsActive() {
		metrics.NotificationEmails.WithLabelValues("skipped").Inc()
		return
	}

	if err := d.mailer.SendNotificationEmail(ctx, user.Email, user.Name, n.Title, n.Message); err != nil {
		metrics.NotificationEmails.WithLabelValues("failed").Inc()
		return
	}
	metrics.NotificationEmails.WithLabelValues("sent").Inc()
}

// Wait blocks until queued e-mails are done
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
