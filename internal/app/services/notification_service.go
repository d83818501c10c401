package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/app/repositories"
	"github.com/yigit/assignhub/internal/pkg/apperrors"
	"github.com/yigit/assignhub/internal/pkg/helpers"
)

// DefaultReminderWindow is how far ahead deadline reminders look
const DefaultReminderWindow = 24 * time.Hour

// NotificationService defines the interface for the notification feed
type NotificationService interface {
	GetMyNotifications(ctx context.Context, caller dto.Caller, filter dto.NotificationFilter) (*dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, caller dto.Caller, id uuid.UUID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, caller dto.Caller) (*dto.MarkAllReadResponse, error)

	// SendDeadlineReminders notifies students about assignments due within
	// window that they have not submitted yet. It returns how many
	// reminders were stored.
	SendDeadlineReminders(ctx context.Context, window time.Duration) (int, error)
}

// notificationServiceImpl implements NotificationService
type notificationServiceImpl struct {
	notificationRepo repositories.INotificationRepository
	txm              TxManager
	publisher        NotificationPublisher
	now              Clock
	logger           zerolog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notificationRepo repositories.INotificationRepository,
	txm TxManager,
	publisher NotificationPublisher,
	now Clock,
	logger zerolog.Logger,
) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		txm:              txm,
		publisher:        publisherOrNop(publisher),
		now:              defaultClock(now),
		logger:           logger,
	}
}

// GetMyNotifications returns the caller's feed. totalCount follows the
// filters while unreadCount covers every notification of the caller.
func (s *notificationServiceImpl) GetMyNotifications(ctx context.Context, caller dto.Caller, filter dto.NotificationFilter) (*dto.NotificationListResponse, error) {
	notifications, err := s.notificationRepo.List(ctx, caller.UserID, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.notificationRepo.Count(ctx, caller.UserID, filter)
	if err != nil {
		return nil, err
	}
	unread, err := s.notificationRepo.CountUnread(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	if notifications == nil {
		notifications = make([]*models.Notification, 0)
	}
	return &dto.NotificationListResponse{
		TotalCount:    total,
		UnreadCount:   unread,
		ReadCount:     total - unread,
		Notifications: notifications,
	}, nil
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, caller dto.Caller, id uuid.UUID) (*models.Notification, error) {
	n, err := s.notificationRepo.MarkRead(ctx, id, caller.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotificationNotFound) {
			return nil, apperrors.NewCustomError(apperrors.ErrNotificationNotFound, "Notification not found")
		}
		return nil, err
	}
	return n, nil
}

func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, caller dto.Caller) (*dto.MarkAllReadResponse, error) {
	updated, err := s.notificationRepo.MarkAllRead(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return &dto.MarkAllReadResponse{Updated: updated}, nil
}

func (s *notificationServiceImpl) SendDeadlineReminders(ctx context.Context, window time.Duration) (int, error) {
	if window <= 0 {
		window = DefaultReminderWindow
	}
	now := s.now()

	var (
		reminders []*models.Notification
		inserted  []*models.Notification
	)
	err := s.txm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		repo := s.notificationRepo.WithTx(tx)
		candidates, err := repo.ListReminderCandidates(ctx, now, window)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}

		reminders = make([]*models.Notification, 0, len(candidates))
		for _, c := range candidates {
			n := notificationFor(c.UserID, models.NotificationDeadlineReminder, "Deadline Approaching",
				deadlineReminderMessage(c.Title, helpers.FormatDate(c.Deadline)))
			reminders = append(reminders, withAssignment(n, c.AssignmentID))
		}
		inserted, err = repo.CreateMany(ctx, reminders)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Dur("window", window).Msg("Deadline reminder run failed")
		return 0, err
	}

	if len(inserted) < len(reminders) {
		// a concurrent run stored some of them first
		s.logger.Warn().Int("inserted", len(inserted)).Int("candidates", len(reminders)).Msg("Some deadline reminders were already stored")
	}
	s.publisher.Publish(ctx, inserted...)

	s.logger.Info().Int("reminders", len(inserted)).Dur("window", window).Msg("Deadline reminders sent")
	return len(inserted), nil
}
