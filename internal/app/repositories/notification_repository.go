package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/pkg/apperrors"
	"github.com/yigit/assignhub/internal/pkg/logger"
)

const (
	DefaultNotificationLimit = 50
	MaxNotificationLimit     = 200
)

var notificationSortColumns = map[string]string{
	"createdAt": "n.created_at",
	"title":     "n.title",
	"type":      "n.type",
	"isRead":    "n.is_read",
}

// ReminderCandidate is a student who has not submitted to an assignment that
// is due soon and has not been reminded about it yet.
type ReminderCandidate struct {
	UserID       uuid.UUID
	AssignmentID uuid.UUID
	Title        string
	Deadline     time.Time
}

// INotificationRepository defines the interface for notification database operations
type INotificationRepository interface {
	WithTx(tx pgx.Tx) INotificationRepository

	// CreateMany inserts the notifications in one statement and returns the
	// ones actually written. Duplicate deadline reminders are skipped.
	CreateMany(ctx context.Context, notifications []*models.Notification) ([]*models.Notification, error)

	List(ctx context.Context, userID uuid.UUID, filter dto.NotificationFilter) ([]*models.Notification, error)
	Count(ctx context.Context, userID uuid.UUID, filter dto.NotificationFilter) (int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)

	MarkRead(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)

	ListReminderCandidates(ctx context.Context, now time.Time, window time.Duration) ([]ReminderCandidate, error)
}

// NotificationRepository handles notification database operations
type NotificationRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db, sb: newBuilder()}
}

// WithTx returns a copy bound to tx
func (r *NotificationRepository) WithTx(tx pgx.Tx) INotificationRepository {
	return &NotificationRepository{db: tx, sb: r.sb}
}

func (r *NotificationRepository) CreateMany(ctx context.Context, notifications []*models.Notification) ([]*models.Notification, error) {
	if len(notifications) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	q := r.sb.Insert("notifications").
		Columns("id", "user_id", "title", "message", "type", "is_read", "assignment_id", "submission_id", "created_at")
	for _, n := range notifications {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		n.CreatedAt = now
		q = q.Values(n.ID, n.UserID, n.Title, n.Message, n.Type, n.IsRead, n.AssignmentID, n.SubmissionID, n.CreatedAt)
	}

	sql, args, err := q.Suffix("ON CONFLICT DO NOTHING RETURNING id").ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create notifications SQL")
		return nil, fmt.Errorf("failed to build create notifications query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int("count", len(notifications)).Msg("Error executing create notifications query")
		return nil, fmt.Errorf("error creating notifications: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		logger.Error().Err(err).Msg("Error reading inserted notification ids")
		return nil, fmt.Errorf("error creating notifications: %w", err)
	}

	written := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		written[id] = struct{}{}
	}
	inserted := make([]*models.Notification, 0, len(ids))
	for _, n := range notifications {
		if _, ok := written[n.ID]; ok {
			inserted = append(inserted, n)
		}
	}
	return inserted, nil
}

func applyNotificationFilter(b squirrel.SelectBuilder, userID uuid.UUID, filter dto.NotificationFilter) squirrel.SelectBuilder {
	b = b.Where(idEq("n.user_id", userID))
	if filter.IsRead != nil {
		b = b.Where(squirrel.Eq{"n.is_read": *filter.IsRead})
	}
	if filter.Type != "" {
		b = b.Where(squirrel.Eq{"n.type": filter.Type})
	}
	return b
}

// List returns the user's notifications with the referenced assignment and
// submission, sorted and limited per filter.
func (r *NotificationRepository) List(ctx context.Context, userID uuid.UUID, filter dto.NotificationFilter) ([]*models.Notification, error) {
	sortBy, ok := notificationSortColumns[filter.SortBy]
	if !ok {
		sortBy = "n.created_at"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultNotificationLimit
	} else if limit > MaxNotificationLimit {
		limit = MaxNotificationLimit
	}

	q := r.sb.Select(
		"n.id", "n.user_id", "n.title", "n.message", "n.type", "n.is_read", "n.assignment_id", "n.submission_id", "n.created_at",
		"a.id", "a.title", "a.deadline",
		"s.id", "s.status", "s.submitted_at",
	).From("notifications n").
		LeftJoin("assignments a ON a.id = n.assignment_id").
		LeftJoin("submissions s ON s.id = n.submission_id")
	q = applyNotificationFilter(q, userID, filter).
		OrderBy(fmt.Sprintf("%s %s", sortBy, sortDirection(filter.SortOrder)), "n.id").
		Limit(uint64(limit))

	sql, args, err := q.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list notifications SQL")
		return nil, fmt.Errorf("failed to build list notifications query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("userID", userID.String()).Msg("Error executing list notifications query")
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		n := &models.Notification{}
		var (
			aID, sID           *uuid.UUID
			aTitle             *string
			aDeadline, sSubmit *time.Time
			sStatus            *models.SubmissionStatus
		)
		err := rows.Scan(
			&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.AssignmentID, &n.SubmissionID, &n.CreatedAt,
			&aID, &aTitle, &aDeadline,
			&sID, &sStatus, &sSubmit,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning notification row: %w", err)
		}
		if aID != nil {
			n.Assignment = &models.AssignmentRef{ID: *aID, Title: *aTitle, Deadline: *aDeadline}
		}
		if sID != nil {
			n.Submission = &models.SubmissionRef{ID: *sID, Status: *sStatus, SubmittedAt: *sSubmit}
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error: %w", err)
	}
	return notifications, nil
}

// Count returns how many of the user's notifications match filter, ignoring its limit
func (r *NotificationRepository) Count(ctx context.Context, userID uuid.UUID, filter dto.NotificationFilter) (int, error) {
	q := applyNotificationFilter(r.sb.Select("count(*)").From("notifications n"), userID, filter)
	return r.count(ctx, q)
}

// CountUnread returns how many of the user's notifications are unread
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	q := r.sb.Select("count(*)").From("notifications n").
		Where(idEq("n.user_id", userID)).
		Where(squirrel.Eq{"n.is_read": false})
	return r.count(ctx, q)
}

func (r *NotificationRepository) count(ctx context.Context, q squirrel.SelectBuilder) (int, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building count notifications SQL")
		return 0, fmt.Errorf("failed to build count notifications query: %w", err)
	}

	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		logger.Error().Err(err).Msg("Error executing count notifications query")
		return 0, fmt.Errorf("error counting notifications: %w", err)
	}
	return n, nil
}

// MarkRead flags one of the user's notifications as read. A notification of
// another user is reported as not found.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	sql, args, err := r.sb.Update("notifications").
		Set("is_read", true).
		Where(idEq("id", id)).
		Where(idEq("user_id", userID)).
		Suffix("RETURNING id, user_id, title, message, type, is_read, assignment_id, submission_id, created_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building mark notification read SQL")
		return nil, fmt.Errorf("failed to build mark read query: %w", err)
	}

	n := &models.Notification{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.AssignmentID, &n.SubmissionID, &n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotificationNotFound
		}
		logger.Error().Err(err).Str("notificationID", id.String()).Msg("Error executing mark read query")
		return nil, fmt.Errorf("error marking notification read: %w", err)
	}
	return n, nil
}

// MarkAllRead flags all unread notifications of the user as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	sql, args, err := r.sb.Update("notifications").
		Set("is_read", true).
		Where(idEq("user_id", userID)).
		Where(squirrel.Eq{"is_read": false}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building mark all read SQL")
		return 0, fmt.Errorf("failed to build mark all read query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("userID", userID.String()).Msg("Error executing mark all read query")
		return 0, fmt.Errorf("error marking notifications read: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// ListReminderCandidates pairs every ACTIVE STUDENT with each active
// assignment due in (now, now+window] that they have neither submitted to nor
// been reminded about.
func (r *NotificationRepository) ListReminderCandidates(ctx context.Context, now time.Time, window time.Duration) ([]ReminderCandidate, error) {
	sql, args, err := r.sb.Select("u.id", "a.id", "a.title", "a.deadline").
		From("assignments a").
		Join("users u ON u.role = ? AND u.status = ?", models.RoleStudent, models.UserStatusActive).
		Where(squirrel.Eq{"a.is_active": true}).
		Where(squirrel.Gt{"a.deadline": now}).
		Where(squirrel.LtOrEq{"a.deadline": now.Add(window)}).
		Where("NOT EXISTS (SELECT 1 FROM submissions s WHERE s.assignment_id = a.id AND s.student_id = u.id)").
		Where("NOT EXISTS (SELECT 1 FROM notifications n WHERE n.assignment_id = a.id AND n.user_id = u.id AND n.type = ?)",
			models.NotificationDeadlineReminder).
		OrderBy("a.deadline", "u.id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building reminder candidates SQL")
		return nil, fmt.Errorf("failed to build reminder candidates query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing reminder candidates query")
		return nil, fmt.Errorf("error listing reminder candidates: %w", err)
	}
	defer rows.Close()

	var candidates []ReminderCandidate
	for rows.Next() {
		var c ReminderCandidate
		if err := rows.Scan(&c.UserID, &c.AssignmentID, &c.Title, &c.Deadline); err != nil {
			return nil, fmt.Errorf("error scanning reminder candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
