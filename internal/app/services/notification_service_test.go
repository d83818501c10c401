package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/app/repositories"
	"github.com/yigit/assignhub/internal/pkg/apperrors"
)

func newNotificationFixture() (*mockNotificationRepo, *fakeTx, *recordingPublisher, NotificationService) {
	repo := &mockNotificationRepo{}
	tx := &fakeTx{}
	pub := &recordingPublisher{}
	return repo, tx, pub, NewNotificationService(repo, tx, pub, fixedClock, zerolog.Nop())
}

func TestGetMyNotifications_Counters(t *testing.T) {
	repo, _, _, svc := newNotificationFixture()
	st := student("Alice")
	unread := false
	filter := dto.NotificationFilter{IsRead: &unread}

	repo.On("List", mock.Anything, st.ID, filter).Return(nil, nil)
	repo.On("Count", mock.Anything, st.ID, filter).Return(5, nil)
	repo.On("CountUnread", mock.Anything, st.ID).Return(2, nil)

	resp, err := svc.GetMyNotifications(context.Background(), callerOf(st), filter)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.TotalCount)
	assert.Equal(t, 2, resp.UnreadCount)
	assert.Equal(t, 3, resp.ReadCount)
	assert.NotNil(t, resp.Notifications)
	assert.Empty(t, resp.Notifications)
}

func TestMarkRead(t *testing.T) {
	repo, _, _, svc := newNotificationFixture()
	st := student("Alice")
	id := uuid.New()
	missing := uuid.New()

	repo.On("MarkRead", mock.Anything, id, st.ID).Return(&models.Notification{ID: id, UserID: st.ID, IsRead: true}, nil)
	repo.On("MarkRead", mock.Anything, missing, st.ID).Return(nil, apperrors.ErrNotificationNotFound)

	n, err := svc.MarkRead(context.Background(), callerOf(st), id)
	require.NoError(t, err)
	assert.True(t, n.IsRead)

	_, err = svc.MarkRead(context.Background(), callerOf(st), missing)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	assert.Equal(t, "Notification not found", apperrors.Message(err))
}

func TestMarkAllRead(t *testing.T) {
	repo, _, _, svc := newNotificationFixture()
	st := student("Alice")
	repo.On("MarkAllRead", mock.Anything, st.ID).Return(int64(4), nil)

	resp, err := svc.MarkAllRead(context.Background(), callerOf(st))
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.Updated)
}

func TestSendDeadlineReminders(t *testing.T) {
	repo, tx, pub, svc := newNotificationFixture()
	deadline := time.Date(2030, 1, 2, 9, 0, 0, 0, time.UTC)
	candidates := []repositories.ReminderCandidate{
		{UserID: uuid.New(), AssignmentID: uuid.New(), Title: "Essay", Deadline: deadline},
		{UserID: uuid.New(), AssignmentID: uuid.New(), Title: "Lab", Deadline: deadline},
	}

	repo.On("ListReminderCandidates", mock.Anything, fixedNow, DefaultReminderWindow).Return(candidates, nil)
	repo.On("CreateMany", mock.Anything, mock.MatchedBy(func(ns []*models.Notification) bool {
		return len(ns) == 2
	})).Return(nil, nil)

	sent, err := svc.SendDeadlineReminders(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, tx.calls)

	require.Len(t, pub.published, 2)
	n := pub.published[0]
	assert.Equal(t, candidates[0].UserID, n.UserID)
	assert.Equal(t, models.NotificationDeadlineReminder, n.Type)
	assert.Equal(t, "Deadline Approaching", n.Title)
	assert.Equal(t, `The assignment "Essay" is due on 1/2/2030. Don't forget to submit!`, n.Message)
	require.NotNil(t, n.AssignmentID)
	assert.Equal(t, candidates[0].AssignmentID, *n.AssignmentID)
}

// skippingNotificationRepo stores only the last keep notifications of each
// batch, as if the others had already been written by a concurrent run.
type skippingNotificationRepo struct {
	*mockNotificationRepo
	keep int
}

func (r *skippingNotificationRepo) WithTx(pgx.Tx) repositories.INotificationRepository { return r }

func (r *skippingNotificationRepo) CreateMany(_ context.Context, ns []*models.Notification) ([]*models.Notification, error) {
	return ns[len(ns)-r.keep:], nil
}

func TestSendDeadlineReminders_PublishesOnlyStoredReminders(t *testing.T) {
	deadline := time.Date(2030, 1, 2, 9, 0, 0, 0, time.UTC)
	candidates := []repositories.ReminderCandidate{
		{UserID: uuid.New(), AssignmentID: uuid.New(), Title: "Essay", Deadline: deadline},
		{UserID: uuid.New(), AssignmentID: uuid.New(), Title: "Lab", Deadline: deadline},
	}

	for _, keep := range []int{0, 1, 2} {
		base := &mockNotificationRepo{}
		base.On("ListReminderCandidates", mock.Anything, fixedNow, time.Hour).Return(candidates, nil)
		pub := &recordingPublisher{}
		svc := NewNotificationService(&skippingNotificationRepo{mockNotificationRepo: base, keep: keep}, &fakeTx{}, pub, fixedClock, zerolog.Nop())

		sent, err := svc.SendDeadlineReminders(context.Background(), time.Hour)
		require.NoError(t, err)
		assert.Equal(t, keep, sent)
		require.Len(t, pub.published, keep)
		if keep == 1 {
			assert.Equal(t, candidates[1].UserID, pub.published[0].UserID)
		}
	}
}

func TestSendDeadlineReminders_NothingDue(t *testing.T) {
	repo, _, pub, svc := newNotificationFixture()
	repo.On("ListReminderCandidates", mock.Anything, fixedNow, time.Hour).Return(nil, nil)

	sent, err := svc.SendDeadlineReminders(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, pub.published)
	repo.AssertNotCalled(t, "CreateMany", mock.Anything, mock.Anything)
}

func TestSendDeadlineReminders_Failure(t *testing.T) {
	repo, _, pub, svc := newNotificationFixture()
	repo.On("ListReminderCandidates", mock.Anything, fixedNow, time.Hour).Return(nil, errors.New("db down"))

	_, err := svc.SendDeadlineReminders(context.Background(), time.Hour)
	require.Error(t, err)
	assert.Empty(t, pub.published)
}
