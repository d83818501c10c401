package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/pkg/pubsub"
)

type recordingRelay struct {
	mu   sync.Mutex
	envs []pubsub.Envelope
	err  error
}

func (r *recordingRelay) Publish(_ context.Context, env pubsub.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.envs = append(r.envs, env)
	return nil
}

func (r *recordingRelay) Subscribe(ctx context.Context, _ pubsub.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (r *recordingRelay) Close() error { return nil }

type mockMailer struct {
	mock.Mock
	enabled bool
}

func (m *mockMailer) Enabled() bool { return m.enabled }

func (m *mockMailer) SendNotificationEmail(ctx context.Context, toEmail, toName, subject, message string) error {
	return m.Called(ctx, toEmail, toName, subject, message).Error(0)
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*models.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func notification(userID uuid.UUID) *models.Notification {
	return &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     "New Assignment",
		Message:   `New assignment "Essay" has been created`,
		Type:      models.NotificationNewAssignment,
		CreatedAt: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func graded(userID uuid.UUID) *models.Notification {
	return &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     "Submission Accepted ✅",
		Message:   `Your submission for "Essay" has been accepted.`,
		Type:      models.NotificationAssignmentGraded,
		CreatedAt: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_PublishRelaysEveryNotification(t *testing.T) {
	relay := &recordingRelay{}
	d := NewDispatcher(relay, nil, nil, zerolog.Nop())

	a, b := uuid.New(), uuid.New()
	d.Publish(context.Background(), notification(a), nil, notification(b))
	d.Wait()

	require.Len(t, relay.envs, 2)
	assert.Equal(t, a, relay.envs[0].UserID)
	assert.Equal(t, b, relay.envs[1].UserID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(relay.envs[0].Payload, &payload))
	assert.Equal(t, "NEW_ASSIGNMENT", payload["type"])
	assert.Equal(t, false, payload["isRead"])
}

func TestDispatcher_RelayFailureDoesNotStopOthers(t *testing.T) {
	relay := &recordingRelay{err: errors.New("redis down")}
	d := NewDispatcher(relay, nil, nil, zerolog.Nop())

	assert.NotPanics(t, func() {
		d.Publish(context.Background(), notification(uuid.New()), notification(uuid.New()))
	})
	assert.Empty(t, relay.envs)
}

func TestDispatcher_SendsEmailToActiveRecipient(t *testing.T) {
	userID := uuid.New()
	users := &mockUsers{}
	users.On("GetByID", mock.Anything, userID).Return(&models.User{
		ID: userID, Name: "Alice Cooper", Email: "alice@student.edu", Status: models.UserStatusActive,
	}, nil)

	mailer := &mockMailer{enabled: true}
	mailer.On("SendNotificationEmail", mock.Anything, "alice@student.edu", "Alice Cooper",
		"Submission Accepted ✅", `Your submission for "Essay" has been accepted.`).Return(nil)

	d := NewDispatcher(&recordingRelay{}, mailer, users, zerolog.Nop())
	d.Publish(context.Background(), graded(userID))
	d.Wait()

	mailer.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestDispatcher_EmailsOnlyGradingFeedbackAndReminders(t *testing.T) {
	userID := uuid.New()
	users := &mockUsers{}
	users.On("GetByID", mock.Anything, userID).Return(&models.User{
		ID: userID, Name: "Alice Cooper", Email: "alice@student.edu", Status: models.UserStatusActive,
	}, nil)
	mailer := &mockMailer{enabled: true}
	mailer.On("SendNotificationEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	relay := &recordingRelay{}
	d := NewDispatcher(relay, mailer, users, zerolog.Nop())

	var all []*models.Notification
	for _, typ := range []models.NotificationType{
		models.NotificationNewAssignment,
		models.NotificationAssignmentUpdated,
		models.NotificationAssignmentDeleted,
		models.NotificationNewSubmission,
		models.NotificationAssignmentGraded,
		models.NotificationAssignmentFeedback,
		models.NotificationDeadlineReminder,
	} {
		n := notification(userID)
		n.Type = typ
		n.Title = string(typ)
		all = append(all, n)
	}
	d.Publish(context.Background(), all...)
	d.Wait()

	assert.Len(t, relay.envs, len(all), "every type still reaches the relay")
	mailer.AssertNumberOfCalls(t, "SendNotificationEmail", 3)
	for _, subject := range []string{"ASSIGNMENT_GRADED", "ASSIGNMENT_FEEDBACK", "DEADLINE_REMINDER"} {
		mailer.AssertCalled(t, "SendNotificationEmail", mock.Anything, "alice@student.edu", "Alice Cooper", subject, mock.Anything)
	}
	users.AssertNumberOfCalls(t, "GetByID", 3)
}

func TestDispatcher_NewAssignmentIsNotEmailed(t *testing.T) {
	users := &mockUsers{}
	mailer := &mockMailer{enabled: true}

	d := NewDispatcher(&recordingRelay{}, mailer, users, zerolog.Nop())
	d.Publish(context.Background(), notification(uuid.New()))
	d.Wait()

	users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	mailer.AssertNotCalled(t, "SendNotificationEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// blockingMailer holds every send until release is closed
type blockingMailer struct {
	release  chan struct{}
	inFlight atomic.Int32
	peak     atomic.Int32
	sent     atomic.Int32
}

func (m *blockingMailer) Enabled() bool { return true }

func (m *blockingMailer) SendNotificationEmail(context.Context, string, string, string, string) error {
	cur := m.inFlight.Add(1)
	for {
		peak := m.peak.Load()
		if cur <= peak || m.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	<-m.release
	m.inFlight.Add(-1)
	m.sent.Add(1)
	return nil
}

func TestDispatcher_CapsConcurrentEmails(t *testing.T) {
	userID := uuid.New()
	users := &mockUsers{}
	users.On("GetByID", mock.Anything, userID).Return(&models.User{
		ID: userID, Email: "alice@student.edu", Status: models.UserStatusActive,
	}, nil)
	mailer := &blockingMailer{release: make(chan struct{})}

	d := NewDispatcher(&recordingRelay{}, mailer, users, zerolog.Nop())
	const total = maxConcurrentEmails * 3
	batch := make([]*models.Notification, total)
	for i := range batch {
		batch[i] = graded(userID)
	}
	d.Publish(context.Background(), batch...)

	require.Eventually(t, func() bool {
		return mailer.inFlight.Load() == maxConcurrentEmails
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, maxConcurrentEmails, mailer.inFlight.Load())

	close(mailer.release)
	d.Wait()
	assert.EqualValues(t, maxConcurrentEmails, mailer.peak.Load())
	assert.EqualValues(t, total, mailer.sent.Load())
}

func TestDispatcher_SkipsEmail(t *testing.T) {
	t.Run("inactive recipient", func(t *testing.T) {
		userID := uuid.New()
		users := &mockUsers{}
		users.On("GetByID", mock.Anything, userID).Return(&models.User{
			ID: userID, Email: "b@x.test", Status: models.UserStatusBlocked,
		}, nil)
		mailer := &mockMailer{enabled: true}

		d := NewDispatcher(&recordingRelay{}, mailer, users, zerolog.Nop())
		d.Publish(context.Background(), graded(userID))
		d.Wait()

		mailer.AssertNotCalled(t, "SendNotificationEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("lookup failure", func(t *testing.T) {
		userID := uuid.New()
		users := &mockUsers{}
		users.On("GetByID", mock.Anything, userID).Return(nil, errors.New("gone"))
		mailer := &mockMailer{enabled: true}

		d := NewDispatcher(&recordingRelay{}, mailer, users, zerolog.Nop())
		d.Publish(context.Background(), graded(userID))
		d.Wait()

		mailer.AssertNotCalled(t, "SendNotificationEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("mailer disabled", func(t *testing.T) {
		users := &mockUsers{}
		mailer := &mockMailer{enabled: false}

		d := NewDispatcher(&recordingRelay{}, mailer, users, zerolog.Nop())
		d.Publish(context.Background(), graded(uuid.New()))
		d.Wait()

		users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}
