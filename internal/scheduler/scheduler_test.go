package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReminderSender struct {
	mock.Mock
}

func (m *mockReminderSender) SendDeadlineReminders(ctx context.Context, window time.Duration) (int, error) {
	args := m.Called(ctx, window)
	return args.Int(0), args.Error(1)
}

type mockTokenCleaner struct {
	mock.Mock
}

func (m *mockTokenCleaner) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestScheduler_AddJobs(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddReminderJob("0 * * * *", time.Hour, &mockReminderSender{}))
	require.NoError(t, s.AddTokenCleanupJob("@daily", &mockTokenCleaner{}))
	assert.Equal(t, 2, s.Jobs())
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddReminderJob("every minute", time.Hour, &mockReminderSender{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reminder schedule")

	err = s.AddTokenCleanupJob("61 * * * *", &mockTokenCleaner{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token cleanup schedule")

	assert.Zero(t, s.Jobs())
}

func TestScheduler_RunsReminderJob(t *testing.T) {
	s := New(zerolog.Nop())
	sender := &mockReminderSender{}
	ran := make(chan struct{}, 1)
	sender.On("SendDeadlineReminders", mock.Anything, 24*time.Hour).
		Return(3, nil).
		Run(func(mock.Arguments) {
			select {
			case ran <- struct{}{}:
			default:
			}
		})

	require.NoError(t, s.AddReminderJob("@every 1s", 24*time.Hour, sender))
	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(ctx)
	}()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("reminder job did not run")
	}
}

func TestScheduler_JobErrorsAreContained(t *testing.T) {
	s := New(zerolog.Nop())
	cleaner := &mockTokenCleaner{}
	ran := make(chan struct{}, 1)
	cleaner.On("CleanupExpiredTokens", mock.Anything).
		Return(int64(0), errors.New("db down")).
		Run(func(mock.Arguments) {
			select {
			case ran <- struct{}{}:
			default:
			}
		})

	require.NoError(t, s.AddTokenCleanupJob("@every 1s", cleaner))
	s.Start()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("cleanup job did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Stop(ctx)
}
