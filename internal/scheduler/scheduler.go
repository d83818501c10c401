// Package scheduler runs the periodic background jobs: deadline reminders
// and refresh token cleanup.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/yigit/assignhub/internal/pkg/metrics"
)

const (
	JobDeadlineReminders = "deadline_reminders"
	JobTokenCleanup      = "token_cleanup"

	jobTimeout = 2 * time.Minute
)

// ReminderSender stores and publishes deadline reminders
type ReminderSender interface {
	SendDeadlineReminders(ctx context.Context, window time.Duration) (int, error)
}

// TokenCleaner drops expired and revoked refresh tokens
type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// Scheduler wraps a cron runner whose jobs never overlap themselves
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// New creates a Scheduler running in UTC
func New(logger zerolog.Logger) *Scheduler {
	logger = logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}
}

// AddReminderJob schedules deadline reminders for assignments due within window
func (s *Scheduler) AddReminderJob(spec string, window time.Duration, sender ReminderSender) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(JobDeadlineReminders, func(ctx context.Context) error {
			sent, err := sender.SendDeadlineReminders(ctx, window)
			if err != nil {
				return err
			}
			metrics.DeadlineRemindersSent.Add(float64(sent))
			s.logger.Info().Int("reminders", sent).Msg("Deadline reminder job finished")
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	return nil
}

// AddTokenCleanupJob schedules removal of dead refresh tokens
func (s *Scheduler) AddTokenCleanupJob(spec string, cleaner TokenCleaner) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(JobTokenCleanup, func(ctx context.Context) error {
			removed, err := cleaner.CleanupExpiredTokens(ctx)
			if err != nil {
				return err
			}
			s.logger.Info().Int64("removed", removed).Msg("Token cleanup job finished")
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("invalid token cleanup schedule %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) run(job string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		metrics.SchedulerRuns.WithLabelValues(job, "error").Inc()
		s.logger.Error().Err(err).Str("job", job).Msg("Scheduled job failed")
		return
	}
	metrics.SchedulerRuns.WithLabelValues(job, "ok").Inc()
}

// Jobs returns the number of registered jobs
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("jobs", s.Jobs()).Msg("Scheduler started")
}

// Stop stops scheduling and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info().Msg("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn().Msg("Scheduler stop timed out with jobs still running")
	}
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
