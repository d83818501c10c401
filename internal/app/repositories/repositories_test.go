package repositories

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yigit/assignhub/internal/app/migrations"
	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/pkg/apperrors"
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		log.Println("Skipping Postgres repository tests. Use -short=false to run them.")
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// setupTestDB starts a throwaway Postgres, applies the migrations and returns
// repositories bound to it.
func setupTestDB(t *testing.T) (*Repositories, *pgxpool.Pool) {
	ctx := context.Background()

	container, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_DB":       "assignhub_test",
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, migrations.NewMigrator(pool, zerolog.Nop()).MigrateFromDirectory(ctx, "../../../migrations"))

	return NewRepositories(pool), pool
}

func newUser(t *testing.T, repos *Repositories, name string, role models.RoleType) *models.User {
	t.Helper()
	u := &models.User{
		Name:     name,
		Email:    uuid.NewString() + "@school.edu",
		Password: "hash",
		Role:     role,
	}
	require.NoError(t, repos.UserRepository.Create(context.Background(), u))
	return u
}

func newAssignment(t *testing.T, repos *Repositories, instructorID uuid.UUID, title string, deadline time.Time) *models.Assignment {
	t.Helper()
	a := &models.Assignment{
		Title:        title,
		Description:  "Write it up",
		Deadline:     deadline,
		IsActive:     true,
		InstructorID: instructorID,
	}
	require.NoError(t, repos.AssignmentRepository.Create(context.Background(), a))
	return a
}

func newSubmission(t *testing.T, repos *Repositories, assignmentID, studentID uuid.UUID, submittedAt time.Time) *models.Submission {
	t.Helper()
	s := &models.Submission{
		AssignmentID:  assignmentID,
		StudentID:     studentID,
		SubmissionURL: "https://github.com/student/work",
		SubmittedAt:   submittedAt,
	}
	require.NoError(t, repos.SubmissionRepository.Create(context.Background(), s))
	return s
}

func TestUserRepository(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()

	alice := newUser(t, repos, "Alice Cooper", models.RoleStudent)
	assert.Equal(t, models.UserStatusActive, alice.Status)
	assert.False(t, alice.CreatedAt.IsZero())

	t.Run("duplicate email", func(t *testing.T) {
		dup := &models.User{Name: "Other", Email: alice.Email, Password: "x", Role: models.RoleStudent}
		assert.ErrorIs(t, repos.UserRepository.Create(ctx, dup), apperrors.ErrEmailAlreadyExists)
	})

	t.Run("lookups", func(t *testing.T) {
		byEmail, err := repos.UserRepository.GetByEmail(ctx, alice.Email)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, byEmail.ID)

		exists, err := repos.UserRepository.EmailExists(ctx, alice.Email)
		require.NoError(t, err)
		assert.True(t, exists)

		_, err = repos.UserRepository.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("update", func(t *testing.T) {
		alice.Status = models.UserStatusBlocked
		require.NoError(t, repos.UserRepository.Update(ctx, alice))

		got, err := repos.UserRepository.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, models.UserStatusBlocked, got.Status)

		ghost := &models.User{ID: uuid.New(), Name: "Ghost", Email: "ghost@school.edu", Role: models.RoleStudent, Status: models.UserStatusActive}
		assert.ErrorIs(t, repos.UserRepository.Update(ctx, ghost), apperrors.ErrUserNotFound)
	})

	t.Run("list filters and paging", func(t *testing.T) {
		for _, name := range []string{"Zeta Student", "Zeta Scholar", "Zeta Learner"} {
			newUser(t, repos, name, models.RoleStudent)
		}
		newUser(t, repos, "Zeta Tutor", models.RoleInstructor)

		users, total, err := repos.UserRepository.List(ctx,
			dto.UserFilter{SearchTerm: "zeta", Role: models.RoleStudent},
			dto.ListOptions{Page: 1, Limit: 2, SortBy: "name", SortOrder: "asc"})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, users, 2)
		assert.Equal(t, "Zeta Learner", users[0].Name)
		assert.Equal(t, "Zeta Scholar", users[1].Name)

		users, _, err = repos.UserRepository.List(ctx, dto.UserFilter{Email: alice.Email}, dto.ListOptions{})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, alice.ID, users[0].ID)

		users, total, err = repos.UserRepository.List(ctx, dto.UserFilter{SearchTerm: "nobody-matches"}, dto.ListOptions{})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, users)

		for _, term := range []string{"%", "_", `\`} {
			_, total, err = repos.UserRepository.List(ctx, dto.UserFilter{SearchTerm: term}, dto.ListOptions{})
			require.NoError(t, err)
			assert.Zero(t, total, "%q is matched literally", term)
		}
	})

	t.Run("active students skip blocked accounts", func(t *testing.T) {
		students, err := repos.UserRepository.ListActiveStudents(ctx)
		require.NoError(t, err)
		for _, s := range students {
			assert.NotEqual(t, alice.ID, s.ID)
			assert.Equal(t, models.RoleStudent, s.Role)
		}
	})
}

func TestAssignmentRepository(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	prof := newUser(t, repos, "Dr. Sarah Johnson", models.RoleInstructor)
	other := newUser(t, repos, "Prof. Mike Chen", models.RoleInstructor)
	student := newUser(t, repos, "Alice Cooper", models.RoleStudent)

	essay := newAssignment(t, repos, prof.ID, "Essay", now.Add(72*time.Hour))
	quiz := newAssignment(t, repos, prof.ID, "Quiz", now.Add(24*time.Hour))
	newAssignment(t, repos, other.ID, "Lab", now.Add(48*time.Hour))

	t.Run("get with instructor", func(t *testing.T) {
		got, err := repos.AssignmentRepository.GetByID(ctx, essay.ID)
		require.NoError(t, err)
		assert.Equal(t, "Essay", got.Title)
		require.NotNil(t, got.Instructor)
		assert.Equal(t, prof.Name, got.Instructor.Name)
		assert.WithinDuration(t, essay.Deadline, got.Deadline, time.Millisecond)

		_, err = repos.AssignmentRepository.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrAssignmentNotFound)
	})

	t.Run("active title exists", func(t *testing.T) {
		exists, err := repos.AssignmentRepository.ActiveTitleExists(ctx, prof.ID, "Essay", nil)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repos.AssignmentRepository.ActiveTitleExists(ctx, prof.ID, "Essay", &essay.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		exists, err = repos.AssignmentRepository.ActiveTitleExists(ctx, other.ID, "Essay", nil)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("list and counts", func(t *testing.T) {
		all, err := repos.AssignmentRepository.List(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		mine, err := repos.AssignmentRepository.List(ctx, &prof.ID)
		require.NoError(t, err)
		assert.Len(t, mine, 2)

		recent, err := repos.AssignmentRepository.ListRecentByInstructor(ctx, prof.ID, 1)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, quiz.ID, recent[0].ID)

		n, err := repos.AssignmentRepository.CountByInstructor(ctx, prof.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("available for student", func(t *testing.T) {
		newSubmission(t, repos, essay.ID, student.ID, now)

		available, err := repos.AssignmentRepository.ListAvailableForStudent(ctx, student.ID)
		require.NoError(t, err)
		require.Len(t, available, 2)
		assert.Equal(t, quiz.ID, available[0].ID, "earliest deadline first")
		for _, a := range available {
			assert.NotEqual(t, essay.ID, a.ID)
		}
	})

	t.Run("update deactivates", func(t *testing.T) {
		quiz.IsActive = false
		quiz.Title = "Quiz 1"
		require.NoError(t, repos.AssignmentRepository.Update(ctx, quiz))

		n, err := repos.AssignmentRepository.CountActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := repos.AssignmentRepository.GetByID(ctx, quiz.ID)
		require.NoError(t, err)
		assert.Equal(t, "Quiz 1", got.Title)
		assert.False(t, got.IsActive)
	})

	t.Run("delete cascades to submissions", func(t *testing.T) {
		require.NoError(t, repos.AssignmentRepository.Delete(ctx, essay.ID))

		subs, err := repos.SubmissionRepository.List(ctx, dto.SubmissionFilter{AssignmentID: &essay.ID})
		require.NoError(t, err)
		assert.Empty(t, subs)

		assert.ErrorIs(t, repos.AssignmentRepository.Delete(ctx, essay.ID), apperrors.ErrAssignmentNotFound)
	})
}

func TestSubmissionRepository(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	prof := newUser(t, repos, "Dr. Sarah Johnson", models.RoleInstructor)
	alice := newUser(t, repos, "Alice Cooper", models.RoleStudent)
	bob := newUser(t, repos, "Bob Smith", models.RoleStudent)

	essay := newAssignment(t, repos, prof.ID, "Essay", now.Add(-time.Hour))
	quiz := newAssignment(t, repos, prof.ID, "Quiz", now.Add(24*time.Hour))

	late := newSubmission(t, repos, essay.ID, alice.ID, now)
	onTime := newSubmission(t, repos, quiz.ID, alice.ID, now)
	bobs := newSubmission(t, repos, essay.ID, bob.ID, now.Add(-2*time.Hour))

	t.Run("one submission per student and assignment", func(t *testing.T) {
		dup := &models.Submission{AssignmentID: essay.ID, StudentID: alice.ID, SubmissionURL: "https://example.com"}
		assert.ErrorIs(t, repos.SubmissionRepository.Create(ctx, dup), apperrors.ErrSubmissionExists)

		exists, err := repos.SubmissionRepository.Exists(ctx, essay.ID, alice.ID)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("get with assignment and student", func(t *testing.T) {
		got, err := repos.SubmissionRepository.GetByID(ctx, late.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionPending, got.Status)
		require.NotNil(t, got.Assignment)
		assert.Equal(t, "Essay", got.Assignment.Title)
		require.NotNil(t, got.Student)
		assert.Equal(t, alice.Name, got.Student.Name)

		_, err = repos.SubmissionRepository.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrSubmissionNotFound)
	})

	t.Run("grading and counts", func(t *testing.T) {
		feedback := "Well done"
		onTime.Status = models.SubmissionAccepted
		onTime.Feedback = &feedback
		require.NoError(t, repos.SubmissionRepository.Update(ctx, onTime))

		bobs.Status = models.SubmissionRejected
		require.NoError(t, repos.SubmissionRepository.Update(ctx, bobs))

		counts, err := repos.SubmissionRepository.CountByStatusForInstructor(ctx, prof.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionStatusCounts{Pending: 1, Accepted: 1, Rejected: 1}, counts)

		counts, err = repos.SubmissionRepository.CountByStatusForStudent(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionStatusCounts{Pending: 1, Accepted: 1}, counts)

		lateCount, err := repos.SubmissionRepository.CountLateByStudent(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, lateCount)

		lateCount, err = repos.SubmissionRepository.CountLateByStudent(ctx, bob.ID)
		require.NoError(t, err)
		assert.Zero(t, lateCount)
	})

	t.Run("list filters", func(t *testing.T) {
		subs, err := repos.SubmissionRepository.List(ctx, dto.SubmissionFilter{StudentID: &alice.ID})
		require.NoError(t, err)
		assert.Len(t, subs, 2)

		subs, err = repos.SubmissionRepository.List(ctx, dto.SubmissionFilter{Status: models.SubmissionRejected})
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, bobs.ID, subs[0].ID)

		subs, err = repos.SubmissionRepository.ListByAssignments(ctx, []uuid.UUID{essay.ID, quiz.ID})
		require.NoError(t, err)
		assert.Len(t, subs, 3)

		subs, err = repos.SubmissionRepository.ListByAssignments(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, subs)

		recent, err := repos.SubmissionRepository.ListRecentByStudent(ctx, alice.ID, 1)
		require.NoError(t, err)
		assert.Len(t, recent, 1)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repos.SubmissionRepository.Delete(ctx, bobs.ID))
		assert.ErrorIs(t, repos.SubmissionRepository.Delete(ctx, bobs.ID), apperrors.ErrSubmissionNotFound)

		n, err := repos.SubmissionRepository.DeleteByAssignment(ctx, quiz.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})
}

func TestNotificationRepository(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	prof := newUser(t, repos, "Dr. Sarah Johnson", models.RoleInstructor)
	alice := newUser(t, repos, "Alice Cooper", models.RoleStudent)
	bob := newUser(t, repos, "Bob Smith", models.RoleStudent)

	essay := newAssignment(t, repos, prof.ID, "Essay", now.Add(12*time.Hour))
	sub := newSubmission(t, repos, essay.ID, alice.ID, now)

	t.Run("create many and list", func(t *testing.T) {
		n, err := repos.NotificationRepository.CreateMany(ctx, []*models.Notification{
			{UserID: alice.ID, Title: "New Assignment", Message: "Essay posted", Type: models.NotificationNewAssignment, AssignmentID: &essay.ID},
			{UserID: bob.ID, Title: "New Assignment", Message: "Essay posted", Type: models.NotificationNewAssignment, AssignmentID: &essay.ID},
			{UserID: prof.ID, Title: "New Submission", Message: "Alice submitted", Type: models.NotificationNewSubmission, AssignmentID: &essay.ID, SubmissionID: &sub.ID},
		})
		require.NoError(t, err)
		assert.Len(t, n, 3)

		n, err = repos.NotificationRepository.CreateMany(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, n)

		list, err := repos.NotificationRepository.List(ctx, prof.ID, dto.NotificationFilter{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.NotNil(t, list[0].Assignment)
		assert.Equal(t, "Essay", list[0].Assignment.Title)
		require.NotNil(t, list[0].Submission)
		assert.Equal(t, models.SubmissionPending, list[0].Submission.Status)

		list, err = repos.NotificationRepository.List(ctx, alice.ID, dto.NotificationFilter{Type: models.NotificationNewSubmission})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("read state", func(t *testing.T) {
		list, err := repos.NotificationRepository.List(ctx, alice.ID, dto.NotificationFilter{})
		require.NoError(t, err)
		require.Len(t, list, 1)

		_, err = repos.NotificationRepository.MarkRead(ctx, list[0].ID, bob.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotificationNotFound)

		read, err := repos.NotificationRepository.MarkRead(ctx, list[0].ID, alice.ID)
		require.NoError(t, err)
		assert.True(t, read.IsRead)

		unread, err := repos.NotificationRepository.CountUnread(ctx, alice.ID)
		require.NoError(t, err)
		assert.Zero(t, unread)

		isRead := true
		total, err := repos.NotificationRepository.Count(ctx, alice.ID, dto.NotificationFilter{IsRead: &isRead})
		require.NoError(t, err)
		assert.Equal(t, 1, total)

		marked, err := repos.NotificationRepository.MarkAllRead(ctx, bob.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, marked)

		marked, err = repos.NotificationRepository.MarkAllRead(ctx, bob.ID)
		require.NoError(t, err)
		assert.Zero(t, marked)
	})

	t.Run("reminder candidates and dedup", func(t *testing.T) {
		newAssignment(t, repos, prof.ID, "Far Away", now.Add(10*24*time.Hour))

		candidates, err := repos.NotificationRepository.ListReminderCandidates(ctx, now, 24*time.Hour)
		require.NoError(t, err)
		require.Len(t, candidates, 1, "alice already submitted and the other assignment is outside the window")
		assert.Equal(t, bob.ID, candidates[0].UserID)
		assert.Equal(t, essay.ID, candidates[0].AssignmentID)
		assert.Equal(t, "Essay", candidates[0].Title)

		reminder := func() *models.Notification {
			return &models.Notification{
				UserID: bob.ID, Title: "Deadline Reminder", Message: "Essay is due",
				Type: models.NotificationDeadlineReminder, AssignmentID: &essay.ID,
			}
		}
		n, err := repos.NotificationRepository.CreateMany(ctx, []*models.Notification{reminder()})
		require.NoError(t, err)
		assert.Len(t, n, 1)

		n, err = repos.NotificationRepository.CreateMany(ctx, []*models.Notification{reminder()})
		require.NoError(t, err)
		assert.Empty(t, n, "second reminder for the same assignment is skipped")

		other := &models.Notification{
			UserID: alice.ID, Title: "Deadline Reminder", Message: "Essay is due",
			Type: models.NotificationDeadlineReminder, AssignmentID: &essay.ID,
		}
		n, err = repos.NotificationRepository.CreateMany(ctx, []*models.Notification{reminder(), other})
		require.NoError(t, err)
		require.Len(t, n, 1, "only the rows actually written are returned")
		assert.Equal(t, other.ID, n[0].ID)

		candidates, err = repos.NotificationRepository.ListReminderCandidates(ctx, now, 24*time.Hour)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("deleting the assignment keeps the notifications", func(t *testing.T) {
		require.NoError(t, repos.AssignmentRepository.Delete(ctx, essay.ID))

		list, err := repos.NotificationRepository.List(ctx, prof.ID, dto.NotificationFilter{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Nil(t, list[0].AssignmentID)
		assert.Nil(t, list[0].SubmissionID)
		assert.Nil(t, list[0].Assignment)
	})
}

func TestTokenRepository(t *testing.T) {
	repos, pool := setupTestDB(t)
	ctx := context.Background()

	alice := newUser(t, repos, "Alice Cooper", models.RoleStudent)

	require.NoError(t, repos.TokenRepository.CreateToken(ctx, "live", alice.ID, time.Now().Add(time.Hour)))
	require.NoError(t, repos.TokenRepository.CreateToken(ctx, "other", alice.ID, time.Now().Add(time.Hour)))
	require.NoError(t, repos.TokenRepository.CreateToken(ctx, "expired", alice.ID, time.Now().Add(-time.Hour)))

	got, err := repos.TokenRepository.GetToken(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.UserID)

	_, err = repos.TokenRepository.GetToken(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)

	_, err = repos.TokenRepository.GetToken(ctx, "expired")
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)

	require.NoError(t, repos.TokenRepository.RevokeToken(ctx, "live"))
	_, err = repos.TokenRepository.GetToken(ctx, "live")
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)

	require.NoError(t, repos.TokenRepository.RevokeAllUserTokens(ctx, alice.ID))
	_, err = repos.TokenRepository.GetToken(ctx, "other")
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)

	deleted, err := repos.TokenRepository.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var remaining int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM refresh_tokens").Scan(&remaining))
	assert.Equal(t, 2, remaining)
}
