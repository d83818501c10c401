package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/app/repositories"
	"github.com/yigit/assignhub/internal/db"
)

var fixedNow = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// fakeTx runs the callback directly with a nil transaction
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTransaction(ctx context.Context, fn db.TransactionFn) error {
	f.calls++
	return fn(ctx, nil)
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []*models.Notification
}

func (p *recordingPublisher) Publish(_ context.Context, notifications ...*models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, notifications...)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) WithTx(pgx.Tx) repositories.IUserRepository { return m }

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*models.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*models.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) List(ctx context.Context, filter dto.UserFilter, opts dto.ListOptions) ([]*models.User, int64, error) {
	args := m.Called(ctx, filter, opts)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Get(1).(int64), args.Error(2)
}

func (m *mockUserRepo) ListActiveStudents(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

type mockAssignmentRepo struct {
	mock.Mock
}

func (m *mockAssignmentRepo) WithTx(pgx.Tx) repositories.IAssignmentRepository { return m }

func (m *mockAssignmentRepo) Create(ctx context.Context, a *models.Assignment) error {
	args := m.Called(ctx, a)
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockAssignmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	args := m.Called(ctx, id)
	if a, ok := args.Get(0).(*models.Assignment); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAssignmentRepo) Update(ctx context.Context, a *models.Assignment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAssignmentRepo) ActiveTitleExists(ctx context.Context, instructorID uuid.UUID, title string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, instructorID, title, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockAssignmentRepo) List(ctx context.Context, instructorID *uuid.UUID) ([]*models.Assignment, error) {
	args := m.Called(ctx, instructorID)
	list, _ := args.Get(0).([]*models.Assignment)
	return list, args.Error(1)
}

func (m *mockAssignmentRepo) ListRecentByInstructor(ctx context.Context, instructorID uuid.UUID, limit int) ([]*models.Assignment, error) {
	args := m.Called(ctx, instructorID, limit)
	list, _ := args.Get(0).([]*models.Assignment)
	return list, args.Error(1)
}

func (m *mockAssignmentRepo) ListAvailableForStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Assignment, error) {
	args := m.Called(ctx, studentID)
	list, _ := args.Get(0).([]*models.Assignment)
	return list, args.Error(1)
}

func (m *mockAssignmentRepo) CountActive(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockAssignmentRepo) CountByInstructor(ctx context.Context, instructorID uuid.UUID) (int, error) {
	args := m.Called(ctx, instructorID)
	return args.Int(0), args.Error(1)
}

type mockSubmissionRepo struct {
	mock.Mock
}

func (m *mockSubmissionRepo) WithTx(pgx.Tx) repositories.ISubmissionRepository { return m }

func (m *mockSubmissionRepo) Create(ctx context.Context, s *models.Submission) error {
	args := m.Called(ctx, s)
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockSubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*models.Submission); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSubmissionRepo) Update(ctx context.Context, s *models.Submission) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockSubmissionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSubmissionRepo) DeleteByAssignment(ctx context.Context, assignmentID uuid.UUID) (int64, error) {
	args := m.Called(ctx, assignmentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSubmissionRepo) Exists(ctx context.Context, assignmentID, studentID uuid.UUID) (bool, error) {
	args := m.Called(ctx, assignmentID, studentID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSubmissionRepo) List(ctx context.Context, filter dto.SubmissionFilter) ([]*models.Submission, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]*models.Submission)
	return list, args.Error(1)
}

func (m *mockSubmissionRepo) ListByAssignments(ctx context.Context, assignmentIDs []uuid.UUID) ([]*models.Submission, error) {
	args := m.Called(ctx, assignmentIDs)
	list, _ := args.Get(0).([]*models.Submission)
	return list, args.Error(1)
}

func (m *mockSubmissionRepo) ListRecentByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*models.Submission, error) {
	args := m.Called(ctx, studentID, limit)
	list, _ := args.Get(0).([]*models.Submission)
	return list, args.Error(1)
}

func (m *mockSubmissionRepo) CountByStatusForInstructor(ctx context.Context, instructorID uuid.UUID) (models.SubmissionStatusCounts, error) {
	args := m.Called(ctx, instructorID)
	return args.Get(0).(models.SubmissionStatusCounts), args.Error(1)
}

func (m *mockSubmissionRepo) CountByStatusForStudent(ctx context.Context, studentID uuid.UUID) (models.SubmissionStatusCounts, error) {
	args := m.Called(ctx, studentID)
	return args.Get(0).(models.SubmissionStatusCounts), args.Error(1)
}

func (m *mockSubmissionRepo) CountLateByStudent(ctx context.Context, studentID uuid.UUID) (int, error) {
	args := m.Called(ctx, studentID)
	return args.Int(0), args.Error(1)
}

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) WithTx(pgx.Tx) repositories.INotificationRepository { return m }

// CreateMany reports every notification as written unless the expectation
// returns an explicit slice.
func (m *mockNotificationRepo) CreateMany(ctx context.Context, notifications []*models.Notification) ([]*models.Notification, error) {
	args := m.Called(ctx, notifications)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if inserted, ok := args.Get(0).([]*models.Notification); ok {
		return inserted, nil
	}
	return notifications, nil
}

func (m *mockNotificationRepo) List(ctx context.Context, userID uuid.UUID, filter dto.NotificationFilter) ([]*models.Notification, error) {
	args := m.Called(ctx, userID, filter)
	list, _ := args.Get(0).([]*models.Notification)
	return list, args.Error(1)
}

func (m *mockNotificationRepo) Count(ctx context.Context, userID uuid.UUID, filter dto.NotificationFilter) (int, error) {
	args := m.Called(ctx, userID, filter)
	return args.Int(0), args.Error(1)
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	args := m.Called(ctx, id, userID)
	if n, ok := args.Get(0).(*models.Notification); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepo) ListReminderCandidates(ctx context.Context, now time.Time, window time.Duration) ([]repositories.ReminderCandidate, error) {
	args := m.Called(ctx, now, window)
	list, _ := args.Get(0).([]repositories.ReminderCandidate)
	return list, args.Error(1)
}

type mockTokenRepo struct {
	mock.Mock
}

func (m *mockTokenRepo) WithTx(pgx.Tx) repositories.ITokenRepository { return m }

func (m *mockTokenRepo) CreateToken(ctx context.Context, token string, userID uuid.UUID, expiryDate time.Time) error {
	return m.Called(ctx, token, userID, expiryDate).Error(0)
}

func (m *mockTokenRepo) GetToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	args := m.Called(ctx, token)
	if t, ok := args.Get(0).(*models.RefreshToken); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTokenRepo) RevokeToken(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockTokenRepo) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockTokenRepo) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func instructor(name string) *models.User {
	return &models.User{
		ID:     uuid.New(),
		Name:   name,
		Email:  name + "@university.edu",
		Role:   models.RoleInstructor,
		Status: models.UserStatusActive,
	}
}

func student(name string) *models.User {
	return &models.User{
		ID:     uuid.New(),
		Name:   name,
		Email:  name + "@student.edu",
		Role:   models.RoleStudent,
		Status: models.UserStatusActive,
	}
}

func callerOf(u *models.User) dto.Caller {
	return dto.Caller{UserID: u.ID, Role: u.Role}
}
