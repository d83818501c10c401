package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/app/repositories"
	"github.com/yigit/assignhub/internal/pkg/apperrors"
	"github.com/yigit/assignhub/internal/pkg/helpers"
)

const recentAssignmentsLimit = 5

// AssignmentService defines the interface for assignment operations
type AssignmentService interface {
	CreateAssignment(ctx context.Context, caller dto.Caller, req *dto.CreateAssignmentRequest) (*dto.AssignmentMutationResponse, error)
	GetAllAssignments(ctx context.Context) ([]*models.Assignment, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	UpdateAssignment(ctx context.Context, caller dto.Caller, id uuid.UUID, req *dto.UpdateAssignmentRequest) (*dto.AssignmentMutationResponse, error)
	DeleteAssignment(ctx context.Context, caller dto.Caller, id uuid.UUID) (*models.Assignment, error)

	GetInstructorStats(ctx context.Context, caller dto.Caller) (*dto.InstructorAssignmentStats, error)
	GetInstructorRecent(ctx context.Context, caller dto.Caller) ([]*models.Assignment, error)
	GetInstructorAssignments(ctx context.Context, caller dto.Caller) (*dto.AssignmentListResponse, error)

	GetStudentStats(ctx context.Context, caller dto.Caller) (*dto.StudentAssignmentStats, error)
	GetAvailableForStudent(ctx context.Context, caller dto.Caller) (*dto.AssignmentListResponse, error)
}

// assignmentServiceImpl implements AssignmentService
type assignmentServiceImpl struct {
	assignmentRepo   repositories.IAssignmentRepository
	submissionRepo   repositories.ISubmissionRepository
	userRepo         repositories.IUserRepository
	notificationRepo repositories.INotificationRepository
	txm              TxManager
	publisher        NotificationPublisher
	now              Clock
	logger           zerolog.Logger
}

// NewAssignmentService creates a new AssignmentService
func NewAssignmentService(
	assignmentRepo repositories.IAssignmentRepository,
	submissionRepo repositories.ISubmissionRepository,
	userRepo repositories.IUserRepository,
	notificationRepo repositories.INotificationRepository,
	txm TxManager,
	publisher NotificationPublisher,
	now Clock,
	logger zerolog.Logger,
) AssignmentService {
	return &assignmentServiceImpl{
		assignmentRepo:   assignmentRepo,
		submissionRepo:   submissionRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		txm:              txm,
		publisher:        publisherOrNop(publisher),
		now:              defaultClock(now),
		logger:           logger,
	}
}

func assignmentNotFound(err error) error {
	if errors.Is(err, apperrors.ErrAssignmentNotFound) {
		return apperrors.NewCustomError(apperrors.ErrAssignmentNotFound, "Assignment not found")
	}
	return fmt.Errorf("error loading assignment: %w", err)
}

// activeInstructor loads the caller and checks it may manage assignments
func (s *assignmentServiceImpl) activeInstructor(ctx context.Context, id uuid.UUID) (*models.User, error) {
	instructor, err := s.userRepo.GetByID(ctx, id)
	if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, fmt.Errorf("error loading instructor: %w", err)
	}
	if instructor == nil || !instructor.IsActiveInstructor() {
		return nil, apperrors.NewForbiddenError("Instructor not found or not authorized to create assignments")
	}
	return instructor, nil
}

// CreateAssignment stores a new assignment and notifies every active student
// in the same transaction.
func (s *assignmentServiceImpl) CreateAssignment(ctx context.Context, caller dto.Caller, req *dto.CreateAssignmentRequest) (*dto.AssignmentMutationResponse, error) {
	if req.InstructorID != caller.UserID {
		return nil, apperrors.NewForbiddenError("You can only create assignments for yourself")
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewCustomError(apperrors.ErrValidationFailed, "Title and description are required")
	}
	if !req.Deadline.After(s.now()) {
		return nil, apperrors.NewCustomError(apperrors.ErrValidationFailed, "Deadline must be in the future")
	}

	instructor, err := s.activeInstructor(ctx, req.InstructorID)
	if err != nil {
		return nil, err
	}

	exists, err := s.assignmentRepo.ActiveTitleExists(ctx, instructor.ID, title, nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewCustomError(apperrors.ErrAssignmentTitleExists, "An assignment with this title already exists")
	}

	assignment := &models.Assignment{
		Title:        title,
		Description:  description,
		Deadline:     req.Deadline.UTC(),
		IsActive:     true,
		InstructorID: instructor.ID,
	}

	var notifications []*models.Notification
	err = s.txm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.assignmentRepo.WithTx(tx).Create(ctx, assignment); err != nil {
			return err
		}

		students, err := s.userRepo.WithTx(tx).ListActiveStudents(ctx)
		if err != nil {
			return err
		}

		notifications = fanOut(students, &assignment.ID, models.NotificationNewAssignment,
			"New Assignment Posted", newAssignmentMessage(instructor.Name, assignment.Title, assignment))
		notifications, err = s.notificationRepo.WithTx(tx).CreateMany(ctx, notifications)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("instructorID", instructor.ID.String()).Msg("Assignment creation failed")
		return nil, err
	}

	s.publisher.Publish(ctx, notifications...)

	assignment.Instructor = instructor.Summary()
	zero := 0
	assignment.SubmissionCount = &zero

	s.logger.Info().
		Str("assignmentID", assignment.ID.String()).
		Str("instructorID", instructor.ID.String()).
		Int("notificationsSent", len(notifications)).
		Msg("Assignment created")

	return &dto.AssignmentMutationResponse{Data: assignment, NotificationsSent: len(notifications)}, nil
}

func (s *assignmentServiceImpl) GetAllAssignments(ctx context.Context) ([]*models.Assignment, error) {
	return s.assignmentRepo.List(ctx, nil)
}

// GetAssignment returns an assignment with its instructor and submissions
func (s *assignmentServiceImpl) GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, assignmentNotFound(err)
	}

	submissions, err := s.submissionRepo.List(ctx, dto.SubmissionFilter{AssignmentID: &assignment.ID})
	if err != nil {
		return nil, err
	}
	for _, sub := range submissions {
		sub.Assignment = nil
	}
	assignment.Submissions = submissions
	return assignment, nil
}

// UpdateAssignment applies the present fields. Students are notified when
// the title, description or deadline actually changed.
func (s *assignmentServiceImpl) UpdateAssignment(ctx context.Context, caller dto.Caller, id uuid.UUID, req *dto.UpdateAssignmentRequest) (*dto.AssignmentMutationResponse, error) {
	existing, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, assignmentNotFound(err)
	}

	if existing.InstructorID != caller.UserID {
		return nil, apperrors.NewForbiddenError("You are not allowed to update this assignment")
	}
	if req.InstructorID != nil && *req.InstructorID != existing.InstructorID {
		return nil, apperrors.NewForbiddenError("You cannot reassign ownership")
	}

	updated := *existing
	changed := false

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperrors.NewCustomError(apperrors.ErrValidationFailed, "Title cannot be empty")
		}
		if title != existing.Title {
			exists, err := s.assignmentRepo.ActiveTitleExists(ctx, existing.InstructorID, title, &existing.ID)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, apperrors.NewCustomError(apperrors.ErrAssignmentTitleExists, "Duplicate assignment title for this instructor")
			}
			updated.Title = title
			changed = true
		}
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, apperrors.NewCustomError(apperrors.ErrValidationFailed, "Description cannot be empty")
		}
		if description != existing.Description {
			updated.Description = description
			changed = true
		}
	}
	if req.Deadline != nil && !req.Deadline.Equal(existing.Deadline) {
		updated.Deadline = req.Deadline.UTC()
		changed = true
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}

	var notifications []*models.Notification
	err = s.txm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.assignmentRepo.WithTx(tx).Update(ctx, &updated); err != nil {
			return err
		}
		if !changed {
			return nil
		}

		students, err := s.userRepo.WithTx(tx).ListActiveStudents(ctx)
		if err != nil {
			return err
		}
		notifications = fanOut(students, &updated.ID, models.NotificationAssignmentUpdated,
			"Assignment Updated", assignmentUpdatedMessage(existing.Instructor.Name, updated.Title))
		notifications, err = s.notificationRepo.WithTx(tx).CreateMany(ctx, notifications)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("assignmentID", id.String()).Msg("Assignment update failed")
		return nil, err
	}

	s.publisher.Publish(ctx, notifications...)

	s.logger.Info().
		Str("assignmentID", id.String()).
		Int("notificationsSent", len(notifications)).
		Msg("Assignment updated")

	return &dto.AssignmentMutationResponse{Data: &updated, NotificationsSent: len(notifications)}, nil
}

// DeleteAssignment removes the assignment and its submissions, then tells
// active students it is gone.
func (s *assignmentServiceImpl) DeleteAssignment(ctx context.Context, caller dto.Caller, id uuid.UUID) (*models.Assignment, error) {
	existing, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, assignmentNotFound(err)
	}
	if existing.InstructorID != caller.UserID {
		return nil, apperrors.NewForbiddenError("You are not allowed to delete this assignment")
	}

	var notifications []*models.Notification
	err = s.txm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := s.submissionRepo.WithTx(tx).DeleteByAssignment(ctx, id); err != nil {
			return err
		}
		if err := s.assignmentRepo.WithTx(tx).Delete(ctx, id); err != nil {
			return err
		}

		students, err := s.userRepo.WithTx(tx).ListActiveStudents(ctx)
		if err != nil {
			return err
		}
		// the assignment row is gone, so the notifications carry no reference
		notifications = fanOut(students, nil, models.NotificationAssignmentDeleted,
			"Assignment Removed", assignmentRemovedMessage(existing.Instructor.Name, existing.Title))
		notifications, err = s.notificationRepo.WithTx(tx).CreateMany(ctx, notifications)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("assignmentID", id.String()).Msg("Assignment deletion failed")
		return nil, err
	}

	s.publisher.Publish(ctx, notifications...)

	s.logger.Info().
		Str("assignmentID", id.String()).
		Str("instructorID", caller.UserID.String()).
		Msg("Assignment deleted")
	return existing, nil
}

func (s *assignmentServiceImpl) GetInstructorStats(ctx context.Context, caller dto.Caller) (*dto.InstructorAssignmentStats, error) {
	total, err := s.assignmentRepo.CountByInstructor(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	counts, err := s.submissionRepo.CountByStatusForInstructor(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	submissions := counts.Total()
	return &dto.InstructorAssignmentStats{
		TotalAssignments:    total,
		TotalSubmissions:    submissions,
		PendingReview:       counts.Pending,
		AcceptedSubmissions: counts.Accepted,
		RejectedSubmissions: submissions - counts.Accepted - counts.Pending,
		CompletionRate:      helpers.Percent(counts.Accepted, submissions),
	}, nil
}

// GetInstructorRecent returns the newest assignments of the caller with
// their submissions attached.
func (s *assignmentServiceImpl) GetInstructorRecent(ctx context.Context, caller dto.Caller) ([]*models.Assignment, error) {
	assignments, err := s.assignmentRepo.ListRecentByInstructor(ctx, caller.UserID, recentAssignmentsLimit)
	if err != nil {
		return nil, err
	}
	if err := s.attachSubmissions(ctx, assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (s *assignmentServiceImpl) GetInstructorAssignments(ctx context.Context, caller dto.Caller) (*dto.AssignmentListResponse, error) {
	assignments, err := s.assignmentRepo.List(ctx, &caller.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.attachSubmissions(ctx, assignments); err != nil {
		return nil, err
	}
	return &dto.AssignmentListResponse{TotalCount: len(assignments), Assignments: assignments}, nil
}

func (s *assignmentServiceImpl) attachSubmissions(ctx context.Context, assignments []*models.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(assignments))
	byID := make(map[uuid.UUID]*models.Assignment, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ID)
		byID[a.ID] = a
		a.Submissions = make([]*models.Submission, 0)
	}

	submissions, err := s.submissionRepo.ListByAssignments(ctx, ids)
	if err != nil {
		return err
	}
	for _, sub := range submissions {
		if a, ok := byID[sub.AssignmentID]; ok {
			sub.Assignment = nil
			a.Submissions = append(a.Submissions, sub)
		}
	}
	return nil
}

func (s *assignmentServiceImpl) GetStudentStats(ctx context.Context, caller dto.Caller) (*dto.StudentAssignmentStats, error) {
	available, err := s.assignmentRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.submissionRepo.CountByStatusForStudent(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	mine := counts.Total()
	return &dto.StudentAssignmentStats{
		AvailableAssignments: available,
		MySubmissions:        mine,
		Pending:              counts.Pending,
		Accepted:             counts.Accepted,
		Rejected:             counts.Rejected,
		NotSubmitted:         max(available-mine, 0),
	}, nil
}

func (s *assignmentServiceImpl) GetAvailableForStudent(ctx context.Context, caller dto.Caller) (*dto.AssignmentListResponse, error) {
	assignments, err := s.assignmentRepo.ListAvailableForStudent(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return &dto.AssignmentListResponse{TotalCount: len(assignments), Assignments: assignments}, nil
}
