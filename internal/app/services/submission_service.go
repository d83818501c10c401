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

const recentSubmissionsLimit = 5

// Chart colours used by the dashboard pies
const (
	chartColorPending      = "#fbbf24"
	chartColorAccepted     = "#10b981"
	chartColorRejected     = "#ef4444"
	chartColorNotSubmitted = "#6b7280"
)

// SubmissionService defines the interface for submission operations
type SubmissionService interface {
	CreateSubmission(ctx context.Context, caller dto.Caller, req *dto.CreateSubmissionRequest) (*dto.SubmissionMutationResponse, error)
	GetAllSubmissions(ctx context.Context, filter dto.SubmissionFilter) ([]*models.Submission, error)
	GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	UpdateSubmission(ctx context.Context, caller dto.Caller, id uuid.UUID, req *dto.UpdateSubmissionRequest) (*dto.SubmissionMutationResponse, error)
	DeleteSubmission(ctx context.Context, caller dto.Caller, id uuid.UUID) (*models.Submission, error)
	UpdateSubmissionStatus(ctx context.Context, caller dto.Caller, id uuid.UUID, req *dto.UpdateSubmissionStatusRequest) (*dto.SubmissionMutationResponse, error)
	GiveFeedback(ctx context.Context, caller dto.Caller, id uuid.UUID, req *dto.SubmissionFeedbackRequest) (*dto.SubmissionMutationResponse, error)

	GetInstructorChart(ctx context.Context, caller dto.Caller) ([]dto.ChartSlice, error)
	GetStudentChart(ctx context.Context, caller dto.Caller) ([]dto.ChartSlice, error)
	GetStudentRecent(ctx context.Context, caller dto.Caller) ([]*models.Submission, error)
	GetStudentStats(ctx context.Context, caller dto.Caller) (*dto.SubmissionStats, error)
}

// submissionServiceImpl implements SubmissionService
type submissionServiceImpl struct {
	submissionRepo   repositories.ISubmissionRepository
	assignmentRepo   repositories.IAssignmentRepository
	userRepo         repositories.IUserRepository
	notificationRepo repositories.INotificationRepository
	txm              TxManager
	publisher        NotificationPublisher
	now              Clock
	logger           zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(
	submissionRepo repositories.ISubmissionRepository,
	assignmentRepo repositories.IAssignmentRepository,
	userRepo repositories.IUserRepository,
	notificationRepo repositories.INotificationRepository,
	txm TxManager,
	publisher NotificationPublisher,
	now Clock,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionServiceImpl{
		submissionRepo:   submissionRepo,
		assignmentRepo:   assignmentRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		txm:              txm,
		publisher:        publisherOrNop(publisher),
		now:              defaultClock(now),
		logger:           logger,
	}
}

func submissionNotFound(err error) error {
	if errors.Is(err, apperrors.ErrSubmissionNotFound) {
		return apperrors.NewCustomError(apperrors.ErrSubmissionNotFound, "Submission not found")
	}
	return fmt.Errorf("error loading submission: %w", err)
}

// saveAndNotify updates the submission and stores n in one transaction
func (s *submissionServiceImpl) saveAndNotify(ctx context.Context, sub *models.Submission, n *models.Notification) error {
	return s.txm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.submissionRepo.WithTx(tx).Update(ctx, sub); err != nil {
			return err
		}
		if n == nil {
			return nil
		}
		_, err := s.notificationRepo.WithTx(tx).CreateMany(ctx, []*models.Notification{n})
		return err
	})
}

func (s *submissionServiceImpl) mutationResponse(ctx context.Context, sub *models.Submission, n *models.Notification) *dto.SubmissionMutationResponse {
	sent := 0
	if n != nil {
		s.publisher.Publish(ctx, n)
		sent = 1
	}
	return &dto.SubmissionMutationResponse{Data: sub, NotificationsSent: sent}
}

// CreateSubmission stores a PENDING submission and notifies the
// assignment's instructor in the same transaction.
func (s *submissionServiceImpl) CreateSubmission(ctx context.Context, caller dto.Caller, req *dto.CreateSubmissionRequest) (*dto.SubmissionMutationResponse, error) {
	if req.StudentID != caller.UserID {
		return nil, apperrors.NewForbiddenError("You can only submit on your own behalf")
	}

	assignment, err := s.assignmentRepo.GetByID(ctx, req.AssignmentID)
	if err != nil {
		return nil, assignmentNotFound(err)
	}
	if !assignment.IsActive {
		return nil, apperrors.NewCustomError(apperrors.ErrAssignmentInactive, "Assignment not found or is inactive")
	}
	if assignment.DeadlinePassed(s.now()) {
		return nil, apperrors.NewCustomError(apperrors.ErrAssignmentDeadlinePassed, "Assignment deadline has passed")
	}

	student, err := s.userRepo.GetByID(ctx, req.StudentID)
	if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, fmt.Errorf("error loading student: %w", err)
	}
	if student == nil || !student.IsActiveStudent() {
		return nil, apperrors.NewForbiddenError("Student not found or is inactive")
	}

	exists, err := s.submissionRepo.Exists(ctx, assignment.ID, student.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewCustomError(apperrors.ErrSubmissionExists, "Submission already exists for this assignment")
	}

	sub := &models.Submission{
		AssignmentID:  assignment.ID,
		StudentID:     student.ID,
		SubmissionURL: strings.TrimSpace(req.SubmissionURL),
		Note:          helpers.NilIfBlank(req.Note),
		Status:        models.SubmissionPending,
	}

	var n *models.Notification
	err = s.txm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.submissionRepo.WithTx(tx).Create(ctx, sub); err != nil {
			return err
		}
		n = newSubmissionNotification(sub, assignment.InstructorID, student.Name, assignment.Title)
		_, err := s.notificationRepo.WithTx(tx).CreateMany(ctx, []*models.Notification{n})
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrSubmissionExists) {
			return nil, apperrors.NewCustomError(apperrors.ErrSubmissionExists, "Submission already exists for this assignment")
		}
		s.logger.Error().Err(err).Str("assignmentID", assignment.ID.String()).Msg("Submission creation failed")
		return nil, err
	}

	sub.Assignment = &models.AssignmentRef{
		ID:         assignment.ID,
		Title:      assignment.Title,
		Deadline:   assignment.Deadline,
		Instructor: assignment.Instructor,
	}
	sub.Student = student.Summary()

	s.logger.Info().
		Str("submissionID", sub.ID.String()).
		Str("assignmentID", assignment.ID.String()).
		Str("studentID", student.ID.String()).
		Msg("Submission created")

	return s.mutationResponse(ctx, sub, n), nil
}

func (s *submissionServiceImpl) GetAllSubmissions(ctx context.Context, filter dto.SubmissionFilter) ([]*models.Submission, error) {
	return s.submissionRepo.List(ctx, filter)
}

func (s *submissionServiceImpl) GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	sub, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, submissionNotFound(err)
	}
	return sub, nil
}

// UpdateSubmission lets the owning student edit url and note while the
// submission is pending, and the assignment's instructor set status and
// feedback.
func (s *submissionServiceImpl) UpdateSubmission(ctx context.Context, caller dto.Caller, id uuid.UUID, req *dto.UpdateSubmissionRequest) (*dto.SubmissionMutationResponse, error) {
	existing, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, submissionNotFound(err)
	}

	isOwner := existing.StudentID == caller.UserID
	isInstructor := existing.Assignment != nil && existing.Assignment.Instructor != nil &&
		existing.Assignment.Instructor.ID == caller.UserID
	if !isOwner && !isInstructor {
		return nil, apperrors.NewForbiddenError("You do not have permission to update this submission")
	}

	updated := *existing
	changed := false
	var n *models.Notification

	switch {
	case isOwner && caller.Role == models.RoleStudent:
		if req.Status != nil || req.Feedback != nil {
			return nil, apperrors.NewBadRequestError("Students cannot update status or feedback")
		}
		if existing.Status != models.SubmissionPending {
			return nil, apperrors.NewBadRequestError("Cannot update submission after it has been graded")
		}
		if existing.Assignment.Deadline.Before(s.now()) {
			return nil, apperrors.NewCustomError(apperrors.ErrAssignmentDeadlinePassed, "Cannot update submission after deadline")
		}

		if url := helpers.TrimPtr(req.SubmissionURL); url != nil && *url != "" {
			updated.SubmissionURL = *url
			changed = true
		}
		if req.Note != nil {
			updated.Note = req.Note
			changed = true
		}
		if changed {
			n = submissionUpdatedNotification(&updated, existing.Assignment.Instructor.ID,
				studentName(existing), existing.Assignment.Title)
		}

	case isInstructor && caller.Role == models.RoleInstructor:
		if req.Status != nil {
			updated.Status = *req.Status
			changed = true
		}
		if req.Feedback != nil {
			updated.Feedback = req.Feedback
			changed = true
		}
		switch {
		case req.Status != nil && *req.Status != models.SubmissionPending:
			n = gradedNotification(&updated, existing.Assignment.Title)
		case req.Feedback != nil && *req.Feedback != "":
			n = feedbackNotification(&updated, existing.Assignment.Title)
		}
	}

	if !changed {
		return nil, apperrors.NewBadRequestError("No valid fields provided for update")
	}

	if err := s.saveAndNotify(ctx, &updated, n); err != nil {
		s.logger.Error().Err(err).Str("submissionID", id.String()).Msg("Submission update failed")
		return nil, submissionNotFound(err)
	}

	s.logger.Info().Str("submissionID", id.String()).Str("status", string(updated.Status)).Msg("Submission updated")
	return s.mutationResponse(ctx, &updated, n), nil
}

// DeleteSubmission removes a submission owned by the caller
func (s *submissionServiceImpl) DeleteSubmission(ctx context.Context, caller dto.Caller, id uuid.UUID) (*models.Submission, error) {
	existing, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, submissionNotFound(err)
	}
	if existing.StudentID != caller.UserID {
		return nil, apperrors.NewForbiddenError("You can only delete your own submissions")
	}

	if err := s.submissionRepo.Delete(ctx, id); err != nil {
		return nil, submissionNotFound(err)
	}

	s.logger.Info().Str("submissionID", id.String()).Str("studentID", caller.UserID.String()).Msg("Submission deleted")
	return existing, nil
}

// UpdateSubmissionStatus grades a submission on one of the caller's
// assignments and tells the student.
func (s *submissionServiceImpl) UpdateSubmissionStatus(ctx context.Context, caller dto.Caller, id uuid.UUID, req *dto.UpdateSubmissionStatusRequest) (*dto.SubmissionMutationResponse, error) {
	status := models.SubmissionStatus(strings.TrimSpace(req.NewStatus))
	if !status.IsValid() {
		return nil, apperrors.NewCustomError(apperrors.ErrValidationFailed, "Status must be PENDING, ACCEPTED or REJECTED")
	}

	instructor, err := s.userRepo.GetByID(ctx, caller.UserID)
	if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, fmt.Errorf("error loading instructor: %w", err)
	}
	if instructor == nil || !instructor.IsActiveInstructor() {
		return nil, apperrors.NewForbiddenError("Only active instructors can update submission status")
	}

	existing, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, submissionNotFound(err)
	}
	if existing.Assignment == nil || existing.Assignment.Instructor == nil || existing.Assignment.Instructor.ID != instructor.ID {
		return nil, apperrors.NewForbiddenError("You can only update submissions for your own assignments")
	}
	if existing.Status == status {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("Submission is already %s", strings.ToLower(string(status))))
	}

	updated := *existing
	updated.Status = status
	if fb := helpers.TrimPtr(req.Feedback); fb != nil && *fb != "" {
		updated.Feedback = fb
	}

	n := statusChangeNotification(&updated, existing.Assignment.Title)
	if err := s.saveAndNotify(ctx, &updated, n); err != nil {
		s.logger.Error().Err(err).Str("submissionID", id.String()).Msg("Submission status update failed")
		return nil, submissionNotFound(err)
	}

	s.logger.Info().
		Str("submissionID", id.String()).
		Str("from", string(existing.Status)).
		Str("to", string(status)).
		Msg("Submission status updated")
	return s.mutationResponse(ctx, &updated, n), nil
}

// GiveFeedback attaches feedback to a submission on one of the caller's
// assignments without touching its status.
func (s *submissionServiceImpl) GiveFeedback(ctx context.Context, caller dto.Caller, id uuid.UUID, req *dto.SubmissionFeedbackRequest) (*dto.SubmissionMutationResponse, error) {
	unauthorized := apperrors.NewCustomError(apperrors.ErrSubmissionNotFound, "Submission not found or unauthorized")

	existing, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrSubmissionNotFound) {
			return nil, unauthorized
		}
		return nil, submissionNotFound(err)
	}
	if existing.Assignment == nil || existing.Assignment.Instructor == nil || existing.Assignment.Instructor.ID != caller.UserID {
		return nil, unauthorized
	}

	updated := *existing
	feedback := strings.TrimSpace(req.Feedback)
	updated.Feedback = &feedback

	n := reviewFeedbackNotification(&updated, existing.Assignment.Title)
	if err := s.saveAndNotify(ctx, &updated, n); err != nil {
		s.logger.Error().Err(err).Str("submissionID", id.String()).Msg("Submission feedback failed")
		return nil, submissionNotFound(err)
	}

	s.logger.Info().Str("submissionID", id.String()).Msg("Submission feedback added")
	return s.mutationResponse(ctx, &updated, n), nil
}

func statusSlices(c models.SubmissionStatusCounts) []dto.ChartSlice {
	return []dto.ChartSlice{
		{Name: "Pending", Value: c.Pending, Color: chartColorPending},
		{Name: "Accepted", Value: c.Accepted, Color: chartColorAccepted},
		{Name: "Rejected", Value: c.Rejected, Color: chartColorRejected},
	}
}

func (s *submissionServiceImpl) GetInstructorChart(ctx context.Context, caller dto.Caller) ([]dto.ChartSlice, error) {
	counts, err := s.submissionRepo.CountByStatusForInstructor(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return statusSlices(counts), nil
}

func (s *submissionServiceImpl) GetStudentChart(ctx context.Context, caller dto.Caller) ([]dto.ChartSlice, error) {
	counts, err := s.submissionRepo.CountByStatusForStudent(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	active, err := s.assignmentRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	return append(statusSlices(counts), dto.ChartSlice{
		Name:  "Not Submitted",
		Value: max(active-counts.Total(), 0),
		Color: chartColorNotSubmitted,
	}), nil
}

func (s *submissionServiceImpl) GetStudentRecent(ctx context.Context, caller dto.Caller) ([]*models.Submission, error) {
	return s.submissionRepo.ListRecentByStudent(ctx, caller.UserID, recentSubmissionsLimit)
}

// GetStudentStats summarises the caller's submissions. averageResponseTime
// is the share of submissions that have been reviewed.
func (s *submissionServiceImpl) GetStudentStats(ctx context.Context, caller dto.Caller) (*dto.SubmissionStats, error) {
	counts, err := s.submissionRepo.CountByStatusForStudent(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	late, err := s.submissionRepo.CountLateByStudent(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	total := counts.Total()
	reviewed := counts.Accepted + counts.Rejected
	return &dto.SubmissionStats{
		TotalSubmissions:    total,
		PendingReview:       counts.Pending,
		Accepted:            counts.Accepted,
		Rejected:            counts.Rejected,
		LateSubmissions:     late,
		OnTimeSubmissions:   total - late,
		AcceptanceRate:      helpers.Percent(counts.Accepted, reviewed),
		AverageResponseTime: helpers.Percent(reviewed, total),
	}, nil
}

func studentName(s *models.Submission) string {
	if s.Student != nil {
		return s.Student.Name
	}
	return "A student"
}
