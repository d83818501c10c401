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
	"github.com/yigit/assignhub/internal/pkg/dberrors"
	"github.com/yigit/assignhub/internal/pkg/logger"
)

const submissionPairConstraint = "submissions_assignment_student_key"

// ISubmissionRepository defines the interface for submission database operations
type ISubmissionRepository interface {
	WithTx(tx pgx.Tx) ISubmissionRepository

	Create(ctx context.Context, s *models.Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	Update(ctx context.Context, s *models.Submission) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByAssignment(ctx context.Context, assignmentID uuid.UUID) (int64, error)
	Exists(ctx context.Context, assignmentID, studentID uuid.UUID) (bool, error)

	List(ctx context.Context, filter dto.SubmissionFilter) ([]*models.Submission, error)
	ListByAssignments(ctx context.Context, assignmentIDs []uuid.UUID) ([]*models.Submission, error)
	ListRecentByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*models.Submission, error)

	CountByStatusForInstructor(ctx context.Context, instructorID uuid.UUID) (models.SubmissionStatusCounts, error)
	CountByStatusForStudent(ctx context.Context, studentID uuid.UUID) (models.SubmissionStatusCounts, error)
	CountLateByStudent(ctx context.Context, studentID uuid.UUID) (int, error)
}

// SubmissionRepository handles submission database operations
type SubmissionRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewSubmissionRepository creates a new SubmissionRepository
func NewSubmissionRepository(db DBTX) *SubmissionRepository {
	return &SubmissionRepository{db: db, sb: newBuilder()}
}

// WithTx returns a copy bound to tx
func (r *SubmissionRepository) WithTx(tx pgx.Tx) ISubmissionRepository {
	return &SubmissionRepository{db: tx, sb: r.sb}
}

// selectSubmissionDetails joins a submission with its assignment, the
// assignment's instructor and the submitting student.
func (r *SubmissionRepository) selectSubmissionDetails() squirrel.SelectBuilder {
	return r.sb.Select(
		"s.id", "s.assignment_id", "s.student_id", "s.submission_url", "s.note", "s.status", "s.feedback",
		"s.submitted_at", "s.created_at", "s.updated_at",
		"a.id", "a.title", "a.deadline",
		"i.id", "i.name", "i.email",
		"st.id", "st.name", "st.email",
	).From("submissions s").
		Join("assignments a ON a.id = s.assignment_id").
		Join("users i ON i.id = a.instructor_id").
		Join("users st ON st.id = s.student_id")
}

func scanSubmissionDetails(row pgx.Row) (*models.Submission, error) {
	s := &models.Submission{
		Assignment: &models.AssignmentRef{Instructor: &models.UserSummary{}},
		Student:    &models.UserSummary{},
	}
	err := row.Scan(
		&s.ID, &s.AssignmentID, &s.StudentID, &s.SubmissionURL, &s.Note, &s.Status, &s.Feedback,
		&s.SubmittedAt, &s.CreatedAt, &s.UpdatedAt,
		&s.Assignment.ID, &s.Assignment.Title, &s.Assignment.Deadline,
		&s.Assignment.Instructor.ID, &s.Assignment.Instructor.Name, &s.Assignment.Instructor.Email,
		&s.Student.ID, &s.Student.Name, &s.Student.Email,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a submission. A second submission for the same assignment
// and student yields apperrors.ErrSubmissionExists.
func (r *SubmissionRepository) Create(ctx context.Context, s *models.Submission) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = models.SubmissionPending
	}
	now := time.Now().UTC()
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = now
	}

	sql, args, err := r.sb.Insert("submissions").
		Columns("id", "assignment_id", "student_id", "submission_url", "note", "status", "feedback",
			"submitted_at", "created_at", "updated_at").
		Values(s.ID, s.AssignmentID, s.StudentID, s.SubmissionURL, s.Note, s.Status, s.Feedback,
			s.SubmittedAt, now, now).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create submission SQL")
		return fmt.Errorf("failed to build create submission query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, submissionPairConstraint) {
			return apperrors.ErrSubmissionExists
		}
		logger.Error().Err(err).
			Str("assignmentID", s.AssignmentID.String()).
			Str("studentID", s.StudentID.String()).
			Msg("Error executing create submission query")
		return fmt.Errorf("error creating submission: %w", err)
	}
	return nil
}

// GetByID retrieves a submission with its assignment and student
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	sql, args, err := r.selectSubmissionDetails().Where(idEq("s.id", id)).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get submission by ID SQL")
		return nil, fmt.Errorf("failed to build get submission query: %w", err)
	}

	s, err := scanSubmissionDetails(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSubmissionNotFound
		}
		logger.Error().Err(err).Str("submissionID", id.String()).Msg("Error scanning submission row")
		return nil, fmt.Errorf("error retrieving submission: %w", err)
	}
	return s, nil
}

// Update writes url, note, status and feedback back and bumps updated_at
func (r *SubmissionRepository) Update(ctx context.Context, s *models.Submission) error {
	sql, args, err := r.sb.Update("submissions").
		Set("submission_url", s.SubmissionURL).
		Set("note", s.Note).
		Set("status", s.Status).
		Set("feedback", s.Feedback).
		Set("updated_at", time.Now().UTC()).
		Where(idEq("id", s.ID)).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update submission SQL")
		return fmt.Errorf("failed to build update submission query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrSubmissionNotFound
		}
		logger.Error().Err(err).Str("submissionID", s.ID.String()).Msg("Error executing update submission query")
		return fmt.Errorf("error updating submission: %w", err)
	}
	return nil
}

// Delete removes a single submission
func (r *SubmissionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	sql, args, err := r.sb.Delete("submissions").Where(idEq("id", id)).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building delete submission SQL")
		return fmt.Errorf("failed to build delete submission query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("submissionID", id.String()).Msg("Error executing delete submission query")
		return fmt.Errorf("error deleting submission: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrSubmissionNotFound
	}
	return nil
}

// DeleteByAssignment removes every submission of an assignment and returns
// how many went.
func (r *SubmissionRepository) DeleteByAssignment(ctx context.Context, assignmentID uuid.UUID) (int64, error) {
	sql, args, err := r.sb.Delete("submissions").Where(idEq("assignment_id", assignmentID)).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building delete submissions by assignment SQL")
		return 0, fmt.Errorf("failed to build delete submissions query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("assignmentID", assignmentID.String()).Msg("Error executing delete submissions query")
		return 0, fmt.Errorf("error deleting submissions: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

func (r *SubmissionRepository) Exists(ctx context.Context, assignmentID, studentID uuid.UUID) (bool, error) {
	sql, args, err := r.sb.Select("1").From("submissions").
		Where(idEq("assignment_id", assignmentID)).
		Where(idEq("student_id", studentID)).
		Prefix("SELECT EXISTS (").Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build submission exists query: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		logger.Error().Err(err).Msg("Error checking submission existence")
		return false, fmt.Errorf("error checking submission: %w", err)
	}
	return exists, nil
}

// List returns submissions newest first, narrowed by filter
func (r *SubmissionRepository) List(ctx context.Context, filter dto.SubmissionFilter) ([]*models.Submission, error) {
	q := r.selectSubmissionDetails().OrderBy("s.created_at DESC")
	if filter.AssignmentID != nil {
		q = q.Where(idEq("s.assignment_id", *filter.AssignmentID))
	}
	if filter.StudentID != nil {
		q = q.Where(idEq("s.student_id", *filter.StudentID))
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"s.status": filter.Status})
	}
	return r.querySubmissions(ctx, q)
}

// ListByAssignments returns the submissions of several assignments at once
func (r *SubmissionRepository) ListByAssignments(ctx context.Context, assignmentIDs []uuid.UUID) ([]*models.Submission, error) {
	if len(assignmentIDs) == 0 {
		return []*models.Submission{}, nil
	}
	q := r.selectSubmissionDetails().
		Where("s.assignment_id = ANY(?)", assignmentIDs).
		OrderBy("s.submitted_at DESC")
	return r.querySubmissions(ctx, q)
}

// ListRecentByStudent returns the student's latest submissions by submission time
func (r *SubmissionRepository) ListRecentByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*models.Submission, error) {
	q := r.selectSubmissionDetails().
		Where(idEq("s.student_id", studentID)).
		OrderBy("s.submitted_at DESC").
		Limit(uint64(limit))
	return r.querySubmissions(ctx, q)
}

// CountByStatusForInstructor counts the submissions made to the instructor's assignments
func (r *SubmissionRepository) CountByStatusForInstructor(ctx context.Context, instructorID uuid.UUID) (models.SubmissionStatusCounts, error) {
	q := r.sb.Select("s.status", "count(*)").From("submissions s").
		Join("assignments a ON a.id = s.assignment_id").
		Where(idEq("a.instructor_id", instructorID)).
		GroupBy("s.status")
	return r.countByStatus(ctx, q)
}

// CountByStatusForStudent counts the student's own submissions
func (r *SubmissionRepository) CountByStatusForStudent(ctx context.Context, studentID uuid.UUID) (models.SubmissionStatusCounts, error) {
	q := r.sb.Select("s.status", "count(*)").From("submissions s").
		Where(idEq("s.student_id", studentID)).
		GroupBy("s.status")
	return r.countByStatus(ctx, q)
}

// CountLateByStudent counts the student's submissions made after the deadline
func (r *SubmissionRepository) CountLateByStudent(ctx context.Context, studentID uuid.UUID) (int, error) {
	sql, args, err := r.sb.Select("count(*)").From("submissions s").
		Join("assignments a ON a.id = s.assignment_id").
		Where(idEq("s.student_id", studentID)).
		Where("s.submitted_at > a.deadline").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building count late submissions SQL")
		return 0, fmt.Errorf("failed to build count late submissions query: %w", err)
	}

	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		logger.Error().Err(err).Msg("Error executing count late submissions query")
		return 0, fmt.Errorf("error counting late submissions: %w", err)
	}
	return n, nil
}

func (r *SubmissionRepository) countByStatus(ctx context.Context, q squirrel.SelectBuilder) (models.SubmissionStatusCounts, error) {
	var counts models.SubmissionStatusCounts

	sql, args, err := q.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building count submissions by status SQL")
		return counts, fmt.Errorf("failed to build count by status query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing count submissions by status query")
		return counts, fmt.Errorf("error counting submissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.SubmissionStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, fmt.Errorf("error scanning status count: %w", err)
		}
		switch status {
		case models.SubmissionPending:
			counts.Pending = n
		case models.SubmissionAccepted:
			counts.Accepted = n
		case models.SubmissionRejected:
			counts.Rejected = n
		}
	}
	return counts, rows.Err()
}

func (r *SubmissionRepository) querySubmissions(ctx context.Context, q squirrel.SelectBuilder) ([]*models.Submission, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list submissions SQL")
		return nil, fmt.Errorf("failed to build list submissions query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list submissions query")
		return nil, fmt.Errorf("error listing submissions: %w", err)
	}
	defer rows.Close()

	submissions := make([]*models.Submission, 0)
	for rows.Next() {
		s, err := scanSubmissionDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning submission row: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error: %w", err)
	}
	return submissions, nil
}
