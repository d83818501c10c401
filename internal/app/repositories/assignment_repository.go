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
	"github.com/yigit/assignhub/internal/pkg/apperrors"
	"github.com/yigit/assignhub/internal/pkg/logger"
)

// IAssignmentRepository defines the interface for assignment database operations
type IAssignmentRepository interface {
	WithTx(tx pgx.Tx) IAssignmentRepository

	Create(ctx context.Context, a *models.Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	Update(ctx context.Context, a *models.Assignment) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ActiveTitleExists reports whether the instructor already has an active
	// assignment with title, ignoring excludeID when it is not nil.
	ActiveTitleExists(ctx context.Context, instructorID uuid.UUID, title string, excludeID *uuid.UUID) (bool, error)

	List(ctx context.Context, instructorID *uuid.UUID) ([]*models.Assignment, error)
	ListRecentByInstructor(ctx context.Context, instructorID uuid.UUID, limit int) ([]*models.Assignment, error)
	ListAvailableForStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Assignment, error)

	CountActive(ctx context.Context) (int, error)
	CountByInstructor(ctx context.Context, instructorID uuid.UUID) (int, error)
}

// AssignmentRepository handles assignment database operations
type AssignmentRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewAssignmentRepository creates a new AssignmentRepository
func NewAssignmentRepository(db DBTX) *AssignmentRepository {
	return &AssignmentRepository{db: db, sb: newBuilder()}
}

// WithTx returns a copy bound to tx
func (r *AssignmentRepository) WithTx(tx pgx.Tx) IAssignmentRepository {
	return &AssignmentRepository{db: tx, sb: r.sb}
}

// selectAssignmentDetails selects an assignment joined with its instructor
// and the number of submissions it has received.
func (r *AssignmentRepository) selectAssignmentDetails() squirrel.SelectBuilder {
	return r.sb.Select(
		"a.id", "a.title", "a.description", "a.deadline", "a.is_active", "a.instructor_id",
		"a.created_at", "a.updated_at",
		"u.id", "u.name", "u.email",
		"(SELECT count(*) FROM submissions s WHERE s.assignment_id = a.id)",
	).From("assignments a").
		Join("users u ON u.id = a.instructor_id")
}

func scanAssignmentDetails(row pgx.Row) (*models.Assignment, error) {
	a := &models.Assignment{Instructor: &models.UserSummary{}}
	var count int
	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.Deadline, &a.IsActive, &a.InstructorID,
		&a.CreatedAt, &a.UpdatedAt,
		&a.Instructor.ID, &a.Instructor.Name, &a.Instructor.Email,
		&count,
	)
	if err != nil {
		return nil, err
	}
	a.SubmissionCount = &count
	return a, nil
}

// Create inserts an assignment and fills in its id and timestamps
func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()

	sql, args, err := r.sb.Insert("assignments").
		Columns("id", "title", "description", "deadline", "is_active", "instructor_id", "created_at", "updated_at").
		Values(a.ID, a.Title, a.Description, a.Deadline, a.IsActive, a.InstructorID, now, now).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create assignment SQL")
		return fmt.Errorf("failed to build create assignment query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		logger.Error().Err(err).Str("title", a.Title).Msg("Error executing create assignment query")
		return fmt.Errorf("error creating assignment: %w", err)
	}
	return nil
}

// GetByID retrieves an assignment with its instructor and submission count
func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	sql, args, err := r.selectAssignmentDetails().Where(idEq("a.id", id)).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get assignment by ID SQL")
		return nil, fmt.Errorf("failed to build get assignment query: %w", err)
	}

	a, err := scanAssignmentDetails(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAssignmentNotFound
		}
		logger.Error().Err(err).Str("assignmentID", id.String()).Msg("Error scanning assignment row")
		return nil, fmt.Errorf("error retrieving assignment: %w", err)
	}
	return a, nil
}

// Update writes the mutable fields back and bumps updated_at
func (r *AssignmentRepository) Update(ctx context.Context, a *models.Assignment) error {
	sql, args, err := r.sb.Update("assignments").
		Set("title", a.Title).
		Set("description", a.Description).
		Set("deadline", a.Deadline).
		Set("is_active", a.IsActive).
		Set("updated_at", time.Now().UTC()).
		Where(idEq("id", a.ID)).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update assignment SQL")
		return fmt.Errorf("failed to build update assignment query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrAssignmentNotFound
		}
		logger.Error().Err(err).Str("assignmentID", a.ID.String()).Msg("Error executing update assignment query")
		return fmt.Errorf("error updating assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment. Its submissions go with it.
func (r *AssignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	sql, args, err := r.sb.Delete("assignments").Where(idEq("id", id)).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building delete assignment SQL")
		return fmt.Errorf("failed to build delete assignment query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("assignmentID", id.String()).Msg("Error executing delete assignment query")
		return fmt.Errorf("error deleting assignment: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrAssignmentNotFound
	}
	return nil
}

func (r *AssignmentRepository) ActiveTitleExists(ctx context.Context, instructorID uuid.UUID, title string, excludeID *uuid.UUID) (bool, error) {
	q := r.sb.Select("1").From("assignments").
		Where(idEq("instructor_id", instructorID)).
		Where(squirrel.Eq{"title": title, "is_active": true})
	if excludeID != nil {
		q = q.Where(squirrel.Expr("id <> ?", *excludeID))
	}

	sql, args, err := q.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build title exists query: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		logger.Error().Err(err).Str("title", title).Msg("Error checking assignment title")
		return false, fmt.Errorf("error checking assignment title: %w", err)
	}
	return exists, nil
}

// List returns assignments newest first, optionally only those of one instructor
func (r *AssignmentRepository) List(ctx context.Context, instructorID *uuid.UUID) ([]*models.Assignment, error) {
	q := r.selectAssignmentDetails().OrderBy("a.created_at DESC")
	if instructorID != nil {
		q = q.Where(idEq("a.instructor_id", *instructorID))
	}
	return r.queryAssignments(ctx, q)
}

// ListRecentByInstructor returns the limit newest assignments of an instructor
func (r *AssignmentRepository) ListRecentByInstructor(ctx context.Context, instructorID uuid.UUID, limit int) ([]*models.Assignment, error) {
	q := r.selectAssignmentDetails().
		Where(idEq("a.instructor_id", instructorID)).
		OrderBy("a.created_at DESC").
		Limit(uint64(limit))
	return r.queryAssignments(ctx, q)
}

// ListAvailableForStudent returns the active assignments the student has not
// submitted to yet, earliest deadline first.
func (r *AssignmentRepository) ListAvailableForStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Assignment, error) {
	q := r.selectAssignmentDetails().
		Where(squirrel.Eq{"a.is_active": true}).
		Where("NOT EXISTS (SELECT 1 FROM submissions s2 WHERE s2.assignment_id = a.id AND s2.student_id = ?)", studentID).
		OrderBy("a.deadline ASC")
	return r.queryAssignments(ctx, q)
}

func (r *AssignmentRepository) CountActive(ctx context.Context) (int, error) {
	return r.count(ctx, squirrel.Eq{"is_active": true})
}

func (r *AssignmentRepository) CountByInstructor(ctx context.Context, instructorID uuid.UUID) (int, error) {
	return r.count(ctx, idEq("instructor_id", instructorID))
}

func (r *AssignmentRepository) count(ctx context.Context, where squirrel.Sqlizer) (int, error) {
	sql, args, err := r.sb.Select("count(*)").From("assignments").Where(where).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building count assignments SQL")
		return 0, fmt.Errorf("failed to build count assignments query: %w", err)
	}

	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		logger.Error().Err(err).Msg("Error executing count assignments query")
		return 0, fmt.Errorf("error counting assignments: %w", err)
	}
	return n, nil
}

func (r *AssignmentRepository) queryAssignments(ctx context.Context, q squirrel.SelectBuilder) ([]*models.Assignment, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list assignments SQL")
		return nil, fmt.Errorf("failed to build list assignments query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list assignments query")
		return nil, fmt.Errorf("error listing assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]*models.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignmentDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning assignment row: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error: %w", err)
	}
	return assignments, nil
}
