package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	appModels "github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/app/models/dto"
	appRepos "github.com/yigit/assignhub/internal/app/repositories"
	"github.com/yigit/assignhub/internal/pkg/apperrors"
	"github.com/yigit/assignhub/internal/pkg/auth"
)

// DefaultPassword is the password of every seeded account
const DefaultPassword = "12345678"

type seedUser struct {
	name  string
	email string
	role  appModels.RoleType
}

type seedAssignment struct {
	title       string
	description string
	dueIn       time.Duration
}

type seedSubmission struct {
	url      string
	note     string
	status   appModels.SubmissionStatus
	feedback string
}

var superAdmin = seedUser{"Super Admin", "superadmin@assignment-system.com", appModels.RoleInstructor}

var instructors = []seedUser{
	{"Dr. John Smith", "john.smith@university.edu", appModels.RoleInstructor},
	{"Prof. Sarah Johnson", "sarah.johnson@university.edu", appModels.RoleInstructor},
	{"Dr. Michael Brown", "michael.brown@university.edu", appModels.RoleInstructor},
	{"Prof. Emily Davis", "emily.davis@university.edu", appModels.RoleInstructor},
	{"Dr. Robert Wilson", "robert.wilson@university.edu", appModels.RoleInstructor},
}

var students = []seedUser{
	{"Alice Cooper", "alice.cooper@student.edu", appModels.RoleStudent},
	{"Bob Martinez", "bob.martinez@student.edu", appModels.RoleStudent},
	{"Carol Thompson", "carol.thompson@student.edu", appModels.RoleStudent},
	{"David Lee", "david.lee@student.edu", appModels.RoleStudent},
	{"Emma Garcia", "emma.garcia@student.edu", appModels.RoleStudent},
	{"Frank Miller", "frank.miller@student.edu", appModels.RoleStudent},
	{"Grace Chen", "grace.chen@student.edu", appModels.RoleStudent},
	{"Henry Rodriguez", "henry.rodriguez@student.edu", appModels.RoleStudent},
	{"Isabel Kim", "isabel.kim@student.edu", appModels.RoleStudent},
	{"Jack Taylor", "jack.taylor@student.edu", appModels.RoleStudent},
}

const day = 24 * time.Hour

// Deadlines are relative to the seeding time so the sample data stays open
var assignments = []seedAssignment{
	{
		"Introduction to React Components",
		"Create a simple React application with at least 3 functional components. Include state management using useState and props passing between components. Submit your code via GitHub repository link.",
		14 * day,
	},
	{
		"Database Design Project",
		"Design a normalized database schema for an e-commerce platform. Include at least 5 related tables, proper relationships, and constraints. Submit your ERD and SQL schema file.",
		19 * day,
	},
	{
		"API Development with Node.js",
		"Build a RESTful API using Node.js and Express. Include CRUD operations, input validation, error handling, and proper HTTP status codes. Document your API endpoints.",
		24 * day,
	},
	{
		"Data Structures and Algorithms",
		"Implement and analyze the time complexity of binary search tree operations. Include insertion, deletion, search, and traversal methods with detailed comments.",
		35 * day,
	},
	{
		"Web Security Assessment",
		"Conduct a security audit of a provided web application. Identify vulnerabilities, provide detailed reports, and suggest remediation strategies.",
		40 * day,
	},
}

var submissions = []seedSubmission{
	{
		"https://github.com/alice-cooper/react-components-project",
		"Completed all requirements. Added extra styling with CSS modules.",
		appModels.SubmissionAccepted,
		"Excellent work! Clean code structure and good use of React hooks.",
	},
	{
		"https://github.com/bob-martinez/ecommerce-database",
		"Database schema with sample data included.",
		appModels.SubmissionPending,
		"",
	},
	{
		"https://github.com/carol-thompson/nodejs-api",
		"API includes authentication middleware and comprehensive testing.",
		appModels.SubmissionAccepted,
		"Great implementation of best practices. Well documented.",
	},
	{
		"https://github.com/david-lee/binary-search-tree",
		"Implemented with TypeScript for better type safety.",
		appModels.SubmissionRejected,
		"Missing deletion method implementation. Please complete and resubmit.",
	},
}

var notifications = []appModels.Notification{
	{
		Title:   "New Assignment Posted",
		Message: "A new assignment has been posted. Check your dashboard for details.",
		Type:    appModels.NotificationNewAssignment,
	},
	{
		Title:   "Assignment Deadline Reminder",
		Message: "Don't forget! Your assignment is due in 2 days.",
		Type:    appModels.NotificationDeadlineReminder,
	},
	{
		Title:   "Assignment Graded",
		Message: "Your submission has been graded. Check your feedback.",
		Type:    appModels.NotificationAssignmentGraded,
		IsRead:  true,
	},
}

type seeder struct {
	users         appRepos.IUserRepository
	assignments   appRepos.IAssignmentRepository
	submissions   appRepos.ISubmissionRepository
	notifications appRepos.INotificationRepository
	passwordHash  string
	lgr           zerolog.Logger
}

// CreateDefaultData creates the sample accounts, assignments, submissions and
// notifications. Rows that already exist are left alone, so it can run on every start.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	hash, err := auth.HashPassword(DefaultPassword)
	if err != nil {
		return fmt.Errorf("failed to hash default password: %w", err)
	}

	s := &seeder{
		users:         appRepos.NewUserRepository(dbPool),
		assignments:   appRepos.NewAssignmentRepository(dbPool),
		submissions:   appRepos.NewSubmissionRepository(dbPool),
		notifications: appRepos.NewNotificationRepository(dbPool),
		passwordHash:  hash,
		lgr:           lgr,
	}

	lgr.Info().Msg("Checking/Creating default data...")
	var finalErr error // collects errors without stopping the process

	if _, err := s.ensureUser(ctx, superAdmin); err != nil {
		finalErr = errors.Join(finalErr, err)
	}

	instructorIDs, err := s.ensureUsers(ctx, instructors)
	finalErr = errors.Join(finalErr, err)

	studentIDs, err := s.ensureUsers(ctx, students)
	finalErr = errors.Join(finalErr, err)

	var assignmentIDs []uuid.UUID
	if len(instructorIDs) > 0 {
		assignmentIDs, err = s.ensureAssignments(ctx, instructorIDs)
		finalErr = errors.Join(finalErr, err)
	} else {
		lgr.Warn().Msg("No instructors available, skipping sample assignments")
	}

	var submissionIDs []uuid.UUID
	if len(assignmentIDs) > 0 && len(studentIDs) > 0 {
		submissionIDs, err = s.ensureSubmissions(ctx, assignmentIDs, studentIDs)
		finalErr = errors.Join(finalErr, err)
	}

	if len(studentIDs) > 0 {
		finalErr = errors.Join(finalErr, s.ensureNotifications(ctx, studentIDs, assignmentIDs, submissionIDs))
	}

	if finalErr == nil {
		lgr.Info().Msg("Default data is in place.")
	}
	return finalErr
}

func (s *seeder) ensureUser(ctx context.Context, u seedUser) (uuid.UUID, error) {
	existing, err := s.users.GetByEmail(ctx, u.email)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		s.lgr.Error().Err(err).Str("email", u.email).Msg("Error looking up seed user")
		return uuid.Nil, err
	}

	user := &appModels.User{
		Name:     u.name,
		Email:    u.email,
		Password: s.passwordHash,
		Role:     u.role,
		Status:   appModels.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.lgr.Error().Err(err).Str("email", u.email).Msg("Error creating seed user")
		return uuid.Nil, err
	}
	s.lgr.Debug().Str("email", u.email).Str("role", string(u.role)).Msg("Seed user created")
	return user.ID, nil
}

func (s *seeder) ensureUsers(ctx context.Context, list []seedUser) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	var errs error
	for _, u := range list {
		id, err := s.ensureUser(ctx, u)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		ids = append(ids, id)
	}
	return ids, errs
}

// ensureAssignments gives the sample assignments to the instructors round-robin
func (s *seeder) ensureAssignments(ctx context.Context, instructorIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	var errs error
	now := time.Now().UTC()

	for i, sa := range assignments {
		instructorID := instructorIDs[i%len(instructorIDs)]

		existingID, err := s.findAssignment(ctx, instructorID, sa.title)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		if existingID != uuid.Nil {
			ids = append(ids, existingID)
			continue
		}

		a := &appModels.Assignment{
			Title:        sa.title,
			Description:  sa.description,
			Deadline:     now.Add(sa.dueIn),
			IsActive:     true,
			InstructorID: instructorID,
		}
		if err := s.assignments.Create(ctx, a); err != nil {
			s.lgr.Error().Err(err).Str("title", sa.title).Msg("Error creating seed assignment")
			errs = errors.Join(errs, err)
			continue
		}
		ids = append(ids, a.ID)
	}
	return ids, errs
}

func (s *seeder) findAssignment(ctx context.Context, instructorID uuid.UUID, title string) (uuid.UUID, error) {
	list, err := s.assignments.List(ctx, &instructorID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("error listing assignments of %s: %w", instructorID, err)
	}
	for _, a := range list {
		if a.Title == title {
			return a.ID, nil
		}
	}
	return uuid.Nil, nil
}

func (s *seeder) ensureSubmissions(ctx context.Context, assignmentIDs, studentIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	var errs error

	for i := 0; i < len(submissions) && i < len(assignmentIDs); i++ {
		assignmentID := assignmentIDs[i]
		studentID := studentIDs[i%len(studentIDs)]

		exists, err := s.submissions.Exists(ctx, assignmentID, studentID)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		if exists {
			continue
		}

		ss := submissions[i]
		note := ss.note
		sub := &appModels.Submission{
			AssignmentID:  assignmentID,
			StudentID:     studentID,
			SubmissionURL: ss.url,
			Note:          &note,
			Status:        ss.status,
		}
		if ss.feedback != "" {
			feedback := ss.feedback
			sub.Feedback = &feedback
		}
		if err := s.submissions.Create(ctx, sub); err != nil {
			s.lgr.Error().Err(err).Str("url", ss.url).Msg("Error creating seed submission")
			errs = errors.Join(errs, err)
			continue
		}
		ids = append(ids, sub.ID)
	}
	return ids, errs
}

// ensureNotifications inserts a sample notification unless the student already has one of that type
func (s *seeder) ensureNotifications(ctx context.Context, studentIDs, assignmentIDs, submissionIDs []uuid.UUID) error {
	var batch []*appModels.Notification

	for i, sample := range notifications {
		userID := studentIDs[i%len(studentIDs)]

		count, err := s.notifications.Count(ctx, userID, dto.NotificationFilter{Type: sample.Type})
		if err != nil {
			return fmt.Errorf("error counting notifications: %w", err)
		}
		if count > 0 {
			continue
		}

		n := sample
		n.UserID = userID
		if len(assignmentIDs) > 0 {
			id := assignmentIDs[i%len(assignmentIDs)]
			n.AssignmentID = &id
		}
		if len(submissionIDs) > 0 {
			id := submissionIDs[i%len(submissionIDs)]
			n.SubmissionID = &id
		}
		batch = append(batch, &n)
	}

	if _, err := s.notifications.CreateMany(ctx, batch); err != nil {
		s.lgr.Error().Err(err).Msg("Error creating seed notifications")
		return err
	}
	return nil
}
