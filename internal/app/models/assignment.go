package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment is a piece of work posted by one instructor
type Assignment struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Title        string    `json:"title" db:"title" example:"React Components Assignment"`
	Description  string    `json:"description" db:"description"`
	Deadline     time.Time `json:"deadline" db:"deadline"`
	IsActive     bool      `json:"isActive" db:"is_active"`
	InstructorID uuid.UUID `json:"instructorId" db:"instructor_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`

	Instructor      *UserSummary  `json:"instructor,omitempty"`
	Submissions     []*Submission `json:"submissions,omitempty"`
	SubmissionCount *int          `json:"submissionCount,omitempty"`
}

// DeadlinePassed reports whether the deadline is before now
func (a *Assignment) DeadlinePassed(now time.Time) bool {
	return a.Deadline.Before(now)
}

// AssignmentRef is the short assignment projection embedded in submissions
// and notifications.
type AssignmentRef struct {
	ID         uuid.UUID    `json:"id"`
	Title      string       `json:"title"`
	Deadline   time.Time    `json:"deadline"`
	Instructor *UserSummary `json:"instructor,omitempty"`
}
