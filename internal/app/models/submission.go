package models

import (
	"time"

	"github.com/google/uuid"
)

// Submission is a student's work for one assignment. There is at most one
// per (assignment, student) pair.
type Submission struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	AssignmentID  uuid.UUID        `json:"assignmentId" db:"assignment_id"`
	StudentID     uuid.UUID        `json:"studentId" db:"student_id"`
	SubmissionURL string           `json:"submissionUrl" db:"submission_url" example:"https://github.com/alice/react-components"`
	Note          *string          `json:"note,omitempty" db:"note"`
	Status        SubmissionStatus `json:"status" db:"status" example:"PENDING"`
	Feedback      *string          `json:"feedback,omitempty" db:"feedback"`
	SubmittedAt   time.Time        `json:"submittedAt" db:"submitted_at"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time        `json:"updatedAt" db:"updated_at"`

	Assignment *AssignmentRef `json:"assignment,omitempty"`
	Student    *UserSummary   `json:"student,omitempty"`
}

// SubmissionRef is the short submission projection embedded in notifications
type SubmissionRef struct {
	ID          uuid.UUID        `json:"id"`
	Status      SubmissionStatus `json:"status"`
	SubmittedAt time.Time        `json:"submittedAt"`
}

// SubmissionStatusCounts holds per-status submission totals
type SubmissionStatusCounts struct {
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// Total returns the number of submissions across all statuses
func (c SubmissionStatusCounts) Total() int {
	return c.Pending + c.Accepted + c.Rejected
}
