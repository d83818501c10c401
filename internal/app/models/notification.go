package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is addressed to exactly one user and may reference an
// assignment and/or a submission.
type Notification struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	UserID       uuid.UUID        `json:"userId" db:"user_id"`
	Title        string           `json:"title" db:"title"`
	Message      string           `json:"message" db:"message"`
	Type         NotificationType `json:"type" db:"type" example:"NEW_ASSIGNMENT"`
	IsRead       bool             `json:"isRead" db:"is_read"`
	AssignmentID *uuid.UUID       `json:"assignmentId,omitempty" db:"assignment_id"`
	SubmissionID *uuid.UUID       `json:"submissionId,omitempty" db:"submission_id"`
	CreatedAt    time.Time        `json:"createdAt" db:"created_at"`

	Assignment *AssignmentRef `json:"assignment,omitempty"`
	Submission *SubmissionRef `json:"submission,omitempty"`
}

// RefreshToken is an opaque, revocable token used to mint access tokens
type RefreshToken struct {
	Token      string    `db:"token"`
	UserID     uuid.UUID `db:"user_id"`
	ExpiryDate time.Time `db:"expiry_date"`
	IsRevoked  bool      `db:"is_revoked"`
	CreatedAt  time.Time `db:"created_at"`
}
