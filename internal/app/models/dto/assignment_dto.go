package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/yigit/assignhub/internal/app/models"
)

// CreateAssignmentRequest represents a new assignment posted by an instructor
type CreateAssignmentRequest struct {
	Title        string    `json:"title" binding:"required,min=1,max=200" example:"Database Design Project"`
	Description  string    `json:"description" binding:"required,min=1,max=5000"`
	Deadline     time.Time `json:"deadline" binding:"required" example:"2030-01-05T23:59:59Z"`
	InstructorID uuid.UUID `json:"instructorId" binding:"required" swaggertype:"string" format:"uuid"`
}

// UpdateAssignmentRequest holds the fields an owner may change. Absent fields
// are left untouched.
type UpdateAssignmentRequest struct {
	Title        *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description  *string    `json:"description" binding:"omitempty,min=1,max=5000"`
	Deadline     *time.Time `json:"deadline"`
	IsActive     *bool      `json:"isActive"`
	InstructorID *uuid.UUID `json:"instructorId" swaggertype:"string" format:"uuid"`
}

// AssignmentMutationResponse is returned by create and update
type AssignmentMutationResponse struct {
	Data              *models.Assignment `json:"data"`
	NotificationsSent int                `json:"notificationsSent" example:"10"`
}

// AssignmentListResponse wraps a list of assignments with its size
type AssignmentListResponse struct {
	TotalCount  int                  `json:"totalCount" example:"5"`
	Assignments []*models.Assignment `json:"assignments"`
}

// InstructorAssignmentStats summarises an instructor's assignments
type InstructorAssignmentStats struct {
	TotalAssignments    int `json:"totalAssignments" example:"5"`
	TotalSubmissions    int `json:"totalSubmissions" example:"20"`
	PendingReview       int `json:"pendingReview" example:"4"`
	AcceptedSubmissions int `json:"acceptedSubmissions" example:"12"`
	RejectedSubmissions int `json:"rejectedSubmissions" example:"4"`
	CompletionRate      int `json:"completionRate" example:"60"`
}

// StudentAssignmentStats summarises a student's progress
type StudentAssignmentStats struct {
	AvailableAssignments int `json:"availableAssignments" example:"5"`
	MySubmissions        int `json:"mySubmissions" example:"3"`
	Pending              int `json:"pending" example:"1"`
	Accepted             int `json:"accepted" example:"1"`
	Rejected             int `json:"rejected" example:"1"`
	NotSubmitted         int `json:"notSubmitted" example:"2"`
}
