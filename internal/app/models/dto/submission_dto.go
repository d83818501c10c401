package dto

import (
	"github.com/google/uuid"
	"github.com/yigit/assignhub/internal/app/models"
)

// CreateSubmissionRequest represents a student's submission
type CreateSubmissionRequest struct {
	AssignmentID  uuid.UUID `json:"assignmentId" binding:"required" swaggertype:"string" format:"uuid"`
	StudentID     uuid.UUID `json:"studentId" binding:"required" swaggertype:"string" format:"uuid"`
	SubmissionURL string    `json:"submissionUrl" binding:"required,url" example:"https://github.com/alice/db-design"`
	Note          *string   `json:"note"`
}

// UpdateSubmissionRequest is shared by students (url, note) and
// instructors (status, feedback).
type UpdateSubmissionRequest struct {
	SubmissionURL *string                  `json:"submissionUrl" binding:"omitempty,url"`
	Note          *string                  `json:"note" binding:"omitempty,max=1000"`
	Status        *models.SubmissionStatus `json:"status" binding:"omitempty,oneof=PENDING ACCEPTED REJECTED"`
	Feedback      *string                  `json:"feedback" binding:"omitempty,max=2000"`
}

// UpdateSubmissionStatusRequest is used by the owning instructor to grade
type UpdateSubmissionStatusRequest struct {
	NewStatus string  `json:"newStatus" binding:"required,min=1,max=100" example:"ACCEPTED"`
	Feedback  *string `json:"feedback" binding:"omitempty,min=1,max=2000"`
}

// SubmissionFeedbackRequest attaches feedback without changing status
type SubmissionFeedbackRequest struct {
	Feedback string `json:"feedback" binding:"required,min=1,max=2000"`
}

// SubmissionFilter narrows a submission listing
type SubmissionFilter struct {
	AssignmentID *uuid.UUID              `form:"-"`
	StudentID    *uuid.UUID              `form:"-"`
	Status       models.SubmissionStatus `form:"status" binding:"omitempty,oneof=PENDING ACCEPTED REJECTED"`
}

// SubmissionMutationResponse is returned by create and the update variants
type SubmissionMutationResponse struct {
	Data              *models.Submission `json:"data"`
	NotificationsSent int                `json:"notificationsSent" example:"1"`
}

// ChartSlice is one slice of a dashboard pie chart
type ChartSlice struct {
	Name  string `json:"name" example:"Pending"`
	Value int    `json:"value" example:"3"`
	Color string `json:"color" example:"#fbbf24"`
}

// SubmissionStats summarises the caller's own submissions
type SubmissionStats struct {
	TotalSubmissions    int `json:"totalSubmissions" example:"4"`
	PendingReview       int `json:"pendingReview" example:"1"`
	Accepted            int `json:"accepted" example:"2"`
	Rejected            int `json:"rejected" example:"1"`
	LateSubmissions     int `json:"lateSubmissions" example:"0"`
	OnTimeSubmissions   int `json:"onTimeSubmissions" example:"4"`
	AcceptanceRate      int `json:"acceptanceRate" example:"67"`
	AverageResponseTime int `json:"averageResponseTime" example:"75"`
}
