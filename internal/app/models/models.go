package models

// RoleType defines the user role type
type RoleType string

const (
	RoleStudent    RoleType = "STUDENT"
	RoleInstructor RoleType = "INSTRUCTOR"
)

// IsValid reports whether r is a known role
func (r RoleType) IsValid() bool {
	return r == RoleStudent || r == RoleInstructor
}

// UserStatus defines the account status of a user
type UserStatus string

const (
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusBlocked UserStatus = "BLOCKED"
	UserStatusDeleted UserStatus = "DELETED"
)

// IsValid reports whether s is a known status
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusBlocked, UserStatusDeleted:
		return true
	}
	return false
}

// SubmissionStatus is the grading state of a submission
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "PENDING"
	SubmissionAccepted SubmissionStatus = "ACCEPTED"
	SubmissionRejected SubmissionStatus = "REJECTED"
)

// IsValid reports whether s is a known submission status
func (s SubmissionStatus) IsValid() bool {
	switch s {
	case SubmissionPending, SubmissionAccepted, SubmissionRejected:
		return true
	}
	return false
}

// NotificationType classifies notifications by the event that produced them
type NotificationType string

const (
	NotificationNewAssignment      NotificationType = "NEW_ASSIGNMENT"
	NotificationAssignmentUpdated  NotificationType = "ASSIGNMENT_UPDATED"
	NotificationAssignmentDeleted  NotificationType = "ASSIGNMENT_DELETED"
	NotificationNewSubmission      NotificationType = "NEW_SUBMISSION"
	NotificationAssignmentGraded   NotificationType = "ASSIGNMENT_GRADED"
	NotificationAssignmentFeedback NotificationType = "ASSIGNMENT_FEEDBACK"
	NotificationDeadlineReminder   NotificationType = "DEADLINE_REMINDER"
)

// IsValid reports whether t is a known notification type
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationNewAssignment, NotificationAssignmentUpdated, NotificationAssignmentDeleted,
		NotificationNewSubmission, NotificationAssignmentGraded, NotificationAssignmentFeedback,
		NotificationDeadlineReminder:
		return true
	}
	return false
}
