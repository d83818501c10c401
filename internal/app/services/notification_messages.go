package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/pkg/helpers"
)

func notificationFor(userID uuid.UUID, typ models.NotificationType, title, message string) *models.Notification {
	return &models.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
	}
}

func withAssignment(n *models.Notification, assignmentID uuid.UUID) *models.Notification {
	id := assignmentID
	n.AssignmentID = &id
	return n
}

func withSubmission(n *models.Notification, submissionID uuid.UUID) *models.Notification {
	id := submissionID
	n.SubmissionID = &id
	return n
}

// fanOut builds one notification per student
func fanOut(students []*models.User, assignmentID *uuid.UUID, typ models.NotificationType, title, message string) []*models.Notification {
	out := make([]*models.Notification, 0, len(students))
	for _, st := range students {
		n := notificationFor(st.ID, typ, title, message)
		if assignmentID != nil {
			n = withAssignment(n, *assignmentID)
		}
		out = append(out, n)
	}
	return out
}

func newAssignmentMessage(instructor, title string, a *models.Assignment) string {
	return fmt.Sprintf("%s has posted a new assignment: \"%s\". Deadline: %s", instructor, title, helpers.FormatDate(a.Deadline))
}

func assignmentUpdatedMessage(instructor, title string) string {
	return fmt.Sprintf("%s updated the assignment: \"%s\". Please check for changes.", instructor, title)
}

func assignmentRemovedMessage(instructor, title string) string {
	return fmt.Sprintf("The assignment \"%s\" by %s has been removed.", title, instructor)
}

func newSubmissionNotification(s *models.Submission, instructorID uuid.UUID, student, title string) *models.Notification {
	n := notificationFor(instructorID, models.NotificationNewSubmission,
		"New Submission Received", fmt.Sprintf("%s submitted assignment: %s", student, title))
	return withSubmission(withAssignment(n, s.AssignmentID), s.ID)
}

func submissionUpdatedNotification(s *models.Submission, instructorID uuid.UUID, student, title string) *models.Notification {
	n := notificationFor(instructorID, models.NotificationNewSubmission,
		"Submission Updated", fmt.Sprintf("%s updated their submission for %s", student, title))
	return withSubmission(withAssignment(n, s.AssignmentID), s.ID)
}

func gradedNotification(s *models.Submission, title string) *models.Notification {
	n := notificationFor(s.StudentID, models.NotificationAssignmentGraded,
		"Assignment Graded", fmt.Sprintf("Your submission for %s has been %s", title, strings.ToLower(string(s.Status))))
	return withSubmission(withAssignment(n, s.AssignmentID), s.ID)
}

func feedbackNotification(s *models.Submission, title string) *models.Notification {
	n := notificationFor(s.StudentID, models.NotificationAssignmentFeedback,
		"Feedback Added", fmt.Sprintf("New feedback added to your submission for %s", title))
	return withSubmission(withAssignment(n, s.AssignmentID), s.ID)
}

// statusChangeNotification is sent when an instructor moves a submission to
// a new status through the dedicated status endpoint.
func statusChangeNotification(s *models.Submission, title string) *models.Notification {
	var (
		typ     models.NotificationType
		heading string
		message string
	)
	switch s.Status {
	case models.SubmissionAccepted:
		typ = models.NotificationAssignmentGraded
		heading = "Submission Accepted ✅"
		message = fmt.Sprintf("Your submission for \"%s\" has been accepted.", title)
	case models.SubmissionRejected:
		typ = models.NotificationAssignmentFeedback
		heading = "Submission Requires Revision ❌"
		message = fmt.Sprintf("Your submission for \"%s\" needs revision.", title)
	default:
		typ = models.NotificationAssignmentGraded
		heading = "Submission Under Review ⏳"
		message = fmt.Sprintf("Your submission for \"%s\" is being reviewed.", title)
	}
	if (s.Status == models.SubmissionAccepted || s.Status == models.SubmissionRejected) && s.Feedback != nil && *s.Feedback != "" {
		message += " Feedback: " + *s.Feedback
	}

	n := notificationFor(s.StudentID, typ, heading, message)
	return withSubmission(withAssignment(n, s.AssignmentID), s.ID)
}

func deadlineReminderMessage(title string, deadline string) string {
	return fmt.Sprintf("The assignment \"%s\" is due on %s. Don't forget to submit!", title, deadline)
}

// reviewFeedbackNotification is sent when an instructor attaches feedback
// through the dedicated feedback endpoint.
func reviewFeedbackNotification(s *models.Submission, title string) *models.Notification {
	typ, heading := models.NotificationAssignmentFeedback, "Assignment Feedback Received"
	if s.Status == models.SubmissionAccepted {
		typ, heading = models.NotificationAssignmentGraded, "Assignment Accepted"
	}
	n := notificationFor(s.StudentID, typ, heading,
		fmt.Sprintf("Your submission for \"%s\" has been %s. Check the feedback for details.", title, strings.ToLower(string(s.Status))))
	return withSubmission(withAssignment(n, s.AssignmentID), s.ID)
}
