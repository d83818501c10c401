package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/assignhub/internal/app/controllers"
	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/middleware"
	"github.com/yigit/assignhub/internal/pkg/websocket"
)

// Controllers groups the handlers mounted under /api/v1
type Controllers struct {
	Auth         *controllers.AuthController
	User         *controllers.UserController
	Assignment   *controllers.AssignmentController
	Submission   *controllers.SubmissionController
	Notification *controllers.NotificationController
	Image        *controllers.ImageController
	Health       *controllers.HealthController
	WebSocket    *websocket.Handler
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.Auth.Register)
		auth.POST("/login", c.Auth.Login)
		auth.POST("/refresh", c.Auth.RefreshToken)
	}

	// Health check endpoint (public)
	v1.GET("/health", c.Health.Health)

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	instructorOnly := authMiddleware.RoleRequired(models.RoleInstructor)
	studentOnly := authMiddleware.RoleRequired(models.RoleStudent)

	authenticated.POST("/auth/logout", c.Auth.Logout)
	authenticated.POST("/images", c.Image.UploadImage)

	users := authenticated.Group("/users")
	{
		users.GET("/me", c.User.GetMyProfile)
		users.PUT("/me", c.User.UpdateProfile)
		users.GET("/:id", c.User.GetUserByID)

		usersInstructorProtected := users.Group("")
		usersInstructorProtected.Use(instructorOnly)
		{
			usersInstructorProtected.POST("", c.User.CreateUser)
			usersInstructorProtected.GET("", c.User.ListUsers)
			usersInstructorProtected.PUT("/:id", c.User.UpdateUser)
		}
	}

	assignments := authenticated.Group("/assignments")
	{
		assignments.GET("", c.Assignment.GetAllAssignments)
		assignments.GET("/:id", c.Assignment.GetAssignment)

		// Instructor-only routes
		assignmentsInstructorProtected := assignments.Group("")
		assignmentsInstructorProtected.Use(instructorOnly)
		{
			assignmentsInstructorProtected.POST("/create", c.Assignment.CreateAssignment)
			assignmentsInstructorProtected.PUT("/:id", c.Assignment.UpdateAssignment)
			assignmentsInstructorProtected.DELETE("/:id", c.Assignment.DeleteAssignment)
			assignmentsInstructorProtected.GET("/instructor/stats", c.Assignment.GetInstructorStats)
			assignmentsInstructorProtected.GET("/instructor/recent", c.Assignment.GetInstructorRecent)
			assignmentsInstructorProtected.GET("/instructor/all", c.Assignment.GetInstructorAssignments)
		}

		assignmentsStudentProtected := assignments.Group("/student")
		assignmentsStudentProtected.Use(studentOnly)
		{
			assignmentsStudentProtected.GET("/stats", c.Assignment.GetStudentStats)
			assignmentsStudentProtected.GET("/available", c.Assignment.GetAvailableForStudent)
		}
	}

	submissions := authenticated.Group("/submissions")
	{
		// Ownership checks for update and delete live in the service
		submissions.GET("", c.Submission.GetAllSubmissions)
		submissions.GET("/:id", c.Submission.GetSubmission)
		submissions.PUT("/:id", c.Submission.UpdateSubmission)
		submissions.DELETE("/:id", c.Submission.DeleteSubmission)

		submissionsInstructorProtected := submissions.Group("")
		submissionsInstructorProtected.Use(instructorOnly)
		{
			submissionsInstructorProtected.PUT("/status/:id", c.Submission.UpdateSubmissionStatus)
			submissionsInstructorProtected.PUT("/:id/feedback", c.Submission.GiveFeedback)
			submissionsInstructorProtected.GET("/instructor/chart", c.Submission.GetInstructorChart)
		}

		submissionsStudentProtected := submissions.Group("")
		submissionsStudentProtected.Use(studentOnly)
		{
			submissionsStudentProtected.POST("/create", c.Submission.CreateSubmission)
			submissionsStudentProtected.GET("/student/chart", c.Submission.GetStudentChart)
			submissionsStudentProtected.GET("/student/recent", c.Submission.GetStudentRecent)
			submissionsStudentProtected.GET("/student/stats", c.Submission.GetStudentStats)
		}
	}

	notifications := authenticated.Group("/notifications")
	{
		notifications.GET("", c.Notification.GetMyNotifications)
		notifications.PATCH("/read-all", c.Notification.MarkAllRead)
		notifications.PATCH("/:id/read", c.Notification.MarkRead)
		notifications.GET("/ws", c.WebSocket.HandleConnection)
	}
}
