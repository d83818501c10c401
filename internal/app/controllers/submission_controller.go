package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/app/services"
	"github.com/yigit/assignhub/internal/middleware"
)

// SubmissionController handles submission endpoints
type SubmissionController struct {
	submissionService services.SubmissionService
	logger            zerolog.Logger
}

// NewSubmissionController creates a new SubmissionController
func NewSubmissionController(submissionService services.SubmissionService, logger zerolog.Logger) *SubmissionController {
	return &SubmissionController{
		submissionService: submissionService,
		logger:            logger,
	}
}

// CreateSubmission submits work for an assignment
// @Summary Create a submission
// @Description Stores a PENDING submission and notifies the assignment's instructor in the same transaction
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateSubmissionRequest true "Submission"
// @Success 201 {object} dto.APIResponse{data=dto.SubmissionMutationResponse} "Submission created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request, inactive assignment or deadline passed"
// @Failure 403 {object} dto.ErrorResponse "Not an active student or not the caller"
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Failure 409 {object} dto.ErrorResponse "Submission already exists"
// @Router /submissions/create [post]
func (c *SubmissionController) CreateSubmission(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	var req dto.CreateSubmissionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.submissionService.CreateSubmission(ctx.Request.Context(), caller, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp, "Submission created successfully"))
}

// GetAllSubmissions lists submissions
// @Summary List submissions
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param assignmentId query string false "Assignment ID" format(uuid)
// @Param studentId query string false "Student ID" format(uuid)
// @Param status query string false "PENDING, ACCEPTED or REJECTED"
// @Success 200 {object} dto.APIResponse{data=[]models.Submission} "Submissions"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Router /submissions [get]
func (c *SubmissionController) GetAllSubmissions(ctx *gin.Context) {
	var filter dto.SubmissionFilter
	if !middleware.BindQuery(ctx, &filter) {
		return
	}
	var ok bool
	if filter.AssignmentID, ok = middleware.ParseUUIDQuery(ctx, "assignmentId"); !ok {
		return
	}
	if filter.StudentID, ok = middleware.ParseUUIDQuery(ctx, "studentId"); !ok {
		return
	}

	submissions, err := c.submissionService.GetAllSubmissions(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(submissions, "Submissions retrieved successfully"))
}

// GetSubmission returns one submission
// @Summary Get a submission
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID" format(uuid)
// @Success 200 {object} dto.APIResponse{data=models.Submission} "Submission"
// @Failure 404 {object} dto.ErrorResponse "Submission not found"
// @Router /submissions/{id} [get]
func (c *SubmissionController) GetSubmission(ctx *gin.Context) {
	id, ok := middleware.ParseUUIDParam(ctx, "id")
	if !ok {
		return
	}

	sub, err := c.submissionService.GetSubmission(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(sub, "Submission retrieved successfully"))
}

// UpdateSubmission edits a submission
// @Summary Update a submission
// @Description The owning student may change url and note while pending; the assignment's instructor may set status and feedback
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID" format(uuid)
// @Param request body dto.UpdateSubmissionRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.SubmissionMutationResponse} "Submission updated"
// @Failure 400 {object} dto.ErrorResponse "Field not allowed, graded, deadline passed or nothing to update"
// @Failure 403 {object} dto.ErrorResponse "Neither owner nor instructor"
// @Failure 404 {object} dto.ErrorResponse "Submission not found"
// @Router /submissions/{id} [put]
func (c *SubmissionController) UpdateSubmission(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseUUIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateSubmissionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.submissionService.UpdateSubmission(ctx.Request.Context(), caller, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Submission updated successfully"))
}

// DeleteSubmission removes a submission of the caller
// @Summary Delete a submission
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID" format(uuid)
// @Success 200 {object} dto.APIResponse{data=models.Submission} "Deleted submission"
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Failure 404 {object} dto.ErrorResponse "Submission not found"
// @Router /submissions/{id} [delete]
func (c *SubmissionController) DeleteSubmission(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseUUIDParam(ctx, "id")
	if !ok {
		return
	}

	sub, err := c.submissionService.DeleteSubmission(ctx.Request.Context(), caller, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(sub, "Submission deleted successfully"))
}

// UpdateSubmissionStatus grades a submission
// @Summary Update submission status
// @Description Sets PENDING, ACCEPTED or REJECTED on a submission of one of the caller's assignments and notifies the student
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID" format(uuid)
// @Param request body dto.UpdateSubmissionStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=dto.SubmissionMutationResponse} "Status updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid or unchanged status"
// @Failure 403 {object} dto.ErrorResponse "Not the assignment's instructor"
// @Failure 404 {object} dto.ErrorResponse "Submission not found"
// @Router /submissions/status/{id} [put]
func (c *SubmissionController) UpdateSubmissionStatus(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseUUIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateSubmissionStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.submissionService.UpdateSubmissionStatus(ctx.Request.Context(), caller, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Submission status updated successfully"))
}

// GiveFeedback attaches feedback to a submission
// @Summary Give feedback
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID" format(uuid)
// @Param request body dto.SubmissionFeedbackRequest true "Feedback"
// @Success 200 {object} dto.APIResponse{data=dto.SubmissionMutationResponse} "Feedback added"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 404 {object} dto.ErrorResponse "Submission not found or unauthorized"
// @Router /submissions/{id}/feedback [put]
func (c *SubmissionController) GiveFeedback(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseUUIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.SubmissionFeedbackRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.submissionService.GiveFeedback(ctx.Request.Context(), caller, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Feedback added successfully"))
}

// GetInstructorChart godoc
// @Summary Submission status chart for the instructor
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.ChartSlice} "Chart data"
// @Failure 403 {object} dto.ErrorResponse "Instructor role required"
// @Router /submissions/instructor/chart [get]
func (c *SubmissionController) GetInstructorChart(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	slices, err := c.submissionService.GetInstructorChart(ctx.Request.Context(), caller)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(slices, "Chart data retrieved successfully"))
}

// GetStudentChart godoc
// @Summary Submission status chart for the student
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.ChartSlice} "Chart data"
// @Failure 403 {object} dto.ErrorResponse "Student role required"
// @Router /submissions/student/chart [get]
func (c *SubmissionController) GetStudentChart(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	slices, err := c.submissionService.GetStudentChart(ctx.Request.Context(), caller)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(slices, "Chart data retrieved successfully"))
}

// GetStudentRecent godoc
// @Summary Latest submissions of the student
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Submission} "Submissions"
// @Failure 403 {object} dto.ErrorResponse "Student role required"
// @Router /submissions/student/recent [get]
func (c *SubmissionController) GetStudentRecent(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	subs, err := c.submissionService.GetStudentRecent(ctx.Request.Context(), caller)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(subs, "Recent submissions retrieved successfully"))
}

// GetStudentStats godoc
// @Summary Submission stats of the student
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SubmissionStats} "Stats"
// @Failure 403 {object} dto.ErrorResponse "Student role required"
// @Router /submissions/student/stats [get]
func (c *SubmissionController) GetStudentStats(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	stats, err := c.submissionService.GetStudentStats(ctx.Request.Context(), caller)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats, "Submission stats retrieved successfully"))
}
