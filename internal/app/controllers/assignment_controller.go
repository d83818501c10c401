package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/app/services"
	"github.com/yigit/assignhub/internal/middleware"
)

// AssignmentController handles assignment endpoints
type AssignmentController struct {
	assignmentService services.AssignmentService
	logger            zerolog.Logger
}

// NewAssignmentController creates a new AssignmentController
func NewAssignmentController(assignmentService services.AssignmentService, logger zerolog.Logger) *AssignmentController {
	return &AssignmentController{
		assignmentService: assignmentService,
		logger:            logger,
	}
}

// CreateAssignment posts a new assignment
// @Summary Create an assignment
// @Description Creates an active assignment and notifies every active student in the same transaction
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateAssignmentRequest true "Assignment"
// @Success 201 {object} dto.APIResponse{data=dto.AssignmentMutationResponse} "Assignment created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request or deadline in the past"
// @Failure 403 {object} dto.ErrorResponse "Not an active instructor or not the caller"
// @Failure 409 {object} dto.ErrorResponse "Duplicate active title"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /assignments/create [post]
func (c *AssignmentController) CreateAssignment(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	var req dto.CreateAssignmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.assignmentService.CreateAssignment(ctx.Request.Context(), caller, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp, "Assignment created successfully"))
}

// GetAllAssignments lists every assignment
// @Summary List assignments
// @Description All assignments, newest first, with instructor and submission count
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Assignment} "Assignments"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /assignments [get]
func (c *AssignmentController) GetAllAssignments(ctx *gin.Context) {
	assignments, err := c.assignmentService.GetAllAssignments(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(assignments, "Assignments retrieved successfully"))
}

// GetAssignment returns one assignment with its submissions
// @Summary Get an assignment
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID" format(uuid)
// @Success 200 {object} dto.APIResponse{data=models.Assignment} "Assignment"
// @Failure 400 {object} dto.ErrorResponse "Invalid id"
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Router /assignments/{id} [get]
func (c *AssignmentController) GetAssignment(ctx *gin.Context) {
	id, ok := middleware.ParseUUIDParam(ctx, "id")
	if !ok {
		return
	}

	assignment, err := c.assignmentService.GetAssignment(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(assignment, "Assignment retrieved successfully"))
}

// UpdateAssignment changes an assignment of the caller
// @Summary Update an assignment
// @Description Applies the present fields. Active students are notified when title, description or deadline changed.
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID" format(uuid)
// @Param request body dto.UpdateAssignmentRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.AssignmentMutationResponse} "Assignment updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Failure 409 {object} dto.ErrorResponse "Duplicate active title"
// @Router /assignments/{id} [put]
func (c *AssignmentController) UpdateAssignment(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseUUIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateAssignmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.assignmentService.UpdateAssignment(ctx.Request.Context(), caller, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Assignment updated successfully"))
}

// DeleteAssignment removes an assignment of the caller
// @Summary Delete an assignment
// @Description Deletes the assignment and its submissions and notifies active students
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID" format(uuid)
// @Success 200 {object} dto.APIResponse{data=models.Assignment} "Deleted assignment"
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Router /assignments/{id} [delete]
func (c *AssignmentController) DeleteAssignment(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseUUIDParam(ctx, "id")
	if !ok {
		return
	}

	assignment, err := c.assignmentService.DeleteAssignment(ctx.Request.Context(), caller, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(assignment, "Assignment deleted successfully"))
}

// GetInstructorStats godoc
// @Summary Instructor dashboard stats
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.InstructorAssignmentStats} "Stats"
// @Failure 403 {object} dto.ErrorResponse "Instructor role required"
// @Router /assignments/instructor/stats [get]
func (c *AssignmentController) GetInstructorStats(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	stats, err := c.assignmentService.GetInstructorStats(ctx.Request.Context(), caller)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats, "Instructor stats retrieved successfully"))
}

// GetInstructorRecent godoc
// @Summary Recent assignments of the instructor
// @Description The 5 newest assignments of the caller with their submissions
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Assignment} "Assignments"
// @Failure 403 {object} dto.ErrorResponse "Instructor role required"
// @Router /assignments/instructor/recent [get]
func (c *AssignmentController) GetInstructorRecent(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	assignments, err := c.assignmentService.GetInstructorRecent(ctx.Request.Context(), caller)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(assignments, "Recent assignments retrieved successfully"))
}

// GetInstructorAssignments godoc
// @Summary All assignments of the instructor
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.AssignmentListResponse} "Assignments"
// @Failure 403 {object} dto.ErrorResponse "Instructor role required"
// @Router /assignments/instructor/all [get]
func (c *AssignmentController) GetInstructorAssignments(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	resp, err := c.assignmentService.GetInstructorAssignments(ctx.Request.Context(), caller)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Instructor assignments retrieved successfully"))
}

// GetStudentStats godoc
// @Summary Student dashboard stats
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.StudentAssignmentStats} "Stats"
// @Failure 403 {object} dto.ErrorResponse "Student role required"
// @Router /assignments/student/stats [get]
func (c *AssignmentController) GetStudentStats(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	stats, err := c.assignmentService.GetStudentStats(ctx.Request.Context(), caller)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats, "Student stats retrieved successfully"))
}

// GetAvailableForStudent godoc
// @Summary Assignments the student can still submit
// @Description Active assignments without a submission of the caller, soonest deadline first
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.AssignmentListResponse} "Assignments"
// @Failure 403 {object} dto.ErrorResponse "Student role required"
// @Router /assignments/student/available [get]
func (c *AssignmentController) GetAvailableForStudent(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	resp, err := c.assignmentService.GetAvailableForStudent(ctx.Request.Context(), caller)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Available assignments retrieved successfully"))
}
