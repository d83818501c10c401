package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/app/services"
	"github.com/yigit/assignhub/internal/middleware"
)

// NotificationController handles the caller's notification feed
type NotificationController struct {
	notificationService services.NotificationService
	logger              zerolog.Logger
}

// NewNotificationController creates a new NotificationController
func NewNotificationController(notificationService services.NotificationService, logger zerolog.Logger) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
		logger:              logger,
	}
}

// GetMyNotifications returns the caller's feed
// @Summary List my notifications
// @Description Notifications addressed to the caller with total, unread and read counts
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum rows (max 200)" default(50)
// @Param isRead query bool false "Read state"
// @Param type query string false "Notification type"
// @Param sortBy query string false "createdAt, title, type or isRead" default(createdAt)
// @Param sortOrder query string false "asc or desc" default(desc)
// @Success 200 {object} dto.APIResponse{data=dto.NotificationListResponse} "Notifications"
// @Failure 400 {object} dto.ErrorResponse "Invalid query"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /notifications [get]
func (c *NotificationController) GetMyNotifications(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	var filter dto.NotificationFilter
	if !middleware.BindQuery(ctx, &filter) {
		return
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid notification type").WithField("type")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewFailureResponse(detail))
		return
	}

	resp, err := c.notificationService.GetMyNotifications(ctx.Request.Context(), caller, filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Notifications retrieved successfully"))
}

// MarkRead marks one notification read
// @Summary Mark a notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID" format(uuid)
// @Success 200 {object} dto.APIResponse{data=models.Notification} "Notification"
// @Failure 404 {object} dto.ErrorResponse "Notification not found"
// @Router /notifications/{id}/read [patch]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseUUIDParam(ctx, "id")
	if !ok {
		return
	}

	n, err := c.notificationService.MarkRead(ctx.Request.Context(), caller, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(n, "Notification marked as read"))
}

// MarkAllRead marks every notification of the caller read
// @Summary Mark all notifications read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.MarkAllReadResponse} "Updated count"
// @Router /notifications/read-all [patch]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	resp, err := c.notificationService.MarkAllRead(ctx.Request.Context(), caller)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Notifications marked as read"))
}
