package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yigit/assignhub/internal/app/models/dto"
)

// BindJSON binds and validates the request body into obj. On failure it
// writes the validation response and returns false.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewFailureResponse(dto.HandleValidationError(err)))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters into obj
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewFailureResponse(dto.HandleValidationError(err)))
		return false
	}
	return true
}

// ParseUUIDParam reads a uuid path parameter and answers 400 when it is
// malformed.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+name+" format").WithField(name)
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewFailureResponse(detail))
		return uuid.Nil, false
	}
	return id, true
}

// ParseUUIDQuery reads an optional uuid query parameter
func ParseUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+name+" format").WithField(name)
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewFailureResponse(detail))
		return nil, false
	}
	return &id, true
}
