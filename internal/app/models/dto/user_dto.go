package dto

import (
	"github.com/google/uuid"
	"github.com/yigit/assignhub/internal/app/models"
)

// CreateUserRequest is used by instructors to create accounts
type CreateUserRequest struct {
	Name         string            `json:"name" binding:"required,min=2,max=100"`
	Email        string            `json:"email" binding:"required,email"`
	Password     string            `json:"password" binding:"required,min=8"`
	Role         models.RoleType   `json:"role" binding:"required,oneof=STUDENT INSTRUCTOR"`
	Status       models.UserStatus `json:"status" binding:"omitempty,oneof=ACTIVE BLOCKED DELETED"`
	ProfilePhoto *string           `json:"profilePhoto" binding:"omitempty,url"`
}

// UpdateProfileRequest is what a user may change about themselves
type UpdateProfileRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=2,max=100"`
	ProfilePhoto *string `json:"profilePhoto" binding:"omitempty,url"`
}

// AdminUpdateUserRequest is what an instructor may change about any user
type AdminUpdateUserRequest struct {
	Name         *string            `json:"name" binding:"omitempty,min=2,max=100"`
	Role         *models.RoleType   `json:"role" binding:"omitempty,oneof=STUDENT INSTRUCTOR"`
	Status       *models.UserStatus `json:"status" binding:"omitempty,oneof=ACTIVE BLOCKED DELETED"`
	ProfilePhoto *string            `json:"profilePhoto" binding:"omitempty,url"`
}

// UserFilter narrows a user listing
type UserFilter struct {
	SearchTerm string            `form:"searchTerm"`
	Role       models.RoleType   `form:"role" binding:"omitempty,oneof=STUDENT INSTRUCTOR"`
	Status     models.UserStatus `form:"status" binding:"omitempty,oneof=ACTIVE BLOCKED DELETED"`
	Email      string            `form:"email"`
}

// ListOptions holds pagination and sorting parameters
type ListOptions struct {
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// UserListResponse is a page of users
type UserListResponse struct {
	Meta PaginationMeta `json:"meta"`
	Data []*models.User `json:"data"`
}

// Caller identifies the authenticated user of a request
type Caller struct {
	UserID uuid.UUID
	Role   models.RoleType
}
