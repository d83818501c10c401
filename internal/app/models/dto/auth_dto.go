package dto

import "github.com/yigit/assignhub/internal/app/models"

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest represents a self-service registration
type RegisterRequest struct {
	Name     string          `json:"name" binding:"required,min=2,max=100"`
	Email    string          `json:"email" binding:"required,email"`
	Password string          `json:"password" binding:"required,min=8"`
	Role     models.RoleType `json:"role" binding:"required,oneof=STUDENT INSTRUCTOR"`
}

// RefreshTokenRequest carries the refresh token for rotation or logout
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken           string       `json:"accessToken"`
	TokenType             string       `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64        `json:"expiresIn"`
	RefreshToken          string       `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64        `json:"refreshTokenExpiresIn,omitempty"`
	User                  *models.User `json:"user,omitempty"`
}
