package models

import (
	"time"

	"github.com/google/uuid"
)

// User defines the user model based on the 'users' table
type User struct {
	ID           uuid.UUID  `json:"id" db:"id" example:"7f1c2d9e-8a4b-4c2e-9f1a-3b5d6e7f8a9b"`
	Name         string     `json:"name" db:"name" example:"Alice Cooper"`
	Email        string     `json:"email" db:"email" example:"alice.cooper@student.edu"`
	Password     string     `json:"-" db:"password"`
	Role         RoleType   `json:"role" db:"role" example:"STUDENT"`
	Status       UserStatus `json:"status" db:"status" example:"ACTIVE"`
	ProfilePhoto *string    `json:"profilePhoto,omitempty" db:"profile_photo"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// IsActive reports whether the account may act in the system
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsActiveInstructor reports whether u is an ACTIVE INSTRUCTOR
func (u *User) IsActiveInstructor() bool {
	return u.Role == RoleInstructor && u.IsActive()
}

// IsActiveStudent reports whether u is an ACTIVE STUDENT
func (u *User) IsActiveStudent() bool {
	return u.Role == RoleStudent && u.IsActive()
}

// Summary returns the public projection embedded in other resources
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserSummary is the embedded user projection {id, name, email}
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}
