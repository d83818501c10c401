package apperrors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// Resource errors
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidFormat      = errors.New("invalid token format")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
)

// Domain errors wrap the generic sentinels above so callers can match on
// either the specific or the generic one.
var (
	ErrUserNotFound       = fmt.Errorf("%w: user not found", ErrResourceNotFound)
	ErrEmailAlreadyExists = fmt.Errorf("%w: email already exists", ErrConflict)

	ErrAssignmentNotFound       = fmt.Errorf("%w: assignment not found", ErrResourceNotFound)
	ErrAssignmentTitleExists    = fmt.Errorf("%w: an assignment with this title already exists", ErrConflict)
	ErrAssignmentInactive       = fmt.Errorf("%w: assignment is not active", ErrBadRequest)
	ErrAssignmentDeadlinePassed = fmt.Errorf("%w: assignment deadline has passed", ErrBadRequest)

	ErrSubmissionNotFound = fmt.Errorf("%w: submission not found", ErrResourceNotFound)
	ErrSubmissionExists   = fmt.Errorf("%w: submission already exists for this assignment", ErrConflict)

	ErrNotificationNotFound = fmt.Errorf("%w: notification not found", ErrResourceNotFound)
)

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// Is returns whether err matches target or any of errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// Message returns the user-facing message of a CustomError anywhere in the
// chain, or an empty string.
func Message(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return ""
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}
