package domain

import "errors"

// Domain-specific errors for business logic validation.
var (
	// Task errors
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid task status")
	ErrInvalidDeadline   = errors.New("invalid deadline")

	// Role errors
	ErrNotManager       = errors.New("manager role required")
	ErrNotEmployee      = errors.New("employee role required")
	ErrAssigneeNotFound = errors.New("assignee not found")
	ErrAssigneeRole     = errors.New("assignee must hold the employee role")

	// Identity errors
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidToken = errors.New("invalid authentication token")

	// Validation errors
	ErrValidation = errors.New("validation failed")
)
