package dto

import "time"

// CreateTaskRequest represents the request body for POST /tasks.
type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"required"`
	AssigneeIDs []string   `json:"assigned_to" validate:"required,min=1,dive,uuid4"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Status      string     `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed"`
}

// UpdateTaskRequest represents the partial request body for PUT /tasks/{id}.
type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,min=1"`
	AssigneeIDs *[]string  `json:"assigned_to,omitempty" validate:"omitempty,min=1,dive,uuid4"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Status      *string    `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed"`
	Remark      *string    `json:"remark,omitempty"`
}

// UpdateStatusRequest represents the request body for PUT /my-tasks/{id}/status.
// Employees may touch status and remark only.
type UpdateStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=pending in_progress completed"`
	Remark *string `json:"remark,omitempty"`
}
