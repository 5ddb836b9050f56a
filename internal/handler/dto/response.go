package dto

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/taskdesk/taskdesk/internal/domain"
)

// Envelope is the uniform response shape on every endpoint, success or
// failure.
type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// RespondEnvelope writes the envelope with the given HTTP status code.
// A 204 carries no body per HTTP semantics.
func RespondEnvelope(w http.ResponseWriter, code int, status bool, message string, data interface{}) {
	if code == http.StatusNoContent {
		w.WriteHeader(code)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(Envelope{
		Status:  status,
		Message: message,
		Data:    data,
	}); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// TaskResponse is the outward representation of a task.
type TaskResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CreatorID    string    `json:"created_by"`
	AssigneeIDs  []string  `json:"assigned_to"`
	Status       string    `json:"status"`
	Deadline     time.Time `json:"deadline"`
	Remark       string    `json:"remark"`
	ReminderSent bool      `json:"reminder_sent"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToTaskResponse converts domain.Task to TaskResponse.
func ToTaskResponse(task *domain.Task) TaskResponse {
	assignees := task.AssigneeIDs
	if assignees == nil {
		assignees = []string{}
	}
	return TaskResponse{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		CreatorID:    task.CreatorID,
		AssigneeIDs:  assignees,
		Status:       string(task.Status),
		Deadline:     task.Deadline,
		Remark:       task.Remark,
		ReminderSent: task.ReminderSent,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
}

// ToTaskResponses converts a slice of tasks.
func ToTaskResponses(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i, task := range tasks {
		out[i] = ToTaskResponse(task)
	}
	return out
}
