package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/handler/dto"
	"github.com/taskdesk/taskdesk/internal/middleware"
	"github.com/taskdesk/taskdesk/internal/service"
)

// handleCreateTask creates a new task.
// @Summary Create a task
// @Description Manager creates a task and assigns it to one or more employees. Assignees are notified by mail asynchronously.
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body dto.CreateTaskRequest true "Task creation request"
// @Success 201 {object} dto.Envelope
// @Failure 400 {object} dto.Envelope
// @Failure 403 {object} dto.Envelope
// @Security BearerAuth
// @Router /tasks [post]
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := middleware.GetIdentityFromContext(ctx)
	if err != nil {
		dto.RespondEnvelope(w, http.StatusUnauthorized, false, "Authentication required.", nil)
		return
	}

	var req dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondValidationError(w, r, "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondValidationError(w, r, validationMessage(err))
		return
	}

	var deadline time.Time
	if req.Deadline != nil {
		deadline = *req.Deadline
	}

	task, err := h.taskService.CreateTask(ctx, identity, service.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		AssigneeIDs: req.AssigneeIDs,
		Deadline:    deadline,
		Status:      domain.TaskStatus(req.Status),
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	dto.RespondEnvelope(w, http.StatusCreated, true, "Task created successfully.", dto.ToTaskResponse(task))
}

// handleListTasks lists the tasks created by the acting manager.
// @Summary List own tasks
// @Description Manager lists tasks they created.
// @Tags tasks
// @Produce json
// @Success 200 {object} dto.Envelope
// @Failure 403 {object} dto.Envelope
// @Security BearerAuth
// @Router /tasks [get]
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := middleware.GetIdentityFromContext(ctx)
	if err != nil {
		dto.RespondEnvelope(w, http.StatusUnauthorized, false, "Authentication required.", nil)
		return
	}

	tasks, err := h.taskService.ListTasksForManager(ctx, identity)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	dto.RespondEnvelope(w, http.StatusOK, true, "Tasks fetched successfully.", dto.ToTaskResponses(tasks))
}

// handleGetTask retrieves one task scoped to its creator.
// @Summary Get task details
// @Description Manager retrieves one of their own tasks. Tasks of other managers are reported as not found.
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} dto.Envelope
// @Failure 404 {object} dto.Envelope
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := middleware.GetIdentityFromContext(ctx)
	if err != nil {
		dto.RespondEnvelope(w, http.StatusUnauthorized, false, "Authentication required.", nil)
		return
	}

	taskID, ok := h.extractTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(ctx, identity, taskID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	dto.RespondEnvelope(w, http.StatusOK, true, "Task details retrieved successfully.", dto.ToTaskResponse(task))
}

// handleUpdateTask partially updates a creator-scoped task.
// @Summary Update a task
// @Description Manager updates any subset of title, description, assignees, deadline, status, remark. Changing the deadline re-arms the reminder.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body dto.UpdateTaskRequest true "Partial task update"
// @Success 200 {object} dto.Envelope
// @Failure 400 {object} dto.Envelope
// @Failure 404 {object} dto.Envelope
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := middleware.GetIdentityFromContext(ctx)
	if err != nil {
		dto.RespondEnvelope(w, http.StatusUnauthorized, false, "Authentication required.", nil)
		return
	}

	taskID, ok := h.extractTaskID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondValidationError(w, r, "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondValidationError(w, r, validationMessage(err))
		return
	}

	params := service.UpdateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		AssigneeIDs: req.AssigneeIDs,
		Deadline:    req.Deadline,
		Remark:      req.Remark,
	}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		params.Status = &status
	}

	task, err := h.taskService.UpdateTask(ctx, identity, taskID, params)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	dto.RespondEnvelope(w, http.StatusOK, true, "Task updated successfully.", dto.ToTaskResponse(task))
}

// handleDeleteTask removes a creator-scoped task.
// @Summary Delete a task
// @Description Manager deletes one of their own tasks; assignment relations are removed with it.
// @Tags tasks
// @Param id path string true "Task ID"
// @Success 204 "No Content"
// @Failure 404 {object} dto.Envelope
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := middleware.GetIdentityFromContext(ctx)
	if err != nil {
		dto.RespondEnvelope(w, http.StatusUnauthorized, false, "Authentication required.", nil)
		return
	}

	taskID, ok := h.extractTaskID(w, r)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(ctx, identity, taskID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	dto.RespondEnvelope(w, http.StatusNoContent, true, "Task deleted successfully.", nil)
}

// handleListMyTasks lists the tasks assigned to the acting employee.
// @Summary List assigned tasks
// @Description Employee lists the tasks they are assigned to.
// @Tags my-tasks
// @Produce json
// @Success 200 {object} dto.Envelope
// @Failure 403 {object} dto.Envelope
// @Security BearerAuth
// @Router /my-tasks [get]
func (h *Handler) handleListMyTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := middleware.GetIdentityFromContext(ctx)
	if err != nil {
		dto.RespondEnvelope(w, http.StatusUnauthorized, false, "Authentication required.", nil)
		return
	}

	tasks, err := h.taskService.ListTasksForEmployee(ctx, identity)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	dto.RespondEnvelope(w, http.StatusOK, true, "My tasks fetched successfully.", dto.ToTaskResponses(tasks))
}

// handleUpdateTaskStatus lets an assigned employee update status and remark.
// @Summary Update task status
// @Description Employee moves an assigned task forward through the state machine. Tasks they are not assigned to are reported as not found.
// @Tags my-tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body dto.UpdateStatusRequest true "Status update"
// @Success 200 {object} dto.Envelope
// @Failure 400 {object} dto.Envelope
// @Failure 404 {object} dto.Envelope
// @Security BearerAuth
// @Router /my-tasks/{id}/status [put]
func (h *Handler) handleUpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := middleware.GetIdentityFromContext(ctx)
	if err != nil {
		dto.RespondEnvelope(w, http.StatusUnauthorized, false, "Authentication required.", nil)
		return
	}

	taskID, ok := h.extractTaskID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondValidationError(w, r, "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondValidationError(w, r, validationMessage(err))
		return
	}

	task, err := h.taskService.UpdateTaskStatus(ctx, identity, taskID, domain.TaskStatus(req.Status), req.Remark)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	dto.RespondEnvelope(w, http.StatusOK, true, "Task status updated successfully.", dto.ToTaskResponse(task))
}
