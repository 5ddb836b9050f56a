package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "github.com/taskdesk/taskdesk/docs" // Import generated docs
	"github.com/taskdesk/taskdesk/internal/escalate"
	"github.com/taskdesk/taskdesk/internal/handler/dto"
	"github.com/taskdesk/taskdesk/internal/mailer"
	"github.com/taskdesk/taskdesk/internal/middleware"
	"github.com/taskdesk/taskdesk/internal/queue"
	"github.com/taskdesk/taskdesk/internal/repository"
	"github.com/taskdesk/taskdesk/internal/service"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	pool           *pgxpool.Pool
	taskService    *service.TaskService
	reporter       *escalate.Reporter
	authMiddleware *middleware.AuthMiddleware
	recoverer      *middleware.Recoverer
	validate       *validator.Validate
}

// New creates a new Handler instance with all dependencies.
func New(
	pool *pgxpool.Pool,
	jobs queue.Writer,
	notifier *mailer.Notifier,
	reporter *escalate.Reporter,
	jwtSecret []byte,
) *Handler {
	taskRepo := repository.NewTaskRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)

	taskService := service.NewTaskService(pool, taskRepo, profileRepo, jobs, notifier)

	return &Handler{
		pool:           pool,
		taskService:    taskService,
		reporter:       reporter,
		authMiddleware: middleware.NewAuthMiddleware(profileRepo, jwtSecret),
		recoverer:      middleware.NewRecoverer(reporter),
		validate:       validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /healthz", h.handleHealthz)

	// Swagger UI
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler())

	// Manager endpoints
	mux.Handle("POST /api/v1/tasks", h.protected(h.handleCreateTask))
	mux.Handle("GET /api/v1/tasks", h.protected(h.handleListTasks))
	mux.Handle("GET /api/v1/tasks/{id}", h.protected(h.handleGetTask))
	mux.Handle("PUT /api/v1/tasks/{id}", h.protected(h.handleUpdateTask))
	mux.Handle("DELETE /api/v1/tasks/{id}", h.protected(h.handleDeleteTask))

	// Employee endpoints
	mux.Handle("GET /api/v1/my-tasks", h.protected(h.handleListMyTasks))
	mux.Handle("PUT /api/v1/my-tasks/{id}/status", h.protected(h.handleUpdateTaskStatus))
}

// protected chains panic recovery and authentication around a handler.
// Recovery sits outermost so a panic anywhere below becomes a generic 500
// envelope plus an admin escalation.
func (h *Handler) protected(fn http.HandlerFunc) http.Handler {
	return h.recoverer.Recover(h.authMiddleware.Authenticate(fn))
}

// handleHealthz returns 200 OK if the database is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.pool.Ping(ctx); err != nil {
		slog.Error("database health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Ping checks if the database is reachable (used for testing).
func (h *Handler) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

// errorKind names the failure category for the admin report, mirroring
// what the caller-facing status hides.
func errorKind(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "ValidationError"
	case http.StatusForbidden:
		return "PermissionDenied"
	case http.StatusNotFound:
		return "NotFound"
	case http.StatusUnauthorized:
		return "AuthenticationFailed"
	default:
		return "InternalError"
	}
}

// respondServiceError converts a domain error into the uniform envelope
// and escalates the detail to the admin channel asynchronously.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := dto.MapDomainError(err)

	identity, _ := middleware.GetIdentityFromContext(r.Context())
	h.reporter.Report(escalate.Report{
		URL:     r.URL.String(),
		Actor:   identity.Actor(),
		Kind:    errorKind(status),
		Message: err.Error(),
	})

	if status == http.StatusInternalServerError {
		message = middleware.InternalErrorMessage
	}
	dto.RespondEnvelope(w, status, false, message, nil)
}

// respondValidationError reports a request-shape failure. Same escalation
// path as domain errors, with a placeholder trace.
func (h *Handler) respondValidationError(w http.ResponseWriter, r *http.Request, message string) {
	identity, _ := middleware.GetIdentityFromContext(r.Context())
	h.reporter.Report(escalate.Report{
		URL:     r.URL.String(),
		Actor:   identity.Actor(),
		Kind:    "ValidationError",
		Message: message,
	})

	dto.RespondEnvelope(w, http.StatusBadRequest, false, message, nil)
}

// validationMessage renders the first struct validation failure in a
// human-readable form.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "validation failed on field '" + fe.Field() + "' (" + fe.Tag() + ")"
	}
	return err.Error()
}

// extractTaskID extracts and validates the task ID path parameter.
// Returns (taskID, true) if valid, ("", false) if invalid (error already sent to client).
func (h *Handler) extractTaskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	taskID := r.PathValue("id")
	if taskID == "" {
		h.respondValidationError(w, r, "task id is required")
		return "", false
	}

	if _, err := uuid.Parse(taskID); err != nil {
		h.respondValidationError(w, r, "task id must be a valid UUID")
		return "", false
	}

	return taskID, true
}
