package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskdesk/taskdesk/internal/escalate"
	"github.com/taskdesk/taskdesk/internal/handler/dto"
	"github.com/taskdesk/taskdesk/internal/middleware"
	"github.com/taskdesk/taskdesk/internal/queue"
)

// recordingNotifier captures admin alert arguments.
type recordingNotifier struct {
	url, actor, kind, message, trace string
}

func (n *recordingNotifier) SendAdminAlert(ctx context.Context, url, actor, kind, message, trace string) error {
	n.url, n.actor, n.kind, n.message, n.trace = url, actor, kind, message, trace
	return nil
}

func TestRecover_PanicBecomesGeneric500(t *testing.T) {
	notifier := &recordingNotifier{}
	jobs := queue.New(1)
	recoverer := middleware.NewRecoverer(escalate.NewReporter(notifier, jobs))

	h := recoverer.Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something broke")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var env dto.Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.False(t, env.Status)
	assert.Equal(t, middleware.InternalErrorMessage, env.Message)

	// The full detail went to the admin channel, not to the caller.
	job := <-jobs.GetChannel()
	require.NoError(t, job.Execute(context.Background()))
	assert.Equal(t, "/api/v1/tasks", notifier.url)
	assert.Equal(t, "Anonymous", notifier.actor)
	assert.Equal(t, "string", notifier.kind)
	assert.Equal(t, "something broke", notifier.message)
	assert.Contains(t, notifier.trace, "goroutine")
}

func TestRecover_PassthroughWhenNoPanic(t *testing.T) {
	notifier := &recordingNotifier{}
	jobs := queue.New(1)
	recoverer := middleware.NewRecoverer(escalate.NewReporter(notifier, jobs))

	h := recoverer.Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Empty(t, jobs.GetChannel())
}
