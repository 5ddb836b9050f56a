package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/taskdesk/taskdesk/internal/escalate"
	"github.com/taskdesk/taskdesk/internal/handler/dto"
)

// InternalErrorMessage is the only detail the caller ever sees for an
// unhandled failure; the full trace goes to the admin channel.
const InternalErrorMessage = "Internal Server Error - Admin has been notified."

// Recoverer converts panics anywhere below it into a generic 500 envelope
// and escalates the full detail asynchronously.
type Recoverer struct {
	reporter *escalate.Reporter
}

// NewRecoverer creates a new Recoverer.
func NewRecoverer(reporter *escalate.Reporter) *Recoverer {
	return &Recoverer{reporter: reporter}
}

// Recover is the outermost middleware.
func (rc *Recoverer) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			trace := string(debug.Stack())
			identity, _ := GetIdentityFromContext(r.Context())

			slog.Error("panic recovered",
				"url", r.URL.String(),
				"panic", rec,
			)

			rc.reporter.Report(escalate.Report{
				URL:     r.URL.String(),
				Actor:   identity.Actor(),
				Kind:    fmt.Sprintf("%T", rec),
				Message: fmt.Sprint(rec),
				Trace:   trace,
			})

			dto.RespondEnvelope(w, http.StatusInternalServerError, false, InternalErrorMessage, nil)
		}()

		next.ServeHTTP(w, r)
	})
}
