package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/service"
	"github.com/dreamscape-events/dreamscape/pkg/dreamsdk"
	"github.com/dreamscape-events/dreamscape/pkg/httpx"
	"github.com/dreamscape-events/dreamscape/pkg/slogx"
)

var statusByKind = map[service.Kind]int{
	service.KindUnauthorized:   http.StatusUnauthorized,
	service.KindForbidden:      http.StatusForbidden,
	service.KindValidation:     http.StatusBadRequest,
	service.KindNotFound:       http.StatusNotFound,
	service.KindDuplicateEmail: http.StatusBadRequest,
	service.KindInternal:       http.StatusInternalServerError,
}

// writeError is the only place service errors become HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		se = &service.Error{Kind: service.KindInternal, Msg: "Internal server error", Err: err}
	}

	status, ok := statusByKind[se.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
	}

	if se.Kind == service.KindUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}

	httpx.WriteJSON(w, status, dreamsdk.ErrorResponse{
		Error:            string(se.Kind),
		ErrorDescription: se.Msg,
		Errors:           se.Details,
	})
}

// errBadBody is reported for request bodies that are not valid JSON.
var errBadBody = &service.Error{Kind: service.KindValidation, Msg: "Invalid request body"}

// callerID is set by AuthnMiddleware on every protected route.
func callerID(r *http.Request) (string, bool) {
	return httpx.UserIDFromContext(r.Context())
}

var errNoSession = &service.Error{Kind: service.KindUnauthorized, Msg: "Authentication required"}
