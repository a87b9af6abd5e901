package web

// errors.go provides unified error response handling for the web layer.
//
// Handlers call respondError with whatever error they got. The status code
// is derived from the error, the user message comes from core.MapError, and
// the response is rendered as an HTMX partial or JSON depending on the
// request. The technical error is only logged.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/JonMunkholm/cardimport/internal/catalog"
	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/JonMunkholm/cardimport/internal/logging"
	"github.com/JonMunkholm/cardimport/internal/web/templates"
)

// retryAfterSeconds is sent with 429 and 503 responses.
const retryAfterSeconds = "30"

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// requestError is a problem with the request itself: bad JSON, a missing
// form file, failed validation.
type requestError struct {
	status int
	err    error
	fields map[string]string
}

func (e *requestError) Error() string {
	if len(e.fields) == 0 {
		return e.err.Error()
	}
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + e.fields[k]
	}
	return fmt.Sprintf("%v: %s", e.err, strings.Join(parts, "; "))
}

func (e *requestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, err: fmt.Errorf(format, args...)}
}

var errValidation = errors.New("validation failed")

var validationMessage = core.UserMessage{
	Message: "The request is not valid",
	Action:  "Check the highlighted fields and try again",
	Code:    "REQ003",
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.status
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrSessionBusy),
		errors.Is(err, core.ErrSessionCommitted),
		errors.Is(err, core.ErrCommitNotStarted):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidTarget),
		errors.Is(err, core.ErrInvalidDuplicateMode),
		errors.Is(err, core.ErrInvalidURL),
		errors.Is(err, core.ErrRowOutOfRange),
		errors.Is(err, core.ErrNoInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNothingToImport),
		errors.Is(err, core.ErrRowNotOverridable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManyCommits):
		return http.StatusServiceUnavailable
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrBadRequest):
		return http.StatusUnprocessableEntity
	case errors.Is(err, catalog.ErrRateLimited):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	var catErr *catalog.Error
	if errors.As(err, &catErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// userMessage maps err to what the client sees.
func userMessage(err error) (core.UserMessage, map[string]string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) && len(reqErr.fields) > 0 {
		return validationMessage, reqErr.fields
	}
	return core.MapError(err), nil
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns an HTMX partial or
// JSON depending on the request.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg, fields := userMessage(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	retryable := status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests || catalog.IsRetryable(err)
	if retryable && w.Header().Get("Retry-After") == "" {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}

	if isHTMX(r) {
		renderErrorPartial(w, r, msg, status)
		return
	}
	respondErrorJSON(w, msg, fields, status)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, fields map[string]string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Fields:  fields,
	})
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error partial", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
