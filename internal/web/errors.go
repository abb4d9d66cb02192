package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	xglog "propath/internal/log"
	"propath/internal/propath"
)

type errorBody struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a core error onto an HTTP status. Not found is routine
// and never a server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, propath.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, propath.ErrEscape), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrIsDirectory):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError logs err and writes it as a JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	logger := xglog.WithComponentFromContext(r.Context(), "api")
	ev := logger.Debug()
	if code >= http.StatusInternalServerError {
		ev = logger.Error()
	}
	ev.Err(err).
		Str(xglog.FieldEvent, "request.failed").
		Str(xglog.FieldPath, r.URL.Path).
		Int("status", code).
		Msg("request failed")

	writeJSON(w, code, errorBody{
		Error:     http.StatusText(code),
		Detail:    err.Error(),
		RequestID: xglog.RequestIDFromContext(r.Context()),
	})
}
