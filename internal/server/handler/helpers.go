package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/oddsboard/oddsboard/internal/domain"
)

// Error codes surfaced in JSON error bodies alongside the HTTP status.
const (
	CodeInvalidURL   = "INVALID_URL"
	CodeInvalidInput = "INVALID_INPUT"
	CodeNotFound     = "NOT_FOUND"
	CodeRateLimited  = "RATE_LIMITED"
	CodeAPIError     = "API_ERROR"
)

// errorBody is the uniform error envelope: a human-readable message plus a
// stable machine-readable code.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error","code":"API_ERROR"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON error envelope.
func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// writeDomainError maps domain sentinel errors onto the HTTP error taxonomy.
// Unknown errors become a 500 API_ERROR with the generic message; upstream
// detail stays in the logs, not the response.
func writeDomainError(w http.ResponseWriter, err error, genericMsg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", CodeNotFound)
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited", CodeRateLimited)
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error(), CodeInvalidInput)
	default:
		writeError(w, http.StatusInternalServerError, genericMsg, CodeAPIError)
	}
}

// marshalCacheable serializes a response body destined for both the client
// and the response cache.
func marshalCacheable(v any) ([]byte, error) {
	return json.Marshal(v)
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
