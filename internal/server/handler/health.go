package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// SessionCounter reports live overlay sessions for the health body.
type SessionCounter interface {
	ActiveSessions() int
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	sessions SessionCounter
	logger   *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided logger.
func NewHealthHandler(sessions SessionCounter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{sessions: sessions, logger: logger}
}

// HealthCheck responds with a simple JSON status indicating the server is alive.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.sessions != nil {
		body["activeSessions"] = h.sessions.ActiveSessions()
	}
	writeJSON(w, http.StatusOK, body)
}
