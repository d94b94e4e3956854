package server

import (
	"context"
	"net/http"
	"time"
)

// handleHealth returns service status and database connectivity. GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	type resp struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
		Database  string `json:"database,omitempty"`
		Error     string `json:"error,omitempty"`
	}

	out := resp{Status: "ok", Timestamp: time.Now().UTC().Format(time.RFC3339)}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			out.Status = "error"
			out.Database = "disconnected"
			out.Error = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, out)
			return
		}
		out.Database = "connected"
	}

	writeJSON(w, http.StatusOK, out)
}
