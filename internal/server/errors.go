package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/luchenqun/lucky-dog/internal/apierr"
)

// writeJSON encodes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// writeError maps err to a {"error": "..."} body with the appropriate
// status code. A *apierr.Error carries its own status and a message safe
// to return verbatim; any other error is logged with context and
// returned as a generic 500 StoreError, per spec.md §7's policy that a
// failed store operation inside a handler is caught and never allowed to
// abort the process.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.StatusCode(), map[string]string{"error": apiErr.Message})
		return
	}
	log.Printf("unhandled error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
