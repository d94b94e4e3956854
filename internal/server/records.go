package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/luchenqun/lucky-dog/internal/apierr"
	"github.com/luchenqun/lucky-dog/internal/database"
)

// recordResponse is the {id,pwd,status} shape spec.md §6 specifies for
// every /records/* read endpoint.
type recordResponse struct {
	ID     int64  `json:"id"`
	Pwd    string `json:"pwd"`
	Status int64  `json:"status"`
}

func toRecordResponse(r database.Record) recordResponse {
	return recordResponse{ID: r.ID, Pwd: r.Pwd, Status: r.Status}
}

// handleCount returns the total candidate count. GET /count.
func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	stats, err := s.statsSnapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": stats.Total})
}

// handleRecordByID returns a single candidate by id. GET /records/{id}.
func (s *Server) handleRecordByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, apierr.Validation("id must be a positive integer"))
		return
	}

	rec, err := s.queries.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, apierr.NotFound("no record with id %d", id))
			return
		}
		writeError(w, apierr.Store("failed to query record: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

// handleRecordByPwd returns a single candidate by passphrase.
// GET /records/by-pwd/{pwd}.
func (s *Server) handleRecordByPwd(w http.ResponseWriter, r *http.Request) {
	pwd := r.PathValue("pwd")
	if pwd == "" {
		writeError(w, apierr.Validation("pwd must not be empty"))
		return
	}

	rec, err := s.queries.GetByPassphrase(r.Context(), pwd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, apierr.NotFound("no record with that passphrase"))
			return
		}
		writeError(w, apierr.Store("failed to query record: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

// handleRecordRandom returns any single candidate row, or {"error":"no
// data"} if the store is empty. GET /records/random.
func (s *Server) handleRecordRandom(w http.ResponseWriter, r *http.Request) {
	rec, err := s.queries.GetRandom(r.Context())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no data"})
			return
		}
		writeError(w, apierr.Store("failed to query record: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}
