package server

import (
	"encoding/json"
	"net/http"

	"github.com/luchenqun/lucky-dog/internal/apierr"
	"github.com/luchenqun/lucky-dog/internal/wallet"
)

type workRequestResponse struct {
	Success       bool         `json:"success"`
	Passwords     []string     `json:"passwords"`
	Encrypt       *wallet.Wire `json:"encrypt,omitempty"`
	BatchID       string       `json:"batchId"`
	Count         int          `json:"count"`
	PasswordFound *bool        `json:"passwordFound,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

// handleWorkRequest leases a batch of candidates to a worker.
// POST /work/request.
func (s *Server) handleWorkRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CPUCount int    `json:"cpuCount"`
		ClientID string `json:"clientId"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, apierr.Validation("invalid request body"))
		return
	}
	if req.ClientID == "" {
		writeError(w, apierr.Validation("clientId is required"))
		return
	}

	s.liveness.Touch(req.ClientID)

	if s.latch.IsFound() {
		writeJSON(w, http.StatusOK, workRequestResponse{
			Success:       false,
			Passwords:     []string{},
			BatchID:       "",
			Count:         0,
			PasswordFound: boolPtr(true),
		})
		return
	}

	batch, err := s.lease.Reserve(r.Context(), req.ClientID, req.CPUCount)
	if err != nil {
		writeError(w, apierr.Store("failed to reserve batch: %v", err))
		return
	}

	if len(batch.Records) == 0 {
		writeJSON(w, http.StatusOK, workRequestResponse{
			Success:   false,
			Passwords: []string{},
			BatchID:   "",
			Count:     0,
		})
		return
	}

	pwds := make([]string, len(batch.Records))
	for i, rec := range batch.Records {
		pwds[i] = rec.Pwd
	}

	wire := s.descriptor.ToWire()
	writeJSON(w, http.StatusOK, workRequestResponse{
		Success:   true,
		Passwords: pwds,
		Encrypt:   &wire,
		BatchID:   batch.BatchID,
		Count:     len(pwds),
	})
}

// handleWorkResult records a worker's report on a leased batch.
// POST /work/result.
func (s *Server) handleWorkResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BatchID       string   `json:"batchId"`
		ClientID      string   `json:"clientId"`
		Success       bool     `json:"success"`
		FoundPassword string   `json:"foundPassword"`
		Passwords     []string `json:"passwords"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, apierr.Validation("invalid request body"))
		return
	}
	if req.ClientID == "" {
		writeError(w, apierr.Validation("clientId is required"))
		return
	}

	s.liveness.Touch(req.ClientID)

	if req.Success {
		if req.FoundPassword == "" {
			writeError(w, apierr.Validation("foundPassword is required when success is true"))
			return
		}
		if err := s.lease.ReportSuccess(r.Context(), req.Passwords); err != nil {
			writeError(w, apierr.Store("failed to record batch result: %v", err))
			return
		}
		if err := s.latch.Confirm(req.ClientID, req.FoundPassword); err != nil {
			writeError(w, apierr.Store("failed to confirm found passphrase: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"message":       "match confirmed",
			"shouldStop":    true,
			"passwordFound": true,
		})
		return
	}

	if err := s.lease.ReportFailure(r.Context(), req.Passwords); err != nil {
		writeError(w, apierr.Store("failed to record batch result: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "batch recorded",
		"shouldStop": s.latch.IsFound(),
	})
}

// handleWorkFound is the dedicated confirm-found endpoint a worker retries
// against after a successful /work/result submission, per spec.md §4.6
// step 4's backoff-then-retry loop. Confirm is intentionally not
// deduplicated (see internal/latch), so repeated calls are safe.
// POST /work/found.
func (s *Server) handleWorkFound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
		ClientID string `json:"clientId"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, apierr.Validation("invalid request body"))
		return
	}
	if req.Password == "" || req.ClientID == "" {
		writeError(w, apierr.Validation("password and clientId are required"))
		return
	}

	if err := s.latch.Confirm(req.ClientID, req.Password); err != nil {
		writeError(w, apierr.Store("failed to confirm found passphrase: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "passwordFound": true})
}

// handleWorkResetTimeout forces the sweeper and reports how many stale
// leases it reclaimed. POST /work/reset-timeout.
func (s *Server) handleWorkResetTimeout(w http.ResponseWriter, r *http.Request) {
	n, err := s.lease.Sweep(r.Context())
	if err != nil {
		writeError(w, apierr.Store("failed to sweep stale leases: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "resetCount": n})
}

// handleWorkResetFound resets the latch and every candidate to UNCHECKED.
// Permitted only when the active store is the designated sample store,
// per spec.md §4.5's policy gate. POST /work/reset-found.
func (s *Server) handleWorkResetFound(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.IsSampleStore() {
		writeError(w, apierr.PolicyDenied("reset-found is only permitted on the sample store"))
		return
	}

	if _, err := s.lease.ResetAll(r.Context()); err != nil {
		writeError(w, apierr.Store("failed to reset records: %v", err))
		return
	}
	if err := s.latch.Reset(); err != nil {
		writeError(w, apierr.Store("failed to reset latch: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
