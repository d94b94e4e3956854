package server

import (
	"net/http"
	"time"
)

// workStatsResponse is the §3 stats snapshot plus the operational fields
// spec.md §6 lists for GET /work/stats.
type workStatsResponse struct {
	Unchecked         int64    `json:"unchecked"`
	Checking          int64    `json:"checking"`
	Checked           int64    `json:"checked"`
	Timeout           int64    `json:"timeout"`
	Total             int64    `json:"total"`
	Progress          string   `json:"progress"`
	PasswordFound     bool     `json:"passwordFound"`
	Database          string   `json:"database"`
	ResetAllowed      bool     `json:"resetAllowed"`
	TokenRequired     bool     `json:"tokenRequired"`
	ActiveClients     int      `json:"activeClients"`
	ActiveClientsList []string `json:"activeClientsList"`
	UpdatedAt         string   `json:"updated_at"`
	Uptime            float64  `json:"uptime"`
	UptimeFormatted   string   `json:"uptimeFormatted"`
}

// handleWorkStats returns the coordinator's live status snapshot.
// GET /work/stats.
func (s *Server) handleWorkStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.statsSnapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	active := s.liveness.Active()
	resp := workStatsResponse{
		Unchecked:         stats.Unchecked,
		Checking:          stats.Checking,
		Checked:           stats.Checked,
		Timeout:           stats.Timeout,
		Total:             stats.Total,
		Progress:          stats.Progress,
		PasswordFound:     s.latch.IsFound(),
		Database:          s.cfg.DBName,
		ResetAllowed:      s.cfg.IsSampleStore(),
		TokenRequired:     s.cfg.APIToken != "",
		ActiveClients:     len(active),
		ActiveClientsList: active,
		UpdatedAt:         time.Now().UTC().Format(time.RFC3339),
		Uptime:            s.uptime.Elapsed().Seconds(),
		UptimeFormatted:   s.uptime.Formatted(),
	}
	writeJSON(w, http.StatusOK, resp)
}
