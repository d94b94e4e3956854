package server

import "net/http"

const indexDocument = `<!DOCTYPE html>
<html>
<head><title>lucky-dog coordinator</title></head>
<body>
<h1>lucky-dog coordinator</h1>
<p>See <a href="/work/stats">/work/stats</a> for live status.</p>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexDocument))
}

// RegisterRoutes registers all HTTP routes and applies global middleware.
// Endpoints requiring auth are individually wrapped with requireAuth at
// registration, since spec.md §4.5 only requires the shared secret on
// mutating operations — the read-only endpoints stay public.
func (s *Server) RegisterRoutes() {
	mux := s.router

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /count", s.handleCount)

	mux.HandleFunc("GET /records/random", s.handleRecordRandom)
	mux.HandleFunc("GET /records/by-pwd/{pwd}", s.handleRecordByPwd)
	mux.HandleFunc("GET /records/{id}", s.handleRecordByID)

	mux.HandleFunc("GET /work/stats", s.handleWorkStats)
	mux.HandleFunc("POST /work/request", s.requireAuth(s.handleWorkRequest))
	mux.HandleFunc("POST /work/result", s.requireAuth(s.handleWorkResult))
	mux.HandleFunc("POST /work/found", s.requireAuth(s.handleWorkFound))
	mux.HandleFunc("POST /work/reset-timeout", s.requireAuth(s.handleWorkResetTimeout))
	mux.HandleFunc("POST /work/reset-found", s.requireAuth(s.handleWorkResetFound))

	mux.HandleFunc("GET /ws", s.handleWS)

	s.handler = RequestID(Logger(CORS(mux)))
}
