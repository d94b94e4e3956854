// Package server contains HTTP handlers and server bootstrap code for the
// coordinator API.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/luchenqun/lucky-dog/internal/config"
	"github.com/luchenqun/lucky-dog/internal/database"
	"github.com/luchenqun/lucky-dog/internal/latch"
	"github.com/luchenqun/lucky-dog/internal/lease"
	"github.com/luchenqun/lucky-dog/internal/liveness"
	"github.com/luchenqun/lucky-dog/internal/statscache"
	"github.com/luchenqun/lucky-dog/internal/wallet"
)

// Server is the HTTP server for the coordinator API.
type Server struct {
	cfg        *config.Config
	db         *sql.DB
	queries    *database.Queries
	lease      *lease.Manager
	latch      *latch.Latch
	liveness   *liveness.Registry
	stats      *statscache.Cache
	uptime     *statscache.Uptime
	descriptor *wallet.Descriptor
	hub        *Hub
	router     *http.ServeMux
	handler    http.Handler
	httpServer *http.Server
	mu         sync.Mutex
	conns      map[net.Conn]struct{}
}

// New constructs a new Server instance. Routes must be registered with
// RegisterRoutes before calling Start.
func New(cfg *config.Config, db *sql.DB, descriptor *wallet.Descriptor) (*Server, error) {
	l, err := latch.Load(cfg.DBName + ".found")
	if err != nil {
		return nil, fmt.Errorf("load latch: %w", err)
	}

	up, err := statscache.LoadUptime(cfg.DBName + ".startup")
	if err != nil {
		return nil, fmt.Errorf("load uptime: %w", err)
	}

	queries := database.NewQueries(db)

	s := &Server{
		cfg:        cfg,
		db:         db,
		queries:    queries,
		lease:      lease.New(queries),
		latch:      l,
		liveness:   liveness.New(),
		stats:      statscache.New(),
		uptime:     up,
		descriptor: descriptor,
		hub:        newHub(),
		router:     http.NewServeMux(),
		conns:      make(map[net.Conn]struct{}),
	}
	return s, nil
}

// computeStats recomputes the candidate-store status counts, wrapping any
// failure as a StoreError.
func (s *Server) computeStats(ctx context.Context) (database.Stats, error) {
	st, err := s.lease.Stats(ctx)
	if err != nil {
		return database.Stats{}, fmt.Errorf("compute stats: %w", err)
	}
	return st, nil
}

// statsSnapshot returns the (possibly cached) stats snapshot.
func (s *Server) statsSnapshot(ctx context.Context) (database.Stats, error) {
	return s.stats.Get(ctx, s.computeStats)
}

// Start runs the HTTP server and blocks until context cancellation or a
// server error.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.Host + ":" + s.cfg.Port
	h := http.Handler(s.router)
	if s.handler != nil {
		h = s.handler
	}

	go s.hub.run(ctx)

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.broadcastStats(context.Background())
			}
		}
	}()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Track connections so we can force-close them if graceful shutdown
	// exceeds the configured timeout.
	s.httpServer.ConnState = func(c net.Conn, state http.ConnState) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch state {
		case http.StateNew, http.StateActive:
			s.conns[c] = struct{}{}
		case http.StateClosed, http.StateHijacked:
			delete(s.conns, c)
		case http.StateIdle:
			// keep in map until closed/hijacked
		}
	}

	s.httpServer.RegisterOnShutdown(func() {
		if s.db != nil {
			if err := s.db.Close(); err != nil {
				log.Printf("failed to close db on shutdown: %v", err)
			} else {
				log.Printf("database connection closed")
			}
		}
	})

	lc := &net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	// Sweeper: reclaim stale CHECKING leases on the configured interval.
	// Failures are logged and swallowed; the next tick retries, per
	// spec.md §7's propagation policy for sweeper failures.
	go func() {
		interval := s.cfg.SweepInterval
		if interval <= 0 {
			interval = time.Hour
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.lease.Sweep(context.Background())
				if err != nil {
					log.Printf("sweeper failed: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("sweeper reclaimed %d stale leases", n)
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http serve: %w", err)
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		log.Printf("shutdown initiated, waiting up to %s for active connections to finish", timeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		time.Sleep(20 * time.Millisecond)
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.Printf("shutdown timed out, force-closing active connections")
				s.mu.Lock()
				for c := range s.conns {
					_ = c.Close()
				}
				s.mu.Unlock()
			}
			return fmt.Errorf("server shutdown: %w", err)
		}

		if s.db != nil {
			if err := s.db.Close(); err != nil {
				log.Printf("failed to close db on shutdown: %v", err)
			} else {
				log.Printf("database connection closed")
			}
		}

		log.Printf("shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}
