// Package diag exposes a local, read-only diagnostics HTTP endpoint.
// It serves a liveness probe and a snapshot of the last cycle's outcome
// for operators inspecting a running agent. It never mutates agent
// state and is disabled unless configured.
package diag

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zenmon-app/agent/internal/agent"
)

// Server serves the diagnostics endpoints on a local address.
type Server struct {
	addr   string
	status *agent.Status
	logger *zap.Logger
}

// New creates a diagnostics server reading from the given status holder.
func New(addr string, status *agent.Status, logger *zap.Logger) *Server {
	return &Server{
		addr:   addr,
		status: status,
		logger: logger,
	}
}

// Start runs the HTTP listener until the context is cancelled. It blocks;
// run it in its own goroutine. Listener errors are logged, never fatal —
// diagnostics are best-effort.
func (s *Server) Start(ctx context.Context) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("Diagnostics endpoint listening", zap.String("addr", s.addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Warn("Diagnostics endpoint failed", zap.Error(err))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.status.Snapshot())
}
