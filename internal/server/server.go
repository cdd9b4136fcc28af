package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shoply/assistant-engine/internal/budget"
	"github.com/shoply/assistant-engine/internal/config"
	"github.com/shoply/assistant-engine/internal/monitoring"
	"github.com/shoply/assistant-engine/internal/session"
)

// Server hosts the session API.
type Server struct {
	cfg     config.ServerConfig
	manager *session.Manager
	ledger  *budget.Ledger
	metrics *monitoring.Collector

	httpServer *http.Server
}

// New creates the session API server.
func New(cfg config.ServerConfig, manager *session.Manager, ledger *budget.Ledger, metrics *monitoring.Collector) *Server {
	s := &Server{
		cfg:     cfg,
		manager: manager,
		ledger:  ledger,
		metrics: metrics,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
	}
	return s
}

// routes builds the request mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/session", s.handleCreateSession)
	mux.HandleFunc("POST /v1/message", s.handleMessage)
	mux.HandleFunc("PUT /v1/session/{id}/end", s.handleEndSession)
	mux.HandleFunc("GET /v1/session/{id}/ws", s.handleSessionWS)
	mux.HandleFunc("GET /v1/cost-stats", s.handleCostStats)
	mux.HandleFunc("POST /v1/reset-costs", s.handleResetCosts)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	return mux
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start blocks on ListenAndServe.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("Session API listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"message": msg, "type": "session_api_error"},
	})
}

// isLoopback reports whether the remote address is local. Administrative
// endpoints (reset, stats) are not exposed beyond the host.
func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// handleHealth returns liveness status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleStats returns operational metrics. Restricted to localhost to keep
// operational data off the public surface.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.FullStats())
}
