// Package httpserv provides the metrics and health HTTP server: Prometheus
// scrape endpoint plus read-only JSON snapshots of the engine's internal
// counters.
package httpserv

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"effectkit/pkg/engine"
	"effectkit/pkg/logx"
)

// Server exposes /healthz, /metrics, and /status over HTTP.
type Server struct {
	engine *engine.Engine
	logger *logx.Logger
	addr   string
}

// New creates a server for the given engine.
func New(addr string, eng *engine.Engine) *Server {
	return &Server{
		engine: eng,
		logger: logx.NewLogger("httpserv"),
		addr:   addr,
	}
}

// statusResponse is the JSON body of /status.
type statusResponse struct {
	Effects            any `json:"effects"`
	Circuits           any `json:"circuits"`
	ActiveTransactions int `json:"active_transactions"`
	SlotsInUse         int `json:"slots_in_use"`
	SlotCapacity       int `json:"slot_capacity"`
}

// RegisterRoutes installs the server's handlers on the mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	inUse, capacity := s.engine.LimiterStatus()
	resp := statusResponse{
		Effects:            s.engine.Metrics(),
		Circuits:           s.engine.CircuitStates(),
		ActiveTransactions: s.engine.ActiveTransactions(),
		SlotsInUse:         inUse,
		SlotCapacity:       capacity,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode status response: %v", err)
	}
}

// Start runs the server in a goroutine and shuts it down gracefully when ctx
// is cancelled.
func (s *Server) Start(ctx context.Context) {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Starting metrics server on %s", s.addr)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		// Parent context is cancelled; shutdown needs a fresh one.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		//nolint:contextcheck // Fresh context required after parent cancellation
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown failed: %v", err)
		}
	}()
}
