package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"turntable/internal/config"
	"turntable/internal/logging"
	"turntable/internal/session"
	"turntable/internal/store"
)

// Server owns the HTTP listener and routes.
type Server struct {
	cfg      *config.Config
	pipeline *session.Pipeline
	store    *store.Store
	logger   *slog.Logger
	sem      chan struct{}

	listener net.Listener
	server   *http.Server
	// requests is the parent of every request context; Stop cancels it
	// when in-flight sessions outlast the shutdown grace period.
	requests context.Context
	abort    context.CancelFunc
	grace    time.Duration
}

// NewServer wires routes for pipeline. st may be nil, in which case the
// session history routes answer 404.
func NewServer(cfg *config.Config, pipeline *session.Pipeline, st *store.Store, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		store:    st,
		logger:   logging.NewComponentLogger(logger, "api"),
		grace:    5 * time.Second,
	}
	if n := cfg.API.MaxConcurrentSessions; n > 0 {
		s.sem = make(chan struct{}, n)
	}
	s.requests, s.abort = context.WithCancel(context.Background())
	// Sessions run for as long as decoding and uploading take, so there is
	// no read or write deadline beyond the header timeout.
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.requests },
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	token := strings.TrimSpace(s.cfg.API.Token)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /frames/{session}/{filename}", s.handleFrame)
	mux.HandleFunc("POST /process360", authMiddleware(token, s.handleProcess))
	mux.HandleFunc("GET /api/sessions", authMiddleware(token, s.handleSessions))
	mux.HandleFunc("GET /api/sessions/{id}", authMiddleware(token, s.handleSession))
	return requestIDMiddleware(corsMiddleware(s.cfg.API.AllowedOrigins, mux))
}

// Start listens on [api] bind and serves until Stop is called.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.API.Bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and waits for in-flight requests. Requests still
// running after the grace period have their contexts cancelled, and Stop
// returns once the pipeline has recorded every session it started.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logging.WarnWithContext(s.logger, "cancelling in-flight sessions", "api_shutdown_timeout",
			logging.Error(err),
			logging.String(logging.FieldImpact, "running sessions are recorded as failed"),
		)
	}
	s.abort()
	s.pipeline.Drain()
}

func writeJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := writeJSON(w, status, payload); err != nil {
		logging.WithContext(r.Context(), s.logger).Error("failed to encode response", logging.Error(err))
	}
}
