package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"switchboard-hq/switchboard/pkg/audit"
	"switchboard-hq/switchboard/pkg/config"
	"switchboard-hq/switchboard/pkg/protocols"
	"switchboard-hq/switchboard/pkg/proxy/handlers"
	"switchboard-hq/switchboard/pkg/proxy/middleware"
	"switchboard-hq/switchboard/pkg/rendezvous"
	"switchboard-hq/switchboard/pkg/telemetry/metrics"
)

// Server is the rendezvous proxy HTTP server. It owns the session manager
// and the optional metrics collector and audit recorder.
type Server struct {
	config   *config.Config
	sessions *rendezvous.Manager
	metrics  *metrics.Collector
	recorder *audit.Recorder

	httpServer   *http.Server
	shutdownChan chan struct{}
	requestOnce  sync.Once
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer assembles a server from configuration. It builds the audit
// recorder and metrics collector per the config and injects them, together
// with the session manager, into the handlers.
func NewServer(cfg *config.Config) (*Server, error) {
	s := &Server{
		config:       cfg,
		shutdownChan: make(chan struct{}),
	}

	if cfg.Telemetry.Metrics.Enabled {
		s.metrics = metrics.NewCollector()
	}

	if cfg.Audit.Enabled {
		backend, err := newAuditBackend(&cfg.Audit)
		if err != nil {
			return nil, err
		}
		s.recorder = audit.NewRecorder(backend, cfg.Audit.BufferSize)
	}

	s.sessions = rendezvous.NewManager(rendezvous.ManagerConfig{
		HandshakeTimeout: cfg.Session.HandshakeTimeout,
		TurnTimeout:      cfg.Session.TurnTimeout,
		SessionTTL:       cfg.Session.TTL,
		MaxSessions:      cfg.Session.MaxSessions,
		CleanupInterval:  cfg.Session.CleanupInterval,
		EvictIdle:        cfg.Session.EvictIdle,
	}, s.eventSink())

	return s, nil
}

// newAuditBackend builds the configured journal backend.
func newAuditBackend(cfg *config.AuditConfig) (audit.Backend, error) {
	switch cfg.Backend {
	case "sqlite":
		backend, err := audit.NewSQLiteBackend(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit backend: %w", err)
		}
		return backend, nil
	default:
		return audit.NewMemoryBackend(cfg.MaxEvents), nil
	}
}

// eventSink composes the lifecycle observers configured for this server.
func (s *Server) eventSink() rendezvous.EventSink {
	var sinks rendezvous.MultiSink
	if s.metrics != nil {
		sinks = append(sinks, s.metrics.Sessions)
	}
	if s.recorder != nil {
		sinks = append(sinks, s.recorder)
	}
	if len(sinks) == 0 {
		return rendezvous.NopSink{}
	}
	return sinks
}

// Sessions returns the session manager, for CLI and test wiring.
func (s *Server) Sessions() *rendezvous.Manager {
	return s.sessions
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	if err := s.sessions.Start(); err != nil {
		return err
	}

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.config.Server.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting rendezvous proxy",
			"address", s.config.Server.ListenAddress,
			"handshake_timeout", s.config.Session.HandshakeTimeout.String(),
			"turn_timeout", s.config.Session.TurnTimeout.String(),
			"max_sessions", s.config.Session.MaxSessions,
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down: drain the HTTP listener, close every
// session (releasing suspended callers), then flush the audit journal.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown",
			"timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.sessions.Shutdown()

		if s.recorder != nil {
			if err := s.recorder.Close(); err != nil {
				slog.Error("error closing audit recorder", "error", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("rendezvous proxy stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	maxPayload := s.config.Server.MaxPayloadBytes
	for _, adapter := range []protocols.Adapter{
		protocols.NewChatAdapter(),
		protocols.NewMessagesAdapter(),
	} {
		mux.Handle(adapter.Path(),
			handlers.NewTurnHandler(adapter, s.sessions, maxPayload, s.metrics, s.recorder))
	}

	mux.Handle("/health", handlers.NewHealthHandler(s.sessions))
	mux.Handle("/admin/sessions", handlers.NewSessionsHandler(s.sessions))
	mux.Handle("/admin/sessions/events", handlers.NewEventsHandler(s.recorder))

	if s.metrics != nil {
		mux.Handle(s.config.Telemetry.Metrics.Path, s.metrics.Handler())
	}

	// Middleware chain, innermost first. Recovery is outermost so every
	// layer below it is covered; the request id is assigned before logging
	// so the log lines carry it.
	var handler http.Handler = mux

	if s.config.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(s.config.RateLimit)
		handler = middleware.RateLimitMiddleware(limiter)(handler)
	}

	if s.config.Auth.Enabled {
		handler = middleware.AuthMiddleware(&s.config.Auth)(handler)
	}

	handler = middleware.CORSMiddleware(&s.config.Server.CORS)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// Handler returns the configured HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// RequestShutdown asks a running Start loop to exit.
func (s *Server) RequestShutdown() {
	s.requestOnce.Do(func() { close(s.shutdownChan) })
}
