package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Host              string
	Port              int
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// DefaultServerConfig returns sensible defaults for server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "",
		Port:              3001,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   30 * time.Second,
	}
}

// Server wraps the HTTP server with graceful shutdown support
type Server struct {
	server *http.Server
	logger *slog.Logger
	config ServerConfig
}

// streamContext is the base context of every request. It is cancelled when
// shutdown starts so event streams end instead of holding Shutdown open.
func streamContext(srv *http.Server) func(net.Listener) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	srv.RegisterOnShutdown(cancel)
	return func(net.Listener) context.Context { return ctx }
}

// NewServer creates a new HTTP server
func NewServer(handler http.Handler, config ServerConfig, logger *slog.Logger) *Server {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)

	// No read or write timeout: websockets and SSE streams are long-lived
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		IdleTimeout:       config.IdleTimeout,
	}
	srv.BaseContext = streamContext(srv)

	return &Server{
		server: srv,
		logger: logger,
		config: config,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Addr returns the server's listen address
func (s *Server) Addr() string {
	return s.server.Addr
}
