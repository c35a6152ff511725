// Package api serves watch mode status over HTTP: liveness, readiness
// derived from the latest probe report, the report itself and Prometheus
// metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/iscsiprobe/internal/logger"
	"github.com/marmos91/iscsiprobe/pkg/api/handlers"
)

// Server provides the status HTTP server.
//
// Endpoints:
//   - GET /health: Liveness probe
//   - GET /health/ready: Readiness probe
//   - GET /report: Latest probe report
//   - GET /metrics: Prometheus metrics
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server       *http.Server
	config       APIConfig
	listener     net.Listener
	shutdownOnce sync.Once
}

// NewServer creates a new status HTTP server.
//
// The server is created in a stopped state. Call Start() to begin serving requests.
//
// Defaults are applied here to ensure the server works correctly even when
// created directly (e.g., in tests). This is idempotent with the defaults
// applied during config loading.
func NewServer(config APIConfig, source handlers.ReportSource) *Server {
	config.ApplyDefaults()

	server := &http.Server{
		Addr:         config.Listen,
		Handler:      NewRouter(source),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server: server,
		config: config,
	}
}

// Listen binds the configured address. Start calls it when needed; calling
// it first lets callers learn the port chosen for ":0".
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("API server listen %s: %w", s.config.Listen, err)
	}
	s.listener = ln
	return nil
}

// Start serves requests and blocks until the context is cancelled or the
// server fails.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the server fails to start or shutdown encounters an error
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", logger.Listen(s.Addr()))
		logger.Debug("API endpoints available",
			"health", fmt.Sprintf("http://%s/health", s.Addr()),
			"ready", fmt.Sprintf("http://%s/health/ready", s.Addr()),
			"report", fmt.Sprintf("http://%s/report", s.Addr()),
		)

		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Debug("API server shutdown signal received")
		// The parent context is already done; give shutdown its own bound.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the API server.
//
// Stop is safe to call multiple times and safe to call concurrently with Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", logger.Err(err))
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Listen
}
