// Package server is the HTTP listener manager: start/shutdown plumbing
// adapted from BaSui01/agentflow's internal/server/manager.go, plus the
// EADDRINUSE adopt-or-retry probe from spec.md §4.9 "Port binding".
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Config is the Manager's tunables.
type Config struct {
	Port            int
	PortRetries     int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// HealthProbe checks whether the service already listening on addr is a
// prior instance of ourselves. Returning true means "adopt it, don't
// bind" — returning false means "something else owns that port, retry
// the next one."
type HealthProbe func(addr string) bool

// Manager owns the HTTP server lifecycle.
type Manager struct {
	server   *http.Server
	listener net.Listener
	errCh    chan error
	config   Config
	logger   *zap.Logger
	mu       sync.RWMutex
	closed   bool
	adopted  bool
}

// NewManager builds a Manager for handler under config.
func NewManager(handler http.Handler, config Config, logger *zap.Logger) *Manager {
	return &Manager{
		server: &http.Server{
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		},
		errCh:  make(chan error, 1),
		config: config,
		logger: logger.With(zap.String("component", "http_server")),
	}
}

// Start binds the configured port, adopting an existing instance (per
// probe) on EADDRINUSE, or retrying on the same port after 1s up to
// PortRetries times (spec.md §4.9 "Port binding"). Adopted reports
// whether Start concluded that another instance of this service already
// owns the port, in which case the caller should not treat this as a
// fresh listener.
func (m *Manager) Start(probe HealthProbe) (adopted bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, fmt.Errorf("server is closed")
	}
	if m.listener != nil {
		return false, fmt.Errorf("server already started")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", m.config.Port)
	retries := m.config.PortRetries
	if retries <= 0 {
		retries = 5
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		listener, listenErr := net.Listen("tcp", addr)
		if listenErr == nil {
			m.listener = listener
			m.logger.Info("starting HTTP server", zap.String("addr", addr))
			go m.serve(listener)
			return false, nil
		}
		lastErr = listenErr

		if !errors.Is(listenErr, syscall.EADDRINUSE) {
			return false, fmt.Errorf("listen on %s: %w", addr, listenErr)
		}

		if probe != nil && probe(addr) {
			m.logger.Info("adopting existing instance on port", zap.String("addr", addr))
			m.adopted = true
			return true, nil
		}

		if attempt < retries {
			time.Sleep(time.Second)
		}
	}

	return false, fmt.Errorf("listen on %s after %d retries: %w", addr, retries, lastErr)
}

func (m *Manager) serve(listener net.Listener) {
	if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.logger.Error("HTTP server failed", zap.Error(err))
		select {
		case m.errCh <- err:
		default:
		}
	}
}

// Shutdown gracefully stops the server within config.ShutdownTimeout.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.adopted {
		// We never bound a listener of our own; nothing to shut down.
		return nil
	}

	m.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, m.config.ShutdownTimeout)
	defer cancel()

	if err := m.server.Shutdown(shutdownCtx); err != nil {
		m.logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}
	m.listener = nil
	m.logger.Info("HTTP server stopped")
	return nil
}

// WaitForShutdown blocks until SIGINT/SIGTERM or an async server error,
// then shuts down.
func (m *Manager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		m.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-m.errCh:
		if err != nil {
			m.logger.Error("server exited unexpectedly", zap.Error(err))
		}
	}

	if err := m.Shutdown(context.Background()); err != nil {
		m.logger.Error("shutdown error", zap.Error(err))
	}
}

// Errors returns asynchronous server errors.
func (m *Manager) Errors() <-chan error { return m.errCh }

// Adopted reports whether Start concluded another instance already owns
// the port.
func (m *Manager) Adopted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adopted
}
