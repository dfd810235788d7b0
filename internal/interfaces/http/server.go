package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
)

// ServerConfig holds the listener settings.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server wraps http.Server with graceful shutdown.
type Server struct {
	httpServer *http.Server
	cfg        ServerConfig
	logger     logging.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a Server for handler.
func NewServer(cfg ServerConfig, handler http.Handler, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

// Listen binds the configured address.  Start calls it when needed; calling
// it first lets the caller learn the bound address.
func (s *Server) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		ln, err := net.Listen("tcp", s.cfg.Addr)
		if err != nil {
			return nil, err
		}
		s.listener = ln
	}
	return s.listener.Addr(), nil
}

// Start serves until Shutdown.  It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	addr, err := s.Listen()
	if err != nil {
		return err
	}
	s.logger.Info("HTTP server listening", logging.String("addr", addr.String()))

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests for at most the shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.mu.Lock()
	if s.listener != nil {
		// Closed already when Serve ran; this covers Listen without Start.
		_ = s.listener.Close()
	}
	s.mu.Unlock()
	s.logger.Info("HTTP server stopped")
	return nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

//Personal.AI order the ending
