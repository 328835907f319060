package server

import (
	"context"
	"net/http"
	"time"

	"codeatlas/internal/common/logging"
)

// Server wraps the diagnostics HTTP server with timeouts and graceful
// shutdown.
type Server struct {
	srv    *http.Server
	logger logging.Logger
	errCh  chan error
}

// New creates a server listening on the given port.
func New(handler http.Handler, port string, logger logging.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         ":" + port,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
		errCh:  make(chan error, 1),
	}
}

// Start begins serving in the background. A fatal serve error, such as the
// port already being bound, is delivered on Err.
func (s *Server) Start() {
	s.logger.Info("Diagnostics server listening", logging.Field{Key: "addr", Value: s.srv.Addr})

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.errCh <- err
		}
	}()
}

// Err reports a fatal serve error.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Shutdown stops accepting connections and drains in-flight requests until
// ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
