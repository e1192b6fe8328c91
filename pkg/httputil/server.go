package httputil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server runs an http.Handler on a pre-bound listener and drains it on
// shutdown. It satisfies harness.Transport.
type Server struct {
	srv     *http.Server
	timeout time.Duration
}

// Option configures the underlying http.Server.
type Option func(*http.Server)

// WithH2C serves HTTP/2 with prior knowledge alongside HTTP/1.1. These
// connections are owned by the http.Server, so Shutdown sends them GOAWAY and
// waits for them like any other connection.
func WithH2C() Option {
	return func(srv *http.Server) {
		var p http.Protocols
		p.SetHTTP1(true)
		p.SetUnencryptedHTTP2(true)
		srv.Protocols = &p
	}
}

// NewServer wraps h. Shutdown waits at most shutdownTimeout for in-flight
// requests before closing the remaining connections.
func NewServer(h http.Handler, shutdownTimeout time.Duration, log *slog.Logger, opts ...Option) *Server {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if log != nil {
		srv.ErrorLog = slog.NewLogLogger(log.Handler(), slog.LevelDebug)
	}
	for _, opt := range opts {
		opt(srv)
	}
	return &Server{srv: srv, timeout: shutdownTimeout}
}

// Serve accepts connections until Shutdown. It returns nil after a shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		// Drain timed out: drop the remaining connections.
		_ = s.srv.Close()
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}
