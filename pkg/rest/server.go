package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/getmockd/mockharness/pkg/harness"
	"github.com/getmockd/mockharness/pkg/httputil"
	"github.com/getmockd/mockharness/pkg/logging"
	"github.com/getmockd/mockharness/pkg/requestlog"
)

// DefaultShutdownTimeout bounds the graceful drain.
const DefaultShutdownTimeout = 5 * time.Second

// Config configures the HTTP adapter.
type Config struct {
	// Address to bind. Empty binds 127.0.0.1 on a free port.
	Address string

	// ShutdownTimeout bounds the graceful drain. Zero uses DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	// MaxBodySize bounds request bodies. Zero uses httputil.DefaultMaxBodySize.
	MaxBodySize int64

	// H2C serves HTTP/2 without TLS (prior knowledge) alongside HTTP/1.1.
	H2C bool
}

// Server is the HTTP harness.Adapter.
type Server struct {
	cfg Config
	log *slog.Logger
}

// NewServer creates an HTTP adapter.
func NewServer(cfg Config) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &Server{cfg: cfg, log: logging.Nop()}
}

// SetLogger sets the operational logger for the adapter.
func (s *Server) SetLogger(log *slog.Logger) {
	if log != nil {
		s.log = log.With("component", "rest")
	} else {
		s.log = logging.Nop()
	}
}

// Config returns the effective configuration.
func (s *Server) Config() Config {
	return s.cfg
}

// Protocol implements harness.Adapter.
func (s *Server) Protocol() string {
	return requestlog.ProtocolHTTP
}

// Listen implements harness.Adapter.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	return harness.ListenTCP(ctx, s.cfg.Address)
}

// NewTransport implements harness.Adapter.
func (s *Server) NewTransport(d *Dispatcher) harness.Transport {
	h := &dispatchHandler{d: d, maxBody: s.cfg.MaxBodySize, log: s.log}
	var opts []httputil.Option
	if s.cfg.H2C {
		opts = append(opts, httputil.WithH2C())
	}
	return httputil.NewServer(h, s.cfg.ShutdownTimeout, s.log, opts...)
}

// dispatchHandler turns HTTP requests into dispatcher calls.
type dispatchHandler struct {
	d       *Dispatcher
	maxBody int64
	log     *slog.Logger
}

func (h *dispatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := httputil.ReadBody(w, r, h.maxBody)
	if err != nil {
		h.d.Reject(err)
		httputil.WriteBadRequest(w, "malformed_body", fmt.Sprintf("read request body: %v", err))
		return
	}

	res, err := h.d.Dispatch(newRequest(r, body))
	var panicErr *harness.HandlerPanicError
	switch {
	case err == nil:
		res.Response.write(w)
	case errors.Is(err, harness.ErrRouteNotFound):
		httputil.WriteNotFound(w, "not_found", fmt.Sprintf("no route declared for %s %s", r.Method, r.URL.Path))
	case errors.Is(err, harness.ErrNoHandler):
		http.Error(w, "No handler configured", http.StatusNotFound)
	case errors.As(err, &panicErr):
		httputil.WriteInternalError(w, "handler_panic", fmt.Sprint(panicErr.Value))
	default:
		h.log.Error("dispatch failed", "error", err)
		httputil.WriteInternalError(w, "internal_error", err.Error())
	}
}
