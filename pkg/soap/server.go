package soap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/getmockd/mockharness/pkg/harness"
	"github.com/getmockd/mockharness/pkg/httputil"
	"github.com/getmockd/mockharness/pkg/logging"
	"github.com/getmockd/mockharness/pkg/requestlog"
)

// DefaultPath is the endpoint path used when Config.Path is empty.
const DefaultPath = "/soap"

// DefaultShutdownTimeout bounds the graceful drain.
const DefaultShutdownTimeout = 5 * time.Second

var errMethodNotAllowed = errors.New("SOAP operations require POST")

// Config configures the SOAP adapter.
type Config struct {
	// Address to bind. Empty binds 127.0.0.1 on a free port.
	Address string

	// Path is the URL path of the endpoint. Defaults to /soap.
	Path string

	// WSDL is served for GET requests carrying a ?wsdl query.
	WSDL string

	// ShutdownTimeout bounds the graceful drain. Zero uses DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	// MaxBodySize bounds request bodies. Zero uses httputil.DefaultMaxBodySize.
	MaxBodySize int64
}

// Server is the SOAP harness.Adapter.
type Server struct {
	cfg Config
	log *slog.Logger
}

// NewServer creates a SOAP adapter.
func NewServer(cfg Config) *Server {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &Server{cfg: cfg, log: logging.Nop()}
}

// SetLogger sets the operational logger for the adapter.
func (s *Server) SetLogger(log *slog.Logger) {
	if log != nil {
		s.log = log.With("component", "soap")
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
	return requestlog.ProtocolSOAP
}

// Listen implements harness.Adapter.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	return harness.ListenTCP(ctx, s.cfg.Address)
}

// NewTransport implements harness.Adapter.
func (s *Server) NewTransport(d *Dispatcher) harness.Transport {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, &endpoint{d: d, cfg: s.cfg, log: s.log})
	return httputil.NewServer(mux, s.cfg.ShutdownTimeout, s.log)
}

// endpoint turns SOAP envelopes into dispatcher calls.
type endpoint struct {
	d   *Dispatcher
	cfg Config
	log *slog.Logger
}

func (h *endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if isWSDLRequest(r) {
		h.serveWSDL(w)
		return
	}
	if r.Method != http.MethodPost {
		h.d.Reject(errMethodNotAllowed)
		httputil.WriteMethodNotAllowed(w, http.MethodPost)
		return
	}

	body, err := httputil.ReadBody(w, r, h.cfg.MaxBodySize)
	if err != nil {
		h.reject(w, requestVersion(r), fmt.Errorf("failed to read request body: %w", err))
		return
	}
	env, err := parseEnvelope(body)
	if err != nil {
		h.reject(w, requestVersion(r), fmt.Errorf("failed to parse SOAP envelope: %w", err))
		return
	}

	req := newRequest(r, body, env)
	res, err := h.d.Dispatch(req)
	var panicErr *harness.HandlerPanicError
	switch {
	case err == nil:
		h.write(w, env.version, res.Response)
	case errors.Is(err, harness.ErrRouteNotFound):
		h.write(w, env.version, NewFault(FaultClient, "operation not implemented: "+req.Operation))
	case errors.Is(err, harness.ErrNoHandler):
		h.write(w, env.version, Response{})
	case errors.As(err, &panicErr):
		h.write(w, env.version, NewFault(FaultServer, fmt.Sprintf("handler panic: %v", panicErr.Value)))
	default:
		h.log.Error("dispatch failed", "operation", req.Operation, "error", err)
		h.write(w, env.version, NewFault(FaultServer, err.Error()))
	}
}

// reject answers a malformed request with a Client fault. Nothing is recorded.
func (h *endpoint) reject(w http.ResponseWriter, v Version, err error) {
	h.d.Reject(err)
	h.write(w, v, NewFault(FaultClient, err.Error()).WithStatus(http.StatusBadRequest))
}

func (h *endpoint) write(w http.ResponseWriter, v Version, resp Response) {
	var (
		payload []byte
		status  = resp.StatusCode()
	)
	if resp.Fault != nil {
		payload = faultEnvelope(v, resp.Fault)
	} else {
		var err error
		if payload, err = bodyEnvelope(v, resp.Body); err != nil {
			h.log.Error("invalid response body", "error", err)
			payload = faultEnvelope(v, &Fault{Code: FaultServer, Message: err.Error()})
			status = http.StatusInternalServerError
		}
	}
	w.Header().Set("Content-Type", v.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func (h *endpoint) serveWSDL(w http.ResponseWriter) {
	if h.cfg.WSDL == "" {
		http.Error(w, "WSDL not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.cfg.WSDL))
}

// isWSDLRequest reports a GET carrying a wsdl query key in any case.
func isWSDLRequest(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	for key := range r.URL.Query() {
		if strings.EqualFold(key, "wsdl") {
			return true
		}
	}
	return false
}
