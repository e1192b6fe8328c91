package graphql

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

// DefaultPath is the endpoint path used when Config.Path is empty.
const DefaultPath = "/graphql"

// MaxRequestBodySize is the maximum allowed request body size (1MB).
const MaxRequestBodySize = 1 << 20

// DefaultShutdownTimeout bounds the graceful drain.
const DefaultShutdownTimeout = 5 * time.Second

// Config configures the GraphQL adapter.
type Config struct {
	// Address to bind. Empty binds 127.0.0.1 on a free port.
	Address string

	// Path is the URL path of the endpoint. Defaults to /graphql.
	Path string

	// Schema, when set, validates every document before dispatch.
	Schema *Schema

	// ShutdownTimeout bounds the graceful drain. Zero uses DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
}

// Server is the GraphQL harness.Adapter.
type Server struct {
	cfg Config
	log *slog.Logger
}

// NewServer creates a GraphQL adapter.
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
		s.log = log.With("component", "graphql")
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
	return requestlog.ProtocolGraphQL
}

// Listen implements harness.Adapter.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	return harness.ListenTCP(ctx, s.cfg.Address)
}

// NewTransport implements harness.Adapter.
func (s *Server) NewTransport(d *Dispatcher) harness.Transport {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, &endpoint{d: d, schema: s.cfg.Schema, log: s.log})
	return httputil.NewServer(mux, s.cfg.ShutdownTimeout, s.log)
}

type endpoint struct {
	d      *Dispatcher
	schema *Schema
	log    *slog.Logger
}

// ServeHTTP handles GET and POST requests on the endpoint path.
func (e *endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		httputil.WriteMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	req, err := e.decode(w, r)
	if err != nil {
		e.reject(w, err)
		return
	}

	doc, err := parseDocument(e.schema, req.Query)
	if err != nil {
		e.reject(w, err)
		return
	}
	op, err := selectOperation(doc, req.OperationName)
	if err != nil {
		e.reject(w, err)
		return
	}

	opType := OperationType(op.Operation)
	resp := wireResponse{Data: newResultMap()}
	for _, field := range rootFields(doc, op.SelectionSet) {
		alias := field.Alias
		if alias == "" {
			alias = field.Name
		}
		if field.Name == "__typename" {
			resp.Data.Set(alias, opType.TypeName())
			continue
		}

		value, errs := e.resolve(&Request{
			Query:         req.Query,
			OperationName: req.OperationName,
			Variables:     req.Variables,
			Operation:     opType,
			Field:         field.Name,
			Alias:         alias,
			Args:          extractArguments(field, req.Variables),
			Header:        r.Header.Clone(),
			RemoteAddr:    r.RemoteAddr,
		})
		resp.Data.Set(alias, value)
		resp.Errors = append(resp.Errors, errs...)
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (e *endpoint) decode(w http.ResponseWriter, r *http.Request) (*wireRequest, error) {
	if r.Method == http.MethodGet {
		return decodeGet(r)
	}
	body, err := httputil.ReadBody(w, r, MaxRequestBodySize)
	if err != nil {
		return nil, newParseError("failed to read request body: %v", err)
	}
	return decodePost(r.Header.Get("Content-Type"), body)
}

// resolve dispatches one root field and returns its value and errors.
func (e *endpoint) resolve(req *Request) (any, []Error) {
	fieldPath := []any{req.Alias}

	res, err := e.d.Dispatch(req)
	var panicErr *harness.HandlerPanicError
	switch {
	case err == nil:
	case errors.Is(err, harness.ErrRouteNotFound):
		return nil, []Error{{Message: fmt.Sprintf("no mock configured for %s", req.RouteKey()), Path: fieldPath}}
	case errors.Is(err, harness.ErrNoHandler):
		return nil, nil
	case errors.As(err, &panicErr):
		return nil, []Error{{Message: fmt.Sprintf("internal error resolving %s", req.RouteKey()), Path: fieldPath}}
	default:
		e.log.Error("dispatch failed", "field", req.RouteKey().String(), "error", err)
		return nil, []Error{{Message: err.Error(), Path: fieldPath}}
	}

	errs := make([]Error, len(res.Response.Errors))
	for i, gqlErr := range res.Response.Errors {
		if len(gqlErr.Path) == 0 {
			gqlErr.Path = fieldPath
		}
		errs[i] = gqlErr
	}
	return res.Response.Data, errs
}

// reject answers a request that could not be executed. GraphQL clients expect
// errors in the body, so the status stays 200.
func (e *endpoint) reject(w http.ResponseWriter, err error) {
	e.d.Reject(err)
	var pe *parseError
	if !errors.As(err, &pe) {
		pe = newParseError("%v", err)
	}
	httputil.WriteJSON(w, http.StatusOK, wireResponse{Errors: pe.errors})
}
