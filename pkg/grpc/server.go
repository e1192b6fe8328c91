package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/reflection"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"

	"github.com/getmockd/mockharness/pkg/harness"
	"github.com/getmockd/mockharness/pkg/logging"
	"github.com/getmockd/mockharness/pkg/requestlog"
)

// DefaultShutdownTimeout bounds GracefulStop before the server is stopped hard.
const DefaultShutdownTimeout = 5 * time.Second

// Config configures the gRPC adapter.
type Config struct {
	// Address to bind. Empty binds 127.0.0.1 on a free port.
	Address string

	// ShutdownTimeout bounds the graceful drain. Zero uses DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	// Schema is optional. When set, request messages are rendered as JSON.
	Schema *ProtoSchema

	// Reflection registers the server reflection service. Requires Schema.
	Reflection bool

	// MaxRecvMsgSize overrides grpc-go's default receive limit when positive.
	MaxRecvMsgSize int
}

// Server is the gRPC harness.Adapter.
type Server struct {
	cfg Config
	log *slog.Logger
}

// NewServer creates a gRPC adapter.
func NewServer(cfg Config) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &Server{cfg: cfg, log: logging.Nop()}
}

// SetLogger sets the operational logger for the adapter.
func (s *Server) SetLogger(log *slog.Logger) {
	if log != nil {
		s.log = log.With("component", "grpc")
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
	return requestlog.ProtocolGRPC
}

// Listen implements harness.Adapter.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	return harness.ListenTCP(ctx, s.cfg.Address)
}

// NewTransport implements harness.Adapter.
func (s *Server) NewTransport(d *Dispatcher) harness.Transport {
	t := &transport{
		d:       d,
		schema:  s.cfg.Schema,
		timeout: s.cfg.ShutdownTimeout,
		log:     s.log,
	}

	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(rawCodec{}),
		grpc.UnknownServiceHandler(t.handle),
	}
	if s.cfg.MaxRecvMsgSize > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(s.cfg.MaxRecvMsgSize))
	}
	t.gs = grpc.NewServer(opts...)

	if s.cfg.Reflection && s.cfg.Schema != nil {
		reflectionpb.RegisterServerReflectionServer(t.gs, reflection.NewServerV1(reflection.ServerOptions{
			Services:           s.cfg.Schema,
			DescriptorResolver: s.cfg.Schema.Resolver(),
		}))
	}
	return t
}

// transport serves every call through the dispatcher.
type transport struct {
	gs      *grpc.Server
	d       *Dispatcher
	schema  *ProtoSchema
	timeout time.Duration
	log     *slog.Logger
}

// Serve implements harness.Transport.
func (t *transport) Serve(l net.Listener) error {
	if err := t.gs.Serve(l); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Shutdown implements harness.Transport. In-flight calls get the configured
// timeout to finish before the server is stopped hard.
func (t *transport) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.gs.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		t.gs.Stop()
		<-done
		return fmt.Errorf("gRPC shutdown: %w", context.DeadlineExceeded)
	case <-ctx.Done():
		t.gs.Stop()
		<-done
		return fmt.Errorf("gRPC shutdown: %w", ctx.Err())
	}
}

func (t *transport) handle(_ any, stream grpc.ServerStream) error {
	fullMethod, ok := grpc.MethodFromServerStream(stream)
	if !ok {
		return status.Error(codes.Internal, "failed to get method from stream")
	}
	key, err := ParseFullMethod(fullMethod)
	if err != nil {
		t.d.Reject(err)
		return status.Error(codes.Unimplemented, err.Error())
	}

	var in frame
	if err := stream.RecvMsg(&in); err != nil {
		t.d.Reject(err)
		return status.Errorf(codes.InvalidArgument, "failed to receive request: %v", err)
	}

	ctx := stream.Context()
	md, _ := metadata.FromIncomingContext(ctx)
	var remote string
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		remote = p.Addr.String()
	}
	req := newRequest(key, md.Copy(), in.data, remote)
	if t.schema != nil {
		if req.JSON, err = t.schema.DecodeJSON(key.Service, key.Method, in.data); err != nil {
			t.log.Debug("request not decoded", "method", fullMethod, "error", err)
		}
	}

	res, err := t.d.Dispatch(req)
	var panicErr *harness.HandlerPanicError
	switch {
	case err == nil:
		return reply(stream, res.Response)
	case errors.Is(err, harness.ErrRouteNotFound):
		return status.Error(codes.Unimplemented, "Method not found")
	case errors.Is(err, harness.ErrNoHandler):
		return stream.SendMsg(&frame{})
	case errors.As(err, &panicErr):
		return status.Errorf(codes.Internal, "handler panic: %v", panicErr.Value)
	default:
		t.log.Error("dispatch failed", "method", fullMethod, "error", err)
		return status.Error(codes.Internal, err.Error())
	}
}

func reply(stream grpc.ServerStream, resp Response) error {
	if len(resp.Header) > 0 {
		if err := stream.SetHeader(resp.Header); err != nil {
			return err
		}
	}
	if len(resp.Trailer) > 0 {
		stream.SetTrailer(resp.Trailer)
	}
	if err := resp.Err(); err != nil {
		return err
	}
	return stream.SendMsg(&frame{data: resp.Message})
}
