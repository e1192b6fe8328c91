package grpc

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/getmockd/mockharness/pkg/requestlog"
)

// Key identifies a gRPC route by service and method.
type Key struct {
	// Service is the fully qualified service name (e.g., "package.ServiceName").
	Service string

	// Method is the method name.
	Method string
}

// ParseFullMethod splits "/package.Service/Method" into a Key.
func ParseFullMethod(fullMethod string) (Key, error) {
	parts := strings.Split(strings.TrimPrefix(fullMethod, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Key{}, fmt.Errorf("invalid method path: %s", fullMethod)
	}
	return Key{Service: parts[0], Method: parts[1]}, nil
}

// FullMethod returns the wire path "/package.Service/Method".
func (k Key) FullMethod() string {
	return "/" + k.Service + "/" + k.Method
}

func (k Key) String() string {
	return k.Service + "/" + k.Method
}

// Request is the context handed to gRPC handlers.
type Request struct {
	Service  string
	Method   string
	Metadata metadata.MD

	// Message is the serialized request message.
	Message []byte

	// JSON is the request message rendered as JSON when a proto schema is loaded.
	JSON string

	RemoteAddr string
}

// RouteKey implements harness.RequestContext.
func (r *Request) RouteKey() Key {
	return Key{Service: r.Service, Method: r.Method}
}

// Header returns the first metadata value for name.
func (r *Request) Header(name string) string {
	if vals := r.Metadata.Get(name); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Unmarshal decodes the request message into m.
func (r *Request) Unmarshal(m proto.Message) error {
	return proto.Unmarshal(r.Message, m)
}

// LogEntry implements requestlog.Loggable.
// The body holds the JSON rendering when available, otherwise base64 bytes.
func (r *Request) LogEntry() *requestlog.Entry {
	key := r.RouteKey()
	e := &requestlog.Entry{
		Protocol:   requestlog.ProtocolGRPC,
		Route:      key.String(),
		Method:     r.Method,
		Path:       key.FullMethod(),
		Headers:    map[string][]string(r.Metadata.Copy()),
		RemoteAddr: r.RemoteAddr,
		GRPC: &requestlog.GRPCMeta{
			Service:    r.Service,
			MethodName: r.Method,
			JSON:       r.JSON,
		},
	}
	if r.JSON != "" {
		e.SetBody([]byte(r.JSON))
	} else {
		e.SetBody([]byte(base64.StdEncoding.EncodeToString(r.Message)))
	}
	e.BodySize = len(r.Message)
	return e
}

// Response is what a gRPC handler answers with.
// A non-OK Status takes precedence over Message.
type Response struct {
	Message []byte
	Status  *status.Status
	Header  metadata.MD
	Trailer metadata.MD
}

// Message returns a response carrying serialized message bytes.
func Message(data []byte) Response {
	return Response{Message: data}
}

// Proto returns a response carrying m. A marshal failure becomes an Internal status.
func Proto(m proto.Message) Response {
	data, err := proto.Marshal(m)
	if err != nil {
		return Errorf(codes.Internal, "marshal response: %v", err)
	}
	return Response{Message: data}
}

// Error returns a response failing the call with code and msg.
func Error(code codes.Code, msg string) Response {
	return Response{Status: status.New(code, msg)}
}

// Errorf is Error with a formatted message.
func Errorf(code codes.Code, format string, args ...any) Response {
	return Response{Status: status.Newf(code, format, args...)}
}

// WithHeader returns a copy of r with a response header added.
func (r Response) WithHeader(key, value string) Response {
	r.Header = metadata.Join(r.Header, metadata.Pairs(key, value))
	return r
}

// WithTrailer returns a copy of r with a trailer added.
func (r Response) WithTrailer(key, value string) Response {
	r.Trailer = metadata.Join(r.Trailer, metadata.Pairs(key, value))
	return r
}

// ErrorDetails describes the standard detail messages of an error status.
// Zero-valued groups are omitted.
type ErrorDetails struct {
	// ErrorInfo.
	Reason   string
	Domain   string
	Metadata map[string]string

	// RetryInfo.
	RetryDelay time.Duration

	// BadRequest.
	FieldViolations []*errdetails.BadRequest_FieldViolation

	// DebugInfo.
	Debug string
}

func (d ErrorDetails) messages() []protoadapt.MessageV1 {
	var out []protoadapt.MessageV1
	if d.Reason != "" || d.Domain != "" || len(d.Metadata) > 0 {
		out = append(out, &errdetails.ErrorInfo{Reason: d.Reason, Domain: d.Domain, Metadata: d.Metadata})
	}
	if d.RetryDelay > 0 {
		out = append(out, &errdetails.RetryInfo{RetryDelay: durationpb.New(d.RetryDelay)})
	}
	if len(d.FieldViolations) > 0 {
		out = append(out, &errdetails.BadRequest{FieldViolations: d.FieldViolations})
	}
	if d.Debug != "" {
		out = append(out, &errdetails.DebugInfo{Detail: d.Debug})
	}
	return out
}

// WithDetails returns a copy of r whose status carries d. Successful
// responses are returned unchanged.
func (r Response) WithDetails(d ErrorDetails) Response {
	if r.Status == nil || r.Status.Code() == codes.OK {
		return r
	}
	msgs := d.messages()
	if len(msgs) == 0 {
		return r
	}
	st, err := r.Status.WithDetails(msgs...)
	if err != nil {
		return Errorf(codes.Internal, "attach error details: %v", err)
	}
	r.Status = st
	return r
}

// Err returns the status error, or nil for a successful response.
func (r Response) Err() error {
	if r.Status == nil || r.Status.Code() == codes.OK {
		return nil
	}
	return r.Status.Err()
}

func newRequest(key Key, md metadata.MD, data []byte, remote string) *Request {
	return &Request{
		Service:    key.Service,
		Method:     key.Method,
		Metadata:   md,
		Message:    data,
		RemoteAddr: remote,
	}
}
