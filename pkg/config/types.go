package config

import (
	"github.com/getmockd/mockharness/pkg/requestlog"
)

// CurrentVersion is the scenario format version.
const CurrentVersion = "1"

// Protocols accepted in a scenario.
const (
	ProtocolHTTP    = requestlog.ProtocolHTTP
	ProtocolGraphQL = requestlog.ProtocolGraphQL
	ProtocolGRPC    = requestlog.ProtocolGRPC
	ProtocolSOAP    = requestlog.ProtocolSOAP
)

// Scenario is one scenario file: a protocol, its adapter options and routes.
type Scenario struct {
	Version  string `json:"version,omitempty" yaml:"version,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Protocol string `json:"protocol" yaml:"protocol"`

	// Address to bind. Empty binds 127.0.0.1 on a free port.
	Address string `json:"address,omitempty" yaml:"address,omitempty"`

	// ShutdownTimeout and MaxRunTime are Go durations such as "5s".
	ShutdownTimeout string `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`
	MaxRunTime      string `json:"maxRunTime,omitempty" yaml:"maxRunTime,omitempty"`

	HTTP    *HTTPOptions    `json:"http,omitempty" yaml:"http,omitempty"`
	GraphQL *GraphQLOptions `json:"graphql,omitempty" yaml:"graphql,omitempty"`
	GRPC    *GRPCOptions    `json:"grpc,omitempty" yaml:"grpc,omitempty"`
	SOAP    *SOAPOptions    `json:"soap,omitempty" yaml:"soap,omitempty"`

	Routes []RouteSpec `json:"routes" yaml:"routes"`

	// baseDir resolves relative file references. Set by LoadFile.
	baseDir string
}

// HTTPOptions configures the HTTP adapter. OpenAPIFile, relative to the
// scenario file, names an OpenAPI 3 document every route must appear in.
type HTTPOptions struct {
	H2C         bool   `json:"h2c,omitempty" yaml:"h2c,omitempty"`
	MaxBodySize int64  `json:"maxBodySize,omitempty" yaml:"maxBodySize,omitempty"`
	OpenAPIFile string `json:"openapiFile,omitempty" yaml:"openapiFile,omitempty"`
}

// GraphQLOptions configures the GraphQL adapter. Schema is inline SDL;
// SchemaFile is a path relative to the scenario file.
type GraphQLOptions struct {
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
	Schema     string `json:"schema,omitempty" yaml:"schema,omitempty"`
	SchemaFile string `json:"schemaFile,omitempty" yaml:"schemaFile,omitempty"`
}

// GRPCOptions configures the gRPC adapter.
type GRPCOptions struct {
	ProtoFiles     []string `json:"protoFiles,omitempty" yaml:"protoFiles,omitempty"`
	ImportPaths    []string `json:"importPaths,omitempty" yaml:"importPaths,omitempty"`
	Reflection     bool     `json:"reflection,omitempty" yaml:"reflection,omitempty"`
	MaxRecvMsgSize int      `json:"maxRecvMsgSize,omitempty" yaml:"maxRecvMsgSize,omitempty"`
}

// SOAPOptions configures the SOAP adapter.
type SOAPOptions struct {
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	WSDL        string `json:"wsdl,omitempty" yaml:"wsdl,omitempty"`
	WSDLFile    string `json:"wsdlFile,omitempty" yaml:"wsdlFile,omitempty"`
	MaxBodySize int64  `json:"maxBodySize,omitempty" yaml:"maxBodySize,omitempty"`
}

// RouteSpec is one route and its ordered responses. An empty Responses list
// declares a route that accepts a single request and answers it with the
// adapter's "no handler" reply.
type RouteSpec struct {
	Key       KeySpec        `json:"key" yaml:"key"`
	Responses []ResponseSpec `json:"responses,omitempty" yaml:"responses,omitempty"`
}

// KeySpec identifies a route. Which fields apply depends on the protocol:
//
//	http:    method, path
//	graphql: operation (query, mutation or subscription; default query), field
//	grpc:    service, method
//	soap:    operation
type KeySpec struct {
	Method    string `json:"method,omitempty" yaml:"method,omitempty"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	Operation string `json:"operation,omitempty" yaml:"operation,omitempty"`
	Field     string `json:"field,omitempty" yaml:"field,omitempty"`
	Service   string `json:"service,omitempty" yaml:"service,omitempty"`
}

// ResponseSpec is a static response or, when Expr is set, an expression
// evaluated per request whose result is a ResponseSpec-shaped map (or a
// string used as the body).
type ResponseSpec struct {
	// HTTP and SOAP status code.
	Status int `json:"status,omitempty" yaml:"status,omitempty"`

	// Headers are HTTP headers, or response metadata for gRPC.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Body is the raw HTTP body, or the inner SOAP body XML.
	Body string `json:"body,omitempty" yaml:"body,omitempty"`

	// JSON is an HTTP JSON body, or a gRPC message in protobuf JSON form.
	JSON any `json:"json,omitempty" yaml:"json,omitempty"`

	// Data and Errors are the GraphQL field value and errors.
	Data   any                `json:"data,omitempty" yaml:"data,omitempty"`
	Errors []GraphQLErrorSpec `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Base64 is a raw gRPC message.
	Base64 string `json:"base64,omitempty" yaml:"base64,omitempty"`

	// Error is a gRPC status.
	Error *GRPCErrorSpec `json:"error,omitempty" yaml:"error,omitempty"`

	// Fault is a SOAP fault.
	Fault *FaultSpec `json:"fault,omitempty" yaml:"fault,omitempty"`

	Expr string `json:"expr,omitempty" yaml:"expr,omitempty"`
}

// GraphQLErrorSpec is one GraphQL error.
type GraphQLErrorSpec struct {
	Message    string         `json:"message" yaml:"message"`
	Path       []any          `json:"path,omitempty" yaml:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty" yaml:"extensions,omitempty"`
}

// GRPCErrorSpec is a gRPC status. Code is a name such as "NOT_FOUND" or a
// number.
type GRPCErrorSpec struct {
	Code    any               `json:"code" yaml:"code"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
	Details *GRPCErrorDetails `json:"details,omitempty" yaml:"details,omitempty"`
}

// GRPCErrorDetails are attached to the status as google.rpc ErrorInfo,
// RetryInfo, BadRequest and DebugInfo messages.
type GRPCErrorDetails struct {
	Reason          string            `json:"reason,omitempty" yaml:"reason,omitempty"`
	Domain          string            `json:"domain,omitempty" yaml:"domain,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	RetryDelay      string            `json:"retryDelay,omitempty" yaml:"retryDelay,omitempty"`
	FieldViolations []FieldViolation  `json:"fieldViolations,omitempty" yaml:"fieldViolations,omitempty"`
	Debug           string            `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// FieldViolation is one BadRequest field violation.
type FieldViolation struct {
	Field       string `json:"field" yaml:"field"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// FaultSpec is a SOAP fault. Code is Client/Sender or Server/Receiver.
type FaultSpec struct {
	Code    string `json:"code,omitempty" yaml:"code,omitempty"`
	Message string `json:"message" yaml:"message"`
	Detail  string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Slots returns the number of requests the scenario expects.
func (s *Scenario) Slots() int {
	n := 0
	for _, r := range s.Routes {
		n += max(1, len(r.Responses))
	}
	return n
}

// BaseDir returns the directory relative file references resolve against.
func (s *Scenario) BaseDir() string {
	return s.baseDir
}

// SetBaseDir overrides the directory relative file references resolve against.
func (s *Scenario) SetBaseDir(dir string) {
	s.baseDir = dir
}
