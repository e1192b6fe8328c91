package requestlog

import "time"

// Protocol constants for request logging.
const (
	ProtocolHTTP    = "http"
	ProtocolGRPC    = "grpc"
	ProtocolSOAP    = "soap"
	ProtocolGraphQL = "graphql"
)

// MaxBodySize is the number of body bytes kept on an Entry.
const MaxBodySize = 10 * 1024

// Entry captures one request that matched a declared route.
type Entry struct {
	// ID is the collected request's identifier.
	ID string `json:"id"`

	// Sequence is the arrival order at the dispatcher, starting at 1.
	Sequence uint64 `json:"sequence"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`

	// Protocol identifies the adapter (http, grpc, soap, graphql).
	Protocol string `json:"protocol"`

	// Route is the printable route key the request matched.
	Route string `json:"route"`

	// Method is the HTTP method (or gRPC method name, SOAP operation).
	Method string `json:"method"`

	// Path is the request URL path (or gRPC full method).
	Path string `json:"path"`

	// QueryString is the raw query string (HTTP only).
	QueryString string `json:"queryString,omitempty"`

	// Headers are the request headers/metadata (multi-value).
	Headers map[string][]string `json:"headers,omitempty"`

	// Body is the request body content (truncated to MaxBodySize).
	Body string `json:"body,omitempty"`

	// BodySize is the original body size in bytes.
	BodySize int `json:"bodySize"`

	// RemoteAddr is the client address.
	RemoteAddr string `json:"remoteAddr,omitempty"`

	// Protocol-specific metadata (only one will be populated based on Protocol).
	GRPC    *GRPCMeta    `json:"grpc,omitempty"`
	SOAP    *SOAPMeta    `json:"soap,omitempty"`
	GraphQL *GraphQLMeta `json:"graphql,omitempty"`
}

// SetBody stores body on the entry, truncated to MaxBodySize.
func (e *Entry) SetBody(body []byte) {
	e.BodySize = len(body)
	if len(body) > MaxBodySize {
		body = body[:MaxBodySize]
	}
	e.Body = string(body)
}
