package graphql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/getmockd/mockharness/pkg/requestlog"
)

// OperationType is the GraphQL operation kind.
type OperationType string

// Operation types.
const (
	OperationQuery        OperationType = OperationType(ast.Query)
	OperationMutation     OperationType = OperationType(ast.Mutation)
	OperationSubscription OperationType = OperationType(ast.Subscription)
)

// TypeName returns the root type name, e.g. "Query".
func (o OperationType) TypeName() string {
	switch o {
	case OperationMutation:
		return "Mutation"
	case OperationSubscription:
		return "Subscription"
	default:
		return "Query"
	}
}

// ParseOperationType parses "query", "mutation" or "subscription".
func ParseOperationType(s string) (OperationType, error) {
	switch OperationType(s) {
	case OperationQuery, OperationMutation, OperationSubscription:
		return OperationType(s), nil
	default:
		return "", fmt.Errorf("unknown operation type %q", s)
	}
}

// Key identifies a GraphQL route: a root field of an operation type.
type Key struct {
	Operation OperationType
	Field     string
}

// String returns the field path, e.g. "Query.user".
func (k Key) String() string {
	return k.Operation.TypeName() + "." + k.Field
}

// Request is the context of one top-level field of a GraphQL document.
type Request struct {
	// Query is the full document text.
	Query string

	// OperationName is the requested operation name, if any.
	OperationName string

	// Variables are the request variables.
	Variables map[string]any

	// Operation is the type of the executed operation.
	Operation OperationType

	// Field is the schema field name.
	Field string

	// Alias is the response key: the alias if given, otherwise Field.
	Alias string

	// Args are the field arguments with variables substituted.
	Args map[string]any

	Header     http.Header
	RemoteAddr string
}

// RouteKey implements harness.RequestContext.
func (r *Request) RouteKey() Key {
	return Key{Operation: r.Operation, Field: r.Field}
}

// Variable returns a request variable.
func (r *Request) Variable(name string) (any, bool) {
	v, ok := r.Variables[name]
	return v, ok
}

// Arg returns a resolved field argument.
func (r *Request) Arg(name string) (any, bool) {
	v, ok := r.Args[name]
	return v, ok
}

// LogEntry implements requestlog.Loggable.
func (r *Request) LogEntry() *requestlog.Entry {
	meta := &requestlog.GraphQLMeta{
		OperationType: string(r.Operation),
		OperationName: r.OperationName,
		Field:         r.Field,
	}
	if r.Alias != r.Field {
		meta.Alias = r.Alias
	}
	if len(r.Variables) > 0 {
		if data, err := json.Marshal(r.Variables); err == nil {
			meta.Variables = string(data)
		}
	}
	e := &requestlog.Entry{
		Protocol:   requestlog.ProtocolGraphQL,
		Route:      r.RouteKey().String(),
		Method:     string(r.Operation),
		Path:       r.Field,
		Headers:    r.Header,
		RemoteAddr: r.RemoteAddr,
		GraphQL:    meta,
	}
	e.SetBody([]byte(r.Query))
	return e
}

// Error is a GraphQL error in the response format.
type Error struct {
	// Message is the error message.
	Message string `json:"message"`
	// Locations indicates where in the query the error occurred.
	Locations []ErrorLocation `json:"locations,omitempty"`
	// Path is the response field path where the error occurred.
	Path []any `json:"path,omitempty"`
	// Extensions contains additional error metadata.
	Extensions map[string]any `json:"extensions,omitempty"`
}

// ErrorLocation represents a location in the GraphQL query where an error occurred.
type ErrorLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Response is what a handler returns for one field.
type Response struct {
	// Data is the field value.
	Data any
	// Errors are added to the document's errors. An error without a path is
	// attributed to the field.
	Errors []Error
}

// Data returns a response resolving the field to v.
func Data(v any) Response {
	return Response{Data: v}
}

// Errorf returns a response resolving the field to null with an error.
func Errorf(format string, args ...any) Response {
	return Response{Errors: []Error{{Message: fmt.Sprintf(format, args...)}}}
}

// WithError returns a copy of the response with an additional error.
func (r Response) WithError(message string) Response {
	r.Errors = append(r.Errors[:len(r.Errors):len(r.Errors)], Error{Message: message})
	return r
}

// wireRequest is the GraphQL-over-HTTP request body.
type wireRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// wireResponse is the GraphQL-over-HTTP response body. Data is omitted only
// when the request failed before execution.
type wireResponse struct {
	Data   *resultMap `json:"data,omitempty"`
	Errors []Error    `json:"errors,omitempty"`
}

// resultMap is a JSON object that keeps its keys in insertion order, so
// response fields follow the selection set.
type resultMap struct {
	keys   []string
	values map[string]any
}

func newResultMap() *resultMap {
	return &resultMap{values: make(map[string]any)}
}

// Set stores v under key. A repeated key keeps its first position.
func (m *resultMap) Set(key string, v any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// MarshalJSON encodes the keys in insertion order.
func (m *resultMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
