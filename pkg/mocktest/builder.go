package mocktest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getmockd/mockharness/pkg/rest"
)

// MockBuilder builds one response using a fluent API.
type MockBuilder struct {
	server *Server
	key    rest.Key
	resp   rest.Response
	fn     rest.HandlerFunc
	err    error // First error encountered during building
}

// setError records the first error encountered during building.
func (b *MockBuilder) setError(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Err returns any error encountered during building.
func (b *MockBuilder) Err() error {
	return b.err
}

// WithStatus sets the HTTP response status code. Default is 200.
func (b *MockBuilder) WithStatus(status int) *MockBuilder {
	b.resp.Status = status
	return b
}

// WithBody sets the response body. Strings and byte slices are used as is;
// other values are JSON encoded.
func (b *MockBuilder) WithBody(body any) *MockBuilder {
	switch v := body.(type) {
	case string:
		b.resp = b.resp.WithBody([]byte(v))
	case []byte:
		b.resp = b.resp.WithBody(v)
	default:
		return b.WithJSON(v)
	}
	return b
}

// WithJSON sets the response body as JSON and the Content-Type header.
func (b *MockBuilder) WithJSON(body any) *MockBuilder {
	data, err := json.Marshal(body)
	if err != nil {
		b.setError(fmt.Errorf("WithJSON: failed to marshal body: %w", err))
		return b
	}
	b.resp = b.resp.WithHeader("Content-Type", "application/json").WithBody(data)
	return b
}

// WithHeader adds a response header.
func (b *MockBuilder) WithHeader(key, value string) *MockBuilder {
	b.resp = b.resp.WithHeader(key, value)
	return b
}

// WithHeaders sets multiple response headers at once.
func (b *MockBuilder) WithHeaders(headers map[string]string) *MockBuilder {
	for k, v := range headers {
		b.resp = b.resp.WithHeader(k, v)
	}
	return b
}

// ReplyFunc adds a response computed from each request.
func (b *MockBuilder) ReplyFunc(fn func(*rest.Request) rest.Response) {
	b.fn = fn
	b.Times(1)
}

// Reply adds the response for one request.
func (b *MockBuilder) Reply() {
	b.Times(1)
}

// Times adds the response for the next n requests.
func (b *MockBuilder) Times(n int) {
	b.server.t.Helper()
	if b.err != nil {
		b.server.t.Fatalf("mocktest: %s: %v", b.key, b.err)
		return
	}
	h := rest.Respond(b.resp)
	if b.fn != nil {
		h = rest.Func(b.fn)
	}
	handlers := make([]rest.Handler, n)
	for i := range handlers {
		handlers[i] = h
	}
	b.server.add(b.key, handlers...)
}

// Once is Times(1).
func (b *MockBuilder) Once() {
	b.Times(1)
}

// Twice is Times(2).
func (b *MockBuilder) Twice() {
	b.Times(2)
}

// RespondWith sets status and body.
func (b *MockBuilder) RespondWith(status int, body any) *MockBuilder {
	return b.WithStatus(status).WithBody(body)
}

// RespondJSON sets a 200 JSON body.
func (b *MockBuilder) RespondJSON(body any) *MockBuilder {
	return b.WithStatus(http.StatusOK).WithJSON(body)
}

// RespondNotFound sets a 404 JSON error.
func (b *MockBuilder) RespondNotFound() *MockBuilder {
	return b.WithStatus(http.StatusNotFound).WithJSON(map[string]string{"error": "not_found"})
}

// RespondBadRequest sets a 400 JSON error.
func (b *MockBuilder) RespondBadRequest(message string) *MockBuilder {
	return b.WithStatus(http.StatusBadRequest).WithJSON(map[string]string{"error": "bad_request", "message": message})
}

// RespondServerError sets a 500 JSON error.
func (b *MockBuilder) RespondServerError(message string) *MockBuilder {
	return b.WithStatus(http.StatusInternalServerError).WithJSON(map[string]string{"error": "internal_error", "message": message})
}

// RespondCreated sets a 201 JSON body.
func (b *MockBuilder) RespondCreated(body any) *MockBuilder {
	return b.WithStatus(http.StatusCreated).WithJSON(body)
}

// RespondNoContent sets 204 with no body.
func (b *MockBuilder) RespondNoContent() *MockBuilder {
	b.resp = b.resp.WithBody(nil)
	return b.WithStatus(http.StatusNoContent)
}
