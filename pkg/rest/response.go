package rest

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
)

// Response is the HTTP response a handler produces. A zero Status means 200.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewResponse returns an empty response with the given status.
func NewResponse(status int) Response {
	return Response{Status: status}
}

// Text returns a text/plain response.
func Text(status int, body string) Response {
	return NewResponse(status).
		WithHeader("Content-Type", "text/plain; charset=utf-8").
		WithBody([]byte(body))
}

// JSON returns an application/json response with v encoded as the body.
func JSON(status int, v any) Response {
	return NewResponse(status).WithJSON(v)
}

// WithHeader returns a copy of the response with header key set to value.
func (r Response) WithHeader(key, value string) Response {
	h := make(http.Header, len(r.Header)+1)
	maps.Copy(h, r.Header)
	h.Set(key, value)
	r.Header = h
	return r
}

// WithBody returns a copy of the response with body.
func (r Response) WithBody(body []byte) Response {
	r.Body = body
	return r
}

// WithJSON returns a copy of the response with v encoded as a JSON body.
// If v cannot be encoded the response becomes a 500 describing the error.
func (r Response) WithJSON(v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return Text(http.StatusInternalServerError, fmt.Sprintf("encode JSON response: %v", err))
	}
	return r.WithHeader("Content-Type", "application/json").WithBody(data)
}

// StatusCode returns Status, or 200 when it is unset.
func (r Response) StatusCode() int {
	if r.Status == 0 {
		return http.StatusOK
	}
	return r.Status
}

func (r Response) write(w http.ResponseWriter) {
	for k, vs := range r.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(r.StatusCode())
	_, _ = w.Write(r.Body)
}
