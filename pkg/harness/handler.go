package harness

// HandlerFunc builds a response from an inbound request.
// It must not mutate harness state and must be safe for concurrent use.
type HandlerFunc[C, R any] func(req C) R

// Handler produces the response for one position in a route's handler sequence.
// It is either Static (a canned response) or Dynamic (a function of the request).
type Handler[C, R any] struct {
	response R
	fn       HandlerFunc[C, R]
}

// Static returns a handler that always answers with response.
// The response value is shared between calls and must not be modified afterwards.
func Static[C, R any](response R) Handler[C, R] {
	return Handler[C, R]{response: response}
}

// Dynamic returns a handler that computes its response from the request.
// A nil fn behaves like a static handler with the zero response.
func Dynamic[C, R any](fn HandlerFunc[C, R]) Handler[C, R] {
	return Handler[C, R]{fn: fn}
}

// Respond returns the response for req.
func (h Handler[C, R]) Respond(req C) R {
	if h.fn != nil {
		return h.fn(req)
	}
	return h.response
}

// IsStatic reports whether the handler always returns the same response.
func (h Handler[C, R]) IsStatic() bool {
	return h.fn == nil
}

// Response returns the canned response of a static handler.
// The boolean is false for dynamic handlers.
func (h Handler[C, R]) Response() (R, bool) {
	if h.fn != nil {
		var zero R
		return zero, false
	}
	return h.response, true
}

// String returns "static" or "dynamic".
func (h Handler[C, R]) String() string {
	if h.fn != nil {
		return "dynamic"
	}
	return "static"
}
