package harness

import "sync/atomic"

// Selection is the outcome of picking a handler for one call to a route.
type Selection[C, R any] struct {
	// CallIndex is the 0-based index of this call to the route.
	CallIndex int

	// HandlerIndex is the position of the chosen handler, or -1 when the
	// route has no handlers.
	HandlerIndex int

	// Handler is the chosen handler, nil when the route has no handlers.
	Handler *Handler[C, R]

	// ConsumesSlot is true when CallIndex maps to one of the route's
	// max(1, H) completion slots.
	ConsumesSlot bool
}

// Selector picks the handler for successive calls to one route. The Nth call is
// answered by handlers[min(N, H-1)]: once the list is exhausted the last
// handler answers every further call.
type Selector[C, R any] struct {
	handlers []Handler[C, R]
	calls    atomic.Uint64
}

// NewSelector creates a selector over handlers. The slice must not be modified afterwards.
func NewSelector[C, R any](handlers []Handler[C, R]) *Selector[C, R] {
	return &Selector[C, R]{handlers: handlers}
}

// Next claims the next call index and returns the selection for it.
// The fetch-and-add on the call counter is the only ordering arbiter, so two
// concurrent calls never observe the same index.
func (s *Selector[C, R]) Next() Selection[C, R] {
	idx := int(s.calls.Add(1) - 1)
	sel := Selection[C, R]{
		CallIndex:    idx,
		HandlerIndex: -1,
		ConsumesSlot: idx < max(1, len(s.handlers)),
	}
	if len(s.handlers) > 0 {
		sel.HandlerIndex = min(idx, len(s.handlers)-1)
		sel.Handler = &s.handlers[sel.HandlerIndex]
	}
	return sel
}

// Calls returns how many calls have been claimed so far.
func (s *Selector[C, R]) Calls() int {
	return int(s.calls.Load())
}

// Len returns the number of handlers.
func (s *Selector[C, R]) Len() int {
	return len(s.handlers)
}
