package harness

import (
	"errors"
	"fmt"
)

// Configuration errors. These are returned before any network activity.
var (
	// ErrNoAdapter is returned when a scenario has no protocol adapter.
	ErrNoAdapter = errors.New("harness: adapter is required")

	// ErrNoCollector is returned when a scenario has no collector.
	ErrNoCollector = errors.New("harness: collector is required")

	// ErrNoRoutes is returned when a scenario declares no routes.
	ErrNoRoutes = errors.New("harness: at least one route is required")

	// ErrDuplicateRoute is returned when two routes share the same key.
	ErrDuplicateRoute = errors.New("harness: duplicate route key")
)

// Dispatch errors. Adapters translate these into protocol-specific replies.
var (
	// ErrRouteNotFound is returned when no route is declared for a request key.
	ErrRouteNotFound = errors.New("route not found")

	// ErrNoHandler is returned when a matched route was declared without handlers.
	ErrNoHandler = errors.New("no handler configured")
)

// ErrRunAborted is returned together with the collected output when a run was
// stopped before every handler slot was consumed.
var ErrRunAborted = errors.New("harness: run aborted before completion")

// BindError reports a failure to acquire the listening address.
type BindError struct {
	Protocol string
	Err      error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("harness: %s adapter failed to bind: %v", e.Protocol, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// TransportError reports a failure of the accept loop or of the graceful drain.
type TransportError struct {
	Protocol string
	Op       string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("harness: %s transport %s: %v", e.Protocol, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HandlerPanicError is returned by the Dispatcher when a handler panicked.
// The slot the call mapped to is still counted toward completion.
type HandlerPanicError struct {
	Key   any
	Value any
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("handler for %v panicked: %v", e.Key, e.Value)
}
