package harness

import (
	"fmt"
	"slices"
)

// RequestContext is implemented by every adapter's request type.
// RouteKey returns the protocol-defined identity used to find the route.
type RequestContext[K comparable] interface {
	RouteKey() K
}

// Route is a route key plus the ordered handlers that answer successive calls.
type Route[K comparable, C, R any] struct {
	Key      K
	Handlers []Handler[C, R]
}

// NewRoute creates a route answering calls with handlers in order.
func NewRoute[K comparable, C, R any](key K, handlers ...Handler[C, R]) Route[K, C, R] {
	return Route[K, C, R]{Key: key, Handlers: handlers}
}

// Slots returns the number of completion slots the route contributes: max(1, len(Handlers)).
func (r Route[K, C, R]) Slots() int {
	return max(1, len(r.Handlers))
}

type routeEntry[K comparable, C, R any] struct {
	route    Route[K, C, R]
	selector *Selector[C, R]
}

// RouteTable maps route keys to routes. It is built once and never mutated;
// the only per-route state is the call counter owned by each route's Selector.
type RouteTable[K comparable, C, R any] struct {
	entries map[K]*routeEntry[K, C, R]
	order   []K
	slots   int
}

// NewRouteTable builds a table from routes in declaration order.
// It returns ErrNoRoutes for an empty list and ErrDuplicateRoute when a key repeats.
func NewRouteTable[K comparable, C, R any](routes []Route[K, C, R]) (*RouteTable[K, C, R], error) {
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}

	t := &RouteTable[K, C, R]{
		entries: make(map[K]*routeEntry[K, C, R], len(routes)),
		order:   make([]K, 0, len(routes)),
	}
	for i, r := range routes {
		if _, exists := t.entries[r.Key]; exists {
			return nil, fmt.Errorf("%w: %v (routes[%d])", ErrDuplicateRoute, r.Key, i)
		}
		// Copy the handler slice so later edits by the caller cannot leak in.
		route := Route[K, C, R]{Key: r.Key, Handlers: slices.Clone(r.Handlers)}
		t.entries[r.Key] = &routeEntry[K, C, R]{
			route:    route,
			selector: NewSelector(route.Handlers),
		}
		t.order = append(t.order, r.Key)
		t.slots += route.Slots()
	}
	return t, nil
}

// Lookup returns the route declared for key.
func (t *RouteTable[K, C, R]) Lookup(key K) (*Route[K, C, R], bool) {
	e, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	return &e.route, true
}

// Selector returns the handler selector of the route declared for key.
func (t *RouteTable[K, C, R]) Selector(key K) (*Selector[C, R], bool) {
	e, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	return e.selector, true
}

// Len returns the number of routes.
func (t *RouteTable[K, C, R]) Len() int {
	return len(t.order)
}

// Keys returns the route keys in declaration order.
func (t *RouteTable[K, C, R]) Keys() []K {
	return slices.Clone(t.order)
}

// TotalSlots returns the sum of Slots over all routes.
func (t *RouteTable[K, C, R]) TotalSlots() int {
	return t.slots
}

func (t *RouteTable[K, C, R]) entry(key K) (*routeEntry[K, C, R], bool) {
	e, ok := t.entries[key]
	return e, ok
}
