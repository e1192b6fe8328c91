package rest

import "github.com/getmockd/mockharness/pkg/harness"

// Type aliases binding the generic core to this adapter.
type (
	Handler     = harness.Handler[*Request, Response]
	HandlerFunc = harness.HandlerFunc[*Request, Response]
	Route       = harness.Route[Key, *Request, Response]
	Dispatcher  = harness.Dispatcher[Key, *Request, Response]
)

// Endpoint declares a route for method and path answered by handlers in order.
func Endpoint(method, path string, handlers ...Handler) Route {
	return harness.NewRoute(NewKey(method, path), handlers...)
}

// Respond returns a handler answering with resp.
func Respond(resp Response) Handler {
	return harness.Static[*Request](resp)
}

// Func returns a handler computing its response from the request.
func Func(fn HandlerFunc) Handler {
	return harness.Dynamic(fn)
}
