package soap

import "github.com/getmockd/mockharness/pkg/harness"

// Type aliases binding the generic core to this adapter.
type (
	Handler     = harness.Handler[*Request, Response]
	HandlerFunc = harness.HandlerFunc[*Request, Response]
	Route       = harness.Route[string, *Request, Response]
	Dispatcher  = harness.Dispatcher[string, *Request, Response]
)

// Operation declares a route for the named operation answered by handlers in order.
func Operation(name string, handlers ...Handler) Route {
	return harness.NewRoute(name, handlers...)
}

// Respond returns a handler answering with resp.
func Respond(resp Response) Handler {
	return harness.Static[*Request](resp)
}

// Func returns a handler computing its response from the request.
func Func(fn HandlerFunc) Handler {
	return harness.Dynamic(fn)
}
