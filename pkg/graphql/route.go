package graphql

import "github.com/getmockd/mockharness/pkg/harness"

// Type aliases binding the generic core to this adapter.
type (
	Handler     = harness.Handler[*Request, Response]
	HandlerFunc = harness.HandlerFunc[*Request, Response]
	Route       = harness.Route[Key, *Request, Response]
	Dispatcher  = harness.Dispatcher[Key, *Request, Response]
)

// Field declares a route for a root field of the given operation type.
func Field(op OperationType, name string, handlers ...Handler) Route {
	return harness.NewRoute(Key{Operation: op, Field: name}, handlers...)
}

// Query declares a route for a Query field.
func Query(name string, handlers ...Handler) Route {
	return Field(OperationQuery, name, handlers...)
}

// Mutation declares a route for a Mutation field.
func Mutation(name string, handlers ...Handler) Route {
	return Field(OperationMutation, name, handlers...)
}

// Respond returns a handler answering with resp.
func Respond(resp Response) Handler {
	return harness.Static[*Request](resp)
}

// Func returns a handler computing its response from the request.
func Func(fn HandlerFunc) Handler {
	return harness.Dynamic(fn)
}
