// Package harness provides the protocol-agnostic core of a mock-service test harness.
//
// A harness run stands up a short-lived endpoint that answers a pre-declared set of
// routes with pre-declared responses, records every request that hits a declared
// route, and stops on its own once every declared response has been served at
// least once.
//
// # Building Blocks
//
//   - Handler: a Static canned response or a Dynamic function of the request.
//   - Route: a protocol-defined key plus an ordered list of handlers.
//   - RouteTable: the immutable key -> route map built once per run.
//   - Selector: per-route call counter implementing the sticky-last policy.
//   - CompletionTracker: counts consumed handler slots and fires once.
//   - Collector: the caller-supplied sink that produces the run's output.
//   - Dispatcher: the per-request pipeline adapters call into.
//
// # Selection and Completion
//
// The Nth call to a route (0-indexed) is answered by handlers[min(N, len-1)]. A route
// with H handlers contributes max(1, H) slots; a call consumes a slot when its call
// index is below max(1, H). The run shuts down after the last slot is consumed.
//
// # Usage
//
// Protocol adapters (see pkg/rest, pkg/graphql, pkg/grpc and pkg/soap) implement
// Adapter and hand requests to the Dispatcher. Callers run a scenario with Run:
//
//	out, err := harness.Run(ctx, rest.NewServer(rest.Config{}), []rest.Route{
//	    rest.Endpoint("GET", "/api/users", rest.Respond(rest.JSON(200, users))),
//	}, harness.NewListCollector[*rest.Request](),
//	    harness.WithOnReady(func(addr net.Addr) { go exercise(addr) }),
//	)
//
// Run blocks until the endpoint has stopped and returns the collector's output.
package harness
