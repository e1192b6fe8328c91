// Package requestlog turns the requests collected during a harness run into a
// protocol-neutral journal.
//
// It is distinct from operational logging (log/slog): the journal is the
// output a test inspects to see what the code under test actually sent.
//
// # Core Types
//
// Entry is one captured request with protocol-specific metadata for gRPC, SOAP
// and GraphQL. Request contexts that implement Loggable can be collected by
// Collector, which finishes into a Journal ordered by arrival.
//
// # Usage
//
//	journal, err := harness.Run(ctx, adapter, routes, requestlog.NewCollector[*rest.Request]())
//	posts := journal.Filter(&requestlog.Filter{Method: "POST"})
package requestlog
