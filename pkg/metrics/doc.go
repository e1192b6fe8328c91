// Package metrics exposes harness telemetry as Prometheus metrics.
//
// Observer implements harness.Observer:
//
//   - mockharness_requests_total: dispatches (labels: protocol, outcome)
//   - mockharness_request_duration_seconds: dispatch latency (labels: protocol)
//   - mockharness_handler_panics_total: handlers that panicked (labels: protocol)
//   - mockharness_slots_consumed: handler slots used so far (labels: protocol)
//   - mockharness_slots_expected: handler slots declared by the routes (labels: protocol)
//
// Usage:
//
//	reg := metrics.NewRegistry()
//	obs, err := metrics.NewObserver(reg)
//	http.Handle("/metrics", metrics.Handler(reg))
//	out, err := harness.Run(ctx, adapter, routes, collector, harness.WithObserver(obs))
package metrics
