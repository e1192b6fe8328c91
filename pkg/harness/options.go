package harness

import (
	"log/slog"
	"net"
	"time"
)

// Option configures a run.
type Option func(*runOptions)

type runOptions struct {
	onReady       func(net.Addr)
	onStateChange func(State)
	logger        *slog.Logger
	observer      Observer
	maxRunTime    time.Duration
}

// WithOnReady registers a callback that receives the bound address once, before
// the run starts serving. It is called synchronously on the goroutine running the
// scenario, so requests should be sent from another goroutine.
func WithOnReady(fn func(addr net.Addr)) Option {
	return func(o *runOptions) {
		o.onReady = fn
	}
}

// WithOnStateChange registers a callback invoked on every lifecycle transition.
func WithOnStateChange(fn func(State)) Option {
	return func(o *runOptions) {
		o.onStateChange = fn
	}
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *runOptions) {
		o.logger = log
	}
}

// WithObserver sets the telemetry observer.
func WithObserver(obs Observer) Option {
	return func(o *runOptions) {
		o.observer = obs
	}
}

// WithMaxRunTime aborts the run with ErrRunAborted if it has not completed
// within d. Zero disables the limit.
func WithMaxRunTime(d time.Duration) Option {
	return func(o *runOptions) {
		o.maxRunTime = d
	}
}
