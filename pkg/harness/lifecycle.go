package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/getmockd/mockharness/pkg/logging"
)

// State is a lifecycle state of a run.
type State int

// Lifecycle states, in order.
const (
	StateBinding State = iota
	StateReady
	StateServing
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateBinding:
		return "binding"
	case StateReady:
		return "ready"
	case StateServing:
		return "serving"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Adapter binds a protocol to the core.
type Adapter[K comparable, C RequestContext[K], R any] interface {
	// Protocol names the adapter, e.g. "http" or "grpc".
	Protocol() string

	// Listen binds the listening socket.
	Listen(ctx context.Context) (net.Listener, error)

	// NewTransport creates the server that decodes requests, passes them to
	// the dispatcher and encodes the responses.
	NewTransport(d *Dispatcher[K, C, R]) Transport
}

// Transport is a protocol server bound to one run.
type Transport interface {
	// Serve accepts connections on ln until Shutdown is called. It returns nil
	// after a graceful shutdown.
	Serve(ln net.Listener) error

	// Shutdown stops accepting connections and waits for in-flight requests,
	// bounded by the adapter's own grace period.
	Shutdown(ctx context.Context) error
}

var errServeExited = errors.New("serve returned before shutdown")

// Run serves routes through adapter until every handler slot has been
// consumed, then shuts down gracefully and returns the collector's output.
//
// Configuration errors are returned before anything is bound. If the run is
// aborted by ctx or WithMaxRunTime, the output collected so far is returned
// together with an error wrapping ErrRunAborted.
func Run[K comparable, C RequestContext[K], R, O any](ctx context.Context, adapter Adapter[K, C, R], routes []Route[K, C, R], collector Collector[C, O], opts ...Option) (O, error) {
	var zero O
	if adapter == nil {
		return zero, ErrNoAdapter
	}
	if collector == nil {
		return zero, ErrNoCollector
	}
	table, err := NewRouteTable(routes)
	if err != nil {
		return zero, err
	}

	o := runOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Nop()
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}

	r := &run{
		protocol: adapter.Protocol(),
		opts:     o,
		log:      o.logger.With("protocol", adapter.Protocol()),
	}
	return execute(ctx, r, adapter, table, collector)
}

type run struct {
	protocol string
	opts     runOptions
	log      *slog.Logger
}

func (r *run) setState(s State) {
	r.log.Debug("lifecycle transition", "state", s.String())
	if r.opts.onStateChange != nil {
		r.opts.onStateChange(s)
	}
}

func execute[K comparable, C RequestContext[K], R, O any](ctx context.Context, r *run, adapter Adapter[K, C, R], table *RouteTable[K, C, R], collector Collector[C, O]) (O, error) {
	var zero O

	r.setState(StateBinding)
	ln, err := adapter.Listen(ctx)
	if err != nil {
		return zero, &BindError{Protocol: r.protocol, Err: err}
	}

	tracker := NewCompletionTracker(table.TotalSlots())
	dispatcher := NewDispatcher(table, tracker, DispatcherConfig[C]{
		Protocol: r.protocol,
		Record:   collector.Record,
		Logger:   r.log,
		Observer: r.opts.observer,
	})
	r.opts.observer.ObserveSlots(r.protocol, 0, tracker.Total())
	transport := adapter.NewTransport(dispatcher)

	r.setState(StateReady)
	r.log.Info("mock server ready", "address", ln.Addr().String(), "routes", table.Len(), "slots", tracker.Total())
	if r.opts.onReady != nil {
		r.opts.onReady(ln.Addr())
	}

	var stopping atomic.Bool
	g, gctx := errgroup.WithContext(ctx)

	r.setState(StateServing)
	g.Go(func() error {
		err := transport.Serve(ln)
		if err != nil {
			return &TransportError{Protocol: r.protocol, Op: "serve", Err: err}
		}
		if !stopping.Load() {
			return &TransportError{Protocol: r.protocol, Op: "serve", Err: errServeExited}
		}
		return nil
	})

	g.Go(func() error {
		var timeout <-chan time.Time
		if r.opts.maxRunTime > 0 {
			timer := time.NewTimer(r.opts.maxRunTime)
			defer timer.Stop()
			timeout = timer.C
		}

		var reason error
		select {
		case <-tracker.Done():
			r.log.Info("all routes exercised, shutting down")
		case <-timeout:
			reason = fmt.Errorf("%w: max run time %s exceeded with %d of %d slots consumed",
				ErrRunAborted, r.opts.maxRunTime, tracker.Consumed(), tracker.Total())
		case <-gctx.Done():
			if ctx.Err() != nil {
				reason = fmt.Errorf("%w: %w", ErrRunAborted, context.Cause(ctx))
			}
		}
		if reason != nil {
			r.log.Warn("run aborted", "error", reason)
		}

		stopping.Store(true)
		r.setState(StateShuttingDown)
		if err := transport.Shutdown(context.WithoutCancel(ctx)); err != nil {
			return &TransportError{Protocol: r.protocol, Op: "shutdown", Err: err}
		}
		return reason
	})

	err = g.Wait()
	r.setState(StateStopped)
	r.log.Info("mock server stopped", "consumed", tracker.Consumed(), "slots", tracker.Total())
	return collector.Finish(), err
}
