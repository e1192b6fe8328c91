package harness

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/mockharness/internal/id"
	"github.com/getmockd/mockharness/pkg/logging"
)

// Dispatch is the result of dispatching one matched request.
type Dispatch[R any] struct {
	// Response is the handler's response. It is the zero value when the
	// route has no handlers or the handler panicked.
	Response R

	// CallIndex is the 0-based index of this call to the route.
	CallIndex int

	// HandlerIndex is the position of the handler that answered, -1 if none.
	HandlerIndex int

	// ConsumedSlot reports whether the call consumed a completion slot.
	ConsumedSlot bool

	// Completed reports whether this call consumed the run's last slot.
	Completed bool
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig[C any] struct {
	// Protocol names the adapter in logs and metrics.
	Protocol string

	// Record receives every matched request. Nil discards them.
	Record func(CollectedRequest[C])

	// Logger is the operational logger. Nil disables logging.
	Logger *slog.Logger

	// Observer receives telemetry. Nil disables it.
	Observer Observer
}

// Dispatcher runs the per-request pipeline: route lookup, collection, handler
// selection, response and completion accounting. It is safe for concurrent use.
type Dispatcher[K comparable, C RequestContext[K], R any] struct {
	protocol string
	table    *RouteTable[K, C, R]
	tracker  *CompletionTracker
	record   func(CollectedRequest[C])
	observer Observer
	log      *slog.Logger
	seq      atomic.Uint64

	// slotsMu orders slot publications so observers only see the count grow.
	slotsMu   sync.Mutex
	published int
}

// NewDispatcher creates a dispatcher over table reporting to tracker.
func NewDispatcher[K comparable, C RequestContext[K], R any](table *RouteTable[K, C, R], tracker *CompletionTracker, cfg DispatcherConfig[C]) *Dispatcher[K, C, R] {
	d := &Dispatcher[K, C, R]{
		protocol: cfg.Protocol,
		table:    table,
		tracker:  tracker,
		record:   cfg.Record,
		observer: cfg.Observer,
		log:      cfg.Logger,
	}
	if d.record == nil {
		d.record = func(CollectedRequest[C]) {}
	}
	if d.observer == nil {
		d.observer = nopObserver{}
	}
	if d.log == nil {
		d.log = logging.Nop()
	}
	return d
}

// Dispatch handles one decoded request.
//
// It returns ErrRouteNotFound (without recording anything) when no route matches,
// ErrNoHandler when the route was declared without handlers, and a
// *HandlerPanicError when the handler panicked. In the last two cases the call
// still takes part in completion accounting.
func (d *Dispatcher[K, C, R]) Dispatch(req C) (Dispatch[R], error) {
	start := time.Now()
	key := req.RouteKey()

	entry, ok := d.table.entry(key)
	if !ok {
		d.log.Debug("no route declared", "protocol", d.protocol, "key", fmt.Sprint(key))
		d.observer.ObserveDispatch(d.protocol, OutcomeUnmatched, time.Since(start))
		return Dispatch[R]{HandlerIndex: -1}, fmt.Errorf("%w: %v", ErrRouteNotFound, key)
	}

	d.record(CollectedRequest[C]{
		ID:         id.New(),
		Sequence:   d.seq.Add(1),
		ReceivedAt: start,
		Request:    req,
	})

	sel := entry.selector.Next()
	result := Dispatch[R]{
		CallIndex:    sel.CallIndex,
		HandlerIndex: sel.HandlerIndex,
	}

	var err error
	outcome := OutcomeMatched
	if sel.Handler == nil {
		err = fmt.Errorf("%w: %v", ErrNoHandler, key)
		outcome = OutcomeNoHandler
	} else {
		result.Response, err = d.respond(key, sel.Handler, req)
		if err != nil {
			outcome = OutcomePanic
		}
	}

	if sel.ConsumesSlot {
		result.ConsumedSlot = true
		var consumed int
		consumed, result.Completed = d.tracker.consume()
		d.publishSlots(consumed)
		if result.Completed {
			d.log.Info("all handler slots consumed", "protocol", d.protocol, "slots", d.tracker.Total())
		}
	}

	d.observer.ObserveDispatch(d.protocol, outcome, time.Since(start))
	return result, err
}

// publishSlots reports consumed to the observer unless a larger count has
// already been reported.
func (d *Dispatcher[K, C, R]) publishSlots(consumed int) {
	d.slotsMu.Lock()
	defer d.slotsMu.Unlock()
	if consumed <= d.published {
		return
	}
	d.published = consumed
	d.observer.ObserveSlots(d.protocol, consumed, d.tracker.Total())
}

func (d *Dispatcher[K, C, R]) respond(key K, h *Handler[C, R], req C) (resp R, err error) {
	defer func() {
		if v := recover(); v != nil {
			d.log.Error("handler panicked", "protocol", d.protocol, "key", fmt.Sprint(key), "panic", v)
			var zero R
			resp = zero
			err = &HandlerPanicError{Key: key, Value: v}
		}
	}()
	return h.Respond(req), nil
}

// Reject reports a request the adapter could not decode. Nothing is recorded
// and no slot is consumed.
func (d *Dispatcher[K, C, R]) Reject(reason error) {
	d.log.Debug("rejected malformed request", "protocol", d.protocol, "error", reason)
	d.observer.ObserveDispatch(d.protocol, OutcomeMalformed, 0)
}

// Protocol returns the adapter name the dispatcher reports under.
func (d *Dispatcher[K, C, R]) Protocol() string {
	return d.protocol
}

// Table returns the route table.
func (d *Dispatcher[K, C, R]) Table() *RouteTable[K, C, R] {
	return d.table
}

// Tracker returns the completion tracker.
func (d *Dispatcher[K, C, R]) Tracker() *CompletionTracker {
	return d.tracker
}

// Logger returns the operational logger.
func (d *Dispatcher[K, C, R]) Logger() *slog.Logger {
	return d.log
}
