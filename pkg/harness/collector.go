package harness

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// CollectedRequest is the immutable record of one request that matched a route.
type CollectedRequest[C any] struct {
	// ID uniquely identifies the record (time-ordered).
	ID string

	// Sequence is the 1-based arrival order at the dispatcher.
	Sequence uint64

	// ReceivedAt is when the dispatcher accepted the request.
	ReceivedAt time.Time

	// Request is the adapter's request context.
	Request C
}

// Collector receives every matched request of a run and produces the run's output.
//
// Record must be safe for concurrent use and must not block indefinitely.
// Finish is called exactly once, after the endpoint has stopped.
type Collector[C, O any] interface {
	Record(req CollectedRequest[C])
	Finish() O
}

// recordBuffer is the shared storage behind the built-in collectors.
type recordBuffer[C any] struct {
	mu       sync.Mutex
	records  []CollectedRequest[C]
	finished bool
}

func (buf *recordBuffer[C]) add(req CollectedRequest[C]) {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	if buf.finished {
		return
	}
	buf.records = append(buf.records, req)
}

// drain hands out the records in arrival order and seals the buffer.
func (buf *recordBuffer[C]) drain() []CollectedRequest[C] {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	if buf.finished {
		return nil
	}
	buf.finished = true
	out := buf.records
	if out == nil {
		out = []CollectedRequest[C]{}
	}
	buf.records = nil
	slices.SortStableFunc(out, func(x, y CollectedRequest[C]) int {
		return cmp.Compare(x.Sequence, y.Sequence)
	})
	return out
}

// ListCollector returns every matched request in arrival order.
type ListCollector[C any] struct {
	buf recordBuffer[C]
}

// NewListCollector creates an empty ListCollector.
func NewListCollector[C any]() *ListCollector[C] {
	return &ListCollector[C]{}
}

// Record implements Collector.
func (c *ListCollector[C]) Record(req CollectedRequest[C]) {
	c.buf.add(req)
}

// Finish implements Collector. Subsequent calls return nil.
func (c *ListCollector[C]) Finish() []C {
	records := c.buf.drain()
	if records == nil {
		return nil
	}
	out := make([]C, len(records))
	for i, r := range records {
		out[i] = r.Request
	}
	return out
}

// RecordCollector returns the full CollectedRequest records in arrival order.
type RecordCollector[C any] struct {
	buf recordBuffer[C]
}

// NewRecordCollector creates an empty RecordCollector.
func NewRecordCollector[C any]() *RecordCollector[C] {
	return &RecordCollector[C]{}
}

// Record implements Collector.
func (c *RecordCollector[C]) Record(req CollectedRequest[C]) {
	c.buf.add(req)
}

// Finish implements Collector. Subsequent calls return nil.
func (c *RecordCollector[C]) Finish() []CollectedRequest[C] {
	return c.buf.drain()
}

// CountCollector counts matched requests per route key.
type CountCollector[K comparable, C RequestContext[K]] struct {
	mu     sync.Mutex
	counts map[K]int
}

// NewCountCollector creates an empty CountCollector.
func NewCountCollector[K comparable, C RequestContext[K]]() *CountCollector[K, C] {
	return &CountCollector[K, C]{counts: make(map[K]int)}
}

// Record implements Collector.
func (c *CountCollector[K, C]) Record(req CollectedRequest[C]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		return
	}
	c.counts[req.Request.RouteKey()]++
}

// Finish implements Collector. Subsequent calls return nil.
func (c *CountCollector[K, C]) Finish() map[K]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.counts
	c.counts = nil
	return out
}

// FuncCollector adapts a pair of functions to the Collector interface.
// RecordFunc is called concurrently and must synchronize its own state.
type FuncCollector[C, O any] struct {
	RecordFunc func(CollectedRequest[C])
	FinishFunc func() O
}

// Record implements Collector.
func (c FuncCollector[C, O]) Record(req CollectedRequest[C]) {
	if c.RecordFunc != nil {
		c.RecordFunc(req)
	}
}

// Finish implements Collector.
func (c FuncCollector[C, O]) Finish() O {
	if c.FinishFunc == nil {
		var zero O
		return zero
	}
	return c.FinishFunc()
}
