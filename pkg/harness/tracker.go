package harness

import "sync/atomic"

// CompletionTracker counts consumed handler slots across all routes of a run and
// signals exactly once when the last slot is consumed.
type CompletionTracker struct {
	total    int64
	consumed atomic.Int64
	fired    atomic.Bool
	done     chan struct{}
}

// NewCompletionTracker creates a tracker expecting total slots.
// A tracker with total <= 0 is complete from the start.
func NewCompletionTracker(total int) *CompletionTracker {
	t := &CompletionTracker{
		total: int64(total),
		done:  make(chan struct{}),
	}
	if total <= 0 {
		t.fired.Store(true)
		close(t.done)
	}
	return t
}

// Notify consumes one slot. It returns true for the single call that consumed
// the last slot and fired the completion signal. Calls after completion are
// ignored, so the consumed count never exceeds the total.
func (t *CompletionTracker) Notify() bool {
	_, fired := t.consume()
	return fired
}

// consume is Notify that also returns the consumed count this call produced,
// or 0 when no slot was left.
func (t *CompletionTracker) consume() (int, bool) {
	for {
		cur := t.consumed.Load()
		if cur >= t.total {
			return 0, false
		}
		if !t.consumed.CompareAndSwap(cur, cur+1) {
			continue
		}
		if cur+1 == t.total && t.fired.CompareAndSwap(false, true) {
			close(t.done)
			return int(cur + 1), true
		}
		return int(cur + 1), false
	}
}

// Done returns a channel that is closed once every slot has been consumed.
func (t *CompletionTracker) Done() <-chan struct{} {
	return t.done
}

// Fired reports whether the completion signal has fired.
func (t *CompletionTracker) Fired() bool {
	return t.fired.Load()
}

// Consumed returns the number of consumed slots.
func (t *CompletionTracker) Consumed() int {
	return int(t.consumed.Load())
}

// Total returns the number of expected slots.
func (t *CompletionTracker) Total() int {
	return int(t.total)
}

// Remaining returns the number of slots not yet consumed.
func (t *CompletionTracker) Remaining() int {
	return max(0, int(t.total-t.consumed.Load()))
}
