package harness

import "time"

// Outcome classifies how a request was handled.
type Outcome string

// Dispatch outcomes.
const (
	OutcomeMatched   Outcome = "matched"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeNoHandler Outcome = "no_handler"
	OutcomePanic     Outcome = "panic"
	OutcomeMalformed Outcome = "malformed"
)

// Observer receives run telemetry. Implementations must be safe for concurrent use.
// pkg/metrics provides a Prometheus implementation.
type Observer interface {
	// ObserveDispatch is called once per request that reached the dispatcher
	// or was rejected by the adapter as malformed.
	ObserveDispatch(protocol string, outcome Outcome, duration time.Duration)

	// ObserveSlots is called at the start of a run (consumed == 0) and after
	// every consumed slot.
	ObserveSlots(protocol string, consumed, total int)
}

type nopObserver struct{}

func (nopObserver) ObserveDispatch(string, Outcome, time.Duration) {}
func (nopObserver) ObserveSlots(string, int, int)                  {}
