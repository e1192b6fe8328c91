package harness

import "context"

// Scenario bundles everything a run needs. It is the declarative counterpart of Run.
type Scenario[K comparable, C RequestContext[K], R, O any] struct {
	Adapter   Adapter[K, C, R]
	Routes    []Route[K, C, R]
	Collector Collector[C, O]
	Options   []Option
}

// Validate reports configuration errors without binding anything.
func (s *Scenario[K, C, R, O]) Validate() error {
	if s.Adapter == nil {
		return ErrNoAdapter
	}
	if s.Collector == nil {
		return ErrNoCollector
	}
	_, err := NewRouteTable(s.Routes)
	return err
}

// Execute validates the scenario and runs it to completion.
func (s *Scenario[K, C, R, O]) Execute(ctx context.Context) (O, error) {
	if err := s.Validate(); err != nil {
		var zero O
		return zero, err
	}
	return Run(ctx, s.Adapter, s.Routes, s.Collector, s.Options...)
}
