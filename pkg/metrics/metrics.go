package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/getmockd/mockharness/pkg/harness"
)

const namespace = "mockharness"

// Observer records harness telemetry into Prometheus collectors.
type Observer struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	panics   *prometheus.CounterVec
	consumed *prometheus.GaugeVec
	expected *prometheus.GaugeVec
}

var _ harness.Observer = (*Observer)(nil)

// NewObserver creates an Observer and registers its collectors with reg.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests seen by the dispatcher, by outcome.",
		}, []string{"protocol", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent dispatching a request, handler included.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"protocol"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "Handlers that panicked.",
		}, []string{"protocol"}),
		consumed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slots_consumed",
			Help:      "Handler slots consumed in the current run.",
		}, []string{"protocol"}),
		expected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slots_expected",
			Help:      "Handler slots that complete the current run.",
		}, []string{"protocol"}),
	}

	for _, c := range []prometheus.Collector{o.requests, o.duration, o.panics, o.consumed, o.expected} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return o, nil
}

// ObserveDispatch implements harness.Observer.
func (o *Observer) ObserveDispatch(protocol string, outcome harness.Outcome, d time.Duration) {
	o.requests.WithLabelValues(protocol, string(outcome)).Inc()
	if outcome == harness.OutcomeMalformed {
		return
	}
	o.duration.WithLabelValues(protocol).Observe(d.Seconds())
	if outcome == harness.OutcomePanic {
		o.panics.WithLabelValues(protocol).Inc()
	}
}

// ObserveSlots implements harness.Observer.
func (o *Observer) ObserveSlots(protocol string, consumed, total int) {
	o.consumed.WithLabelValues(protocol).Set(float64(consumed))
	o.expected.WithLabelValues(protocol).Set(float64(total))
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered from g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
