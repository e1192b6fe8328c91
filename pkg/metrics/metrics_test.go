package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mockharness/pkg/harness"
)

func TestObserver_Dispatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewObserver(reg)
	require.NoError(t, err)

	o.ObserveDispatch("http", harness.OutcomeMatched, time.Millisecond)
	o.ObserveDispatch("http", harness.OutcomeMatched, 2*time.Millisecond)
	o.ObserveDispatch("http", harness.OutcomeUnmatched, time.Millisecond)
	o.ObserveDispatch("grpc", harness.OutcomePanic, time.Millisecond)
	o.ObserveDispatch("soap", harness.OutcomeMalformed, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(o.requests.WithLabelValues("http", "matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.requests.WithLabelValues("http", "unmatched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.requests.WithLabelValues("soap", "malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.panics.WithLabelValues("grpc")))
	assert.Equal(t, 0.0, testutil.ToFloat64(o.panics.WithLabelValues("http")))

	// Malformed requests never reach a handler and are not timed.
	assert.Equal(t, 2, testutil.CollectAndCount(o.duration))
}

func TestObserver_Slots(t *testing.T) {
	o, err := NewObserver(prometheus.NewRegistry())
	require.NoError(t, err)

	o.ObserveSlots("soap", 0, 3)
	assert.Equal(t, 0.0, testutil.ToFloat64(o.consumed.WithLabelValues("soap")))
	assert.Equal(t, 3.0, testutil.ToFloat64(o.expected.WithLabelValues("soap")))

	o.ObserveSlots("soap", 2, 3)
	assert.Equal(t, 2.0, testutil.ToFloat64(o.consumed.WithLabelValues("soap")))
}

func TestNewObserver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewObserver(reg)
	require.NoError(t, err)
	_, err = NewObserver(reg)
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	o, err := NewObserver(reg)
	require.NoError(t, err)
	o.ObserveDispatch("graphql", harness.OutcomeMatched, time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `mockharness_requests_total{outcome="matched",protocol="graphql"} 1`)
	assert.Contains(t, text, "go_goroutines")
	assert.True(t, strings.Contains(text, "mockharness_request_duration_seconds_bucket"))
}
