package mocktest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/getmockd/mockharness/pkg/harness"
	"github.com/getmockd/mockharness/pkg/requestlog"
	"github.com/getmockd/mockharness/pkg/rest"
)

// DefaultWaitTimeout bounds Wait.
const DefaultWaitTimeout = 10 * time.Second

type outcome struct {
	journal *requestlog.Journal
	err     error
}

// Server is an HTTP mock bound to one test.
type Server struct {
	t testing.TB

	mu       sync.Mutex
	handlers map[rest.Key][]rest.Handler
	order    []rest.Key
	started  bool
	baseURL  string
	cancel   context.CancelFunc
	done     chan outcome
	result   *outcome

	// WaitTimeout bounds Wait. Zero uses DefaultWaitTimeout.
	WaitTimeout time.Duration
}

// New creates a mock for t. The mock is stopped when the test completes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		t:        t,
		handlers: make(map[rest.Key][]rest.Handler),
	}
	t.Cleanup(s.Stop)
	return s
}

// Mock starts a response for method and path. Call Reply (or Times) to add it.
func (s *Server) Mock(method, path string) *MockBuilder {
	s.t.Helper()
	return &MockBuilder{
		server: s,
		key:    rest.NewKey(method, path),
		resp:   rest.NewResponse(http.StatusOK),
	}
}

// Expect declares a route without responses: it accepts one request and
// answers 404.
func (s *Server) Expect(method, path string) {
	s.t.Helper()
	s.add(rest.NewKey(method, path))
}

func (s *Server) add(key rest.Key, handlers ...rest.Handler) {
	s.t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.t.Fatalf("mocktest: %s added after Start", key)
		return
	}
	if _, ok := s.handlers[key]; !ok {
		s.order = append(s.order, key)
	}
	s.handlers[key] = append(s.handlers[key], handlers...)
}

// Start binds the mock and returns its base URL.
func (s *Server) Start() string {
	s.t.Helper()
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return s.baseURL
	}
	routes := make([]rest.Route, 0, len(s.order))
	for _, key := range s.order {
		routes = append(routes, rest.Endpoint(key.Method, key.Path, s.handlers[key]...))
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan outcome, 1)
	s.started = true
	s.mu.Unlock()

	ready := make(chan net.Addr, 1)
	go func() {
		j, err := harness.Run(ctx, rest.NewServer(rest.Config{}), routes, requestlog.NewCollector[*rest.Request](),
			harness.WithOnReady(func(addr net.Addr) { ready <- addr }))
		s.done <- outcome{j, err}
	}()

	select {
	case addr := <-ready:
		s.mu.Lock()
		s.baseURL = "http://" + addr.String()
		s.mu.Unlock()
		return s.baseURL
	case o := <-s.done:
		s.finish(o)
		s.t.Fatalf("mocktest: failed to start: %v", o.err)
	case <-time.After(5 * time.Second):
		s.t.Fatal("mocktest: server not ready")
	}
	return ""
}

// URL returns the base URL, or "" before Start.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseURL
}

// Client returns an HTTP client that does not reuse connections, so every
// request reaches the mock.
func (s *Server) Client() *http.Client {
	return &http.Client{
		Transport: &http.Transport{DisableKeepAlives: true},
		Timeout:   5 * time.Second,
	}
}

// Wait blocks until every response has been used and returns the journal.
// The test fails if the run does not complete within WaitTimeout.
func (s *Server) Wait() *requestlog.Journal {
	s.t.Helper()
	if o := s.outcome(); o != nil {
		return o.journal
	}
	s.mu.Lock()
	done, started := s.done, s.started
	s.mu.Unlock()
	if !started {
		s.t.Fatal("mocktest: Wait called before Start")
		return nil
	}

	timeout := s.WaitTimeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	select {
	case o := <-done:
		s.finish(o)
		if o.err != nil {
			s.t.Errorf("mocktest: run failed: %v", o.err)
		}
		return o.journal
	case <-time.After(timeout):
		s.Stop()
		o := s.outcome()
		s.t.Errorf("mocktest: %d request(s) received, responses left unused", len(o.journal.Entries))
		return o.journal
	}
}

// Stop aborts the run if it is still waiting for requests.
func (s *Server) Stop() {
	s.mu.Lock()
	cancel, done, started := s.cancel, s.done, s.started
	s.mu.Unlock()
	if !started || s.outcome() != nil {
		return
	}
	cancel()
	o := <-done
	if errors.Is(o.err, harness.ErrRunAborted) {
		o.err = nil
	}
	s.finish(o)
}

func (s *Server) finish(o outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.journal == nil {
		o.journal = &requestlog.Journal{Entries: []*requestlog.Entry{}}
	}
	s.result = &o
}

func (s *Server) outcome() *outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Requests returns the recorded requests in arrival order. It is empty until
// Wait or Stop has returned.
func (s *Server) Requests() []RequestLog {
	o := s.outcome()
	if o == nil {
		return nil
	}
	out := make([]RequestLog, len(o.journal.Entries))
	for i, e := range o.journal.Entries {
		out[i] = newRequestLog(e)
	}
	return out
}

// AssertCalled asserts that an endpoint was called at least once.
func (s *Server) AssertCalled(t testing.TB, method, path string) {
	t.Helper()
	if s.countCalls(method, path) == 0 {
		t.Errorf("expected %s %s to be called, but it was not called", method, path)
	}
}

// AssertCalledTimes asserts that an endpoint was called exactly n times.
func (s *Server) AssertCalledTimes(t testing.TB, method, path string, times int) {
	t.Helper()
	if count := s.countCalls(method, path); count != times {
		t.Errorf("expected %s %s to be called %d times, but was called %d times",
			method, path, times, count)
	}
}

// AssertNotCalled asserts that an endpoint was not called.
func (s *Server) AssertNotCalled(t testing.TB, method, path string) {
	t.Helper()
	if count := s.countCalls(method, path); count > 0 {
		t.Errorf("expected %s %s to not be called, but it was called %d times",
			method, path, count)
	}
}

func (s *Server) countCalls(method, path string) int {
	count := 0
	for _, r := range s.Requests() {
		if strings.EqualFold(r.Method, method) && matchesPath(r.Path, path) {
			count++
		}
	}
	return count
}

// matchesPath checks if a request path matches the expected path pattern.
// Segments written as {name} match any value.
func matchesPath(actual, expected string) bool {
	if actual == expected {
		return true
	}
	actualParts := strings.Split(actual, "/")
	expectedParts := strings.Split(expected, "/")
	if len(actualParts) != len(expectedParts) {
		return false
	}
	for i, exp := range expectedParts {
		if strings.HasPrefix(exp, "{") && strings.HasSuffix(exp, "}") {
			continue
		}
		if exp != actualParts[i] {
			return false
		}
	}
	return true
}
