package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// get issues a request on a fresh connection and returns status and body.
func get(addr net.Addr, path, body string) (int, string, error) {
	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	resp, err := client.Post("http://"+addr.String()+path, "text/plain", strings.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data), err
}

// runAsync starts Run and returns the bound address plus a channel with the result.
type runResult[O any] struct {
	out O
	err error
}

func runAsync[O any](t *testing.T, routes []testRoute, collector Collector[*echoRequest, O], opts ...Option) (net.Addr, <-chan runResult[O]) {
	t.Helper()
	ready := make(chan net.Addr, 1)
	done := make(chan runResult[O], 1)
	opts = append(opts, WithOnReady(func(addr net.Addr) { ready <- addr }))
	go func() {
		out, err := Run[string, *echoRequest, string, O](context.Background(), &textAdapter{}, routes, collector, opts...)
		done <- runResult[O]{out: out, err: err}
	}()

	select {
	case addr := <-ready:
		return addr, done
	case res := <-done:
		t.Fatalf("run ended before ready: %v", res.err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ready")
	}
	return nil, nil
}

func waitRun[O any](t *testing.T, done <-chan runResult[O]) runResult[O] {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(10 * time.Second):
		t.Fatal("run did not terminate")
		return runResult[O]{}
	}
}

func TestRun_SequentialThenStop(t *testing.T) {
	addr, done := runAsync(t, []testRoute{
		NewRoute("/abc", static("A"), static("B"), static("C")),
	}, NewListCollector[*echoRequest]())

	var got []string
	for range 3 {
		status, body, err := get(addr, "/abc", "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status)
		got = append(got, body)
	}
	assert.Equal(t, []string{"A", "B", "C"}, got)

	res := waitRun(t, done)
	require.NoError(t, res.err)
	assert.Len(t, res.out, 3)

	_, _, err := get(addr, "/abc", "")
	assert.Error(t, err, "a request after shutdown must fail to connect")
}

func TestRun_InterleavedRoutes(t *testing.T) {
	for _, order := range [][]string{{"/a", "/b"}, {"/b", "/a"}} {
		t.Run(strings.Join(order, ","), func(t *testing.T) {
			addr, done := runAsync(t, []testRoute{
				NewRoute("/a", static("A")),
				NewRoute("/b", static("B")),
			}, NewCountCollector[string, *echoRequest]())

			for _, path := range order {
				_, _, err := get(addr, path, "")
				require.NoError(t, err)
			}

			res := waitRun(t, done)
			require.NoError(t, res.err)
			assert.Equal(t, map[string]int{"/a": 1, "/b": 1}, res.out)
		})
	}
}

func TestRun_UnmatchedNotCollected(t *testing.T) {
	addr, done := runAsync(t, []testRoute{
		NewRoute("/a", static("A")),
	}, NewListCollector[*echoRequest]())

	status, _, err := get(addr, "/unknown", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)

	_, _, err = get(addr, "/a", "")
	require.NoError(t, err)

	res := waitRun(t, done)
	require.NoError(t, res.err)
	require.Len(t, res.out, 1)
	assert.Equal(t, "/a", res.out[0].Path)
}

func TestRun_ZeroHandlerRoute(t *testing.T) {
	addr, done := runAsync(t, []testRoute{
		NewRoute[string, *echoRequest, string]("/empty"),
	}, NewListCollector[*echoRequest]())

	status, _, err := get(addr, "/empty", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)

	res := waitRun(t, done)
	require.NoError(t, res.err)
	assert.Len(t, res.out, 1)
}

func TestRun_ConcurrentBatch(t *testing.T) {
	const h = 8
	handlers := make([]Handler[*echoRequest, string], h)
	want := make([]string, h)
	for i := range h {
		want[i] = fmt.Sprintf("R%d", i)
		handlers[i] = static(want[i])
	}

	addr, done := runAsync(t, []testRoute{NewRoute("/batch", handlers...)}, NewListCollector[*echoRequest]())

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got []string
	)
	for range h {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, body, err := get(addr, "/batch", "")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			got = append(got, body)
		}()
	}
	wg.Wait()

	res := waitRun(t, done)
	require.NoError(t, res.err)
	assert.ElementsMatch(t, want, got)
	assert.Len(t, res.out, h)
}

func TestRun_DynamicEcho(t *testing.T) {
	echo := Dynamic(func(req *echoRequest) string {
		return strings.ToUpper(req.Body)
	})
	addr, done := runAsync(t, []testRoute{NewRoute("/echo", echo, echo)}, NewListCollector[*echoRequest]())

	_, first, err := get(addr, "/echo", "payload")
	require.NoError(t, err)
	_, second, err := get(addr, "/echo", "payload")
	require.NoError(t, err)

	assert.Equal(t, "PAYLOAD", first)
	assert.Equal(t, first, second)

	res := waitRun(t, done)
	require.NoError(t, res.err)
	require.Len(t, res.out, 2)
	assert.Equal(t, "payload", res.out[0].Body)
}

func TestRun_StateTransitions(t *testing.T) {
	var (
		mu     sync.Mutex
		states []State
	)
	addr, done := runAsync(t, []testRoute{NewRoute("/a", static("A"))}, NewListCollector[*echoRequest](),
		WithOnStateChange(func(s State) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, s)
		}),
	)

	_, _, err := get(addr, "/a", "")
	require.NoError(t, err)
	require.NoError(t, waitRun(t, done).err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateBinding, StateReady, StateServing, StateShuttingDown, StateStopped}, states)
}

func TestRun_ConfigErrors(t *testing.T) {
	ctx := context.Background()
	routes := []testRoute{NewRoute("/a", static("A"))}

	_, err := Run[string, *echoRequest, string, []*echoRequest](ctx, nil, routes, NewListCollector[*echoRequest]())
	assert.ErrorIs(t, err, ErrNoAdapter)

	_, err = Run[string, *echoRequest, string, []*echoRequest](ctx, &textAdapter{}, routes, nil)
	assert.ErrorIs(t, err, ErrNoCollector)

	_, err = Run(ctx, &textAdapter{}, nil, NewListCollector[*echoRequest]())
	assert.ErrorIs(t, err, ErrNoRoutes)

	_, err = Run(ctx, &textAdapter{}, []testRoute{
		NewRoute("/a", static("A")),
		NewRoute("/a", static("B")),
	}, NewListCollector[*echoRequest]())
	assert.ErrorIs(t, err, ErrDuplicateRoute)
}

func TestRun_BindError(t *testing.T) {
	bindErr := errors.New("address in use")
	out, err := Run(context.Background(), &failingAdapter{err: bindErr},
		[]testRoute{NewRoute("/a", static("A"))}, NewListCollector[*echoRequest]())

	var be *BindError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "text", be.Protocol)
	assert.ErrorIs(t, err, bindErr)
	assert.Nil(t, out)
}

func TestRun_BindErrorAddressInUse(t *testing.T) {
	ln, err := ListenTCP(context.Background(), "")
	require.NoError(t, err)
	defer ln.Close()

	_, err = Run(context.Background(), &textAdapter{addr: ln.Addr().String()},
		[]testRoute{NewRoute("/a", static("A"))}, NewListCollector[*echoRequest]())
	var be *BindError
	assert.ErrorAs(t, err, &be)
}

func TestRun_MaxRunTime(t *testing.T) {
	addr, done := runAsync(t, []testRoute{
		NewRoute("/a", static("A")),
		NewRoute("/never", static("N")),
	}, NewListCollector[*echoRequest](), WithMaxRunTime(300*time.Millisecond))

	_, _, err := get(addr, "/a", "")
	require.NoError(t, err)

	res := waitRun(t, done)
	require.ErrorIs(t, res.err, ErrRunAborted)
	assert.Len(t, res.out, 1, "partial output is returned on abort")
}

func TestRun_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Run(ctx, &textAdapter{}, []testRoute{NewRoute("/a", static("A"))},
			NewListCollector[*echoRequest](),
			WithOnReady(func(net.Addr) { cancel() }),
		)
		done <- err
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrRunAborted)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestScenario(t *testing.T) {
	s := &Scenario[string, *echoRequest, string, []*echoRequest]{}
	assert.ErrorIs(t, s.Validate(), ErrNoAdapter)

	s.Adapter = &textAdapter{}
	assert.ErrorIs(t, s.Validate(), ErrNoCollector)

	s.Collector = NewListCollector[*echoRequest]()
	assert.ErrorIs(t, s.Validate(), ErrNoRoutes)

	ready := make(chan net.Addr, 1)
	s.Routes = []testRoute{NewRoute("/a", static("A"))}
	s.Options = []Option{WithOnReady(func(addr net.Addr) { ready <- addr })}
	require.NoError(t, s.Validate())

	go func() {
		addr := <-ready
		_, _, _ = get(addr, "/a", "")
	}()

	out, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "binding", StateBinding.String())
	assert.Equal(t, "shutting_down", StateShuttingDown.String())
	assert.Equal(t, "state(42)", State(42).String())
}
