package harness

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"
)

// echoRequest is the request context used by the core tests: the route key is
// the request path and the body is kept verbatim.
type echoRequest struct {
	Path string
	Body string
}

func (r *echoRequest) RouteKey() string { return r.Path }

type testRoute = Route[string, *echoRequest, string]

func static(s string) Handler[*echoRequest, string] {
	return Static[*echoRequest](s)
}

// textAdapter is a minimal HTTP adapter that answers with the handler's string.
type textAdapter struct {
	addr string
}

func (a *textAdapter) Protocol() string { return "text" }

func (a *textAdapter) Listen(ctx context.Context) (net.Listener, error) {
	return ListenTCP(ctx, a.addr)
}

func (a *textAdapter) NewTransport(d *Dispatcher[string, *echoRequest, string]) Transport {
	return &textTransport{srv: &http.Server{
		ReadHeaderTimeout: 5 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				d.Reject(err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			res, err := d.Dispatch(&echoRequest{Path: r.URL.Path, Body: string(body)})
			var panicErr *HandlerPanicError
			switch {
			case errors.Is(err, ErrRouteNotFound), errors.Is(err, ErrNoHandler):
				w.WriteHeader(http.StatusNotFound)
			case errors.As(err, &panicErr):
				w.WriteHeader(http.StatusInternalServerError)
			default:
				_, _ = io.WriteString(w, res.Response)
			}
		}),
	}}
}

type textTransport struct {
	srv *http.Server
}

func (t *textTransport) Serve(ln net.Listener) error {
	if err := t.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (t *textTransport) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return t.srv.Shutdown(ctx)
}

// failingAdapter cannot bind.
type failingAdapter struct {
	textAdapter
	err error
}

func (a *failingAdapter) Listen(context.Context) (net.Listener, error) {
	return nil, a.err
}
