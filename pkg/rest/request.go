package rest

import (
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/getmockd/mockharness/pkg/requestlog"
)

// Key identifies an HTTP route.
type Key struct {
	Method string
	Path   string
}

// NewKey returns the key for method and path. The method is upper-cased.
func NewKey(method, path string) Key {
	return Key{Method: strings.ToUpper(method), Path: path}
}

func (k Key) String() string {
	return k.Method + " " + k.Path
}

// Request is an HTTP request received by the harness. It is not modified after
// it is handed to the dispatcher.
type Request struct {
	Method     string
	Path       string
	RawQuery   string
	Header     http.Header
	Body       []byte
	RemoteAddr string
}

// RouteKey implements harness.RequestContext.
func (r *Request) RouteKey() Key {
	return Key{Method: r.Method, Path: r.Path}
}

// Query parses the raw query string.
func (r *Request) Query() url.Values {
	q, _ := url.ParseQuery(r.RawQuery)
	return q
}

// BodyString returns the body as a string and whether it is valid UTF-8.
func (r *Request) BodyString() (string, bool) {
	return string(r.Body), utf8.Valid(r.Body)
}

// LogEntry implements requestlog.Loggable.
func (r *Request) LogEntry() *requestlog.Entry {
	e := &requestlog.Entry{
		Protocol:    requestlog.ProtocolHTTP,
		Route:       r.RouteKey().String(),
		Method:      r.Method,
		Path:        r.Path,
		QueryString: r.RawQuery,
		Headers:     r.Header,
		RemoteAddr:  r.RemoteAddr,
	}
	e.SetBody(r.Body)
	return e
}

func newRequest(r *http.Request, body []byte) *Request {
	return &Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		RawQuery:   r.URL.RawQuery,
		Header:     r.Header.Clone(),
		Body:       body,
		RemoteAddr: r.RemoteAddr,
	}
}
