package mocktest

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ohler55/ojg/jp"

	"github.com/getmockd/mockharness/pkg/requestlog"
)

// RequestLog is one recorded request, shaped for assertions.
type RequestLog struct {
	Sequence    uint64
	Route       string
	Method      string
	Path        string
	QueryString string
	Headers     http.Header
	Body        string
}

func newRequestLog(e *requestlog.Entry) RequestLog {
	return RequestLog{
		Sequence:    e.Sequence,
		Route:       e.Route,
		Method:      e.Method,
		Path:        e.Path,
		QueryString: e.QueryString,
		Headers:     http.Header(e.Headers),
		Body:        e.Body,
	}
}

func decodeJSON(data []byte) (any, error) {
	var v any
	err := json.Unmarshal(data, &v)
	return v, err
}

// AssertJSONBody asserts that the body is JSON equal to expected. Strings and
// byte slices are parsed; other values are compared after a JSON round trip.
func (r *RequestLog) AssertJSONBody(t testing.TB, expected any) {
	t.Helper()

	var raw []byte
	switch v := expected.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Errorf("failed to marshal expected value: %v", err)
			return
		}
		raw = data
	}
	want, err := decodeJSON(raw)
	if err != nil {
		t.Errorf("failed to parse expected JSON: %v", err)
		return
	}
	got, err := decodeJSON([]byte(r.Body))
	if err != nil {
		t.Errorf("request body is not valid JSON: %v\nbody: %s", err, r.Body)
		return
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request body does not match expected JSON (-want +got):\n%s", diff)
	}
}

// AssertBody asserts that the body equals expected.
func (r *RequestLog) AssertBody(t testing.TB, expected string) {
	t.Helper()
	if r.Body != expected {
		t.Errorf("request body does not match\nexpected: %q\nactual: %q", expected, r.Body)
	}
}

// AssertBodyContains asserts that the body contains substr.
func (r *RequestLog) AssertBodyContains(t testing.TB, substr string) {
	t.Helper()
	if !strings.Contains(r.Body, substr) {
		t.Errorf("request body does not contain %q\nbody: %s", substr, r.Body)
	}
}

// AssertHeader asserts that the first value of header key equals expected.
func (r *RequestLog) AssertHeader(t testing.TB, key, expected string) {
	t.Helper()
	vs := r.Headers.Values(key)
	if len(vs) == 0 {
		t.Errorf("request does not have header %q", key)
		return
	}
	if vs[0] != expected {
		t.Errorf("header %q value mismatch\nexpected: %q\nactual: %q", key, expected, vs[0])
	}
}

// AssertHeaderExists asserts that header key is present.
func (r *RequestLog) AssertHeaderExists(t testing.TB, key string) {
	t.Helper()
	if len(r.Headers.Values(key)) == 0 {
		t.Errorf("request does not have header %q", key)
	}
}

// AssertHeaderContains asserts that the first value of header key contains substr.
func (r *RequestLog) AssertHeaderContains(t testing.TB, key, substr string) {
	t.Helper()
	actual := r.Headers.Get(key)
	if actual == "" {
		t.Errorf("request does not have header %q", key)
		return
	}
	if !strings.Contains(actual, substr) {
		t.Errorf("header %q does not contain %q\nactual: %q", key, substr, actual)
	}
}

// AssertQueryParam asserts that query parameter key has the expected first value.
func (r *RequestLog) AssertQueryParam(t testing.TB, key, expected string) {
	t.Helper()
	params, err := url.ParseQuery(r.QueryString)
	if err != nil {
		t.Errorf("failed to parse query string %q: %v", r.QueryString, err)
		return
	}
	if !params.Has(key) {
		t.Errorf("request does not have query parameter %q", key)
		return
	}
	if actual := params.Get(key); actual != expected {
		t.Errorf("query parameter %q value mismatch\nexpected: %q\nactual: %q", key, expected, actual)
	}
}

// AssertMethod asserts the request method.
func (r *RequestLog) AssertMethod(t testing.TB, expected string) {
	t.Helper()
	if !strings.EqualFold(r.Method, expected) {
		t.Errorf("method mismatch\nexpected: %s\nactual: %s", expected, r.Method)
	}
}

// AssertPath asserts the request path. Segments written as {name} match any value.
func (r *RequestLog) AssertPath(t testing.TB, expected string) {
	t.Helper()
	if !matchesPath(r.Path, expected) {
		t.Errorf("path mismatch\nexpected: %s\nactual: %s", expected, r.Path)
	}
}

// JSONField evaluates a JSONPath expression against the body. It returns nil
// when nothing matches, the value for a single match, and a slice otherwise.
func (r *RequestLog) JSONField(path string) (any, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, err
	}
	data, err := decodeJSON([]byte(r.Body))
	if err != nil {
		return nil, err
	}
	switch res := x.Get(data); len(res) {
	case 0:
		return nil, nil
	case 1:
		return res[0], nil
	default:
		return res, nil
	}
}

// AssertJSONField asserts that the JSONPath expression selects expected.
// Numbers in the body decode as float64.
func (r *RequestLog) AssertJSONField(t testing.TB, path string, expected any) {
	t.Helper()
	actual, err := r.JSONField(path)
	if err != nil {
		t.Errorf("failed to evaluate %s: %v", path, err)
		return
	}
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Errorf("JSON field %s mismatch (-want +got):\n%s", path, diff)
	}
}
