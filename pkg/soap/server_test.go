package soap

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mockharness/pkg/harness"
	"github.com/getmockd/mockharness/pkg/requestlog"
)

type result[O any] struct {
	out O
	err error
}

// start runs routes on a fresh SOAP adapter and returns the endpoint URL.
func start[O any](t *testing.T, cfg Config, routes []Route, collector harness.Collector[*Request, O]) (string, <-chan result[O]) {
	t.Helper()
	srv := NewServer(cfg)
	ready := make(chan net.Addr, 1)
	done := make(chan result[O], 1)
	go func() {
		out, err := harness.Run(context.Background(), srv, routes, collector,
			harness.WithOnReady(func(addr net.Addr) { ready <- addr }))
		done <- result[O]{out, err}
	}()
	select {
	case addr := <-ready:
		return "http://" + addr.String() + srv.Config().Path, done
	case r := <-done:
		t.Fatalf("run ended early: %v", r.err)
	case <-time.After(5 * time.Second):
		t.Fatal("server not ready")
	}
	return "", nil
}

func wait[O any](t *testing.T, done <-chan result[O]) result[O] {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop")
		return result[O]{}
	}
}

func post(t *testing.T, url, contentType, body string, header ...string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return send(t, req)
}

func send(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func call11(op, inner string) string {
	return fmt.Sprintf(`<soap:Envelope xmlns:soap="%s" xmlns:u="urn:users"><soap:Body><u:%s>%s</u:%s></soap:Body></soap:Envelope>`,
		SOAP11Namespace, op, inner, op)
}

func call12(op string) string {
	return fmt.Sprintf(`<env:Envelope xmlns:env="%s"><env:Body><%s/></env:Body></env:Envelope>`, SOAP12Namespace, op)
}

func TestServer_SequentialResponses(t *testing.T) {
	url, done := start(t, Config{}, []Route{
		Operation("GetUser",
			Respond(XML("<GetUserResponse><name>A</name></GetUserResponse>")),
			Respond(XML("<GetUserResponse><name>B</name></GetUserResponse>")),
			Respond(NewFault(FaultClient, "user not found").WithDetail("<id>7</id>")),
		),
	}, harness.NewListCollector[*Request]())

	resp, body := post(t, url, SOAP11ContentType, call11("GetUser", "<u:id>7</u:id>"), "SOAPAction", `"urn:GetUser"`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, SOAP11ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "<soap:Body><GetUserResponse><name>A</name></GetUserResponse></soap:Body>")

	_, body = post(t, url, SOAP11ContentType, call11("GetUser", ""))
	assert.Contains(t, body, "<name>B</name>")

	resp, body = post(t, url, SOAP11ContentType, call11("GetUser", ""))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "<faultcode>soap:Client</faultcode>")
	assert.Contains(t, body, "<faultstring>user not found</faultstring>")
	assert.Contains(t, body, "<detail><id>7</id></detail>")

	r := wait(t, done)
	require.NoError(t, r.err)
	require.Len(t, r.out, 3)
	first := r.out[0]
	assert.Equal(t, "GetUser", first.Operation)
	assert.Equal(t, "urn:GetUser", first.SOAPAction)
	assert.Equal(t, SOAP11, first.Version)
	assert.Equal(t, "7", first.XPath("//GetUser/id"))
	assert.Equal(t, "urn:users", first.Namespace())
	assert.Equal(t, map[string]any{"id": "7"}, first.Params())
	assert.Contains(t, first.Payload(), "<u:id>7</u:id>")
}

func TestServer_SOAP12(t *testing.T) {
	url, done := start(t, Config{Path: "/ws"}, []Route{
		Operation("Ping", Func(func(*Request) Response { panic("boom") })),
	}, harness.NewListCollector[*Request]())

	resp, body := post(t, url, `application/soap+xml; charset=utf-8; action="urn:Ping"`, call12("Ping"))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, SOAP12ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, body, SOAP12Namespace)
	assert.Contains(t, body, "<soap:Value>soap:Receiver</soap:Value>")
	assert.Contains(t, body, "handler panic: boom")

	r := wait(t, done)
	require.NoError(t, r.err)
	require.Len(t, r.out, 1)
	assert.Equal(t, SOAP12, r.out[0].Version)
	assert.Equal(t, "urn:Ping", r.out[0].SOAPAction)
}

func TestServer_UnknownOperation(t *testing.T) {
	url, done := start(t, Config{}, []Route{
		Operation("GetUser", Respond(XML("<ok/>"))),
	}, harness.NewListCollector[*Request]())

	resp, body := post(t, url, SOAP11ContentType, call11("DeleteUser", ""))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "<faultcode>soap:Client</faultcode>")
	assert.Contains(t, body, "operation not implemented: DeleteUser")

	post(t, url, SOAP11ContentType, call11("GetUser", ""))

	r := wait(t, done)
	require.NoError(t, r.err)
	require.Len(t, r.out, 1)
	assert.Equal(t, "GetUser", r.out[0].Operation)
}

func TestServer_MalformedNotRecorded(t *testing.T) {
	url, done := start(t, Config{}, []Route{
		Operation("GetUser", Respond(XML("<ok/>"))),
	}, harness.NewListCollector[*Request]())

	resp, body := post(t, url, SOAP11ContentType, "<not-soap")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "<faultcode>soap:Client</faultcode>")
	assert.Contains(t, body, "failed to parse SOAP envelope")

	resp, body = post(t, url, SOAP12ContentType, `<Envelope><Body/></Envelope>`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "soap:Sender")

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, _ = send(t, req)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	post(t, url, SOAP11ContentType, call11("GetUser", ""))

	r := wait(t, done)
	require.NoError(t, r.err)
	assert.Len(t, r.out, 1)
}

func TestServer_NoHandlerAndInvalidBody(t *testing.T) {
	url, done := start(t, Config{}, []Route{
		Operation("Ping"),
		Operation("Broken", Respond(XML("<unclosed>"))),
	}, harness.NewListCollector[*Request]())

	resp, body := post(t, url, SOAP11ContentType, call11("Ping", ""))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<soap:Body/>")

	resp, body = post(t, url, SOAP11ContentType, call11("Broken", ""))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "soap:Server")

	r := wait(t, done)
	require.NoError(t, r.err)
	assert.Len(t, r.out, 2)
}

func TestServer_DynamicJournal(t *testing.T) {
	url, done := start(t, Config{}, []Route{
		Operation("Echo", Func(func(req *Request) Response {
			return XML(fmt.Sprintf("<EchoResponse><said>%s</said></EchoResponse>", req.XPath("//Echo/text")))
		})),
	}, requestlog.NewCollector[*Request]())

	_, body := post(t, url, SOAP11ContentType, call11("Echo", "<u:text>hello</u:text>"), "SOAPAction", "urn:Echo")
	assert.Contains(t, body, "<said>hello</said>")

	r := wait(t, done)
	require.NoError(t, r.err)
	require.Equal(t, 1, r.out.Count(&requestlog.Filter{SOAPOperation: "Echo"}))
	e := r.out.Entries[0]
	assert.Equal(t, requestlog.ProtocolSOAP, e.Protocol)
	assert.Equal(t, "Echo", e.Route)
	assert.Equal(t, DefaultPath, e.Path)
	assert.Equal(t, "urn:Echo", e.SOAP.SOAPAction)
	assert.Equal(t, "1.1", e.SOAP.SOAPVersion)
	assert.Contains(t, e.Body, "<u:text>hello</u:text>")
}

func TestServer_WSDL(t *testing.T) {
	const wsdl = `<definitions name="Users"/>`
	url, done := start(t, Config{WSDL: wsdl}, []Route{
		Operation("Ping", Respond(XML("<Pong/>"))),
	}, harness.NewListCollector[*Request]())

	req, err := http.NewRequest(http.MethodGet, url+"?WSDL", nil)
	require.NoError(t, err)
	resp, body := send(t, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, wsdl, body)

	post(t, url, SOAP11ContentType, call11("Ping", ""))
	r := wait(t, done)
	require.NoError(t, r.err)
	assert.Len(t, r.out, 1)
}

func TestNewServer_Defaults(t *testing.T) {
	s := NewServer(Config{})
	assert.Equal(t, DefaultPath, s.Config().Path)
	assert.Equal(t, DefaultShutdownTimeout, s.Config().ShutdownTimeout)
	assert.Equal(t, requestlog.ProtocolSOAP, s.Protocol())
}
