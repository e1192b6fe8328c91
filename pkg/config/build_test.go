package config

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/getmockd/mockharness/pkg/grpc"
	"github.com/getmockd/mockharness/pkg/harness"
	"github.com/getmockd/mockharness/pkg/requestlog"
)

type outcome struct {
	journal *requestlog.Journal
	err     error
}

// start runs a scenario file and returns the bound address.
func start(t *testing.T, path string, opts ...harness.Option) (string, <-chan outcome) {
	t.Helper()
	s, err := LoadFile(path)
	require.NoError(t, err)
	r, err := s.Build(BuildOptions{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	return run(t, r, opts...)
}

func run(t *testing.T, r Runner, opts ...harness.Option) (string, <-chan outcome) {
	t.Helper()
	ready := make(chan net.Addr, 1)
	done := make(chan outcome, 1)
	opts = append(opts, harness.WithOnReady(func(addr net.Addr) { ready <- addr }))
	go func() {
		j, err := r.Run(context.Background(), opts...)
		done <- outcome{j, err}
	}()
	select {
	case addr := <-ready:
		return addr.String(), done
	case o := <-done:
		t.Fatalf("run ended early: %v", o.err)
	case <-time.After(5 * time.Second):
		t.Fatal("server not ready")
	}
	return "", nil
}

func wait(t *testing.T, done <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-done:
		return o
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop")
		return outcome{}
	}
}

func send(t *testing.T, method, url, contentType, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestBuild_HTTP(t *testing.T) {
	addr, done := start(t, "testdata/http.yaml")
	base := "http://" + addr

	resp, body := send(t, http.MethodGet, base+"/users", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "users", resp.Header.Get("X-Scenario"))
	assert.JSONEq(t, `[{"id":1,"name":"Ada"}]`, body)

	resp, body = send(t, http.MethodGet, base+"/users?name=Grace", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"echo":"Grace","op":"listUsers"}`, body)

	resp, body = send(t, http.MethodPost, base+"/users", "application/json", `{"name":"Linus"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"id":2,"name":"Linus"}`, body)

	resp, _ = send(t, http.MethodDelete, base+"/users/1", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	o := wait(t, done)
	require.NoError(t, o.err)
	require.Len(t, o.journal.Entries, 4)
	assert.Equal(t, 2, o.journal.Count(&requestlog.Filter{Path: "/users", Method: http.MethodGet}))
	assert.Equal(t, "name=Grace", o.journal.Entries[1].QueryString)
}

func TestBuild_ExpressionFailure(t *testing.T) {
	s := &Scenario{
		Protocol: ProtocolHTTP,
		Routes: []RouteSpec{{
			Key:       KeySpec{Method: "GET", Path: "/x"},
			Responses: []ResponseSpec{{Expr: `{status: request.query.code}`}},
		}},
	}
	r, err := s.Build(BuildOptions{})
	require.NoError(t, err)
	addr, done := run(t, r)

	resp, body := send(t, http.MethodGet, "http://"+addr+"/x?code=teapot", "", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "expression_failed")

	require.NoError(t, wait(t, done).err)
}

func TestBuild_GraphQL(t *testing.T) {
	s := &Scenario{
		Protocol: ProtocolGraphQL,
		GraphQL: &GraphQLOptions{
			Path:   "/gql",
			Schema: "type Query { user(id: ID!): User }\ntype Mutation { rename(name: String!): User }\ntype User { id: ID! name: String }",
		},
		Routes: []RouteSpec{
			{
				Key:       KeySpec{Field: "user"},
				Responses: []ResponseSpec{{Expr: `{data: {id: request.args.id, name: "Ada"}}`}},
			},
			{
				Key: KeySpec{Operation: "mutation", Field: "rename"},
				Responses: []ResponseSpec{{
					Errors: []GraphQLErrorSpec{{Message: "read only", Extensions: map[string]any{"code": "FORBIDDEN"}}},
				}},
			},
		},
	}
	r, err := s.Build(BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, ProtocolGraphQL, r.Protocol())
	assert.Equal(t, 2, r.Slots())
	addr, done := run(t, r)
	url := "http://" + addr + "/gql"

	_, body := send(t, http.MethodPost, url, "application/json", `{"query":"{ user(id: \"7\") { id name } }"}`)
	assert.JSONEq(t, `{"data":{"user":{"id":"7","name":"Ada"}}}`, body)

	_, body = send(t, http.MethodPost, url, "application/json", `{"query":"mutation { rename(name: \"x\") { id } }"}`)
	var out struct {
		Data   map[string]any `json:"data"`
		Errors []struct {
			Message    string         `json:"message"`
			Path       []any          `json:"path"`
			Extensions map[string]any `json:"extensions"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "read only", out.Errors[0].Message)
	assert.Equal(t, []any{"rename"}, out.Errors[0].Path)
	assert.Equal(t, "FORBIDDEN", out.Errors[0].Extensions["code"])

	o := wait(t, done)
	require.NoError(t, o.err)
	assert.Equal(t, 1, o.journal.Count(&requestlog.Filter{GraphQLOpType: "mutation"}))
}

func TestBuild_GraphQLUnknownField(t *testing.T) {
	s := &Scenario{
		Protocol: ProtocolGraphQL,
		GraphQL:  &GraphQLOptions{Schema: "type Query { user: String }"},
		Routes:   []RouteSpec{{Key: KeySpec{Field: "users"}}},
	}
	_, err := s.Build(BuildOptions{})
	assert.ErrorContains(t, err, "users")
}

func TestBuild_GRPC(t *testing.T) {
	schema, err := grpc.ParseProtoFile("../grpc/testdata/greeter.proto", nil)
	require.NoError(t, err)
	hello, err := schema.Method("harness.test.Greeter", "SayHello")
	require.NoError(t, err)

	addr, done := start(t, "testdata/grpc.yaml")
	conn, err := grpclib.NewClient(addr, grpclib.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	call := func(method, name string, opts ...grpclib.CallOption) (*dynamicpb.Message, error) {
		req := dynamicpb.NewMessage(hello.Input())
		require.NoError(t, protojson.Unmarshal([]byte(`{"name":"`+name+`"}`), req))
		reply := dynamicpb.NewMessage(hello.Output())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return reply, conn.Invoke(ctx, "/harness.test.Greeter/"+method, req, reply, opts...)
	}
	text := func(m *dynamicpb.Message) string {
		return m.Get(hello.Output().Fields().ByName("message")).String()
	}

	var header metadata.MD
	reply, err := call("SayHello", "Ada", grpclib.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, "hello Ada", text(reply))
	assert.Equal(t, []string{"greeter"}, header.Get("x-scenario"))

	reply, err = call("SayHello", "Grace")
	require.NoError(t, err)
	assert.Equal(t, "hello Grace", text(reply))

	_, err = call("SayGoodbye", "Ada")
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
	assert.Equal(t, "no such friend", st.Message())
	require.Len(t, st.Details(), 2)
	info, ok := st.Details()[0].(*errdetails.ErrorInfo)
	require.True(t, ok)
	assert.Equal(t, "UNKNOWN_FRIEND", info.GetReason())
	assert.Equal(t, "greeter.test", info.GetDomain())

	o := wait(t, done)
	require.NoError(t, o.err)
	require.Len(t, o.journal.Entries, 3)
	assert.JSONEq(t, `{"name":"Grace"}`, o.journal.Entries[1].GRPC.JSON)
	assert.Equal(t, 2, o.journal.Count(&requestlog.Filter{GRPCService: "harness.test.Greeter", Method: "SayHello"}))
}

func TestBuild_HTTPRouteMissingFromOpenAPI(t *testing.T) {
	s, err := Parse([]byte(`
protocol: http
http: {openapiFile: testdata/users.openapi.yaml}
routes:
  - key: {method: GET, path: /users}
  - key: {method: PATCH, path: /users/7}
`), FormatYAML)
	require.NoError(t, err)
	_, err = s.Build(BuildOptions{})
	assert.ErrorContains(t, err, "no operation PATCH /users/7")
}

func TestBuild_GRPCMissingProto(t *testing.T) {
	s := &Scenario{
		Protocol: ProtocolGRPC,
		GRPC:     &GRPCOptions{ProtoFiles: []string{"missing.proto"}},
		Routes:   []RouteSpec{{Key: KeySpec{Service: "a.B", Method: "C"}}},
	}
	s.SetBaseDir(t.TempDir())
	_, err := s.Build(BuildOptions{})
	assert.Error(t, err)
}

func TestBuild_GRPCStreamingRejected(t *testing.T) {
	s := &Scenario{
		Protocol: ProtocolGRPC,
		GRPC:     &GRPCOptions{ProtoFiles: []string{"../grpc/testdata/greeter.proto"}},
		Routes:   []RouteSpec{{Key: KeySpec{Service: "harness.test.Greeter", Method: "StreamHellos"}}},
	}
	_, err := s.Build(BuildOptions{})
	assert.ErrorIs(t, err, grpc.ErrStreamingMethod)
}

func TestBuild_SOAP(t *testing.T) {
	addr, done := start(t, "testdata/soap.json")
	url := "http://" + addr + "/ws"
	envelope := func(op string) string {
		return `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body><` +
			op + ` xmlns="urn:users"><id>42</id></` + op + `></soap:Body></soap:Envelope>`
	}

	resp, body := send(t, http.MethodGet, url+"?wsdl", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="Users"`)

	resp, body = send(t, http.MethodPost, url, "text/xml", envelope("GetUser"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<name>Ada</name>")

	_, body = send(t, http.MethodPost, url, "text/xml", envelope("GetUser"))
	assert.Contains(t, body, "<id>42</id>")

	resp, body = send(t, http.MethodPost, url, "text/xml", envelope("DeleteUser"))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "soap:Client")
	assert.Contains(t, body, "user is locked")
	assert.Contains(t, body, "<reason>locked</reason>")

	o := wait(t, done)
	require.NoError(t, o.err)
	assert.Equal(t, 2, o.journal.Count(&requestlog.Filter{SOAPOperation: "GetUser"}))
}

func TestBuild_MaxRunTime(t *testing.T) {
	s := &Scenario{
		Protocol:   ProtocolSOAP,
		MaxRunTime: "10m",
		Routes:     []RouteSpec{{Key: KeySpec{Operation: "Never"}}},
	}
	r, err := s.Build(BuildOptions{})
	require.NoError(t, err)

	// A shorter limit passed to Run wins over the scenario's.
	_, done := run(t, r, harness.WithMaxRunTime(100*time.Millisecond))
	o := wait(t, done)
	assert.ErrorIs(t, o.err, harness.ErrRunAborted)
	require.NotNil(t, o.journal)
	assert.Empty(t, o.journal.Entries)
}

func TestBuild_InvalidScenario(t *testing.T) {
	s := &Scenario{Protocol: ProtocolHTTP}
	_, err := s.Build(BuildOptions{})
	assert.ErrorIs(t, err, ErrInvalidScenario)
}
