package grpc

import (
	"testing"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"github.com/jhump/protoreflect/dynamic/grpcdynamic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/getmockd/mockharness/pkg/requestlog"
)

// getMethodDesc returns the jhump method descriptor for a service/method name.
func getMethodDesc(t *testing.T, files []*desc.FileDescriptor, serviceName, methodName string) *desc.MethodDescriptor {
	t.Helper()
	for _, file := range files {
		for _, svc := range file.GetServices() {
			if svc.GetFullyQualifiedName() != serviceName {
				continue
			}
			for _, method := range svc.GetMethods() {
				if method.GetName() == methodName {
					return method
				}
			}
		}
	}
	t.Fatalf("method %s/%s not found", serviceName, methodName)
	return nil
}

func TestServer_DynamicStub(t *testing.T) {
	parser := protoparse.Parser{}
	files, err := parser.ParseFiles(greeterProto)
	require.NoError(t, err)
	hello := getMethodDesc(t, files, greeter, "SayHello")
	bye := getMethodDesc(t, files, greeter, "SayGoodbye")

	schema := loadSchema(t)
	goodbye, err := schema.JSONResponse(greeter, "SayGoodbye", `{"message":"bye","tags":["x"]}`)
	require.NoError(t, err)

	conn, done := start(t, Config{Schema: schema}, []Route{
		Method(greeter, "SayHello", Respond(greeting(t, schema, "hello"))),
		Method(greeter, "SayGoodbye",
			Respond(goodbye),
			Respond(Error(codes.FailedPrecondition, "already gone")),
		),
	}, requestlog.NewCollector[*Request]())

	stub := grpcdynamic.NewStub(conn)

	req := dynamic.NewMessage(hello.GetInputType())
	req.SetFieldByName("name", "ada")
	req.SetFieldByName("times", int32(2))
	resp, err := stub.InvokeRpc(callCtx(t), hello, req)
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.(*dynamic.Message).GetFieldByName("message"))

	resp, err = stub.InvokeRpc(callCtx(t), bye, req)
	require.NoError(t, err)
	assert.Equal(t, "bye", resp.(*dynamic.Message).GetFieldByName("message"))
	assert.Equal(t, []interface{}{"x"}, resp.(*dynamic.Message).GetFieldByName("tags"))

	_, err = stub.InvokeRpc(callCtx(t), bye, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already gone")

	r := wait(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, 3, r.out.Count(nil))
	assert.Equal(t, 2, r.out.Count(&requestlog.Filter{Route: greeter + "/SayGoodbye"}))
	for _, e := range r.out.Entries {
		assert.JSONEq(t, `{"name":"ada","times":2}`, e.GRPC.JSON)
	}
}
