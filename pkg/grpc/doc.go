// Package grpc is the gRPC adapter for the harness.
//
// The server accepts calls to any service through an unknown-service handler
// and a pass-through codec, so no generated stubs are needed. Routes are keyed
// by fully qualified service name and method name:
//
//	routes := []grpc.Route{
//	    grpc.Method("shop.Catalog", "GetItem",
//	        grpc.Respond(grpc.Message(itemBytes)),
//	        grpc.Respond(grpc.Error(codes.NotFound, "gone")),
//	    ),
//	}
//	out, err := harness.Run(ctx, grpc.NewServer(grpc.Config{}), routes, collector)
//
// # Proto Schemas
//
// Loading .proto files is optional. With a schema the adapter renders request
// messages as JSON for the journal, and responses can be declared as JSON:
//
//	schema, err := grpc.ParseProtoFile("api/catalog.proto", []string{"api/"})
//	resp, err := schema.JSONResponse("shop.Catalog", "GetItem", `{"id":"1"}`)
//
// Only unary calls are answered. Streaming methods receive the first request
// message and at most one response message.
package grpc
