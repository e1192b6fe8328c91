package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"

	"github.com/getmockd/mockharness/pkg/grpc"
)

func (b *builder) grpc() (Runner, error) {
	cfg := grpc.Config{
		Address:         b.address,
		ShutdownTimeout: b.shutdownTimeout,
	}
	if o := b.scenario.GRPC; o != nil {
		cfg.Reflection = o.Reflection
		cfg.MaxRecvMsgSize = o.MaxRecvMsgSize
		if len(o.ProtoFiles) > 0 {
			files := make([]string, len(o.ProtoFiles))
			for i, f := range o.ProtoFiles {
				files[i] = b.resolve(f)
			}
			imports := make([]string, len(o.ImportPaths))
			for i, p := range o.ImportPaths {
				imports[i] = b.resolve(p)
			}
			schema, err := grpc.ParseProtoFiles(files, imports)
			if err != nil {
				return nil, err
			}
			cfg.Schema = schema
		}
	}
	srv := grpc.NewServer(cfg)
	srv.SetLogger(b.log)

	routes := make([]grpc.Route, 0, len(b.scenario.Routes))
	for i, r := range b.scenario.Routes {
		key := grpc.Key{Service: r.Key.Service, Method: r.Key.Method}
		handlers := make([]grpc.Handler, 0, len(r.Responses))
		for j, spec := range r.Responses {
			h, err := b.grpcHandler(fmt.Sprintf("routes[%d].responses[%d]", i, j), cfg.Schema, key, spec)
			if err != nil {
				return nil, err
			}
			handlers = append(handlers, h)
		}
		routes = append(routes, grpc.Method(key.Service, key.Method, handlers...))
	}
	if cfg.Schema != nil {
		if err := cfg.Schema.CheckRoutes(routes); err != nil {
			return nil, err
		}
	}
	return newRunner[grpc.Key, *grpc.Request, grpc.Response](srv, routes, b.maxRunTime, b.log), nil
}

func (b *builder) grpcHandler(field string, schema *grpc.ProtoSchema, key grpc.Key, spec ResponseSpec) (grpc.Handler, error) {
	if spec.Expr == "" {
		resp, err := grpcResponse(schema, key, spec)
		if err != nil {
			return grpc.Handler{}, fmt.Errorf("%s: %w", field, err)
		}
		return grpc.Respond(resp), nil
	}
	eval, err := b.dynamic(field, spec.Expr)
	if err != nil {
		return grpc.Handler{}, err
	}
	return grpc.Func(func(req *grpc.Request) grpc.Response {
		out, err := eval(grpcEnv(req))
		if err == nil {
			var resp grpc.Response
			if resp, err = grpcResponse(schema, key, out); err == nil {
				return resp
			}
		}
		b.exprFailed(key.String(), err)
		return grpc.Errorf(codes.Internal, "expression failed: %v", err)
	}), nil
}

func grpcResponse(schema *grpc.ProtoSchema, key grpc.Key, spec ResponseSpec) (grpc.Response, error) {
	var resp grpc.Response
	switch {
	case spec.Error != nil:
		code, err := parseCode(spec.Error.Code)
		if err != nil {
			return resp, err
		}
		resp = grpc.Error(code, spec.Error.Message)
		if d := spec.Error.Details; d != nil {
			details, err := grpcDetails(d)
			if err != nil {
				return resp, err
			}
			resp = resp.WithDetails(details)
		}
	case spec.JSON != nil:
		if schema == nil {
			return resp, fmt.Errorf("json responses require grpc.protoFiles")
		}
		data, err := json.Marshal(spec.JSON)
		if err != nil {
			return resp, err
		}
		if resp, err = schema.JSONResponse(key.Service, key.Method, string(data)); err != nil {
			return resp, err
		}
	case spec.Base64 != "":
		data, err := base64.StdEncoding.DecodeString(spec.Base64)
		if err != nil {
			return resp, err
		}
		resp = grpc.Message(data)
	}
	for k, v := range spec.Headers {
		resp = resp.WithHeader(k, v)
	}
	return resp, nil
}

func grpcDetails(d *GRPCErrorDetails) (grpc.ErrorDetails, error) {
	delay, err := parseDuration(d.RetryDelay)
	if err != nil {
		return grpc.ErrorDetails{}, fmt.Errorf("retryDelay: %w", err)
	}
	out := grpc.ErrorDetails{
		Reason:     d.Reason,
		Domain:     d.Domain,
		Metadata:   d.Metadata,
		RetryDelay: delay,
		Debug:      d.Debug,
	}
	for _, v := range d.FieldViolations {
		out.FieldViolations = append(out.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       v.Field,
			Description: v.Description,
		})
	}
	return out, nil
}

// grpcEnv describes a gRPC call to expressions. "json" is the decoded request
// message when a proto schema is loaded.
func grpcEnv(req *grpc.Request) map[string]any {
	md := map[string]any{}
	for k, v := range req.Metadata {
		if len(v) > 0 {
			md[k] = v[0]
		}
	}
	var msg any
	if req.JSON != "" {
		_ = json.Unmarshal([]byte(req.JSON), &msg)
	}
	return map[string]any{
		"service":    req.Service,
		"method":     req.Method,
		"metadata":   md,
		"json":       msg,
		"message":    base64.StdEncoding.EncodeToString(req.Message),
		"remoteAddr": req.RemoteAddr,
	}
}
