package config

import (
	"fmt"
	"strings"

	"github.com/getmockd/mockharness/pkg/graphql"
)

func (b *builder) graphql() (Runner, error) {
	cfg := graphql.Config{
		Address:         b.address,
		ShutdownTimeout: b.shutdownTimeout,
	}
	if o := b.scenario.GraphQL; o != nil {
		cfg.Path = o.Path
		switch {
		case o.Schema != "":
			schema, err := graphql.ParseSchema(o.Schema)
			if err != nil {
				return nil, err
			}
			cfg.Schema = schema
		case o.SchemaFile != "":
			schema, err := graphql.ParseSchemaFile(b.resolve(o.SchemaFile))
			if err != nil {
				return nil, err
			}
			cfg.Schema = schema
		}
	}
	srv := graphql.NewServer(cfg)
	srv.SetLogger(b.log)

	routes := make([]graphql.Route, 0, len(b.scenario.Routes))
	for i, r := range b.scenario.Routes {
		op := graphql.OperationQuery
		if r.Key.Operation != "" {
			op, _ = graphql.ParseOperationType(r.Key.Operation)
		}
		key := graphql.Key{Operation: op, Field: r.Key.Field}
		handlers := make([]graphql.Handler, 0, len(r.Responses))
		for j, spec := range r.Responses {
			h, err := b.graphqlHandler(fmt.Sprintf("routes[%d].responses[%d]", i, j), key.String(), spec)
			if err != nil {
				return nil, err
			}
			handlers = append(handlers, h)
		}
		routes = append(routes, graphql.Field(op, key.Field, handlers...))
	}
	if cfg.Schema != nil {
		if err := cfg.Schema.CheckRoutes(routes); err != nil {
			return nil, err
		}
	}
	return newRunner[graphql.Key, *graphql.Request, graphql.Response](srv, routes, b.maxRunTime, b.log), nil
}

func (b *builder) graphqlHandler(field, route string, spec ResponseSpec) (graphql.Handler, error) {
	if spec.Expr == "" {
		return graphql.Respond(graphqlResponse(spec)), nil
	}
	eval, err := b.dynamic(field, spec.Expr)
	if err != nil {
		return graphql.Handler{}, err
	}
	return graphql.Func(func(req *graphql.Request) graphql.Response {
		out, err := eval(graphqlEnv(req))
		if err != nil {
			b.exprFailed(route, err)
			return graphql.Errorf("expression failed: %v", err)
		}
		return graphqlResponse(out)
	}), nil
}

func graphqlResponse(spec ResponseSpec) graphql.Response {
	resp := graphql.Response{Data: spec.Data}
	for _, e := range spec.Errors {
		resp.Errors = append(resp.Errors, graphql.Error{
			Message:    e.Message,
			Path:       e.Path,
			Extensions: e.Extensions,
		})
	}
	return resp
}

func graphqlEnv(req *graphql.Request) map[string]any {
	headers := map[string]any{}
	for k, v := range req.Header {
		if len(v) > 0 {
			headers[strings.ToLower(k)] = v[0]
		}
	}
	return map[string]any{
		"operation":     string(req.Operation),
		"operationName": req.OperationName,
		"field":         req.Field,
		"alias":         req.Alias,
		"args":          req.Args,
		"variables":     req.Variables,
		"query":         req.Query,
		"headers":       headers,
	}
}
