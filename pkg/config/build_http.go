package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/getmockd/mockharness/pkg/rest"
)

func (b *builder) http() (Runner, error) {
	cfg := rest.Config{
		Address:         b.address,
		ShutdownTimeout: b.shutdownTimeout,
	}
	var api *rest.OpenAPI
	if o := b.scenario.HTTP; o != nil {
		cfg.H2C = o.H2C
		cfg.MaxBodySize = o.MaxBodySize
		if o.OpenAPIFile != "" {
			var err error
			if api, err = rest.LoadOpenAPI(b.resolve(o.OpenAPIFile)); err != nil {
				return nil, err
			}
		}
	}
	srv := rest.NewServer(cfg)
	srv.SetLogger(b.log)

	routes := make([]rest.Route, 0, len(b.scenario.Routes))
	for i, r := range b.scenario.Routes {
		key := rest.NewKey(r.Key.Method, r.Key.Path)
		handlers := make([]rest.Handler, 0, len(r.Responses))
		for j, spec := range r.Responses {
			h, err := b.httpHandler(fmt.Sprintf("routes[%d].responses[%d]", i, j), key.String(), operationID(api, key), spec)
			if err != nil {
				return nil, err
			}
			handlers = append(handlers, h)
		}
		routes = append(routes, rest.Endpoint(key.Method, key.Path, handlers...))
	}
	if api != nil {
		if err := api.CheckRoutes(routes); err != nil {
			return nil, err
		}
	}
	return newRunner[rest.Key, *rest.Request, rest.Response](srv, routes, b.maxRunTime, b.log), nil
}

// operationID returns the OpenAPI operationId of key, or "" without a document.
func operationID(api *rest.OpenAPI, key rest.Key) string {
	if api == nil {
		return ""
	}
	id, _ := api.OperationID(key.Method, key.Path)
	return id
}

func (b *builder) httpHandler(field, route, opID string, spec ResponseSpec) (rest.Handler, error) {
	if spec.Expr == "" {
		return rest.Respond(httpResponse(spec)), nil
	}
	eval, err := b.dynamic(field, spec.Expr)
	if err != nil {
		return rest.Handler{}, err
	}
	return rest.Func(func(req *rest.Request) rest.Response {
		out, err := eval(httpEnv(req, opID))
		if err != nil {
			b.exprFailed(route, err)
			return rest.JSON(http.StatusInternalServerError, map[string]string{
				"error":   "expression_failed",
				"message": err.Error(),
			})
		}
		return httpResponse(out)
	}), nil
}

func httpResponse(spec ResponseSpec) rest.Response {
	resp := rest.NewResponse(spec.Status)
	if spec.JSON != nil {
		resp = resp.WithJSON(spec.JSON)
	} else if spec.Body != "" {
		resp = resp.WithBody([]byte(spec.Body))
	}
	for k, v := range spec.Headers {
		resp = resp.WithHeader(k, v)
	}
	return resp
}

// httpEnv describes an HTTP request to expressions. Header names are
// lower-cased; headers and query parameters keep their first value.
// operationId is set when the scenario references an OpenAPI document.
func httpEnv(req *rest.Request, opID string) map[string]any {
	query := map[string]any{}
	for k, v := range req.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	headers := map[string]any{}
	for k, v := range req.Header {
		if len(v) > 0 {
			headers[strings.ToLower(k)] = v[0]
		}
	}
	var body any
	if len(req.Body) > 0 {
		_ = json.Unmarshal(req.Body, &body)
	}
	return map[string]any{
		"method":      req.Method,
		"path":        req.Path,
		"query":       query,
		"headers":     headers,
		"body":        string(req.Body),
		"json":        body,
		"remoteAddr":  req.RemoteAddr,
		"operationId": opID,
	}
}
