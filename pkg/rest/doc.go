// Package rest is the plain HTTP adapter of the harness.
//
// Routes are keyed by method and exact path. Each matched request is captured
// as a Request (method, path, query, headers, body) and answered with the
// Response of the selected handler:
//
//	routes := []rest.Route{
//	    rest.Endpoint(http.MethodGet, "/api/users",
//	        rest.Respond(rest.JSON(http.StatusOK, users)),
//	    ),
//	    rest.Endpoint(http.MethodPost, "/api/users",
//	        rest.Respond(rest.NewResponse(http.StatusCreated)),
//	        rest.Func(func(r *rest.Request) rest.Response {
//	            return rest.NewResponse(http.StatusConflict).WithBody(r.Body)
//	        }),
//	    ),
//	}
//	requests, err := harness.Run(ctx, rest.NewServer(rest.Config{}), routes,
//	    harness.NewListCollector[*rest.Request]())
//
// Requests to undeclared routes get a 404 JSON error and are not collected.
package rest
