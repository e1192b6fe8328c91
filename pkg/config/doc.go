// Package config loads scenario files and turns them into runnable harness
// scenarios.
//
// A scenario names one protocol, its adapter options and the routes to serve.
// Each route lists the responses handed out in order, one per request:
//
//	version: "1"
//	protocol: http
//	address: 127.0.0.1:8080
//	maxRunTime: 30s
//	routes:
//	  - key: {method: GET, path: /users}
//	    responses:
//	      - status: 200
//	        json: [{id: 1, name: Ada}]
//	      - expr: '{status: 200, json: {echo: request.query.name}}'
//
// Files are YAML or JSON, chosen by extension. ${VAR} and ${VAR:-default}
// references are expanded before parsing. Documents are checked against an
// embedded JSON Schema, then semantically; failures are reported as
// ValidationErrors joined into one error.
//
// Responses written as an expr expression are evaluated per request against
// a "request" map describing the call. The environment also provides
// jsonPath(value, path) and xpath(xml, path).
//
//	s, err := config.LoadFile("scenario.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	runner, err := s.Build(config.BuildOptions{Logger: log})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	journal, err := runner.Run(ctx)
package config
