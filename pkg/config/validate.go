package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"google.golang.org/grpc/codes"

	"github.com/getmockd/mockharness/pkg/graphql"
)

// Validate checks the scenario semantically. Every problem is reported as a
// ValidationError; the returned error joins them.
func (s *Scenario) Validate() error {
	var p problems

	switch s.Protocol {
	case ProtocolHTTP, ProtocolGraphQL, ProtocolGRPC, ProtocolSOAP:
	case "":
		p.add("protocol", "is required")
	default:
		p.add("protocol", "unsupported protocol %q", s.Protocol)
	}
	if s.Version != "" && s.Version != CurrentVersion {
		p.add("version", "unsupported version %q", s.Version)
	}
	if _, err := parseDuration(s.ShutdownTimeout); err != nil {
		p.add("shutdownTimeout", "%v", err)
	}
	if _, err := parseDuration(s.MaxRunTime); err != nil {
		p.add("maxRunTime", "%v", err)
	}
	s.validateBlocks(&p)

	if len(s.Routes) == 0 {
		p.add("routes", "at least one route is required")
	}
	cache := newProgramCache()
	seen := make(map[string]int, len(s.Routes))
	for i, r := range s.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		key, ok := s.validateKey(field+".key", r.Key, &p)
		if ok {
			if first, dup := seen[key]; dup {
				p.add(field+".key", "duplicate route %s (also routes[%d])", key, first)
			} else {
				seen[key] = i
			}
		}
		for j, resp := range r.Responses {
			s.validateResponse(fmt.Sprintf("%s.responses[%d]", field, j), resp, cache, &p)
		}
	}
	return p.err()
}

func (s *Scenario) validateBlocks(p *problems) {
	blocks := []struct {
		name string
		set  bool
	}{
		{ProtocolHTTP, s.HTTP != nil},
		{ProtocolGraphQL, s.GraphQL != nil},
		{ProtocolGRPC, s.GRPC != nil},
		{ProtocolSOAP, s.SOAP != nil},
	}
	for _, b := range blocks {
		if b.set && b.name != s.Protocol {
			p.add(b.name, "options given for %s but protocol is %q", b.name, s.Protocol)
		}
	}
	if g := s.GraphQL; g != nil && g.Schema != "" && g.SchemaFile != "" {
		p.add("graphql.schemaFile", "schema and schemaFile are mutually exclusive")
	}
	if g := s.GRPC; g != nil && g.Reflection && len(g.ProtoFiles) == 0 {
		p.add("grpc.reflection", "requires protoFiles")
	}
	if so := s.SOAP; so != nil && so.WSDL != "" && so.WSDLFile != "" {
		p.add("soap.wsdlFile", "wsdl and wsdlFile are mutually exclusive")
	}
}

// validateKey checks the key fields for the protocol and returns a normalized
// key string for duplicate detection.
func (s *Scenario) validateKey(field string, k KeySpec, p *problems) (string, bool) {
	var allowed []string
	var key string
	ok := true
	require := func(name, value string) {
		if value == "" {
			p.add(field+"."+name, "is required for %s routes", s.Protocol)
			ok = false
		}
	}

	switch s.Protocol {
	case ProtocolHTTP:
		allowed = []string{"method", "path"}
		require("method", k.Method)
		require("path", k.Path)
		if k.Path != "" && !strings.HasPrefix(k.Path, "/") {
			p.add(field+".path", "must start with /")
			ok = false
		}
		key = strings.ToUpper(k.Method) + " " + k.Path
	case ProtocolGraphQL:
		allowed = []string{"operation", "field"}
		require("field", k.Field)
		op := k.Operation
		if op == "" {
			op = string(graphql.OperationQuery)
		}
		if _, err := graphql.ParseOperationType(op); err != nil {
			p.add(field+".operation", "%v", err)
			ok = false
		}
		key = op + "." + k.Field
	case ProtocolGRPC:
		allowed = []string{"service", "method"}
		require("service", k.Service)
		require("method", k.Method)
		key = k.Service + "/" + k.Method
	case ProtocolSOAP:
		allowed = []string{"operation"}
		require("operation", k.Operation)
		key = k.Operation
	default:
		return "", false
	}

	for _, f := range []struct{ name, value string }{
		{"method", k.Method},
		{"path", k.Path},
		{"operation", k.Operation},
		{"field", k.Field},
		{"service", k.Service},
	} {
		if f.value != "" && !slices.Contains(allowed, f.name) {
			p.add(field+"."+f.name, "not used by %s routes", s.Protocol)
		}
	}
	return key, ok
}

func (s *Scenario) validateResponse(field string, r ResponseSpec, cache *programCache, p *problems) {
	if r.Expr != "" {
		if fields := setFields(r); len(fields) > 1 {
			p.add(field+".expr", "cannot be combined with %s", strings.Join(slices.DeleteFunc(fields, func(f string) bool { return f == "expr" }), ", "))
		}
		if _, err := cache.compile(r.Expr); err != nil {
			p.add(field+".expr", "%v", err)
		}
		return
	}
	s.checkResponse(field, r, p)
}

// checkResponse validates a static response. It is also applied to the
// results of expressions at request time.
func (s *Scenario) checkResponse(field string, r ResponseSpec, p *problems) {
	allowed := map[string][]string{
		ProtocolHTTP:    {"status", "headers", "body", "json"},
		ProtocolGraphQL: {"data", "errors"},
		ProtocolGRPC:    {"headers", "json", "base64", "error"},
		ProtocolSOAP:    {"status", "body", "fault"},
	}[s.Protocol]
	for _, name := range setFields(r) {
		if !slices.Contains(allowed, name) {
			p.add(field+"."+name, "not used by %s responses", s.Protocol)
		}
	}

	if r.Status != 0 && (r.Status < 100 || r.Status > 599) {
		p.add(field+".status", "must be between 100 and 599")
	}
	switch s.Protocol {
	case ProtocolHTTP:
		if r.Body != "" && r.JSON != nil {
			p.add(field+".json", "body and json are mutually exclusive")
		}
	case ProtocolGRPC:
		bodies := 0
		for _, set := range []bool{r.JSON != nil, r.Base64 != "", r.Error != nil} {
			if set {
				bodies++
			}
		}
		if bodies > 1 {
			p.add(field, "json, base64 and error are mutually exclusive")
		}
		if r.JSON != nil && (s.GRPC == nil || len(s.GRPC.ProtoFiles) == 0) {
			p.add(field+".json", "requires grpc.protoFiles")
		}
		if r.Base64 != "" {
			if _, err := base64.StdEncoding.DecodeString(r.Base64); err != nil {
				p.add(field+".base64", "%v", err)
			}
		}
		if r.Error != nil {
			if _, err := parseCode(r.Error.Code); err != nil {
				p.add(field+".error.code", "%v", err)
			}
			if d := r.Error.Details; d != nil {
				if _, err := parseDuration(d.RetryDelay); err != nil {
					p.add(field+".error.details.retryDelay", "%v", err)
				}
			}
		}
	case ProtocolSOAP:
		if r.Body != "" && r.Fault != nil {
			p.add(field+".fault", "body and fault are mutually exclusive")
		}
	}
}

// setFields lists the JSON names of the populated response fields.
func setFields(r ResponseSpec) []string {
	var out []string
	add := func(name string, set bool) {
		if set {
			out = append(out, name)
		}
	}
	add("status", r.Status != 0)
	add("headers", len(r.Headers) > 0)
	add("body", r.Body != "")
	add("json", r.JSON != nil)
	add("data", r.Data != nil)
	add("errors", len(r.Errors) > 0)
	add("base64", r.Base64 != "")
	add("error", r.Error != nil)
	add("fault", r.Fault != nil)
	add("expr", r.Expr != "")
	return out
}

// parseCode accepts a code name ("NOT_FOUND") or number.
func parseCode(v any) (codes.Code, error) {
	var c codes.Code
	switch v := v.(type) {
	case string:
		data, _ := json.Marshal(strings.ToUpper(v))
		if err := c.UnmarshalJSON(data); err != nil {
			return 0, err
		}
		return c, nil
	case float64:
		if v != math.Trunc(v) || v < 0 || v > 16 {
			return 0, fmt.Errorf("invalid code %v", v)
		}
		return codes.Code(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil || n < 0 || n > 16 {
			return 0, fmt.Errorf("invalid code %v", v)
		}
		return codes.Code(n), nil
	case int:
		if v < 0 || v > 16 {
			return 0, fmt.Errorf("invalid code %v", v)
		}
		return codes.Code(v), nil
	default:
		return 0, fmt.Errorf("invalid code %v", v)
	}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}
