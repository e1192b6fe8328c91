package graphql

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// parseError is a request that cannot be executed. It carries the errors
// reported to the client.
type parseError struct {
	errors []Error
}

func (e *parseError) Error() string {
	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Message
	}
	return strings.Join(msgs, "; ")
}

func newParseError(format string, args ...any) *parseError {
	return &parseError{errors: []Error{{Message: fmt.Sprintf(format, args...)}}}
}

// decodeGet reads a GraphQL request from GET query parameters.
func decodeGet(r *http.Request) (*wireRequest, error) {
	query := r.URL.Query()
	req := &wireRequest{
		Query:         query.Get("query"),
		OperationName: query.Get("operationName"),
	}
	if vars := query.Get("variables"); vars != "" {
		if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
			return nil, newParseError("invalid variables JSON: %v", err)
		}
	}
	return req, nil
}

// decodePost reads a GraphQL request from a POST body. application/graphql
// bodies are the query itself; anything else is decoded as JSON.
func decodePost(contentType string, body []byte) (*wireRequest, error) {
	if len(body) == 0 {
		return nil, newParseError("empty request body")
	}
	if strings.HasPrefix(contentType, "application/graphql") {
		return &wireRequest{Query: string(body)}, nil
	}
	var req wireRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, newParseError("invalid JSON request body: %v", err)
	}
	return &req, nil
}

// parseDocument parses query, validating it against schema when one is set.
func parseDocument(schema *Schema, query string) (*ast.QueryDocument, error) {
	if strings.TrimSpace(query) == "" {
		return nil, newParseError("query is required")
	}
	if schema != nil {
		doc, errs := gqlparser.LoadQuery(schema.AST(), query)
		if len(errs) > 0 {
			return nil, fromGQLErrors(errs)
		}
		return doc, nil
	}
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: query})
	if err != nil {
		var gqlErr *gqlerror.Error
		if errors.As(err, &gqlErr) {
			return nil, fromGQLErrors(gqlerror.List{gqlErr})
		}
		return nil, newParseError("parse error: %v", err)
	}
	return doc, nil
}

func fromGQLErrors(list gqlerror.List) *parseError {
	pe := &parseError{}
	for _, e := range list {
		out := Error{Message: e.Message}
		for _, loc := range e.Locations {
			out.Locations = append(out.Locations, ErrorLocation{Line: loc.Line, Column: loc.Column})
		}
		pe.errors = append(pe.errors, out)
	}
	return pe
}

// selectOperation picks the operation named name, or the only operation when
// name is empty.
func selectOperation(doc *ast.QueryDocument, name string) (*ast.OperationDefinition, error) {
	if name != "" {
		op := doc.Operations.ForName(name)
		if op == nil {
			return nil, newParseError("operation %q not found", name)
		}
		return op, nil
	}
	switch len(doc.Operations) {
	case 0:
		return nil, newParseError("no operation found in query")
	case 1:
		return doc.Operations[0], nil
	default:
		return nil, newParseError("operationName is required when the document has multiple operations")
	}
}

// rootFields flattens the top-level selection set of an operation, expanding
// fragment spreads and inline fragments.
func rootFields(doc *ast.QueryDocument, set ast.SelectionSet) []*ast.Field {
	var fields []*ast.Field
	seen := make(map[string]bool)
	var walk func(ast.SelectionSet)
	walk = func(set ast.SelectionSet) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *ast.Field:
				fields = append(fields, s)
			case *ast.InlineFragment:
				walk(s.SelectionSet)
			case *ast.FragmentSpread:
				if seen[s.Name] {
					continue
				}
				seen[s.Name] = true
				if frag := doc.Fragments.ForName(s.Name); frag != nil {
					walk(frag.SelectionSet)
				}
			}
		}
	}
	walk(set)
	return fields
}

// extractArguments extracts argument values from a field.
func extractArguments(field *ast.Field, variables map[string]any) map[string]any {
	args := make(map[string]any, len(field.Arguments))
	for _, arg := range field.Arguments {
		args[arg.Name] = resolveValue(arg.Value, variables)
	}
	return args
}

// resolveValue resolves an AST value to a Go value.
func resolveValue(value *ast.Value, variables map[string]any) any {
	if value == nil {
		return nil
	}

	switch value.Kind {
	case ast.Variable:
		return variables[value.Raw]
	case ast.IntValue:
		n, err := strconv.ParseInt(value.Raw, 10, 64)
		if err != nil {
			return value.Raw
		}
		return n
	case ast.FloatValue:
		f, err := strconv.ParseFloat(value.Raw, 64)
		if err != nil {
			return value.Raw
		}
		return f
	case ast.StringValue, ast.BlockValue, ast.EnumValue:
		return value.Raw
	case ast.BooleanValue:
		return value.Raw == "true"
	case ast.NullValue:
		return nil
	case ast.ListValue:
		list := make([]any, 0, len(value.Children))
		for _, child := range value.Children {
			list = append(list, resolveValue(child.Value, variables))
		}
		return list
	case ast.ObjectValue:
		obj := make(map[string]any, len(value.Children))
		for _, child := range value.Children {
			obj[child.Name] = resolveValue(child.Value, variables)
		}
		return obj
	default:
		return value.Raw
	}
}
