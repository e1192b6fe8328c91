package graphql

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// Schema is a parsed GraphQL SDL schema. When an adapter has a schema, incoming
// documents are validated against it before dispatch.
type Schema struct {
	ast    *ast.Schema
	source string
}

// ParseSchema parses a GraphQL SDL string and returns a Schema.
func ParseSchema(sdl string) (*Schema, error) {
	return loadSchema("schema", sdl)
}

// ParseSchemaFile parses a GraphQL schema from a file and returns a Schema.
func ParseSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	return loadSchema(path, string(data))
}

func loadSchema(name, sdl string) (*Schema, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		return nil, fmt.Errorf("failed to parse GraphQL schema %s: %w", name, err)
	}
	return &Schema{ast: schema, source: sdl}, nil
}

// AST returns the underlying parsed schema.
func (s *Schema) AST() *ast.Schema {
	return s.ast
}

// Source returns the SDL the schema was parsed from.
func (s *Schema) Source() string {
	return s.source
}

func (s *Schema) root(op OperationType) *ast.Definition {
	switch op {
	case OperationMutation:
		return s.ast.Mutation
	case OperationSubscription:
		return s.ast.Subscription
	default:
		return s.ast.Query
	}
}

// HasField reports whether the root type of op declares field.
func (s *Schema) HasField(op OperationType, field string) bool {
	def := s.root(op)
	return def != nil && def.Fields.ForName(field) != nil
}

// Fields returns the sorted root field names of op, excluding introspection fields.
func (s *Schema) Fields(op OperationType) []string {
	def := s.root(op)
	if def == nil {
		return nil
	}
	var names []string
	for _, f := range def.Fields {
		if !isIntrospectionField(f.Name) {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}

// CheckRoutes returns an error naming every route whose field is not in the schema.
func (s *Schema) CheckRoutes(routes []Route) error {
	var errs []error
	for _, r := range routes {
		if !s.HasField(r.Key.Operation, r.Key.Field) {
			errs = append(errs, fmt.Errorf("schema has no field %s", r.Key))
		}
	}
	return errors.Join(errs...)
}

// isIntrospectionField returns true if the field name is a built-in introspection field.
func isIntrospectionField(name string) bool {
	return strings.HasPrefix(name, "__")
}
