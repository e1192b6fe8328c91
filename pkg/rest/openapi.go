package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// OpenAPI is an OpenAPI 3 document that HTTP routes can be checked against.
type OpenAPI struct {
	doc    *openapi3.T
	router routers.Router
}

// LoadOpenAPI reads and validates an OpenAPI 3 document (YAML or JSON).
// External references resolve relative to the file.
func LoadOpenAPI(path string) (*OpenAPI, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load OpenAPI document %s: %w", path, err)
	}
	return newOpenAPI(doc)
}

// ParseOpenAPI parses and validates an in-memory OpenAPI 3 document.
func ParseOpenAPI(data []byte) (*OpenAPI, error) {
	doc, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("parse OpenAPI document: %w", err)
	}
	return newOpenAPI(doc)
}

func newOpenAPI(doc *openapi3.T) (*OpenAPI, error) {
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	// Routes are matched on method and path only.
	doc.Servers = nil
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build OpenAPI router: %w", err)
	}
	return &OpenAPI{doc: doc, router: router}, nil
}

// Title returns the document's info title.
func (o *OpenAPI) Title() string {
	if o.doc.Info == nil {
		return ""
	}
	return o.doc.Info.Title
}

// OperationID returns the operationId declared for method and path, and
// whether the document declares the operation at all. Path templates in the
// document match concrete route paths.
func (o *OpenAPI) OperationID(method, path string) (string, bool) {
	req := &http.Request{Method: method, URL: &url.URL{Path: path}, Header: http.Header{}}
	route, _, err := o.router.FindRoute(req)
	if err != nil || route.Operation == nil {
		return "", false
	}
	return route.Operation.OperationID, true
}

// CheckRoutes reports every route whose method and path match no operation
// in the document.
func (o *OpenAPI) CheckRoutes(routes []Route) error {
	var errs []error
	for _, r := range routes {
		if _, ok := o.OperationID(r.Key.Method, r.Key.Path); !ok {
			errs = append(errs, fmt.Errorf("OpenAPI document has no operation %s", r.Key))
		}
	}
	return errors.Join(errs...)
}
