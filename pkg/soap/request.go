package soap

import (
	"net/http"

	"github.com/beevik/etree"

	"github.com/getmockd/mockharness/pkg/requestlog"
)

// Request is the context handed to SOAP handlers.
type Request struct {
	// Operation is the local name of the first Body child.
	Operation  string
	SOAPAction string
	Version    Version
	Path       string
	Header     http.Header

	// Envelope is the raw request body.
	Envelope   []byte
	RemoteAddr string

	doc *etree.Document
	op  *etree.Element
}

// RouteKey implements harness.RequestContext.
func (r *Request) RouteKey() string {
	return r.Operation
}

// Payload returns the operation element as XML.
func (r *Request) Payload() string {
	if r.op == nil {
		return ""
	}
	return elementXML(r.op)
}

// Namespace returns the namespace URI of the operation element.
func (r *Request) Namespace() string {
	if r.op == nil {
		return ""
	}
	return r.op.NamespaceURI()
}

// XPath evaluates path against the whole envelope. See ExtractXPath.
func (r *Request) XPath(path string) string {
	if r.doc == nil {
		return ""
	}
	return ExtractXPath(&r.doc.Element, path)
}

// Params returns the operation's child elements as nested maps.
func (r *Request) Params() map[string]any {
	return elementToMap(r.op)
}

// LogEntry implements requestlog.Loggable.
func (r *Request) LogEntry() *requestlog.Entry {
	e := &requestlog.Entry{
		Protocol:   requestlog.ProtocolSOAP,
		Route:      r.Operation,
		Method:     http.MethodPost,
		Path:       r.Path,
		Headers:    r.Header,
		RemoteAddr: r.RemoteAddr,
		SOAP: &requestlog.SOAPMeta{
			Operation:   r.Operation,
			SOAPAction:  r.SOAPAction,
			SOAPVersion: string(r.Version),
		},
	}
	e.SetBody(r.Envelope)
	return e
}

func newRequest(r *http.Request, body []byte, env *envelope) *Request {
	return &Request{
		Operation:  env.operation.Tag,
		SOAPAction: soapAction(r, env.version),
		Version:    env.version,
		Path:       r.URL.Path,
		Header:     r.Header.Clone(),
		Envelope:   body,
		RemoteAddr: r.RemoteAddr,
		doc:        env.doc,
		op:         env.operation,
	}
}
