package soap

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"slices"
	"strings"

	"github.com/beevik/etree"
)

// Envelope parsing errors.
var (
	ErrEmptyDocument = errors.New("empty document")
	ErrNotEnvelope   = errors.New("root element must be Envelope")
	ErrNoBody        = errors.New("SOAP Body not found")
	ErrNoOperation   = errors.New("no operation element found in Body")
)

// envelope is a parsed inbound SOAP message.
type envelope struct {
	doc       *etree.Document
	version   Version
	operation *etree.Element
}

// parseEnvelope parses a SOAP envelope and locates the operation element.
// A missing envelope namespace is treated as SOAP 1.1.
func parseEnvelope(body []byte) (*envelope, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("invalid XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, ErrEmptyDocument
	}
	if root.Tag != "Envelope" {
		return nil, fmt.Errorf("%w, got %s", ErrNotEnvelope, root.Tag)
	}

	env := &envelope{doc: doc, version: SOAP11}
	if root.NamespaceURI() == SOAP12Namespace {
		env.version = SOAP12
	}

	var bodyElem *etree.Element
	for _, child := range root.ChildElements() {
		if child.Tag == "Body" {
			bodyElem = child
			break
		}
	}
	if bodyElem == nil {
		return nil, ErrNoBody
	}

	children := bodyElem.ChildElements()
	if len(children) == 0 {
		return nil, ErrNoOperation
	}
	env.operation = children[0]
	return env, nil
}

// requestVersion guesses the SOAP version from the content type, for faults
// written before the envelope could be parsed.
func requestVersion(r *http.Request) Version {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/soap+xml" {
		return SOAP12
	}
	return SOAP11
}

// soapAction extracts the action from the SOAPAction header, or for SOAP 1.2
// from the action parameter of the content type.
func soapAction(r *http.Request, v Version) string {
	if v == SOAP12 {
		if _, params, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil {
			if action := params["action"]; action != "" {
				return action
			}
		}
	}
	return strings.Trim(r.Header.Get("SOAPAction"), `"`)
}

// buildEnvelope renders a reply envelope whose body is filled by fill.
func buildEnvelope(v Version, fill func(body *etree.Element) error) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := doc.CreateElement("soap:Envelope")
	env.CreateAttr("xmlns:soap", v.Namespace())
	body := env.CreateElement("soap:Body")
	if fill != nil {
		if err := fill(body); err != nil {
			return nil, err
		}
	}
	return doc.WriteToBytes()
}

// bodyEnvelope renders a reply with fragment as the body content.
func bodyEnvelope(v Version, fragment string) ([]byte, error) {
	return buildEnvelope(v, func(body *etree.Element) error {
		return appendXML(body, fragment)
	})
}

// faultEnvelope renders a fault reply in the form of version v.
func faultEnvelope(v Version, f *Fault) []byte {
	out, _ := buildEnvelope(v, func(body *etree.Element) error {
		fault := body.CreateElement("soap:Fault")
		if v == SOAP12 {
			fault.CreateElement("soap:Code").CreateElement("soap:Value").SetText(f.code(v))
			text := fault.CreateElement("soap:Reason").CreateElement("soap:Text")
			text.CreateAttr("xml:lang", "en")
			text.SetText(f.Message)
			if f.Detail != "" {
				appendDetail(fault.CreateElement("soap:Detail"), f.Detail)
			}
			return nil
		}
		fault.CreateElement("faultcode").SetText(f.code(v))
		fault.CreateElement("faultstring").SetText(f.Message)
		if f.Detail != "" {
			appendDetail(fault.CreateElement("detail"), f.Detail)
		}
		return nil
	})
	return out
}

func appendDetail(parent *etree.Element, detail string) {
	if err := appendXML(parent, detail); err != nil {
		parent.SetText(detail)
	}
}

// appendXML parses fragment and appends its nodes to parent.
func appendXML(parent *etree.Element, fragment string) error {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}
	frag := etree.NewDocument()
	if err := frag.ReadFromString("<fragment>" + fragment + "</fragment>"); err != nil {
		return fmt.Errorf("invalid XML fragment: %w", err)
	}
	for _, tok := range slices.Clone(frag.Root().Child) {
		parent.AddChild(tok)
	}
	return nil
}

// elementXML serializes e and its subtree.
func elementXML(e *etree.Element) string {
	s, err := etree.NewDocumentWithRoot(e.Copy()).WriteToString()
	if err != nil {
		return ""
	}
	return s
}
