package soap

import (
	"net/http"
	"strings"
)

// Version represents the SOAP protocol version.
type Version string

const (
	// SOAP11 represents SOAP 1.1 protocol.
	SOAP11 Version = "1.1"
	// SOAP12 represents SOAP 1.2 protocol.
	SOAP12 Version = "1.2"
)

// SOAP namespace URIs
const (
	SOAP11Namespace = "http://schemas.xmlsoap.org/soap/envelope/"
	SOAP12Namespace = "http://www.w3.org/2003/05/soap-envelope"
)

// ContentTypes for SOAP versions
const (
	SOAP11ContentType = "text/xml; charset=utf-8"
	SOAP12ContentType = "application/soap+xml; charset=utf-8"
)

// Namespace returns the envelope namespace of the version.
func (v Version) Namespace() string {
	if v == SOAP12 {
		return SOAP12Namespace
	}
	return SOAP11Namespace
}

// ContentType returns the response content type of the version.
func (v Version) ContentType() string {
	if v == SOAP12 {
		return SOAP12ContentType
	}
	return SOAP11ContentType
}

// Fault codes in SOAP 1.1 form.
const (
	FaultClient = "Client"
	FaultServer = "Server"
)

// Fault describes a SOAP fault reply.
type Fault struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`

	// Detail is an XML fragment, or plain text when it does not parse.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// code returns the fault code qualified for version v.
func (f *Fault) code(v Version) string {
	code := f.Code
	if i := strings.LastIndex(code, ":"); i >= 0 {
		code = code[i+1:]
	}
	if code == "" {
		code = FaultServer
	}
	if v == SOAP12 {
		switch code {
		case FaultClient:
			code = "Sender"
		case FaultServer:
			code = "Receiver"
		}
	} else {
		switch code {
		case "Sender":
			code = FaultClient
		case "Receiver":
			code = FaultServer
		}
	}
	return "soap:" + code
}

// Response is what a SOAP handler answers with. A Fault takes precedence over Body.
type Response struct {
	// Body is the XML placed inside the reply's soap:Body.
	Body string

	Fault *Fault

	// Status overrides the HTTP status. Zero means 200, or 500 for faults.
	Status int
}

// XML returns a response with body as the content of soap:Body.
func XML(body string) Response {
	return Response{Body: body}
}

// NewFault returns a fault response.
func NewFault(code, message string) Response {
	return Response{Fault: &Fault{Code: code, Message: message}}
}

// WithDetail returns a copy of r whose fault carries detail.
// It has no effect on non-fault responses.
func (r Response) WithDetail(detail string) Response {
	if r.Fault != nil {
		f := *r.Fault
		f.Detail = detail
		r.Fault = &f
	}
	return r
}

// WithStatus returns a copy of r with the HTTP status overridden.
func (r Response) WithStatus(status int) Response {
	r.Status = status
	return r
}

// StatusCode returns the HTTP status written for r.
func (r Response) StatusCode() int {
	switch {
	case r.Status != 0:
		return r.Status
	case r.Fault != nil:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
