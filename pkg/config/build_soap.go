package config

import (
	"fmt"

	"github.com/getmockd/mockharness/pkg/soap"
)

func (b *builder) soap() (Runner, error) {
	cfg := soap.Config{
		Address:         b.address,
		ShutdownTimeout: b.shutdownTimeout,
	}
	if o := b.scenario.SOAP; o != nil {
		cfg.Path = o.Path
		cfg.WSDL = o.WSDL
		cfg.MaxBodySize = o.MaxBodySize
		if o.WSDLFile != "" {
			wsdl, err := b.readFile(o.WSDLFile)
			if err != nil {
				return nil, err
			}
			cfg.WSDL = wsdl
		}
	}
	srv := soap.NewServer(cfg)
	srv.SetLogger(b.log)

	routes := make([]soap.Route, 0, len(b.scenario.Routes))
	for i, r := range b.scenario.Routes {
		handlers := make([]soap.Handler, 0, len(r.Responses))
		for j, spec := range r.Responses {
			h, err := b.soapHandler(fmt.Sprintf("routes[%d].responses[%d]", i, j), r.Key.Operation, spec)
			if err != nil {
				return nil, err
			}
			handlers = append(handlers, h)
		}
		routes = append(routes, soap.Operation(r.Key.Operation, handlers...))
	}
	return newRunner[string, *soap.Request, soap.Response](srv, routes, b.maxRunTime, b.log), nil
}

func (b *builder) soapHandler(field, operation string, spec ResponseSpec) (soap.Handler, error) {
	if spec.Expr == "" {
		return soap.Respond(soapResponse(spec)), nil
	}
	eval, err := b.dynamic(field, spec.Expr)
	if err != nil {
		return soap.Handler{}, err
	}
	return soap.Func(func(req *soap.Request) soap.Response {
		out, err := eval(soapEnv(req))
		if err != nil {
			b.exprFailed(operation, err)
			return soap.NewFault(soap.FaultServer, "expression failed: "+err.Error())
		}
		return soapResponse(out)
	}), nil
}

func soapResponse(spec ResponseSpec) soap.Response {
	var resp soap.Response
	if f := spec.Fault; f != nil {
		code := f.Code
		if code == "" {
			code = soap.FaultServer
		}
		resp = soap.NewFault(code, f.Message)
		if f.Detail != "" {
			resp = resp.WithDetail(f.Detail)
		}
	} else {
		resp = soap.XML(spec.Body)
	}
	if spec.Status != 0 {
		resp = resp.WithStatus(spec.Status)
	}
	return resp
}

// soapEnv describes a SOAP call to expressions. Use xpath(request.envelope,
// path) to read arbitrary elements.
func soapEnv(req *soap.Request) map[string]any {
	return map[string]any{
		"operation":  req.Operation,
		"soapAction": req.SOAPAction,
		"version":    string(req.Version),
		"namespace":  req.Namespace(),
		"params":     req.Params(),
		"payload":    req.Payload(),
		"envelope":   string(req.Envelope),
		"remoteAddr": req.RemoteAddr,
	}
}
