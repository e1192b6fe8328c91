// Package soap is the SOAP adapter for the harness.
//
// Envelopes are POSTed to a single path. The operation is the local name of
// the first element inside the Body, and routes are keyed by that name:
//
//	routes := []soap.Route{
//	    soap.Operation("GetUser",
//	        soap.Respond(soap.XML(`<GetUserResponse><name>Ada</name></GetUserResponse>`)),
//	        soap.Respond(soap.NewFault(soap.FaultClient, "user not found")),
//	    ),
//	}
//
// SOAP 1.1 and 1.2 are both accepted. The version is taken from the envelope
// namespace and replies use the same version. Fault codes are written in
// 1.1 form (Client, Server) and translated to Sender and Receiver for 1.2.
//
// A GET with a ?wsdl query returns Config.WSDL when one is configured.
package soap
