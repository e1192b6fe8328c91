package requestlog

// GRPCMeta contains gRPC-specific request metadata.
type GRPCMeta struct {
	// Service is the gRPC service name (e.g., "mypackage.MyService").
	Service string `json:"service"`

	// MethodName is the gRPC method name (e.g., "GetUser").
	MethodName string `json:"methodName"`

	// JSON is the request message rendered as JSON when a proto schema is loaded.
	JSON string `json:"json,omitempty"`
}

// SOAPMeta contains SOAP-specific request metadata.
type SOAPMeta struct {
	// Operation is the SOAP operation name.
	Operation string `json:"operation"`

	// SOAPAction is the SOAPAction header value.
	SOAPAction string `json:"soapAction,omitempty"`

	// SOAPVersion is the SOAP version (1.1 or 1.2).
	SOAPVersion string `json:"soapVersion"`
}

// GraphQLMeta contains GraphQL-specific request metadata.
type GraphQLMeta struct {
	// OperationType is the GraphQL operation type (query, mutation, subscription).
	OperationType string `json:"operationType"`

	// OperationName is the GraphQL operation name (if named).
	OperationName string `json:"operationName,omitempty"`

	// Field is the top-level field this entry was dispatched for.
	Field string `json:"field"`

	// Alias is the response key of the field, when aliased.
	Alias string `json:"alias,omitempty"`

	// Variables contains the GraphQL variables (JSON string).
	Variables string `json:"variables,omitempty"`
}
