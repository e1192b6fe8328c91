package grpc

import "errors"

// Proto parsing errors.
var (
	// ErrNoProtoFiles is returned when ParseProtoFiles is called with an empty slice.
	ErrNoProtoFiles = errors.New("no proto files provided")

	// ErrServiceNotFound is returned when a requested service is not found in the schema.
	ErrServiceNotFound = errors.New("service not found")

	// ErrMethodNotFound is returned when a requested method is not found in the service.
	ErrMethodNotFound = errors.New("method not found")

	// ErrStreamingMethod is returned when a route targets a streaming method.
	ErrStreamingMethod = errors.New("streaming methods are not supported")
)

// Codec errors.
var (
	// errUnexpectedMessage is returned by the codec for values it cannot encode.
	errUnexpectedMessage = errors.New("grpc codec: unexpected message type")
)
