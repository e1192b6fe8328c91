package grpc

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// frame carries an undecoded message through the codec.
type frame struct {
	data []byte
}

// rawCodec passes frames through untouched and encodes proto messages
// normally, so built-in services such as reflection keep working.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *frame:
		return m.data, nil
	case proto.Message:
		return proto.Marshal(m)
	default:
		return nil, fmt.Errorf("%w: %T", errUnexpectedMessage, v)
	}
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case *frame:
		m.data = append([]byte(nil), data...)
		return nil
	case proto.Message:
		return proto.Unmarshal(data, m)
	default:
		return fmt.Errorf("%w: %T", errUnexpectedMessage, v)
	}
}

func (rawCodec) Name() string {
	return "proto"
}
