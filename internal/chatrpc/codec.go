package chatrpc

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype the contract is served under
// (application/grpc+chatpb). The payload is plain protobuf wire format.
const CodecName = "chatpb"

type wireCodec struct{}

func (wireCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("chatrpc: cannot marshal %T", v)
	}
	return m.marshalWire(), nil
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("chatrpc: cannot unmarshal into %T", v)
	}
	if err := m.unmarshalWire(data); err != nil {
		return fmt.Errorf("chatrpc: %T: %w", v, err)
	}
	return nil
}

func (wireCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(wireCodec{})
}
