package wire

import (
	"fmt"
)

// Codec is a gRPC codec for the feed messages.
//
// It is registered under the name "proto" so that the server sees the usual
// application/grpc+proto content subtype.
type Codec struct{}

// Name returns the content subtype of the codec
func (Codec) Name() string {
	return "proto"
}

// Marshal encodes *SubscribeRequest or *SubscribeUpdate
func (Codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *SubscribeRequest:
		return EncodeRequest(m), nil
	case *SubscribeUpdate:
		return EncodeUpdate(m), nil
	default:
		return nil, fmt.Errorf("wire codec: cannot marshal %T", v)
	}
}

// Unmarshal decodes into *SubscribeRequest or *SubscribeUpdate.
//
// gRPC may reuse the buffer after Unmarshal returns, so the decoded message
// aliases a private copy of data.
func (Codec) Unmarshal(data []byte, v any) error {
	data = append([]byte(nil), data...)
	switch m := v.(type) {
	case *SubscribeRequest:
		req, err := DecodeRequest(data)
		if err != nil {
			return fmt.Errorf("wire codec: decoding request: %w", err)
		}
		*m = *req
		return nil
	case *SubscribeUpdate:
		u, err := DecodeUpdate(data)
		if err != nil {
			return fmt.Errorf("wire codec: decoding update: %w", err)
		}
		*m = *u
		return nil
	default:
		return fmt.Errorf("wire codec: cannot unmarshal into %T", v)
	}
}
