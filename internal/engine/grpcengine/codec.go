package grpcengine

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

const codecName = "florescence-raw"

// rawFrame is a pre-encoded message.Message frame: the gRPC layer never
// marshals Go structs itself, it just ferries bytes message.Encode already
// produced. Mirrors the original source's BinCoder/BinCodec split between
// the RPC transport and the application wire format.
type rawFrame []byte

type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*rawFrame)
	if !ok {
		return nil, fmt.Errorf("grpcengine: rawCodec.Marshal: unexpected type %T", v)
	}
	return *f, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*rawFrame)
	if !ok {
		return fmt.Errorf("grpcengine: rawCodec.Unmarshal: unexpected type %T", v)
	}
	*f = append((*f)[:0], data...)
	return nil
}

func (rawCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(rawCodec{})
}
