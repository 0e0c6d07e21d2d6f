package materializer_test

import (
	"google.golang.org/protobuf/proto"
)

func protoMarshalDeterministic(m proto.Message) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(m)
}
