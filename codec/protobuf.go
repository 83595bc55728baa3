package codec

import "google.golang.org/protobuf/proto"

// Protobuf encodes generated messages. Construct with NewProtobuf so Decode
// has a concrete message to fill.
//
// Encoding is deterministic so equal messages frame to equal bytes; unknown
// fields written by a newer schema are dropped on decode.
type Protobuf[T proto.Message] struct {
	new func() T // e.g. func() *mypb.User { return &mypb.User{} }
	mo  proto.MarshalOptions
	uo  proto.UnmarshalOptions
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{
		new: ctor,
		mo:  proto.MarshalOptions{Deterministic: true},
		uo:  proto.UnmarshalOptions{DiscardUnknown: true},
	}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return c.mo.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := c.uo.Unmarshal(b, m)
	return m, err
}
