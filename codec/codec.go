// Package codec turns cached values into the payload bytes tagcache frames
// alongside the entry's tag snapshot.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
