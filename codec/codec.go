// Package codec turns cached values into bytes for byte providers.
//
// Implementations must be safe for concurrent use. Decode must not retain b.
package codec

type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
