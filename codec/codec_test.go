package codec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/unkn0wn-root/swrcache/codec"
)

type user struct {
	ID      int       `json:"id" msgpack:"id" cbor:"id"`
	Name    string    `json:"name" msgpack:"name" cbor:"name"`
	Created time.Time `json:"created" msgpack:"created" cbor:"created"`
}

func TestStructCodecs(t *testing.T) {
	in := user{ID: 7, Name: "ada", Created: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	for name, c := range map[string]codec.Codec[user]{
		"json":        codec.JSON[user]{},
		"msgpack":     codec.Msgpack[user]{},
		"cbor":        codec.MustCBOR[user](false),
		"cbor-det":    codec.MustCBOR[user](true),
		"limit(json)": codec.Limit[user]{Inner: codec.JSON[user]{}, MaxDecode: 1 << 10},
	} {
		t.Run(name, func(t *testing.T) {
			b, err := c.Encode(in)
			require.NoError(t, err)
			out, err := c.Decode(b)
			require.NoError(t, err)
			assert.Equal(t, in.ID, out.ID)
			assert.Equal(t, in.Name, out.Name)
			assert.True(t, in.Created.Equal(out.Created))
		})
	}
}

func TestCBORDeterministicIsStable(t *testing.T) {
	c := codec.MustCBOR[map[string]int](true)
	m := map[string]int{"z": 1, "a": 2, "m": 3}

	first, err := c.Encode(m)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		b, err := c.Encode(m)
		require.NoError(t, err)
		assert.Equal(t, first, b)
	}
}

func TestLimitRejectsOversized(t *testing.T) {
	c := codec.Limit[string]{Inner: codec.String{}, MaxDecode: 3}

	_, err := c.Decode([]byte("abcd"))
	require.ErrorIs(t, err, codec.ErrTooLarge)

	v, err := c.Decode([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	unlimited := codec.Limit[string]{Inner: codec.String{}}
	v, err = unlimited.Decode([]byte("abcdefgh"))
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", v)
}

func TestProtobuf(t *testing.T) {
	c := codec.NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })

	b, err := c.Encode(wrapperspb.String("hello"))
	require.NoError(t, err)
	out, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "hello", out.GetValue())

	var zero codec.Protobuf[*wrapperspb.StringValue]
	_, err = zero.Decode(b)
	assert.Error(t, err)
}

func TestBytesDecodeCopies(t *testing.T) {
	src := []byte("raw")
	out, err := codec.Bytes{}.Decode(src)
	require.NoError(t, err)
	src[0] = 'X'
	assert.Equal(t, []byte("raw"), out)
}
