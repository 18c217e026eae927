// Package wire frames a cache entry (freshness window + encoded value) for
// byte providers.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version   byte = 1
	kindEntry byte = 1

	hdrLen = 4 + 1 + 1 + 8 + 8 + 4
)

var (
	ErrCorrupt = errors.New("swrcache: corrupt entry")
	magic4     = [...]byte{'S', 'W', 'R', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Frame is a decoded entry. Payload aliases the input buffer.
type Frame struct {
	FreshUntil time.Time
	ExpiresAt  time.Time
	Payload    []byte
}

// Entry: magic(4) | ver(1) | kind(1) | freshUntil(i64 unix nanos) | expiresAt(i64 unix nanos) | vlen(u32 be) | payload(vlen)
func EncodeEntry(freshUntil, expiresAt time.Time, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(freshUntil.UnixNano()))
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(expiresAt.UnixNano()))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

func DecodeEntry(b []byte) (Frame, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return Frame{}, ErrCorrupt
	}

	off := 6
	fresh := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	exp := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	if fresh > exp {
		return Frame{}, ErrCorrupt
	}

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// exact length: trailing bytes are corruption too
	if vlen != len(b)-off {
		return Frame{}, ErrCorrupt
	}

	return Frame{
		FreshUntil: time.Unix(0, fresh),
		ExpiresAt:  time.Unix(0, exp),
		Payload:    b[off:],
	}, nil
}
