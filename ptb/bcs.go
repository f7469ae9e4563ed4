package ptb

import (
	"bytes"
	"encoding/binary"
)

// encoder writes the subset of BCS needed to serialize transaction data:
// little-endian integers, ULEB128 lengths and enum tags, length-prefixed byte strings.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) Bytes() []byte {
	return e.buf.Bytes()
}

func (e *encoder) uleb128(v uint64) {
	for v >= 0x80 {
		e.buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	e.buf.WriteByte(byte(v))
}

func (e *encoder) u8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *encoder) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) bool(v bool) {
	if v {
		e.buf.WriteByte(1)
		return
	}
	e.buf.WriteByte(0)
}

// variant writes an enum discriminant.
func (e *encoder) variant(tag int) {
	e.uleb128(uint64(tag))
}

// length writes a sequence length.
func (e *encoder) length(n int) {
	e.uleb128(uint64(n))
}

func (e *encoder) bytes(b []byte) {
	e.length(len(b))
	e.buf.Write(b)
}

func (e *encoder) fixed(b []byte) {
	e.buf.Write(b)
}

func (e *encoder) string(s string) {
	e.bytes([]byte(s))
}

func (e *encoder) objectID(id ObjectID) {
	e.fixed(id[:])
}

// EncodeBytes returns the BCS encoding of a vector<u8>, the form a pure byte
// vector argument takes.
func EncodeBytes(b []byte) []byte {
	var e encoder
	e.bytes(b)
	return e.Bytes()
}
