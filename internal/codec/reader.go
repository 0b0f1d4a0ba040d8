// Package codec implements the fixed-width little-endian primitives shared by
// the map, definition and model formats: scalars, vectors, quaternions,
// colors, tokens, length-prefixed strings and count-prefixed lists.
//
// Reader uses a sticky error: the first failure is recorded, every later read
// returns a zero value, and the caller checks Err once after a record. This
// keeps record decoders linear while still aborting on the first truncation.
package codec

import (
	"encoding/binary"
	"math"

	"github.com/cory-johannsen/scsmap/internal/flagfield"
	"github.com/cory-johannsen/scsmap/internal/maperr"
	"github.com/cory-johannsen/scsmap/internal/token"
)

// Reader decodes primitives from an in-memory byte slice.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Err returns the first error encountered, or nil.
func (r *Reader) Err() error { return r.err }

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.off }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.off }

// Fail records err unless an error is already recorded.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// take returns the next n bytes, or nil after recording a FormatError.
func (r *Reader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Len() < n {
		r.err = maperr.Formatf(r.off, "truncated %s: need %d bytes, have %d", what, n, r.Len())
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// U8 reads one byte.
func (r *Reader) U8() uint8 {
	b := r.take(1, "u8")
	if b == nil {
		return 0
	}
	return b[0]
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() uint16 {
	b := r.take(2, "u16")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() uint32 {
	b := r.take(4, "u32")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// I32 reads a little-endian int32.
func (r *Reader) I32() int32 { return int32(r.U32()) }

// U64 reads a little-endian uint64.
func (r *Reader) U64() uint64 {
	b := r.take(8, "u64")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// I8 reads a signed byte.
func (r *Reader) I8() int8 { return int8(r.U8()) }

// F32 reads an IEEE-754 single precision float.
func (r *Reader) F32() float32 { return math.Float32frombits(r.U32()) }

// Vec3 reads three float32 values in x, y, z order.
func (r *Reader) Vec3() Vec3 {
	return Vec3{X: r.F32(), Y: r.F32(), Z: r.F32()}
}

// Quaternion reads four float32 values in w, x, y, z order.
func (r *Reader) Quaternion() Quaternion {
	return Quaternion{W: r.F32(), X: r.F32(), Y: r.F32(), Z: r.F32()}
}

// Color reads four bytes in r, g, b, a order.
func (r *Reader) Color() Color {
	return Color{R: r.U8(), G: r.U8(), B: r.U8(), A: r.U8()}
}

// Token reads an 8-byte token.
func (r *Reader) Token() token.Token { return token.Token(r.U64()) }

// Flags reads a 4-byte flag register.
func (r *Reader) Flags() flagfield.FlagField { return flagfield.New(r.U32()) }

// Str reads a string prefixed by its uint64 byte length.
func (r *Reader) Str() string {
	n := r.U64()
	if r.err != nil {
		return ""
	}
	if n > uint64(r.Len()) {
		r.err = maperr.Formatf(r.off-8, "bad string length %d: only %d bytes left", n, r.Len())
		return ""
	}
	return string(r.take(int(n), "string"))
}

// Count reads a uint32 list count and checks that count elements of at least
// minSize bytes each can still be present in the stream.
func (r *Reader) Count(minSize int) int {
	start := r.off
	n := r.U32()
	if r.err != nil {
		return 0
	}
	if minSize > 0 && uint64(n)*uint64(minSize) > uint64(r.Len()) {
		r.err = maperr.Formatf(start, "bad list count %d: %d bytes left", n, r.Len())
		return 0
	}
	return int(n)
}

// Tokens reads a count-prefixed token list.
func (r *Reader) Tokens() []token.Token {
	return ReadList(r, 8, (*Reader).Token)
}

// UIDs reads a count-prefixed uint64 list.
func (r *Reader) UIDs() []uint64 {
	return ReadList(r, 8, (*Reader).U64)
}

// F32s reads a count-prefixed float32 list.
func (r *Reader) F32s() []float32 {
	return ReadList(r, 4, (*Reader).F32)
}

// ReadList reads a uint32 count followed by that many elements decoded by
// elem. minSize is the smallest encoded size of one element and is used to
// reject impossible counts before allocating.
func ReadList[T any](r *Reader, minSize int, elem func(*Reader) T) []T {
	n := r.Count(minSize)
	if n == 0 {
		return nil
	}
	out := make([]T, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, elem(r))
	}
	if r.err != nil {
		return nil
	}
	return out
}
