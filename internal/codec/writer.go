package codec

import (
	"encoding/binary"
	"math"

	"github.com/cory-johannsen/scsmap/internal/flagfield"
	"github.com/cory-johannsen/scsmap/internal/token"
)

// Writer encodes primitives into a growing byte slice. Writes cannot fail;
// values that need validation (tokens, flag sub-fields) are validated when
// they are built, never while a record is being emitted.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the encoded bytes. The slice aliases the Writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Raw appends b verbatim.
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

// U8 writes one byte.
func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

// I8 writes a signed byte.
func (w *Writer) I8(v int8) { w.U8(uint8(v)) }

// U16 writes a little-endian uint16.
func (w *Writer) U16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

// U32 writes a little-endian uint32.
func (w *Writer) U32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

// I32 writes a little-endian int32.
func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

// U64 writes a little-endian uint64.
func (w *Writer) U64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

// F32 writes an IEEE-754 single precision float.
func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

// Vec3 writes x, y, z.
func (w *Writer) Vec3(v Vec3) {
	w.F32(v.X)
	w.F32(v.Y)
	w.F32(v.Z)
}

// Quaternion writes w, x, y, z.
func (w *Writer) Quaternion(q Quaternion) {
	w.F32(q.W)
	w.F32(q.X)
	w.F32(q.Y)
	w.F32(q.Z)
}

// Color writes r, g, b, a.
func (w *Writer) Color(c Color) {
	w.U8(c.R)
	w.U8(c.G)
	w.U8(c.B)
	w.U8(c.A)
}

// Token writes an 8-byte token.
func (w *Writer) Token(t token.Token) { w.U64(uint64(t)) }

// Flags writes a 4-byte flag register.
func (w *Writer) Flags(f flagfield.FlagField) { w.U32(f.Uint32()) }

// Str writes s prefixed by its uint64 byte length.
func (w *Writer) Str(s string) {
	w.U64(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// Tokens writes a count-prefixed token list. A nil list writes count 0.
func (w *Writer) Tokens(ts []token.Token) { WriteList(w, ts, (*Writer).Token) }

// UIDs writes a count-prefixed uint64 list.
func (w *Writer) UIDs(ids []uint64) { WriteList(w, ids, (*Writer).U64) }

// F32s writes a count-prefixed float32 list.
func (w *Writer) F32s(vs []float32) { WriteList(w, vs, (*Writer).F32) }

// WriteList writes a uint32 count followed by every element of list.
func WriteList[T any](w *Writer, list []T, elem func(*Writer, T)) {
	w.U32(uint32(len(list)))
	for _, v := range list {
		elem(w, v)
	}
}
