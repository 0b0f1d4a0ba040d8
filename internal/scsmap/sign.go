package scsmap

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/scsmap/internal/codec"
	"github.com/cory-johannsen/scsmap/internal/maperr"
	"github.com/cory-johannsen/scsmap/internal/token"
)

// SignBoardCount is the number of legacy sign boards every sign carries.
const SignBoardCount = 3

// SignBoard is a legacy sign board: a road number and two city names.
type SignBoard struct {
	Road  token.Token
	City1 token.Token
	City2 token.Token
}

// AttributeType selects the value encoding of a SignAttribute.
type AttributeType uint16

// Attribute value encodings.
const (
	AttrInt8 AttributeType = iota
	AttrInt32
	AttrUint32
	AttrFloat32
	AttrString
	AttrToken
	AttrUint64
)

// SignAttribute is one typed value of a sign override. Only the field that
// matches Type is encoded: Int for the signed types, Uint for the unsigned
// types, Float, Text or Token otherwise.
type SignAttribute struct {
	Type  AttributeType
	Index uint32
	Int   int32
	Uint  uint64
	Float float32
	Text  string
	Token token.Token
}

// SignOverride replaces parts of a sign template.
type SignOverride struct {
	ID         uint32
	Area       token.Token
	Attributes []SignAttribute
}

// Sign is a road sign placed on a single node. It is the only kind whose
// sub-file is chosen by the caller: signs default to Aux but belong in Base
// when their definition attaches a traffic rule, which this package cannot
// know.
type Sign struct {
	ItemHeader
	Model  token.Token
	Node   Ref[*Node]
	Boards [SignBoardCount]SignBoard
	// Template is the sign template name. Overrides are only stored when it
	// is non-empty.
	Template  string
	Overrides []SignOverride

	// inBase keeps the zero value in Aux.
	inBase bool
}

func (*Sign) Kind() ItemType { return TypeSign }

// File returns the sub-file chosen for this sign; Aux unless set otherwise.
func (s *Sign) File() ItemFile {
	if s.inBase {
		return Base
	}
	return Aux
}

// SetFile chooses the sub-file the sign is written to.
func (s *Sign) SetFile(f ItemFile) { s.inBase = f == Base }

// DlcGuard returns the DLC guard index.
func (s *Sign) DlcGuard() uint8 { return s.Flags.Byte(dlcGuardByte) }

// SetDlcGuard sets the DLC guard index.
func (s *Sign) SetDlcGuard(g uint8) { s.Flags.SetByte(dlcGuardByte, g) }

func (s *Sign) refs(v *refVisitor) { v.visitNode("node", &s.Node) }

func (s *Sign) validate() error {
	for i, o := range s.Overrides {
		for j, a := range o.Attributes {
			if a.Type > AttrUint64 {
				return &maperr.RangeError{
					Field: fmt.Sprintf("overrides[%d].attributes[%d].type", i, j),
					Value: a.Type,
					Limit: "0-6",
				}
			}
			if a.Type == AttrInt8 && (a.Int < math.MinInt8 || a.Int > math.MaxInt8) {
				return &maperr.RangeError{
					Field: fmt.Sprintf("overrides[%d].attributes[%d].int", i, j),
					Value: a.Int,
					Limit: "-128-127",
				}
			}
		}
	}
	return nil
}

func (s *Sign) decodePayload(r *codec.Reader) {
	s.Model = r.Token()
	s.Node = readNodeRef(r)
	for i := range s.Boards {
		s.Boards[i] = SignBoard{Road: r.Token(), City1: r.Token(), City2: r.Token()}
	}
	s.Template = r.Str()
	if s.Template == "" {
		return
	}
	s.Overrides = codec.ReadList(r, 4+8+4, readSignOverride)
}

func (s *Sign) encodePayload(w *codec.Writer) {
	w.Token(s.Model)
	writeNodeRef(w, s.Node)
	for _, b := range s.Boards {
		w.Token(b.Road)
		w.Token(b.City1)
		w.Token(b.City2)
	}
	w.Str(s.Template)
	if s.Template == "" {
		return
	}
	codec.WriteList(w, s.Overrides, writeSignOverride)
}

func readSignOverride(r *codec.Reader) SignOverride {
	return SignOverride{
		ID:         r.U32(),
		Area:       r.Token(),
		Attributes: codec.ReadList(r, 2+4+1, readSignAttribute),
	}
}

func writeSignOverride(w *codec.Writer, o SignOverride) {
	w.U32(o.ID)
	w.Token(o.Area)
	codec.WriteList(w, o.Attributes, writeSignAttribute)
}

func readSignAttribute(r *codec.Reader) SignAttribute {
	start := r.Offset()
	a := SignAttribute{Type: AttributeType(r.U16()), Index: r.U32()}
	switch a.Type {
	case AttrInt8:
		a.Int = int32(r.I8())
	case AttrInt32:
		a.Int = r.I32()
	case AttrUint32:
		a.Uint = uint64(r.U32())
	case AttrFloat32:
		a.Float = r.F32()
	case AttrString:
		a.Text = r.Str()
	case AttrToken:
		a.Token = r.Token()
	case AttrUint64:
		a.Uint = r.U64()
	default:
		r.Fail(maperr.Formatf(start, "unknown sign attribute type %d", a.Type))
	}
	return a
}

func writeSignAttribute(w *codec.Writer, a SignAttribute) {
	w.U16(uint16(a.Type))
	w.U32(a.Index)
	switch a.Type {
	case AttrInt8:
		w.I8(int8(a.Int))
	case AttrInt32:
		w.I32(a.Int)
	case AttrUint32:
		w.U32(uint32(a.Uint))
	case AttrFloat32:
		w.F32(a.Float)
	case AttrString:
		w.Str(a.Text)
	case AttrToken:
		w.Token(a.Token)
	case AttrUint64:
		w.U64(a.Uint)
	}
}
