package scsmap

import (
	"github.com/cory-johannsen/scsmap/internal/codec"
	"github.com/cory-johannsen/scsmap/internal/maperr"
	"github.com/cory-johannsen/scsmap/internal/token"
)

// Model flag layout.
const (
	modelLeftHandTrafficBit  = 0
	modelWaterReflectionBit  = 1
	modelIgnoreCutPlanesBit  = 2
	modelNoHookupsBit        = 3
	modelStaticLODOffset     = 4
	modelStaticLODWidth      = 2
	modelColorVariantOffset  = 8
	modelColorVariantWidth   = 4
	modelDetailVegetationBit = 12
	modelNoCollisionBit      = 13
	modelNoShadowsBit        = 14
	modelNoMirrorBit         = 15
)

// Model is a static 3D model placed on a single node.
type Model struct {
	ItemHeader
	Model           token.Token
	Look            token.Token
	Variant         token.Token
	AdditionalParts []token.Token
	Node            Ref[*Node]
	Scale           codec.Vec3
	TerrainMaterial token.Token
	TerrainColor    codec.Color
}

func (*Model) Kind() ItemType { return TypeModel }
func (*Model) File() ItemFile { return Aux }

// LeftHandTraffic reports whether the model is placed for left-hand traffic.
func (m *Model) LeftHandTraffic() bool { return m.Flags.Bit(modelLeftHandTrafficBit) }

// SetLeftHandTraffic sets the LeftHandTraffic flag.
func (m *Model) SetLeftHandTraffic(v bool) { m.Flags.SetBit(modelLeftHandTrafficBit, v) }

// WaterReflection reports whether the model is reflected in water.
func (m *Model) WaterReflection() bool { return m.Flags.Bit(modelWaterReflectionBit) }

// SetWaterReflection sets the WaterReflection flag.
func (m *Model) SetWaterReflection(v bool) { m.Flags.SetBit(modelWaterReflectionBit, v) }

// IgnoreCutPlanes reports whether cut planes do not hide the model.
func (m *Model) IgnoreCutPlanes() bool { return m.Flags.Bit(modelIgnoreCutPlanesBit) }

// SetIgnoreCutPlanes sets the IgnoreCutPlanes flag.
func (m *Model) SetIgnoreCutPlanes(v bool) { m.Flags.SetBit(modelIgnoreCutPlanesBit, v) }

// NoHookups reports whether the model's hookups are disabled.
func (m *Model) NoHookups() bool { return m.Flags.Bit(modelNoHookupsBit) }

// SetNoHookups sets the NoHookups flag.
func (m *Model) SetNoHookups(v bool) { m.Flags.SetBit(modelNoHookupsBit, v) }

// DetailVegetation reports whether the model counts as detail vegetation.
func (m *Model) DetailVegetation() bool { return m.Flags.Bit(modelDetailVegetationBit) }

// SetDetailVegetation sets the DetailVegetation flag.
func (m *Model) SetDetailVegetation(v bool) { m.Flags.SetBit(modelDetailVegetationBit, v) }

// NoCollision reports whether the model has no collision.
func (m *Model) NoCollision() bool { return m.Flags.Bit(modelNoCollisionBit) }

// SetNoCollision sets the NoCollision flag.
func (m *Model) SetNoCollision(v bool) { m.Flags.SetBit(modelNoCollisionBit, v) }

// NoShadows reports whether the model casts no shadows.
func (m *Model) NoShadows() bool { return m.Flags.Bit(modelNoShadowsBit) }

// SetNoShadows sets the NoShadows flag.
func (m *Model) SetNoShadows(v bool) { m.Flags.SetBit(modelNoShadowsBit, v) }

// NoMirror reports whether the model is excluded from mirrors.
func (m *Model) NoMirror() bool { return m.Flags.Bit(modelNoMirrorBit) }

// SetNoMirror sets the NoMirror flag.
func (m *Model) SetNoMirror(v bool) { m.Flags.SetBit(modelNoMirrorBit, v) }

// StaticLOD returns the static level-of-detail setting (0-3).
func (m *Model) StaticLOD() uint8 {
	return uint8(m.Flags.Subfield(modelStaticLODOffset, modelStaticLODWidth))
}

// SetStaticLOD sets the static level-of-detail setting.
//
// Postcondition: returns a RangeError and leaves the flags unchanged when lod > 3.
func (m *Model) SetStaticLOD(lod uint8) error {
	return m.Flags.SetSubfield(modelStaticLODOffset, modelStaticLODWidth, uint32(lod))
}

// ColorVariant returns the color variant index (0-15).
func (m *Model) ColorVariant() uint8 {
	return uint8(m.Flags.Subfield(modelColorVariantOffset, modelColorVariantWidth))
}

// SetColorVariant sets the color variant index.
//
// Postcondition: returns a RangeError and leaves the flags unchanged when v > 15.
func (m *Model) SetColorVariant(v uint8) error {
	if v > 15 {
		return &maperr.RangeError{Field: "color_variant", Value: v, Limit: "0-15"}
	}
	return m.Flags.SetSubfield(modelColorVariantOffset, modelColorVariantWidth, uint32(v))
}

func (m *Model) refs(v *refVisitor) {
	v.visitNode("node", &m.Node)
}

func (m *Model) decodePayload(r *codec.Reader) {
	m.Model = r.Token()
	m.Look = r.Token()
	m.Variant = r.Token()
	m.AdditionalParts = r.Tokens()
	m.Node = readNodeRef(r)
	m.Scale = r.Vec3()
	m.TerrainMaterial = r.Token()
	m.TerrainColor = r.Color()
}

func (m *Model) encodePayload(w *codec.Writer) {
	w.Token(m.Model)
	w.Token(m.Look)
	w.Token(m.Variant)
	w.Tokens(m.AdditionalParts)
	writeNodeRef(w, m.Node)
	w.Vec3(m.Scale)
	w.Token(m.TerrainMaterial)
	w.Color(m.TerrainColor)
}

// Hinge is a swinging model such as a gate or door.
type Hinge struct {
	ItemHeader
	Model       token.Token
	Variant     token.Token
	Node        Ref[*Node]
	MinRotation float32
	MaxRotation float32
}

func (*Hinge) Kind() ItemType { return TypeHinge }
func (*Hinge) File() ItemFile { return Aux }

func (h *Hinge) refs(v *refVisitor) {
	v.visitNode("node", &h.Node)
}

func (h *Hinge) decodePayload(r *codec.Reader) {
	h.Model = r.Token()
	h.Variant = r.Token()
	h.Node = readNodeRef(r)
	h.MinRotation = r.F32()
	h.MaxRotation = r.F32()
}

func (h *Hinge) encodePayload(w *codec.Writer) {
	w.Token(h.Model)
	w.Token(h.Variant)
	writeNodeRef(w, h.Node)
	w.F32(h.MinRotation)
	w.F32(h.MaxRotation)
}

// City marks the area of a city. The node is the top-left corner of the
// area, which extends Width along x and Height along z.
type City struct {
	ItemHeader
	City   token.Token
	Width  float32
	Height float32
	Node   Ref[*Node]
}

func (*City) Kind() ItemType { return TypeCity }
func (*City) File() ItemFile { return Base }

func (c *City) refs(v *refVisitor) {
	v.visitNode("node", &c.Node)
}

func (c *City) decodePayload(r *codec.Reader) {
	c.City = r.Token()
	c.Width = r.F32()
	c.Height = r.F32()
	c.Node = readNodeRef(r)
}

func (c *City) encodePayload(w *codec.Writer) {
	w.Token(c.City)
	w.F32(c.Width)
	w.F32(c.Height)
	writeNodeRef(w, c.Node)
}

// Mover is an animated model moving along a node path, such as a ferry or
// pedestrians.
type Mover struct {
	ItemHeader
	Tags       []token.Token
	Model      token.Token
	Look       token.Token
	Speed      float32
	DelayAtEnd float32
	Width      float32
	Count      uint32
	Lengths    []float32
	Nodes      []Ref[*Node]
}

func (*Mover) Kind() ItemType { return TypeMover }
func (*Mover) File() ItemFile { return Aux }

func (m *Mover) refs(v *refVisitor) {
	v.visitNodes("nodes", m.Nodes)
}

func (m *Mover) decodePayload(r *codec.Reader) {
	m.Tags = r.Tokens()
	m.Model = r.Token()
	m.Look = r.Token()
	m.Speed = r.F32()
	m.DelayAtEnd = r.F32()
	m.Width = r.F32()
	m.Count = r.U32()
	m.Lengths = r.F32s()
	m.Nodes = readNodeRefs(r)
}

func (m *Mover) encodePayload(w *codec.Writer) {
	w.Tokens(m.Tags)
	w.Token(m.Model)
	w.Token(m.Look)
	w.F32(m.Speed)
	w.F32(m.DelayAtEnd)
	w.F32(m.Width)
	w.U32(m.Count)
	w.F32s(m.Lengths)
	writeNodeRefs(w, m.Nodes)
}
