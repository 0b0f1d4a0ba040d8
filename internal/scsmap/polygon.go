package scsmap

import (
	"github.com/cory-johannsen/scsmap/internal/codec"
	"github.com/cory-johannsen/scsmap/internal/token"
)

// polygonItem is implemented by kinds whose shape is an ordered node list.
type polygonItem interface {
	payloadItem
	nodeList() *[]Ref[*Node]
}

// CutPlane hides everything behind the plane spanned by its nodes.
type CutPlane struct {
	ItemHeader
	Nodes []Ref[*Node]
}

func (*CutPlane) Kind() ItemType { return TypeCutPlane }
func (*CutPlane) File() ItemFile { return Base }

const cutPlaneOneSideBit = 0

// OneSideOnly reports whether the plane only culls from one side.
func (c *CutPlane) OneSideOnly() bool { return c.Flags.Bit(cutPlaneOneSideBit) }

// SetOneSideOnly sets the one-sided flag.
func (c *CutPlane) SetOneSideOnly(v bool) { c.Flags.SetBit(cutPlaneOneSideBit, v) }

func (c *CutPlane) nodeList() *[]Ref[*Node] { return &c.Nodes }

func (c *CutPlane) refs(v *refVisitor) { v.visitNodes("nodes", c.Nodes) }

func (c *CutPlane) decodePayload(r *codec.Reader) { c.Nodes = readNodeRefs(r) }

func (c *CutPlane) encodePayload(w *codec.Writer) { writeNodeRefs(w, c.Nodes) }

// MapAreaColor is the UI map color of a visual map area.
type MapAreaColor uint32

// Map area colors.
const (
	MapAreaRoad MapAreaColor = iota
	MapAreaLight
	MapAreaDark
	MapAreaGreen
)

// MapAreaType distinguishes purely visual areas from navigation areas.
type MapAreaType uint8

// Map area types.
const (
	MapAreaVisual MapAreaType = iota
	MapAreaNavigation
)

// MapArea flag layout.
const (
	mapAreaDrawOverBit    = 0
	mapAreaDrawOutlineBit = 1
	mapAreaNavigationBit  = 3
)

// MapArea draws a polygon on the UI map or marks it as navigable.
type MapArea struct {
	ItemHeader
	Nodes []Ref[*Node]
	Color MapAreaColor
}

func (*MapArea) Kind() ItemType { return TypeMapArea }
func (*MapArea) File() ItemFile { return Base }

// DrawOver reports whether the area is drawn above other map areas.
func (m *MapArea) DrawOver() bool { return m.Flags.Bit(mapAreaDrawOverBit) }

// SetDrawOver sets the draw-over flag.
func (m *MapArea) SetDrawOver(v bool) { m.Flags.SetBit(mapAreaDrawOverBit, v) }

// DrawOutline reports whether the area is outlined.
func (m *MapArea) DrawOutline() bool { return m.Flags.Bit(mapAreaDrawOutlineBit) }

// SetDrawOutline sets the outline flag.
func (m *MapArea) SetDrawOutline(v bool) { m.Flags.SetBit(mapAreaDrawOutlineBit, v) }

// Type returns whether the area is visual or a navigation area.
func (m *MapArea) Type() MapAreaType {
	if m.Flags.Bit(mapAreaNavigationBit) {
		return MapAreaNavigation
	}
	return MapAreaVisual
}

// SetType sets the area type.
func (m *MapArea) SetType(t MapAreaType) {
	m.Flags.SetBit(mapAreaNavigationBit, t == MapAreaNavigation)
}

// DlcGuard returns the DLC guard index.
func (m *MapArea) DlcGuard() uint8 { return m.Flags.Byte(dlcGuardByte) }

// SetDlcGuard sets the DLC guard index.
func (m *MapArea) SetDlcGuard(g uint8) { m.Flags.SetByte(dlcGuardByte, g) }

func (m *MapArea) nodeList() *[]Ref[*Node] { return &m.Nodes }

func (m *MapArea) refs(v *refVisitor) { v.visitNodes("nodes", m.Nodes) }

func (m *MapArea) decodePayload(r *codec.Reader) {
	m.Nodes = readNodeRefs(r)
	m.Color = MapAreaColor(r.U32())
}

func (m *MapArea) encodePayload(w *codec.Writer) {
	writeNodeRefs(w, m.Nodes)
	w.U32(uint32(m.Color))
}

// TrafficArea applies a traffic rule inside its polygon.
type TrafficArea struct {
	ItemHeader
	Tags  []token.Token
	Nodes []Ref[*Node]
	Rule  token.Token
	Range float32
}

func (*TrafficArea) Kind() ItemType { return TypeTrafficArea }
func (*TrafficArea) File() ItemFile { return Base }

func (t *TrafficArea) nodeList() *[]Ref[*Node] { return &t.Nodes }

func (t *TrafficArea) refs(v *refVisitor) { v.visitNodes("nodes", t.Nodes) }

func (t *TrafficArea) decodePayload(r *codec.Reader) {
	t.Tags = r.Tokens()
	t.Nodes = readNodeRefs(r)
	t.Rule = r.Token()
	t.Range = r.F32()
}

func (t *TrafficArea) encodePayload(w *codec.Writer) {
	w.Tokens(t.Tags)
	writeNodeRefs(w, t.Nodes)
	w.Token(t.Rule)
	w.F32(t.Range)
}

// Trigger runs its actions when the player enters the polygon.
type Trigger struct {
	ItemHeader
	Tags          []token.Token
	Nodes         []Ref[*Node]
	Actions       []TriggerAction
	Range         float32
	ResetDelay    float32
	ResetDistance float32
	MinSpeed      float32
	MaxSpeed      float32
}

func (*Trigger) Kind() ItemType { return TypeTrigger }
func (*Trigger) File() ItemFile { return Base }

// DlcGuard returns the DLC guard index.
func (t *Trigger) DlcGuard() uint8 { return t.Flags.Byte(dlcGuardByte) }

// SetDlcGuard sets the DLC guard index.
func (t *Trigger) SetDlcGuard(g uint8) { t.Flags.SetByte(dlcGuardByte, g) }

func (t *Trigger) nodeList() *[]Ref[*Node] { return &t.Nodes }

func (t *Trigger) refs(v *refVisitor) { v.visitNodes("nodes", t.Nodes) }

func (t *Trigger) decodePayload(r *codec.Reader) {
	t.Tags = r.Tokens()
	t.Nodes = readNodeRefs(r)
	t.Actions = codec.ReadList(r, triggerActionMinSize, readTriggerAction)
	t.Range = r.F32()
	t.ResetDelay = r.F32()
	t.ResetDistance = r.F32()
	t.MinSpeed = r.F32()
	t.MaxSpeed = r.F32()
}

func (t *Trigger) encodePayload(w *codec.Writer) {
	w.Tokens(t.Tags)
	writeNodeRefs(w, t.Nodes)
	codec.WriteList(w, t.Actions, writeTriggerAction)
	w.F32(t.Range)
	w.F32(t.ResetDelay)
	w.F32(t.ResetDistance)
	w.F32(t.MinSpeed)
	w.F32(t.MaxSpeed)
}
