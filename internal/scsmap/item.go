package scsmap

import (
	"fmt"

	"github.com/cory-johannsen/scsmap/internal/codec"
	"github.com/cory-johannsen/scsmap/internal/flagfield"
	"github.com/cory-johannsen/scsmap/internal/maperr"
)

// ItemType is the on-disk tag identifying an item kind.
type ItemType uint32

// Supported item kinds.
const (
	TypePrefab      ItemType = 4
	TypeModel       ItemType = 5
	TypeCompany     ItemType = 6
	TypeService     ItemType = 7
	TypeCutPlane    ItemType = 8
	TypeMover       ItemType = 9
	TypeCity        ItemType = 12
	TypeHinge       ItemType = 13
	TypeGarage      ItemType = 22
	TypeTrigger     ItemType = 34
	TypeFuelPump    ItemType = 35
	TypeSign        ItemType = 36
	TypeBusStop     ItemType = 37
	TypeTrafficArea ItemType = 38
	TypeMapArea     ItemType = 42
)

var itemTypeNames = map[ItemType]string{
	TypePrefab:      "prefab",
	TypeModel:       "model",
	TypeCompany:     "company",
	TypeService:     "service",
	TypeCutPlane:    "cut_plane",
	TypeMover:       "mover",
	TypeCity:        "city",
	TypeHinge:       "hinge",
	TypeGarage:      "garage",
	TypeTrigger:     "trigger",
	TypeFuelPump:    "fuel_pump",
	TypeSign:        "sign",
	TypeBusStop:     "bus_stop",
	TypeTrafficArea: "traffic_area",
	TypeMapArea:     "map_area",
}

func (t ItemType) String() string {
	if name, ok := itemTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("item_type(%d)", uint32(t))
}

// ItemFile selects the sector sub-file an item is stored in.
type ItemFile int

const (
	// Base holds the bulk of a sector's items and all of its nodes.
	Base ItemFile = iota
	// Aux holds decorative items such as models and signs.
	Aux
)

func (f ItemFile) String() string {
	switch f {
	case Base:
		return "base"
	case Aux:
		return "aux"
	default:
		return fmt.Sprintf("item_file(%d)", int(f))
	}
}

// View distance presets in meters.
const (
	ViewDistanceClose  uint16 = 400
	ViewDistanceMedium uint16 = 950
	ViewDistanceFar    uint16 = 1400

	// MaxViewDistance is the largest distance the one-byte encoding holds.
	MaxViewDistance uint16 = 2550
)

// viewDistanceFactor scales the stored byte to meters.
const viewDistanceFactor = 10

// headerSize is the encoded size of ItemHeader.
const headerSize = 8 + 40 + 4 + 1

// ItemHeader is the part shared by every item record.
type ItemHeader struct {
	uid uint64
	// Bounds is the culling volume. Opaque; read and written verbatim.
	Bounds BoundingVolume
	// Flags holds kind-specific bit fields. Kinds expose named accessors.
	Flags        flagfield.FlagField
	viewDistance uint16
}

func newHeader(uid uint64) ItemHeader {
	return ItemHeader{uid: uid, Bounds: PlaceholderBounds(), viewDistance: ViewDistanceClose}
}

// UID returns the item's identifier. It never changes after creation.
func (h *ItemHeader) UID() uint64 { return h.uid }

// Header returns the header itself so that kinds satisfy MapItem by embedding.
func (h *ItemHeader) Header() *ItemHeader { return h }

// ViewDistance returns the distance in meters from which the item renders.
func (h *ItemHeader) ViewDistance() uint16 { return h.viewDistance }

// SetViewDistance sets the view distance in meters. The stored byte holds
// tens of meters, so the value is rounded down to a multiple of 10.
//
// Postcondition: on error the header is unchanged.
func (h *ItemHeader) SetViewDistance(m uint16) error {
	if m > MaxViewDistance {
		return &maperr.RangeError{Field: "view_distance", Value: m, Limit: "<= 2550"}
	}
	h.viewDistance = m / viewDistanceFactor * viewDistanceFactor
	return nil
}

func readHeader(r *codec.Reader, h *ItemHeader) {
	h.uid = r.U64()
	h.Bounds = readBounds(r)
	h.Flags = r.Flags()
	h.viewDistance = uint16(r.U8()) * viewDistanceFactor
}

func writeHeader(w *codec.Writer, h *ItemHeader) {
	w.U64(h.uid)
	writeBounds(w, h.Bounds)
	w.Flags(h.Flags)
	w.U8(uint8(h.viewDistance / viewDistanceFactor))
}

// MapItem is implemented by the closed family of item kinds in this package.
type MapItem interface {
	Object
	// Kind returns the on-disk tag.
	Kind() ItemType
	// File returns the sub-file the item is stored in.
	File() ItemFile
	// Header returns the shared header for in-place edits.
	Header() *ItemHeader

	refs(v *refVisitor)
}

// payloadItem is a MapItem that knows its own payload layout.
type payloadItem interface {
	MapItem
	decodePayload(r *codec.Reader)
	encodePayload(w *codec.Writer)
}

// refVisitor walks the reference fields of an item. idx is -1 for scalar
// fields and the list position otherwise.
type refVisitor struct {
	node func(field string, idx int, r *Ref[*Node])
	item func(field string, idx int, r *Ref[MapItem])
}

func (v *refVisitor) visitNode(field string, r *Ref[*Node]) {
	if v.node != nil {
		v.node(field, -1, r)
	}
}

func (v *refVisitor) visitNodes(field string, rs []Ref[*Node]) {
	if v.node == nil {
		return
	}
	for i := range rs {
		v.node(field, i, &rs[i])
	}
}

func (v *refVisitor) visitItem(field string, r *Ref[MapItem]) {
	if v.item != nil {
		v.item(field, -1, r)
	}
}

func (v *refVisitor) visitItems(field string, rs []Ref[MapItem]) {
	if v.item == nil {
		return
	}
	for i := range rs {
		v.item(field, i, &rs[i])
	}
}

// ItemNodes returns the resolved nodes an item references, without
// duplicates, in field order.
func ItemNodes(item MapItem) []*Node {
	var out []*Node
	seen := make(map[*Node]bool)
	item.refs(&refVisitor{node: func(_ string, _ int, r *Ref[*Node]) {
		if n, ok := r.Get(); ok && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}})
	return out
}

func fieldName(field string, idx int) string {
	if idx < 0 {
		return field
	}
	return fmt.Sprintf("%s[%d]", field, idx)
}

// Reference field codecs.

func readNodeRef(r *codec.Reader) Ref[*Node] { return Unresolved[*Node](r.U64()) }

func readItemRef(r *codec.Reader) Ref[MapItem] { return Unresolved[MapItem](r.U64()) }

func readNodeRefs(r *codec.Reader) []Ref[*Node] {
	return codec.ReadList(r, 8, readNodeRef)
}

func readItemRefs(r *codec.Reader) []Ref[MapItem] {
	return codec.ReadList(r, 8, readItemRef)
}

func writeNodeRef(w *codec.Writer, ref Ref[*Node]) { w.U64(ref.UID()) }

func writeItemRef(w *codec.Writer, ref Ref[MapItem]) { w.U64(ref.UID()) }

func writeNodeRefs(w *codec.Writer, refs []Ref[*Node]) {
	codec.WriteList(w, refs, writeNodeRef)
}

func writeItemRefs(w *codec.Writer, refs []Ref[MapItem]) {
	codec.WriteList(w, refs, writeItemRef)
}
