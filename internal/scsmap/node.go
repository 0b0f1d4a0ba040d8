package scsmap

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/scsmap/internal/codec"
	"github.com/cory-johannsen/scsmap/internal/flagfield"
)

// NodeSize is the encoded size of one node record.
const NodeSize = 8 + 3*4 + 4*4 + 8 + 8 + 4

// positionFactor converts meters to the fixed-point wire representation.
const positionFactor = 256

// Node flag layout.
const (
	nodeRedBit           = 0
	nodeCountryBorderBit = 1
	nodeFreeRotationBit  = 2
	nodeForwardCountry   = 1 // byte index
	nodeBackwardCountry  = 2 // byte index
)

// Node is a positioned graph vertex. Its ForwardItem and BackwardItem link to
// the map objects ahead of and behind it; a link may target an item, another
// node, or the node itself as a terminal marker. Links are relations, not
// ownership.
type Node struct {
	uid uint64
	// Position in meters. Stored on disk as meters*256 truncated to int32.
	Position codec.Vec3
	// Rotation as a unit quaternion.
	Rotation codec.Quaternion
	// Flags holds the red/green marker, country border data and free rotation.
	Flags flagfield.FlagField
	// ForwardItem is the object logically ahead of this node.
	ForwardItem Ref[Object]
	// BackwardItem is the object logically behind this node.
	BackwardItem Ref[Object]

	sectors []SectorCoord
}

// NewNode returns a node with the given UID at pos with identity rotation.
func NewNode(uid uint64, pos codec.Vec3) *Node {
	return &Node{uid: uid, Position: pos, Rotation: codec.Identity}
}

// UID returns the node's identifier.
func (n *Node) UID() uint64 { return n.uid }

// Sectors returns the sectors this node is registered in.
func (n *Node) Sectors() []SectorCoord { return slices.Clone(n.sectors) }

// InSector reports whether the node is registered in c.
func (n *Node) InSector(c SectorCoord) bool { return slices.Contains(n.sectors, c) }

func (n *Node) addSector(c SectorCoord) {
	if !n.InSector(c) {
		n.sectors = append(n.sectors, c)
	}
}

// IsRed reports whether this is a red node. Every item needs one red node
// to be selectable in the editor.
func (n *Node) IsRed() bool { return n.Flags.Bit(nodeRedBit) }

// SetRed sets the red node marker.
func (n *Node) SetRed(v bool) { n.Flags.SetBit(nodeRedBit, v) }

// IsCountryBorder reports whether the node marks a country border.
func (n *Node) IsCountryBorder() bool { return n.Flags.Bit(nodeCountryBorderBit) }

// SetCountryBorder sets the country border marker.
func (n *Node) SetCountryBorder(v bool) { n.Flags.SetBit(nodeCountryBorderBit, v) }

// FreeRotation reports whether the game keeps the stored rotation instead of
// recomputing it when the node is updated.
func (n *Node) FreeRotation() bool { return n.Flags.Bit(nodeFreeRotationBit) }

// SetFreeRotation sets the free rotation flag.
func (n *Node) SetFreeRotation(v bool) { n.Flags.SetBit(nodeFreeRotationBit, v) }

// ForwardCountry returns the country ID of the forward item at a border node.
func (n *Node) ForwardCountry() uint8 { return n.Flags.Byte(nodeForwardCountry) }

// SetForwardCountry sets the forward country ID.
func (n *Node) SetForwardCountry(id uint8) { n.Flags.SetByte(nodeForwardCountry, id) }

// BackwardCountry returns the country ID of the backward item at a border node.
func (n *Node) BackwardCountry() uint8 { return n.Flags.Byte(nodeBackwardCountry) }

// SetBackwardCountry sets the backward country ID.
func (n *Node) SetBackwardCountry(id uint8) { n.Flags.SetByte(nodeBackwardCountry, id) }

func (n *Node) String() string {
	return fmt.Sprintf("%016x (%g|%g|%g)", n.uid, n.Position.X, n.Position.Y, n.Position.Z)
}

// DecodeNode reads one node record. Non-zero link UIDs become placeholders.
// The caller checks r.Err.
func DecodeNode(r *codec.Reader) *Node {
	n := &Node{uid: r.U64()}
	n.Position = codec.Vec3{
		X: float32(r.I32()) / positionFactor,
		Y: float32(r.I32()) / positionFactor,
		Z: float32(r.I32()) / positionFactor,
	}
	n.Rotation = r.Quaternion()
	n.BackwardItem = Unresolved[Object](r.U64())
	n.ForwardItem = Unresolved[Object](r.U64())
	n.Flags = r.Flags()
	return n
}

// EncodeNode writes one node record. Positions are truncated toward zero
// after scaling by 256.
func EncodeNode(w *codec.Writer, n *Node) {
	w.U64(n.uid)
	w.I32(int32(n.Position.X * positionFactor))
	w.I32(int32(n.Position.Y * positionFactor))
	w.I32(int32(n.Position.Z * positionFactor))
	w.Quaternion(n.Rotation)
	w.U64(n.BackwardItem.UID())
	w.U64(n.ForwardItem.UID())
	w.Flags(n.Flags)
}
