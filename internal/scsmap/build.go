package scsmap

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/scsmap/internal/codec"
	"github.com/cory-johannsen/scsmap/internal/token"
)

// errNoPositions is returned when a multi-node item is built from zero
// positions.
var errNoPositions = errors.New("at least one node position is required")

// AddNode creates a node at pos with a fresh UID and registers it in the
// sector containing pos, creating the sector if needed.
//
// Postcondition: the node has identity rotation and no links.
func (m *Map) AddNode(pos codec.Vec3) *Node {
	n := NewNode(m.uids.Next(), pos)
	s := m.ensureSector(SectorOf(pos))
	n.addSector(s.Coord)
	s.Nodes = append(s.Nodes, n)
	m.nodes[n.uid] = n
	return n
}

// AddItem registers item in the sector of its main node. Use it for items
// built outside the Add helpers; the item's node references should already
// be live.
//
// Precondition: main must belong to this map.
func (m *Map) AddItem(item MapItem, main *Node) {
	c := SectorOf(main.Position)
	if len(main.sectors) > 0 {
		c = main.sectors[0]
	}
	s := m.ensureSector(c)
	s.Items = append(s.Items, item)
	m.items[item.UID()] = item
}

// addSingleNodeItem creates the red node of a single-node item at pos and
// links it forward to the item.
func (m *Map) addSingleNodeItem(item MapItem, pos codec.Vec3) *Node {
	n := m.AddNode(pos)
	n.SetRed(true)
	n.ForwardItem = RefTo[Object](item)
	m.AddItem(item, n)
	return n
}

// AddModel places a model at pos.
func (m *Map) AddModel(pos codec.Vec3, rot codec.Quaternion, model, variant, look token.Token) *Model {
	item := &Model{
		ItemHeader: newHeader(m.uids.Next()),
		Model:      model,
		Variant:    variant,
		Look:       look,
		Scale:      codec.Vec3{X: 1, Y: 1, Z: 1},
	}
	n := m.addSingleNodeItem(item, pos)
	n.Rotation = rot
	item.Node = RefTo(n)
	return item
}

// AddHinge places a hinge at pos.
func (m *Map) AddHinge(pos codec.Vec3, model, variant token.Token, minRot, maxRot float32) *Hinge {
	item := &Hinge{
		ItemHeader:  newHeader(m.uids.Next()),
		Model:       model,
		Variant:     variant,
		MinRotation: minRot,
		MaxRotation: maxRot,
	}
	item.Node = RefTo(m.addSingleNodeItem(item, pos))
	return item
}

// AddSign places a sign at pos and stores it in the given sub-file.
func (m *Map) AddSign(pos codec.Vec3, model token.Token, template string, file ItemFile) *Sign {
	item := &Sign{
		ItemHeader: newHeader(m.uids.Next()),
		Model:      model,
		Template:   template,
	}
	item.SetFile(file)
	item.Node = RefTo(m.addSingleNodeItem(item, pos))
	return item
}

// AddCity marks a city area whose top-left corner is pos.
func (m *Map) AddCity(pos codec.Vec3, name token.Token, width, height float32) *City {
	item := &City{
		ItemHeader: newHeader(m.uids.Next()),
		City:       name,
		Width:      width,
		Height:     height,
	}
	item.Node = RefTo(m.addSingleNodeItem(item, pos))
	return item
}

// AddPrefab places a prefab whose control nodes sit at positions. The first
// node is the origin and is red; every node links forward to the prefab.
func (m *Map) AddPrefab(model, variant token.Token, positions []codec.Vec3) (*Prefab, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("scsmap: Map.AddPrefab: %w", errNoPositions)
	}
	item := &Prefab{
		ItemHeader: newHeader(m.uids.Next()),
		Model:      model,
		Variant:    variant,
	}
	item.Nodes = m.addItemNodes(item, positions)
	return item, nil
}

// addItemNodes creates one node per position, marks the first red, links
// every node forward to item and stores item with the first node.
func (m *Map) addItemNodes(item MapItem, positions []codec.Vec3) []Ref[*Node] {
	refs := make([]Ref[*Node], len(positions))
	for i, pos := range positions {
		n := m.AddNode(pos)
		if i == 0 {
			n.SetRed(true)
		}
		n.ForwardItem = RefTo[Object](item)
		refs[i] = RefTo(n)
	}
	first, _ := refs[0].Get()
	m.AddItem(item, first)
	return refs
}

// attachSlave wires a slave item to its prefab and places its node at pos.
func (m *Map) attachSlave(parent *Prefab, item slaveItem, pos codec.Vec3) {
	item.Header().Flags.SetBit(slaveFlagBit, true)
	link := item.slave()
	link.PrefabLink = RefTo[MapItem](parent)
	link.Node = RefTo(m.addSingleNodeItem(item, pos))
	parent.SlaveItems = append(parent.SlaveItems, RefTo[MapItem](item))
}

// AddCompany attaches a company depot to parent.
//
// Precondition: parent must belong to this map.
func (m *Map) AddCompany(parent *Prefab, pos codec.Vec3, company, city token.Token) *Company {
	item := &Company{ItemHeader: newHeader(m.uids.Next()), Company: company, City: city}
	m.attachSlave(parent, item, pos)
	return item
}

// AddService attaches a service point of type t to parent.
func (m *Map) AddService(parent *Prefab, pos codec.Vec3, t ServiceType) *Service {
	item := &Service{ItemHeader: newHeader(m.uids.Next())}
	item.SetServiceType(t)
	m.attachSlave(parent, item, pos)
	return item
}

// AddBusStop attaches a bus stop to parent.
func (m *Map) AddBusStop(parent *Prefab, pos codec.Vec3, city token.Token) *BusStop {
	item := &BusStop{ItemHeader: newHeader(m.uids.Next()), City: city}
	m.attachSlave(parent, item, pos)
	return item
}

// AddFuelPump attaches a fuel pump to parent.
func (m *Map) AddFuelPump(parent *Prefab, pos codec.Vec3) *FuelPump {
	item := &FuelPump{ItemHeader: newHeader(m.uids.Next())}
	m.attachSlave(parent, item, pos)
	return item
}

// AddGarage attaches a garage to parent.
func (m *Map) AddGarage(parent *Prefab, pos codec.Vec3, city token.Token, buildingType uint32) *Garage {
	item := &Garage{ItemHeader: newHeader(m.uids.Next()), City: city, BuildingType: buildingType}
	m.attachSlave(parent, item, pos)
	return item
}

// AddMapArea creates a map area polygon. The first node is red and every
// node links forward to the area.
func (m *Map) AddMapArea(positions []codec.Vec3, t MapAreaType, color MapAreaColor) (*MapArea, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("scsmap: Map.AddMapArea: %w", errNoPositions)
	}
	item := &MapArea{ItemHeader: newHeader(m.uids.Next()), Color: color}
	item.SetType(t)
	item.Nodes = m.addItemNodes(item, positions)
	return item, nil
}

// AddTrafficArea creates a traffic area polygon applying rule.
func (m *Map) AddTrafficArea(positions []codec.Vec3, rule token.Token, rng float32) (*TrafficArea, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("scsmap: Map.AddTrafficArea: %w", errNoPositions)
	}
	item := &TrafficArea{ItemHeader: newHeader(m.uids.Next()), Rule: rule, Range: rng}
	item.Nodes = m.addItemNodes(item, positions)
	return item, nil
}

// AddTrigger creates a trigger polygon running actions.
func (m *Map) AddTrigger(positions []codec.Vec3, actions ...TriggerAction) (*Trigger, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("scsmap: Map.AddTrigger: %w", errNoPositions)
	}
	item := &Trigger{ItemHeader: newHeader(m.uids.Next()), Actions: actions}
	item.Nodes = m.addItemNodes(item, positions)
	return item, nil
}

// AddCutPlane creates a cut plane through positions. Each node links
// forward to the next one; the last node links to itself, is red and
// determines the sector the cut plane is stored in.
func (m *Map) AddCutPlane(positions []codec.Vec3, oneSideOnly bool) (*CutPlane, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("scsmap: Map.AddCutPlane: %w", errNoPositions)
	}
	item := &CutPlane{ItemHeader: newHeader(m.uids.Next())}
	item.SetOneSideOnly(oneSideOnly)
	nodes := make([]*Node, len(positions))
	for i, pos := range positions {
		nodes[i] = m.AddNode(pos)
	}
	for i, n := range nodes {
		if i == len(nodes)-1 {
			n.ForwardItem = RefTo[Object](n)
			n.SetRed(true)
		} else {
			n.ForwardItem = RefTo[Object](nodes[i+1])
		}
		item.Nodes = append(item.Nodes, RefTo(n))
	}
	m.AddItem(item, nodes[len(nodes)-1])
	return item, nil
}

// Append adds a node at pos to the end of a polygon item or cut plane.
//
// Postcondition: on a cut plane the previous last node links forward to the
// new node, which links to itself; on other kinds the new node links forward
// to the item. Returns an error for kinds without a node polygon.
func (m *Map) Append(item MapItem, pos codec.Vec3) (*Node, error) {
	poly, ok := item.(polygonItem)
	if !ok {
		return nil, fmt.Errorf("scsmap: Map.Append: %s items have no node polygon", item.Kind())
	}
	nodes := poly.nodeList()
	n := m.AddNode(pos)
	if _, isCut := item.(*CutPlane); isCut {
		n.ForwardItem = RefTo[Object](n)
		if len(*nodes) > 0 {
			if last, ok := (*nodes)[len(*nodes)-1].Get(); ok {
				last.ForwardItem = RefTo[Object](n)
			}
		}
	} else {
		n.ForwardItem = RefTo[Object](item)
	}
	*nodes = append(*nodes, RefTo(n))
	return n, nil
}
