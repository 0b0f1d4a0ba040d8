package scsmap

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/scsmap/internal/codec"
)

// CloneItem copies item through its binary codec and stores the copy with a
// fresh UID next to the original. The clone shares the original's nodes;
// its references are resolved against the current index.
//
// Postcondition: the clone is indexed and stored in the original's sector. A
// cloned prefab slave is appended to its prefab's slave list.
func (m *Map) CloneItem(item MapItem) (MapItem, error) {
	w := codec.NewWriter()
	if err := m.registry.Encode(w, item); err != nil {
		return nil, fmt.Errorf("scsmap: Map.CloneItem: %w", err)
	}
	clone, err := m.registry.Decode(uint32(item.Kind()), codec.NewReader(w.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("scsmap: Map.CloneItem: %w", err)
	}
	clone.Header().uid = m.uids.Next()
	if fs, ok := clone.(fileSetter); ok {
		fs.SetFile(item.File())
	}

	var rep Report
	m.resolveItem(clone, &rep)

	s, ok := m.ItemSector(item)
	if !ok {
		nodes := ItemNodes(clone)
		if len(nodes) == 0 {
			return nil, fmt.Errorf("scsmap: Map.CloneItem: %s %016x is not stored in this map", item.Kind(), item.UID())
		}
		s = m.ensureSector(SectorOf(nodes[0].Position))
	}
	s.Items = append(s.Items, clone)
	m.items[clone.UID()] = clone
	if slave, ok := clone.(slaveItem); ok {
		if parent, ok := slave.slave().Parent(); ok {
			parent.SlaveItems = append(parent.SlaveItems, RefTo[MapItem](clone))
		}
	}
	return clone, nil
}

// TranslateItem moves every live node of item by delta. Nodes shared with
// other items move for them too.
//
// Postcondition: a node that leaves its sector is listed in the sector of
// its new position only, and item is stored in the sector of its main node.
func (m *Map) TranslateItem(item MapItem, delta codec.Vec3) {
	nodes := ItemNodes(item)
	for _, n := range nodes {
		n.Position = n.Position.Add(delta)
		m.rehomeNode(n)
	}
	main, ok := mainNode(nodes)
	if !ok {
		return
	}
	from, ok := m.ItemSector(item)
	if !ok || main.InSector(from.Coord) {
		return
	}
	from.Items = slices.DeleteFunc(from.Items, func(it MapItem) bool { return it == item })
	to := m.ensureSector(main.sectors[0])
	to.Items = append(to.Items, item)
}

// rehomeNode moves n to the sector containing its position when it is not
// already listed there.
func (m *Map) rehomeNode(n *Node) {
	c := SectorOf(n.Position)
	if n.InSector(c) {
		return
	}
	for _, old := range n.sectors {
		if s, ok := m.sectors[old]; ok {
			s.Nodes = slices.DeleteFunc(s.Nodes, func(other *Node) bool { return other == n })
		}
	}
	n.sectors = []SectorCoord{c}
	s := m.ensureSector(c)
	s.Nodes = append(s.Nodes, n)
}

// mainNode returns the red node an item is stored with, or the first node
// when none is red.
func mainNode(nodes []*Node) (*Node, bool) {
	if len(nodes) == 0 {
		return nil, false
	}
	for _, n := range nodes {
		if n.IsRed() {
			return n, true
		}
	}
	return nodes[0], true
}

// RemoveItem deletes the item with the given UID from the index and from its
// sector. A prefab slave is also dropped from its prefab's slave list. Node
// links to it are nulled; other item references to it become placeholders
// again.
//
// Postcondition: returns an error if no such item is indexed.
func (m *Map) RemoveItem(id uint64) error {
	item, ok := m.items[id]
	if !ok {
		return fmt.Errorf("scsmap: Map.RemoveItem: unknown item %016x", id)
	}
	delete(m.items, id)
	for _, s := range m.sectors {
		s.Items = slices.DeleteFunc(s.Items, func(it MapItem) bool { return it == item })
	}
	if slave, ok := item.(slaveItem); ok {
		if parent, ok := slave.slave().Parent(); ok {
			parent.SlaveItems = slices.DeleteFunc(parent.SlaveItems, func(r Ref[MapItem]) bool { return r.pointsTo(id) })
		}
	}
	for _, n := range m.nodes {
		nullLink(&n.ForwardItem, id)
		nullLink(&n.BackwardItem, id)
	}
	demote := &refVisitor{item: func(_ string, _ int, r *Ref[MapItem]) {
		if r.pointsTo(id) {
			r.demote()
		}
	}}
	for _, other := range m.items {
		other.refs(demote)
	}
	return nil
}

// RemoveNode deletes the node with the given UID from the index and from
// every sector listing it. Node links to it are nulled; item references to
// it become placeholders again.
//
// Postcondition: returns an error if no such node is indexed.
func (m *Map) RemoveNode(id uint64) error {
	node, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("scsmap: Map.RemoveNode: unknown node %016x", id)
	}
	delete(m.nodes, id)
	for _, s := range m.sectors {
		s.Nodes = slices.DeleteFunc(s.Nodes, func(n *Node) bool { return n == node })
	}
	for _, n := range m.nodes {
		nullLink(&n.ForwardItem, id)
		nullLink(&n.BackwardItem, id)
	}
	demote := &refVisitor{node: func(_ string, _ int, r *Ref[*Node]) {
		if r.pointsTo(id) {
			r.demote()
		}
	}}
	for _, item := range m.items {
		item.refs(demote)
	}
	return nil
}

func nullLink(r *Ref[Object], id uint64) {
	if r.pointsTo(id) {
		*r = Ref[Object]{}
	}
}
