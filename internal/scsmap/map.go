// Package scsmap models the map graph of the truck-simulation sector format:
// nodes, the closed family of map item kinds, sector files and the two-phase
// reference resolution that turns UID placeholders into live links.
//
// Sectors decode independently (Phase 1, see DecodeSector). Once every
// sector of interest has been added to a Map, Map.Resolve (Phase 2) indexes
// all nodes and items and replaces placeholders whose UID is present.
package scsmap

import (
	"fmt"
	"maps"
	"slices"

	"github.com/cory-johannsen/scsmap/internal/uid"
)

// Map is the arena owning every sector, node and item of a map. It is not
// safe for concurrent use.
type Map struct {
	// Name is the map's name, used as the directory stem when saving.
	Name string

	sectors  map[SectorCoord]*Sector
	nodes    map[uint64]*Node
	items    map[uint64]MapItem
	uids     *uid.Generator
	registry *Registry
}

// Option configures a Map.
type Option func(*Map)

// WithUIDGenerator sets the generator used for constructed nodes and items.
func WithUIDGenerator(g *uid.Generator) Option {
	return func(m *Map) { m.uids = g }
}

// WithRegistry sets the registry used by CloneItem.
func WithRegistry(r *Registry) Option {
	return func(m *Map) { m.registry = r }
}

// New returns an empty map.
//
// Postcondition: the map uses uid.Default and DefaultRegistry unless
// overridden by opts.
func New(name string, opts ...Option) *Map {
	m := &Map{
		Name:     name,
		sectors:  make(map[SectorCoord]*Sector),
		nodes:    make(map[uint64]*Node),
		items:    make(map[uint64]MapItem),
		uids:     uid.Default(),
		registry: DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the registry the map was built with.
func (m *Map) Registry() *Registry { return m.registry }

// AddSector adds a decoded sector. Its contents become visible to Node and
// Item lookups after the next Resolve.
//
// Postcondition: returns an error if a sector with the same coordinate is
// already present.
func (m *Map) AddSector(s *Sector) error {
	if _, exists := m.sectors[s.Coord]; exists {
		return fmt.Errorf("scsmap: Map.AddSector: duplicate sector %s", s.Coord)
	}
	m.sectors[s.Coord] = s
	return nil
}

// Sector returns the sector at c.
func (m *Map) Sector(c SectorCoord) (*Sector, bool) {
	s, ok := m.sectors[c]
	return s, ok
}

// Sectors returns all sectors ordered by coordinate.
func (m *Map) Sectors() []*Sector {
	coords := slices.SortedFunc(maps.Keys(m.sectors), SectorCoord.Compare)
	out := make([]*Sector, len(coords))
	for i, c := range coords {
		out[i] = m.sectors[c]
	}
	return out
}

// Node returns the node with the given UID.
func (m *Map) Node(id uint64) (*Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// Item returns the item with the given UID.
func (m *Map) Item(id uint64) (MapItem, bool) {
	item, ok := m.items[id]
	return item, ok
}

// NodeCount returns the number of indexed nodes.
func (m *Map) NodeCount() int { return len(m.nodes) }

// ItemCount returns the number of indexed items.
func (m *Map) ItemCount() int { return len(m.items) }

// Nodes returns every indexed node ordered by UID.
func (m *Map) Nodes() []*Node {
	ids := slices.Sorted(maps.Keys(m.nodes))
	out := make([]*Node, len(ids))
	for i, id := range ids {
		out[i] = m.nodes[id]
	}
	return out
}

// Items returns every indexed item ordered by UID.
func (m *Map) Items() []MapItem {
	ids := slices.Sorted(maps.Keys(m.items))
	out := make([]MapItem, len(ids))
	for i, id := range ids {
		out[i] = m.items[id]
	}
	return out
}

// ItemSector returns the sector that stores item.
func (m *Map) ItemSector(item MapItem) (*Sector, bool) {
	for _, s := range m.Sectors() {
		if slices.Contains(s.Items, item) {
			return s, true
		}
	}
	return nil, false
}

func (m *Map) ensureSector(c SectorCoord) *Sector {
	s, ok := m.sectors[c]
	if !ok {
		s = NewSector(c)
		m.sectors[c] = s
	}
	return s
}
