package scsmap

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/scsmap/internal/codec"
	"github.com/cory-johannsen/scsmap/internal/maperr"
)

func coords(files map[SectorCoord]sectorFiles) []SectorCoord {
	return slices.SortedFunc(maps.Keys(files), SectorCoord.Compare)
}

func TestResolve_TwoNodePolygon(t *testing.T) {
	src := newTestMap()
	area, err := src.AddMapArea([]codec.Vec3{{X: 0, Z: 0}, {X: 10, Z: 0}}, MapAreaVisual, MapAreaRoad)
	require.NoError(t, err)
	src1, ok := area.Nodes[0].Get()
	require.True(t, ok)
	src2, ok := area.Nodes[1].Get()
	require.True(t, ok)
	files := encodeMap(t, src)

	m := decodeMap(t, files, coords(files))
	rep := m.Resolve()
	require.NoError(t, rep.Err())
	assert.Equal(t, 4, rep.Resolved)
	assert.Zero(t, rep.Merged)

	item, ok := m.Item(area.UID())
	require.True(t, ok)
	got := item.(*MapArea)
	require.Len(t, got.Nodes, 2)

	n1, ok := got.Nodes[0].Get()
	require.True(t, ok)
	n2, ok := got.Nodes[1].Get()
	require.True(t, ok)
	assert.True(t, n1.IsRed())
	assert.False(t, n2.IsRed())
	assert.Equal(t, codec.Vec3{X: 0, Z: 0}, n1.Position)
	assert.Equal(t, codec.Vec3{X: 10, Z: 0}, n2.Position)
	assert.Equal(t, src1.Flags.Uint32(), n1.Flags.Uint32())
	assert.Equal(t, src2.Flags.Uint32(), n2.Flags.Uint32())
	assert.Equal(t, src1.UID(), n1.UID())
	assert.Equal(t, src2.UID(), n2.UID())

	for _, n := range []*Node{n1, n2} {
		fwd, ok := n.ForwardItem.Get()
		require.True(t, ok)
		assert.Same(t, got, fwd)
		assert.True(t, n.BackwardItem.IsNull())
	}
}

func TestResolve_DanglingForwardReference(t *testing.T) {
	m := newTestMap()
	s := NewSector(SectorCoord{})
	n := NewNode(1, codec.Vec3{})
	n.addSector(s.Coord)
	n.ForwardItem = Unresolved[Object](0xDEAD)
	s.Nodes = append(s.Nodes, n)
	require.NoError(t, m.AddSector(s))

	rep := m.Resolve()
	require.Len(t, rep.Unresolved, 1)
	u := rep.Unresolved[0]
	assert.Equal(t, uint64(1), u.Owner)
	assert.Equal(t, "node", u.OwnerKind)
	assert.Equal(t, "forward_item", u.Field)
	assert.Equal(t, uint64(0xDEAD), u.Target)
	assert.False(t, n.ForwardItem.Resolved())
	assert.Equal(t, uint64(0xDEAD), n.ForwardItem.UID())

	err := rep.Err()
	assert.True(t, errors.Is(err, maperr.ErrUnresolvedReference))
	var ure *maperr.UnresolvedReferenceError
	require.True(t, errors.As(err, &ure))
	assert.Equal(t, uint64(0xDEAD), ure.Target)
}

func TestResolve_DanglingItemListEntry(t *testing.T) {
	m := newTestMap()
	s := NewSector(SectorCoord{})
	s.Items = append(s.Items, &MapArea{ItemHeader: newHeader(9), Nodes: nodeRefs(0, 5)})
	require.NoError(t, m.AddSector(s))

	rep := m.Resolve()
	require.Len(t, rep.Unresolved, 1)
	assert.Equal(t, "map_area", rep.Unresolved[0].OwnerKind)
	assert.Equal(t, "nodes[1]", rep.Unresolved[0].Field)
}

func TestResolve_Idempotent(t *testing.T) {
	src := newTestMap()
	prefab, err := src.AddPrefab(tok("p"), tok("v"), []codec.Vec3{{X: 1}, {X: 4100}})
	require.NoError(t, err)
	src.AddCompany(prefab, codec.Vec3{X: 2}, tok("c"), tok("city"))
	_, err = src.AddCutPlane([]codec.Vec3{{Z: 1}, {Z: 2}, {Z: 3}}, false)
	require.NoError(t, err)
	files := encodeMap(t, src)

	m := decodeMap(t, files, coords(files))
	first := m.Resolve()
	require.NoError(t, first.Err())
	require.Positive(t, first.Resolved)

	before := make(map[uint64][]Object)
	for _, item := range m.Items() {
		before[item.UID()] = liveTargets(item)
	}

	second := m.Resolve()
	assert.Zero(t, second.Resolved)
	assert.Zero(t, second.Merged)
	assert.Empty(t, second.Unresolved)
	for _, item := range m.Items() {
		after := liveTargets(item)
		require.Len(t, after, len(before[item.UID()]))
		for i := range after {
			assert.Same(t, before[item.UID()][i], after[i])
		}
	}
}

func liveTargets(item MapItem) []Object {
	var out []Object
	item.refs(&refVisitor{
		node: func(_ string, _ int, r *Ref[*Node]) {
			if n, ok := r.Get(); ok {
				out = append(out, n)
			}
		},
		item: func(_ string, _ int, r *Ref[MapItem]) {
			if it, ok := r.Get(); ok {
				out = append(out, it)
			}
		},
	})
	return out
}

func TestRef_ResolveLiveIsNoop(t *testing.T) {
	a := NewNode(1, codec.Vec3{})
	b := NewNode(1, codec.Vec3{X: 5})
	r := RefTo(a)
	changed := r.resolve(func(uint64) (*Node, bool) { return b, true })
	assert.False(t, changed)
	got, _ := r.Get()
	assert.Same(t, a, got)

	null := Unresolved[*Node](0)
	assert.True(t, null.IsNull())
	assert.False(t, null.resolve(func(uint64) (*Node, bool) { return b, true }))
}

func TestResolve_MergesDuplicateNodes(t *testing.T) {
	src := newTestMap()
	area, err := src.AddMapArea([]codec.Vec3{{X: 1}, {X: 4001}}, MapAreaVisual, MapAreaRoad)
	require.NoError(t, err)
	shared, _ := area.Nodes[1].Get()
	first := src.sectors[SectorCoord{}]
	first.Nodes = append(first.Nodes, shared)
	files := encodeMap(t, src)
	require.Len(t, files, 2)

	m := decodeMap(t, files, []SectorCoord{{X: 1}, {}})
	rep := m.Resolve()
	require.NoError(t, rep.Err())
	assert.Equal(t, 1, rep.Merged)

	n, ok := m.Node(shared.UID())
	require.True(t, ok)
	assert.ElementsMatch(t, []SectorCoord{{}, {X: 1}}, n.Sectors())
	s0, _ := m.Sector(SectorCoord{})
	s1, _ := m.Sector(SectorCoord{X: 1})
	assert.Contains(t, s0.Nodes, n)
	assert.Contains(t, s1.Nodes, n)

	item, _ := m.Item(area.UID())
	got, _ := item.(*MapArea).Nodes[1].Get()
	assert.Same(t, n, got)
}

func TestResolve_DuplicateItemsReported(t *testing.T) {
	m := newTestMap()
	a := NewSector(SectorCoord{})
	b := NewSector(SectorCoord{X: 1})
	a.Items = append(a.Items, &City{ItemHeader: newHeader(3)})
	b.Items = append(b.Items, &City{ItemHeader: newHeader(3)})
	require.NoError(t, m.AddSector(b))
	require.NoError(t, m.AddSector(a))

	rep := m.Resolve()
	assert.Equal(t, []uint64{3}, rep.DuplicateItems)
	item, _ := m.Item(3)
	assert.Same(t, a.Items[0], item)
}

func TestMap_AddSectorDuplicate(t *testing.T) {
	m := newTestMap()
	require.NoError(t, m.AddSector(NewSector(SectorCoord{})))
	assert.Error(t, m.AddSector(NewSector(SectorCoord{})))
}

// graphSignature captures everything resolution decides, independent of
// object identity.
func graphSignature(m *Map) []string {
	var out []string
	for _, item := range m.Items() {
		item.refs(&refVisitor{
			node: func(field string, idx int, r *Ref[*Node]) {
				out = append(out, fmt.Sprintf("%x.%s=%x/%v", item.UID(), fieldName(field, idx), r.UID(), r.Resolved()))
			},
			item: func(field string, idx int, r *Ref[MapItem]) {
				out = append(out, fmt.Sprintf("%x.%s=%x/%v", item.UID(), fieldName(field, idx), r.UID(), r.Resolved()))
			},
		})
	}
	for _, n := range m.Nodes() {
		secs := n.Sectors()
		slices.SortFunc(secs, SectorCoord.Compare)
		out = append(out, fmt.Sprintf("%x fwd=%x/%v bwd=%x/%v sectors=%v",
			n.UID(), n.ForwardItem.UID(), n.ForwardItem.Resolved(),
			n.BackwardItem.UID(), n.BackwardItem.Resolved(), secs))
	}
	return out
}

func TestProperty_ResolveConverges(t *testing.T) {
	src := newTestMap()
	prefab, err := src.AddPrefab(tok("p"), tok("v"), []codec.Vec3{{X: 1}, {X: 4001}, {X: -3999}})
	require.NoError(t, err)
	src.AddFuelPump(prefab, codec.Vec3{X: 8001})
	src.AddBusStop(prefab, codec.Vec3{Z: 4001}, tok("rome"))
	_, err = src.AddTrigger([]codec.Vec3{{X: 2}, {X: 4002, Z: 4002}, {X: -2, Z: -2}})
	require.NoError(t, err)
	_, err = src.AddCutPlane([]codec.Vec3{{X: 5}, {X: 4005}}, true)
	require.NoError(t, err)
	model := src.AddModel(codec.Vec3{X: 12001}, codec.Identity, tok("m"), tok("v"), tok("l"))
	model.Node = Unresolved[*Node](0xABCDEF)
	shared, _ := prefab.Nodes[1].Get()
	origin := src.sectors[SectorCoord{}]
	origin.Nodes = append(origin.Nodes, shared)

	files := encodeMap(t, src)
	sorted := coords(files)
	reference := decodeMap(t, files, sorted)
	want := reference.Resolve()
	wantSig := graphSignature(reference)
	require.Len(t, want.Unresolved, 1)

	rapid.Check(t, func(rt *rapid.T) {
		order := rapid.Permutation(sorted).Draw(rt, "order")
		m := decodeMap(rt, files, order)
		got := m.Resolve()
		assert.Equal(rt, want.Resolved, got.Resolved)
		assert.Equal(rt, want.Merged, got.Merged)
		assert.Equal(rt, want.Unresolved, got.Unresolved)
		assert.Equal(rt, wantSig, graphSignature(m))
	})
}
