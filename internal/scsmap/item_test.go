package scsmap

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/scsmap/internal/codec"
	"github.com/cory-johannsen/scsmap/internal/maperr"
	"github.com/cory-johannsen/scsmap/internal/token"
)

func tok(s string) token.Token { return token.MustParse(s) }

func nodeRefs(ids ...uint64) []Ref[*Node] {
	out := make([]Ref[*Node], len(ids))
	for i, id := range ids {
		out[i] = Unresolved[*Node](id)
	}
	return out
}

func header(id uint64) ItemHeader {
	h := newHeader(id)
	h.Flags.SetByte(0, 0x5A)
	return h
}

// sampleItems returns one populated item of every kind with placeholder
// references.
func sampleItems() []MapItem {
	slave := func(node, prefab uint64) SlaveLink {
		return SlaveLink{Node: Unresolved[*Node](node), PrefabLink: Unresolved[MapItem](prefab)}
	}
	return []MapItem{
		&Prefab{
			ItemHeader:      header(0x10),
			Model:           tok("dlc_fr_1"),
			Variant:         tok("default"),
			Look:            tok("summer"),
			AdditionalParts: []token.Token{tok("part_a"), tok("part_b")},
			Nodes:           nodeRefs(1, 2, 3),
			SlaveItems:      []Ref[MapItem]{Unresolved[MapItem](0x11)},
			FerryLink:       Unresolved[MapItem](0x99),
			Origin:          2,
		},
		&Model{
			ItemHeader:      header(0x20),
			Model:           tok("tree_01"),
			Look:            tok("default"),
			Variant:         tok("v1"),
			Node:            Unresolved[*Node](4),
			Scale:           codec.Vec3{X: 1, Y: 2, Z: 0.5},
			TerrainMaterial: tok("grass"),
			TerrainColor:    codec.Color{R: 1, G: 2, B: 3, A: 4},
		},
		&Company{
			ItemHeader:         header(0x11),
			SlaveLink:          slave(5, 0x10),
			Company:            tok("tradeaux"),
			City:               tok("paris"),
			UnloadPointsEasy:   nodeRefs(6),
			UnloadPointsMedium: nodeRefs(7, 8),
			TrailerSpawnPoints: nodeRefs(9),
		},
		&Service{ItemHeader: header(0x12), SlaveLink: slave(10, 0x10), Nodes: nodeRefs(11)},
		&CutPlane{ItemHeader: header(0x30), Nodes: nodeRefs(12, 13)},
		&Mover{
			ItemHeader: header(0x31),
			Tags:       []token.Token{tok("ferry")},
			Model:      tok("boat"),
			Look:       tok("white"),
			Speed:      5,
			DelayAtEnd: 10,
			Width:      2.5,
			Count:      3,
			Lengths:    []float32{1, 2, 3},
			Nodes:      nodeRefs(14, 15),
		},
		&City{ItemHeader: header(0x32), City: tok("berlin"), Width: 800, Height: 600, Node: Unresolved[*Node](16)},
		&Hinge{ItemHeader: header(0x33), Model: tok("gate"), Variant: tok("left"), Node: Unresolved[*Node](17), MinRotation: -1, MaxRotation: 1},
		&Garage{ItemHeader: header(0x13), SlaveLink: slave(18, 0x10), City: tok("lyon"), BuildingType: 2, TrailerSpawnPoints: nodeRefs(19)},
		&Trigger{
			ItemHeader: header(0x34),
			Tags:       []token.Token{tok("t")},
			Nodes:      nodeRefs(20, 21, 22),
			Actions: []TriggerAction{
				{Name: tok("hud_parking"), Bare: true},
				{
					Name:         tok("show_msg"),
					NumParams:    []float32{1.5},
					StringParams: []string{"hello", ""},
					TargetTags:   []token.Token{tok("x")},
					TargetRange:  50,
				},
			},
			Range:         10,
			ResetDelay:    1,
			ResetDistance: 2,
			MinSpeed:      3,
			MaxSpeed:      4,
		},
		&FuelPump{ItemHeader: header(0x14), SlaveLink: slave(23, 0x10)},
		&Sign{
			ItemHeader: header(0x35),
			Model:      tok("sign_a"),
			Node:       Unresolved[*Node](24),
			Boards:     [SignBoardCount]SignBoard{{Road: tok("a1"), City1: tok("paris")}},
			Template:   "road_sign_template",
			Overrides: []SignOverride{{
				ID:   3,
				Area: tok("area"),
				Attributes: []SignAttribute{
					{Type: AttrInt8, Index: 0, Int: -3},
					{Type: AttrInt32, Index: 1, Int: -100000},
					{Type: AttrUint32, Index: 2, Uint: 4000000000},
					{Type: AttrFloat32, Index: 3, Float: 0.25},
					{Type: AttrString, Index: 4, Text: "A6"},
					{Type: AttrToken, Index: 5, Token: tok("blue")},
					{Type: AttrUint64, Index: 6, Uint: 1 << 40},
				},
			}},
			file: Aux,
		},
		&BusStop{ItemHeader: header(0x15), SlaveLink: slave(25, 0x10), City: tok("rome")},
		&TrafficArea{ItemHeader: header(0x36), Tags: []token.Token{tok("a")}, Nodes: nodeRefs(26, 27), Rule: tok("no_parking"), Range: 12},
		&MapArea{ItemHeader: header(0x37), Nodes: nodeRefs(28, 29, 30), Color: MapAreaGreen},
	}
}

func encodeItem(t testing.TB, reg *Registry, item MapItem) []byte {
	t.Helper()
	w := codec.NewWriter()
	require.NoError(t, reg.Encode(w, item))
	return w.Bytes()
}

func TestRegistry_AllKindsRoundTrip(t *testing.T) {
	reg := DefaultRegistry()
	items := sampleItems()
	require.Len(t, items, len(reg.Kinds()))

	for _, item := range items {
		t.Run(item.Kind().String(), func(t *testing.T) {
			data := encodeItem(t, reg, item)
			r := codec.NewReader(data)
			got, err := reg.Decode(uint32(item.Kind()), r)
			require.NoError(t, err)
			assert.Zero(t, r.Len())
			assert.Equal(t, item.Kind(), got.Kind())
			assert.Equal(t, item.UID(), got.UID())
			assert.Equal(t, item.Header().Flags, got.Header().Flags)
			assert.Equal(t, item.Header().Bounds, got.Header().Bounds)
			assert.Equal(t, item.File(), got.File())
			assert.Equal(t, data, encodeItem(t, reg, got))
		})
	}
}

func TestRegistry_Kinds(t *testing.T) {
	kinds := DefaultRegistry().Kinds()
	assert.Len(t, kinds, 15)
	assert.Equal(t, TypePrefab, kinds[0])
	assert.Equal(t, TypeMapArea, kinds[len(kinds)-1])
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	registerKind(reg, func() *City { return &City{} })
	err := reg.Register(TypeCity, kindCodec(func() *City { return &City{} }))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_UnknownTag(t *testing.T) {
	r := codec.NewReader([]byte{0xFF, 0, 0, 0, 1, 2, 3})
	tag := r.U32()
	_, err := DefaultRegistry().Decode(tag, r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, maperr.ErrUnsupportedItemType))
	var ute *maperr.UnsupportedItemTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, uint32(0xFF), ute.Tag)
	assert.Equal(t, 0, ute.Offset)
}

func TestRegistry_EncodeUnregisteredKind(t *testing.T) {
	reg := NewRegistry()
	err := reg.Encode(codec.NewWriter(), &City{})
	assert.True(t, errors.Is(err, maperr.ErrUnsupportedItemType))
}

func TestRegistry_DecodeTruncated(t *testing.T) {
	reg := DefaultRegistry()
	for _, item := range sampleItems() {
		data := encodeItem(t, reg, item)
		_, err := reg.Decode(uint32(item.Kind()), codec.NewReader(data[:len(data)-1]))
		assert.True(t, errors.Is(err, maperr.ErrFormat), "%s: %v", item.Kind(), err)
	}
}

func TestItemHeader_ViewDistance(t *testing.T) {
	h := newHeader(1)
	assert.Equal(t, ViewDistanceClose, h.ViewDistance())

	require.NoError(t, h.SetViewDistance(2550))
	assert.Equal(t, uint16(2550), h.ViewDistance())

	err := h.SetViewDistance(2551)
	assert.True(t, errors.Is(err, maperr.ErrRange))
	assert.Equal(t, uint16(2550), h.ViewDistance())

	require.NoError(t, h.SetViewDistance(957))
	assert.Equal(t, uint16(950), h.ViewDistance())
}

func TestItemHeader_ViewDistanceEncoding(t *testing.T) {
	item := &City{ItemHeader: newHeader(5)}
	require.NoError(t, item.SetViewDistance(ViewDistanceFar))
	data := encodeItem(t, DefaultRegistry(), item)
	assert.Equal(t, uint8(140), data[headerSize-1])

	got, err := DefaultRegistry().Decode(uint32(TypeCity), codec.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, ViewDistanceFar, got.Header().ViewDistance())
}

func TestNewHeader_PlaceholderBounds(t *testing.T) {
	h := newHeader(1)
	assert.Equal(t, [5]float32{1, 1, 1, 0, 0}, h.Bounds.Min)
	assert.Equal(t, [5]float32{2, 2, 2, 0, 0}, h.Bounds.Max)
}

func TestTriggerAction_BareMarker(t *testing.T) {
	w := codec.NewWriter()
	writeTriggerAction(w, TriggerAction{Name: tok("a"), Bare: true})
	assert.Equal(t, 12, w.Len())
	r := codec.NewReader(w.Bytes())
	assert.Equal(t, tok("a"), r.Token())
	assert.Equal(t, uint32(0xFFFFFFFF), r.U32())

	got := readTriggerAction(codec.NewReader(w.Bytes()))
	assert.True(t, got.Bare)
	assert.Empty(t, got.NumParams)
}

func TestTriggerAction_BareWithParamsWritesFullRecord(t *testing.T) {
	w := codec.NewWriter()
	writeTriggerAction(w, TriggerAction{Name: tok("a"), Bare: true, NumParams: []float32{1}})
	got := readTriggerAction(codec.NewReader(w.Bytes()))
	assert.False(t, got.Bare)
	assert.Equal(t, []float32{1}, got.NumParams)
}

func TestTriggerAction_EmptyRecordIsNotBare(t *testing.T) {
	w := codec.NewWriter()
	writeTriggerAction(w, TriggerAction{Name: tok("a")})
	assert.Equal(t, 8+4+4+4+4+4, w.Len())
	got := readTriggerAction(codec.NewReader(w.Bytes()))
	assert.False(t, got.Bare)
}

func TestTriggerAction_Type(t *testing.T) {
	var a TriggerAction
	a.Flags.SetBit(8, true)
	require.NoError(t, a.SetType(ActionMandatory))
	assert.Equal(t, ActionMandatory, a.Type())
	assert.True(t, a.Flags.Bit(8))

	err := a.SetType(16)
	assert.True(t, errors.Is(err, maperr.ErrRange))
	assert.Equal(t, ActionMandatory, a.Type())
}

func TestSign_NoTemplateOmitsOverrides(t *testing.T) {
	s := &Sign{ItemHeader: newHeader(1), Overrides: []SignOverride{{ID: 1}}, file: Aux}
	data := encodeItem(t, DefaultRegistry(), s)
	assert.Equal(t, headerSize+8+8+SignBoardCount*24+8, len(data))

	got, err := DefaultRegistry().Decode(uint32(TypeSign), codec.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, got.(*Sign).Overrides)
}

func TestSign_InvalidAttributeType(t *testing.T) {
	s := &Sign{
		ItemHeader: newHeader(1),
		Template:   "t",
		Overrides:  []SignOverride{{Attributes: []SignAttribute{{Type: 9}}}},
	}
	err := DefaultRegistry().Encode(codec.NewWriter(), s)
	assert.True(t, errors.Is(err, maperr.ErrRange))
}

func TestSign_UnknownAttributeTypeOnDecode(t *testing.T) {
	w := codec.NewWriter()
	w.U16(9)
	w.U32(0)
	w.U64(0)
	r := codec.NewReader(w.Bytes())
	readSignAttribute(r)
	assert.True(t, errors.Is(r.Err(), maperr.ErrFormat))
}

func TestSign_FileIsCallerChosen(t *testing.T) {
	s := &Sign{}
	assert.Equal(t, Aux, s.File())
	s.SetFile(Base)
	assert.Equal(t, Base, s.File())
	s.SetFile(Aux)
	assert.Equal(t, Aux, s.File())
}

func TestSign_LiteralIsStoredInAux(t *testing.T) {
	m := newTestMap()
	n := m.AddNode(codec.Vec3{X: 1})
	sign := &Sign{ItemHeader: newHeader(m.uids.Next()), Model: tok("s"), Node: RefTo(n)}
	n.ForwardItem = RefTo[Object](sign)
	m.AddItem(sign, n)

	s, ok := m.Sector(SectorCoord{})
	require.True(t, ok)
	base, aux, err := EncodeSector(s, m.Registry())
	require.NoError(t, err)
	decoded, err := DecodeSector(s.Coord, base, aux, DefaultRegistry())
	require.NoError(t, err)
	require.Len(t, decoded.Items, 1)
	assert.Equal(t, Aux, decoded.Items[0].File())
}

func TestSign_Int8AttributeOutOfRange(t *testing.T) {
	for _, v := range []int32{math.MinInt8 - 1, math.MaxInt8 + 1, 1000} {
		s := &Sign{
			ItemHeader: newHeader(1),
			Template:   "t",
			Overrides:  []SignOverride{{Attributes: []SignAttribute{{Type: AttrInt8, Int: v}}}},
		}
		err := DefaultRegistry().Encode(codec.NewWriter(), s)
		assert.True(t, errors.Is(err, maperr.ErrRange), "%d: %v", v, err)
	}

	for _, v := range []int32{math.MinInt8, math.MaxInt8} {
		s := &Sign{
			ItemHeader: newHeader(1),
			Template:   "t",
			Overrides:  []SignOverride{{Attributes: []SignAttribute{{Type: AttrInt8, Int: v}}}},
		}
		w := codec.NewWriter()
		require.NoError(t, DefaultRegistry().Encode(w, s))
		got, err := DefaultRegistry().Decode(uint32(TypeSign), codec.NewReader(w.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, v, got.(*Sign).Overrides[0].Attributes[0].Int)
	}
}

func TestModel_FlagAccessors(t *testing.T) {
	m := &Model{}
	m.SetLeftHandTraffic(true)
	m.SetNoShadows(true)
	require.NoError(t, m.SetColorVariant(15))
	require.NoError(t, m.SetStaticLOD(2))
	assert.True(t, m.LeftHandTraffic())
	assert.True(t, m.NoShadows())
	assert.False(t, m.NoMirror())
	assert.Equal(t, uint8(15), m.ColorVariant())
	assert.Equal(t, uint8(2), m.StaticLOD())
	assert.Equal(t, uint32(1|2<<4|15<<8|1<<14), m.Flags.Uint32())

	assert.True(t, errors.Is(m.SetColorVariant(16), maperr.ErrRange))
	assert.True(t, errors.Is(m.SetStaticLOD(4), maperr.ErrRange))
	assert.Equal(t, uint8(15), m.ColorVariant())
	assert.Equal(t, uint8(2), m.StaticLOD())

	require.NoError(t, m.SetColorVariant(1))
	assert.Equal(t, uint8(1), m.ColorVariant())
}

func TestMapArea_TypeAndFlags(t *testing.T) {
	a := &MapArea{}
	a.SetType(MapAreaNavigation)
	a.SetDrawOutline(true)
	a.SetDlcGuard(7)
	assert.Equal(t, MapAreaNavigation, a.Type())
	assert.True(t, a.DrawOutline())
	assert.False(t, a.DrawOver())
	assert.Equal(t, uint8(7), a.DlcGuard())
	assert.Equal(t, uint32(1<<1|1<<3|7<<8), a.Flags.Uint32())

	a.SetType(MapAreaVisual)
	assert.Equal(t, MapAreaVisual, a.Type())
}

func TestService_Type(t *testing.T) {
	s := &Service{}
	s.Flags.SetBit(31, true)
	s.SetServiceType(ServiceParking)
	assert.Equal(t, ServiceParking, s.ServiceType())
	assert.True(t, s.Flags.Bit(31))
}

func TestItemType_String(t *testing.T) {
	assert.Equal(t, "map_area", TypeMapArea.String())
	assert.Equal(t, "item_type(99)", ItemType(99).String())
}
