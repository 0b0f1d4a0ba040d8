package scsmap

import (
	"github.com/cory-johannsen/scsmap/internal/codec"
	"github.com/cory-johannsen/scsmap/internal/token"
)

// Flag layout shared by prefabs and several other kinds.
const (
	dlcGuardByte    = 1
	slaveFlagBit    = 31
	serviceTypeByte = 0
)

// Prefab is a pre-built road or area piece placed through its control nodes.
// Prefab slave items (companies, services, bus stops, fuel pumps, garages)
// link back to it and are listed in SlaveItems.
type Prefab struct {
	ItemHeader
	Model           token.Token
	Variant         token.Token
	Look            token.Token
	AdditionalParts []token.Token
	Nodes           []Ref[*Node]
	SlaveItems      []Ref[MapItem]
	FerryLink       Ref[MapItem]
	// Origin is the index of the control node the prefab is anchored on.
	Origin uint16
}

func (*Prefab) Kind() ItemType { return TypePrefab }
func (*Prefab) File() ItemFile { return Base }

// DlcGuard returns the DLC guard index; 0 means no guard.
func (p *Prefab) DlcGuard() uint8 { return p.Flags.Byte(dlcGuardByte) }

// SetDlcGuard sets the DLC guard index.
func (p *Prefab) SetDlcGuard(g uint8) { p.Flags.SetByte(dlcGuardByte, g) }

func (p *Prefab) refs(v *refVisitor) {
	v.visitNodes("nodes", p.Nodes)
	v.visitItems("slave_items", p.SlaveItems)
	v.visitItem("ferry_link", &p.FerryLink)
}

func (p *Prefab) decodePayload(r *codec.Reader) {
	p.Model = r.Token()
	p.Variant = r.Token()
	p.Look = r.Token()
	p.AdditionalParts = r.Tokens()
	p.Nodes = readNodeRefs(r)
	p.SlaveItems = readItemRefs(r)
	p.FerryLink = readItemRef(r)
	p.Origin = r.U16()
}

func (p *Prefab) encodePayload(w *codec.Writer) {
	w.Token(p.Model)
	w.Token(p.Variant)
	w.Token(p.Look)
	w.Tokens(p.AdditionalParts)
	writeNodeRefs(w, p.Nodes)
	writeItemRefs(w, p.SlaveItems)
	writeItemRef(w, p.FerryLink)
	w.U16(p.Origin)
}

// SlaveLink is embedded by items that belong to a prefab. Node is the item's
// own control node; PrefabLink points back at the owning prefab.
type SlaveLink struct {
	Node       Ref[*Node]
	PrefabLink Ref[MapItem]
}

func (s *SlaveLink) slave() *SlaveLink { return s }

// Parent returns the owning prefab once the link is resolved.
func (s *SlaveLink) Parent() (*Prefab, bool) {
	item, ok := s.PrefabLink.Get()
	if !ok {
		return nil, false
	}
	p, ok := item.(*Prefab)
	return p, ok
}

func (s *SlaveLink) refs(v *refVisitor) {
	v.visitNode("node", &s.Node)
	v.visitItem("prefab_link", &s.PrefabLink)
}

// IsPrefabSlave reports whether an item header carries the slave marker that
// every prefab slave kind sets on construction.
func IsPrefabSlave(item MapItem) bool { return item.Header().Flags.Bit(slaveFlagBit) }

// slaveItem is implemented by every prefab slave kind.
type slaveItem interface {
	payloadItem
	slave() *SlaveLink
}

// Company is a company depot attached to a prefab.
type Company struct {
	ItemHeader
	SlaveLink
	Company                token.Token
	City                   token.Token
	UnloadPointsEasy       []Ref[*Node]
	UnloadPointsMedium     []Ref[*Node]
	UnloadPointsHard       []Ref[*Node]
	TrailerSpawnPoints     []Ref[*Node]
	Unknown                []Ref[*Node]
	LongTrailerSpawnPoints []Ref[*Node]
}

func (*Company) Kind() ItemType { return TypeCompany }
func (*Company) File() ItemFile { return Base }

func (c *Company) refs(v *refVisitor) {
	c.SlaveLink.refs(v)
	v.visitNodes("unload_points_easy", c.UnloadPointsEasy)
	v.visitNodes("unload_points_medium", c.UnloadPointsMedium)
	v.visitNodes("unload_points_hard", c.UnloadPointsHard)
	v.visitNodes("trailer_spawn_points", c.TrailerSpawnPoints)
	v.visitNodes("unknown", c.Unknown)
	v.visitNodes("long_trailer_spawn_points", c.LongTrailerSpawnPoints)
}

func (c *Company) decodePayload(r *codec.Reader) {
	c.Company = r.Token()
	c.City = r.Token()
	c.PrefabLink = readItemRef(r)
	c.Node = readNodeRef(r)
	c.UnloadPointsEasy = readNodeRefs(r)
	c.UnloadPointsMedium = readNodeRefs(r)
	c.UnloadPointsHard = readNodeRefs(r)
	c.TrailerSpawnPoints = readNodeRefs(r)
	c.Unknown = readNodeRefs(r)
	c.LongTrailerSpawnPoints = readNodeRefs(r)
}

func (c *Company) encodePayload(w *codec.Writer) {
	w.Token(c.Company)
	w.Token(c.City)
	writeItemRef(w, c.PrefabLink)
	writeNodeRef(w, c.Node)
	writeNodeRefs(w, c.UnloadPointsEasy)
	writeNodeRefs(w, c.UnloadPointsMedium)
	writeNodeRefs(w, c.UnloadPointsHard)
	writeNodeRefs(w, c.TrailerSpawnPoints)
	writeNodeRefs(w, c.Unknown)
	writeNodeRefs(w, c.LongTrailerSpawnPoints)
}

// ServiceType identifies what a service point offers.
type ServiceType uint8

// Service types.
const (
	ServiceGasStation ServiceType = iota
	ServiceService
	ServiceGarage
	ServiceRecruitment
	ServiceParking
)

// Service is a service point (gas station, repair shop, parking) attached to
// a prefab.
type Service struct {
	ItemHeader
	SlaveLink
	Nodes []Ref[*Node]
}

func (*Service) Kind() ItemType { return TypeService }
func (*Service) File() ItemFile { return Base }

// ServiceType returns the service type held in flag byte 0.
func (s *Service) ServiceType() ServiceType { return ServiceType(s.Flags.Byte(serviceTypeByte)) }

// SetServiceType sets the service type.
func (s *Service) SetServiceType(t ServiceType) { s.Flags.SetByte(serviceTypeByte, uint8(t)) }

func (s *Service) refs(v *refVisitor) {
	s.SlaveLink.refs(v)
	v.visitNodes("nodes", s.Nodes)
}

func (s *Service) decodePayload(r *codec.Reader) {
	s.Node = readNodeRef(r)
	s.PrefabLink = readItemRef(r)
	s.Nodes = readNodeRefs(r)
}

func (s *Service) encodePayload(w *codec.Writer) {
	writeNodeRef(w, s.Node)
	writeItemRef(w, s.PrefabLink)
	writeNodeRefs(w, s.Nodes)
}

// BusStop is a bus stop attached to a prefab.
type BusStop struct {
	ItemHeader
	SlaveLink
	City token.Token
}

func (*BusStop) Kind() ItemType { return TypeBusStop }
func (*BusStop) File() ItemFile { return Base }

func (b *BusStop) decodePayload(r *codec.Reader) {
	b.City = r.Token()
	b.PrefabLink = readItemRef(r)
	b.Node = readNodeRef(r)
}

func (b *BusStop) encodePayload(w *codec.Writer) {
	w.Token(b.City)
	writeItemRef(w, b.PrefabLink)
	writeNodeRef(w, b.Node)
}

// FuelPump is a fuel pump attached to a prefab.
type FuelPump struct {
	ItemHeader
	SlaveLink
}

func (*FuelPump) Kind() ItemType { return TypeFuelPump }
func (*FuelPump) File() ItemFile { return Base }

func (f *FuelPump) decodePayload(r *codec.Reader) {
	f.Node = readNodeRef(r)
	f.PrefabLink = readItemRef(r)
}

func (f *FuelPump) encodePayload(w *codec.Writer) {
	writeNodeRef(w, f.Node)
	writeItemRef(w, f.PrefabLink)
}

// Garage is a purchasable garage attached to a prefab.
type Garage struct {
	ItemHeader
	SlaveLink
	City               token.Token
	BuildingType       uint32
	TrailerSpawnPoints []Ref[*Node]
}

func (*Garage) Kind() ItemType { return TypeGarage }
func (*Garage) File() ItemFile { return Base }

func (g *Garage) refs(v *refVisitor) {
	g.SlaveLink.refs(v)
	v.visitNodes("trailer_spawn_points", g.TrailerSpawnPoints)
}

func (g *Garage) decodePayload(r *codec.Reader) {
	g.City = r.Token()
	g.BuildingType = r.U32()
	g.PrefabLink = readItemRef(r)
	g.Node = readNodeRef(r)
	g.TrailerSpawnPoints = readNodeRefs(r)
}

func (g *Garage) encodePayload(w *codec.Writer) {
	w.Token(g.City)
	w.U32(g.BuildingType)
	writeItemRef(w, g.PrefabLink)
	writeNodeRef(w, g.Node)
	writeNodeRefs(w, g.TrailerSpawnPoints)
}
