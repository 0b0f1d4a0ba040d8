package scsmap

import (
	"cmp"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/cory-johannsen/scsmap/internal/codec"
	"github.com/cory-johannsen/scsmap/internal/maperr"
	"github.com/cory-johannsen/scsmap/internal/token"
)

// SectorSize is the edge length of a sector in meters.
const SectorSize = 4000

// Header values written into new sectors.
const (
	DefaultCoreVersion    uint32 = 900
	DefaultGameMapVersion uint32 = 3
)

// DefaultGameID is the game identifier written into new sectors.
var DefaultGameID = token.MustParse("euro2")

// SectorCoord addresses a sector on the map grid.
type SectorCoord struct {
	X int32
	Z int32
}

// SectorOf returns the sector containing pos.
func SectorOf(pos codec.Vec3) SectorCoord {
	return SectorCoord{
		X: int32(math.Floor(float64(pos.X) / SectorSize)),
		Z: int32(math.Floor(float64(pos.Z) / SectorSize)),
	}
}

// String returns the sector's file stem, e.g. "sec+0001-0003".
func (c SectorCoord) String() string {
	return fmt.Sprintf("sec%+05d%+05d", c.X, c.Z)
}

// Compare orders sectors by X, then Z.
func (c SectorCoord) Compare(o SectorCoord) int {
	if c.X != o.X {
		return cmp.Compare(c.X, o.X)
	}
	return cmp.Compare(c.Z, o.Z)
}

var sectorNamePattern = regexp.MustCompile(`^sec([+-]\d{4})([+-]\d{4})$`)

// ParseSectorCoord parses a sector file stem such as "sec-0002+0010".
func ParseSectorCoord(stem string) (SectorCoord, error) {
	m := sectorNamePattern.FindStringSubmatch(stem)
	if m == nil {
		return SectorCoord{}, fmt.Errorf("scsmap: ParseSectorCoord: invalid sector name %q", stem)
	}
	x, err := strconv.ParseInt(m[1], 10, 32)
	if err != nil {
		return SectorCoord{}, fmt.Errorf("scsmap: ParseSectorCoord: %q: %w", stem, err)
	}
	z, err := strconv.ParseInt(m[2], 10, 32)
	if err != nil {
		return SectorCoord{}, fmt.Errorf("scsmap: ParseSectorCoord: %q: %w", stem, err)
	}
	return SectorCoord{X: int32(x), Z: int32(z)}, nil
}

// SectorHeader is the preamble of a sector file.
type SectorHeader struct {
	CoreVersion    uint32
	GameID         token.Token
	GameMapVersion uint32
}

// DefaultSectorHeader returns the header written into new sectors.
func DefaultSectorHeader() SectorHeader {
	return SectorHeader{CoreVersion: DefaultCoreVersion, GameID: DefaultGameID, GameMapVersion: DefaultGameMapVersion}
}

// Sector holds the items and nodes of one grid cell. Items keep file order;
// nodes keep the order they were read in.
type Sector struct {
	Coord      SectorCoord
	BaseHeader SectorHeader
	AuxHeader  SectorHeader
	Items      []MapItem
	Nodes      []*Node
}

// NewSector returns an empty sector with default headers.
func NewSector(c SectorCoord) *Sector {
	return &Sector{Coord: c, BaseHeader: DefaultSectorHeader(), AuxHeader: DefaultSectorHeader()}
}

// minItemSize is the smallest encoded item: tag and header.
const minItemSize = 4 + headerSize

// DecodeSector decodes a sector from the contents of its base and aux files.
// aux may be nil when the sector has no aux file. Every reference in the
// result is a placeholder; decoding touches no shared state and is safe to
// run concurrently for different sectors.
//
// Postcondition: any FormatError or UnsupportedItemTypeError aborts the whole
// sector and no partial result is returned.
func DecodeSector(c SectorCoord, base, aux []byte, reg *Registry) (*Sector, error) {
	s := &Sector{Coord: c}
	var err error
	if s.BaseHeader, err = decodeFile(s, base, Base, reg); err != nil {
		return nil, fmt.Errorf("scsmap: DecodeSector: %s.base: %w", c, err)
	}
	if aux == nil {
		s.AuxHeader = s.BaseHeader
		return s, nil
	}
	if s.AuxHeader, err = decodeFile(s, aux, Aux, reg); err != nil {
		return nil, fmt.Errorf("scsmap: DecodeSector: %s.aux: %w", c, err)
	}
	return s, nil
}

// fileSetter is implemented by kinds whose sub-file is not fixed.
type fileSetter interface {
	SetFile(ItemFile)
}

func decodeFile(s *Sector, data []byte, file ItemFile, reg *Registry) (SectorHeader, error) {
	r := codec.NewReader(data)
	hdr := SectorHeader{CoreVersion: r.U32(), GameID: r.Token(), GameMapVersion: r.U32()}
	count := r.Count(minItemSize)
	if err := r.Err(); err != nil {
		return hdr, err
	}
	for i := 0; i < count; i++ {
		tag := r.U32()
		if err := r.Err(); err != nil {
			return hdr, fmt.Errorf("item %d: %w", i, err)
		}
		item, err := reg.Decode(tag, r)
		if err != nil {
			return hdr, fmt.Errorf("item %d: %w", i, err)
		}
		if fs, ok := item.(fileSetter); ok {
			fs.SetFile(file)
		}
		s.Items = append(s.Items, item)
	}
	nodes := codec.ReadList(r, NodeSize, DecodeNode)
	if err := r.Err(); err != nil {
		return hdr, fmt.Errorf("nodes: %w", err)
	}
	for _, n := range nodes {
		n.addSector(s.Coord)
		s.Nodes = append(s.Nodes, n)
	}
	if r.Len() != 0 {
		return hdr, maperr.Formatf(r.Offset(), "%d trailing bytes", r.Len())
	}
	return hdr, nil
}

// EncodeSector encodes a sector into the contents of its base and aux
// files. Nodes are written to the base file only.
func EncodeSector(s *Sector, reg *Registry) (base, aux []byte, err error) {
	if base, err = encodeFile(s, s.BaseHeader, Base, reg); err != nil {
		return nil, nil, fmt.Errorf("scsmap: EncodeSector: %s.base: %w", s.Coord, err)
	}
	if aux, err = encodeFile(s, s.AuxHeader, Aux, reg); err != nil {
		return nil, nil, fmt.Errorf("scsmap: EncodeSector: %s.aux: %w", s.Coord, err)
	}
	return base, aux, nil
}

func encodeFile(s *Sector, hdr SectorHeader, file ItemFile, reg *Registry) ([]byte, error) {
	w := codec.NewWriter()
	w.U32(hdr.CoreVersion)
	w.Token(hdr.GameID)
	w.U32(hdr.GameMapVersion)

	var items []MapItem
	for _, item := range s.Items {
		if item.File() == file {
			items = append(items, item)
		}
	}
	w.U32(uint32(len(items)))
	for i, item := range items {
		w.U32(uint32(item.Kind()))
		if err := reg.Encode(w, item); err != nil {
			return nil, fmt.Errorf("item %d (%s %016x): %w", i, item.Kind(), item.UID(), err)
		}
	}

	if file == Base {
		codec.WriteList(w, s.Nodes, EncodeNode)
	} else {
		w.U32(0)
	}
	return w.Bytes(), nil
}
