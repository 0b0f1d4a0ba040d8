package scsmap

import (
	"fmt"
	"slices"
	"sync"

	"github.com/cory-johannsen/scsmap/internal/codec"
	"github.com/cory-johannsen/scsmap/internal/maperr"
)

// ItemCodec decodes and encodes one item kind, header included. Decode is
// called after the item type tag has been consumed.
type ItemCodec struct {
	Decode func(r *codec.Reader) (MapItem, error)
	Encode func(w *codec.Writer, item MapItem) error
}

// Registry maps item type tags to codecs.
type Registry struct {
	codecs map[ItemType]ItemCodec
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[ItemType]ItemCodec)}
}

// Register adds the codec for kind.
//
// Precondition: c.Decode and c.Encode must be non-nil.
// Postcondition: returns an error if kind is already registered.
func (reg *Registry) Register(kind ItemType, c ItemCodec) error {
	if _, exists := reg.codecs[kind]; exists {
		return fmt.Errorf("scsmap: Registry.Register: item type %s already registered", kind)
	}
	reg.codecs[kind] = c
	return nil
}

// Kinds returns the registered tags in ascending order.
func (reg *Registry) Kinds() []ItemType {
	out := make([]ItemType, 0, len(reg.codecs))
	for k := range reg.codecs {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Decode reads one item record whose tag has already been read.
//
// Postcondition: returns an UnsupportedItemTypeError for unknown tags and a
// FormatError for truncated records.
func (reg *Registry) Decode(tag uint32, r *codec.Reader) (MapItem, error) {
	c, ok := reg.codecs[ItemType(tag)]
	if !ok {
		return nil, &maperr.UnsupportedItemTypeError{Tag: tag, Offset: r.Offset() - 4}
	}
	return c.Decode(r)
}

// Encode writes the record of item, header included but without the tag.
func (reg *Registry) Encode(w *codec.Writer, item MapItem) error {
	c, ok := reg.codecs[item.Kind()]
	if !ok {
		return &maperr.UnsupportedItemTypeError{Tag: uint32(item.Kind()), Offset: w.Len()}
	}
	return c.Encode(w, item)
}

// validator is implemented by kinds with values the wire format cannot hold.
type validator interface {
	validate() error
}

// kindCodec builds the codec of a kind from its constructor.
func kindCodec[T payloadItem](newItem func() T) ItemCodec {
	return ItemCodec{
		Decode: func(r *codec.Reader) (MapItem, error) {
			item := newItem()
			readHeader(r, item.Header())
			item.decodePayload(r)
			if err := r.Err(); err != nil {
				return nil, err
			}
			return item, nil
		},
		Encode: func(w *codec.Writer, item MapItem) error {
			typed, ok := item.(T)
			if !ok {
				return fmt.Errorf("scsmap: encode %s: unexpected item %T", item.Kind(), item)
			}
			if v, ok := item.(validator); ok {
				if err := v.validate(); err != nil {
					return err
				}
			}
			writeHeader(w, typed.Header())
			typed.encodePayload(w)
			return nil
		},
	}
}

func registerKind[T payloadItem](reg *Registry, newItem func() T) {
	kind := newItem().Kind()
	if err := reg.Register(kind, kindCodec(newItem)); err != nil {
		panic(err)
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the registry holding every kind in this package.
// It panics if a kind is registered twice, which is a programming error.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		reg := NewRegistry()
		registerKind(reg, func() *Prefab { return &Prefab{} })
		registerKind(reg, func() *Model { return &Model{} })
		registerKind(reg, func() *Company { return &Company{} })
		registerKind(reg, func() *Service { return &Service{} })
		registerKind(reg, func() *CutPlane { return &CutPlane{} })
		registerKind(reg, func() *Mover { return &Mover{} })
		registerKind(reg, func() *City { return &City{} })
		registerKind(reg, func() *Hinge { return &Hinge{} })
		registerKind(reg, func() *Garage { return &Garage{} })
		registerKind(reg, func() *Trigger { return &Trigger{} })
		registerKind(reg, func() *FuelPump { return &FuelPump{} })
		registerKind(reg, func() *Sign { return &Sign{} })
		registerKind(reg, func() *BusStop { return &BusStop{} })
		registerKind(reg, func() *TrafficArea { return &TrafficArea{} })
		registerKind(reg, func() *MapArea { return &MapArea{} })
		defaultRegistry = reg
	})
	return defaultRegistry
}
