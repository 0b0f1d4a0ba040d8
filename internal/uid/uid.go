// Package uid generates 64-bit identifiers for newly constructed nodes and
// items.
//
// Generation is isolated behind Source so tests can inject a deterministic
// stream. The process-wide Default generator draws from a random source and
// is never reset.
package uid

import (
	"encoding/binary"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// Source is the randomness provider for UIDs.
//
// Implementations need not be safe for concurrent use; Generator serializes
// access.
type Source interface {
	// Uint64 returns the next 64 random bits.
	Uint64() uint64
}

// uuidSource implements Source using version 4 UUIDs.
type uuidSource struct{}

// NewRandomSource returns a Source backed by random version 4 UUIDs.
//
// Postcondition: each value carries the low 64 bits of a fresh UUID.
func NewRandomSource() Source {
	return uuidSource{}
}

// Uint64 returns 64 bits taken from a new random UUID.
func (uuidSource) Uint64() uint64 {
	id := uuid.New()
	return binary.LittleEndian.Uint64(id[8:])
}

// NewSeededSource returns a deterministic Source for tests.
func NewSeededSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Generator hands out non-zero UIDs from a Source.
type Generator struct {
	mu  sync.Mutex
	src Source
}

// NewGenerator returns a Generator drawing from src.
//
// Precondition: src must be non-nil.
func NewGenerator(src Source) *Generator {
	return &Generator{src: src}
}

// Next returns a new UID. Zero is reserved for "no reference" and is never
// returned. Uniqueness against UIDs already present in a loaded map is not
// checked.
func (g *Generator) Next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		if v := g.src.Uint64(); v != 0 {
			return v
		}
	}
}

var defaultGenerator = NewGenerator(NewRandomSource())

// Default returns the process-wide generator.
func Default() *Generator {
	return defaultGenerator
}
