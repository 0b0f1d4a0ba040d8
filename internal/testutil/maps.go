// Package testutil provides test helpers that build small maps and write
// them to temporary directories.
package testutil

import (
	"testing"
	"time"

	"github.com/cory-johannsen/scsmap/internal/codec"
	"github.com/cory-johannsen/scsmap/internal/mapio"
	"github.com/cory-johannsen/scsmap/internal/scsmap"
	"github.com/cory-johannsen/scsmap/internal/token"
	"github.com/cory-johannsen/scsmap/internal/uid"
)

// NewSeededMap returns an empty map whose UIDs come from a seeded source,
// so repeated runs build identical graphs.
func NewSeededMap(name string, seed uint64) *scsmap.Map {
	return scsmap.New(name, scsmap.WithUIDGenerator(uid.NewGenerator(uid.NewSeededSource(seed))))
}

// SampleMap builds a map spanning three sectors: a prefab with a fuel pump
// slave and a map area in sector (0, 0) whose second node lies in (1, 0),
// and a cut plane running from (1, 0) into (2, 0).
//
// Postcondition: every reference in the returned map is live.
func SampleMap(t *testing.T, name string) *scsmap.Map {
	t.Helper()
	m := NewSeededMap(name, 1)
	prefab, err := m.AddPrefab(token.MustParse("cross"), token.MustParse("v1"), []codec.Vec3{{X: 1}, {X: 30}})
	if err != nil {
		t.Fatalf("adding prefab: %v", err)
	}
	m.AddFuelPump(prefab, codec.Vec3{X: 2})
	if _, err := m.AddMapArea([]codec.Vec3{{X: 3}, {X: 4003}}, scsmap.MapAreaVisual, scsmap.MapAreaGreen); err != nil {
		t.Fatalf("adding map area: %v", err)
	}
	if _, err := m.AddCutPlane([]codec.Vec3{{X: 4100}, {X: 8100}}, false); err != nil {
		t.Fatalf("adding cut plane: %v", err)
	}
	m.AddModel(codec.Vec3{X: 4200}, codec.Identity, token.MustParse("tree"), 0, 0)
	return m
}

// MapDir writes SampleMap to a fresh temporary directory.
//
// Postcondition: Returns the directory and the map that was written, or
// fails the test.
func MapDir(t *testing.T) (string, *scsmap.Map) {
	t.Helper()
	start := time.Now()
	dir := t.TempDir()
	m := SampleMap(t, "sample")
	if err := mapio.Save(dir, m); err != nil {
		t.Fatalf("saving sample map: %v [%s]", err, time.Since(start))
	}
	return dir, m
}
