package scsmap

import "github.com/cory-johannsen/scsmap/internal/codec"

// BoundingVolume holds the k-DOP culling bounds of an item: five minimums
// followed by five maximums. The values are opaque here and only round-trip.
type BoundingVolume struct {
	Min [5]float32
	Max [5]float32
}

// PlaceholderBounds returns the values given to newly constructed items.
// Empty or invalid bounds make the game's renderer overflow, and computing
// real bounds needs model geometry, so new items carry these until the map
// is recomputed in the editor.
func PlaceholderBounds() BoundingVolume {
	return BoundingVolume{
		Min: [5]float32{1, 1, 1, 0, 0},
		Max: [5]float32{2, 2, 2, 0, 0},
	}
}

func readBounds(r *codec.Reader) BoundingVolume {
	var b BoundingVolume
	for i := range b.Min {
		b.Min[i] = r.F32()
	}
	for i := range b.Max {
		b.Max[i] = r.F32()
	}
	return b
}

func writeBounds(w *codec.Writer, b BoundingVolume) {
	for _, v := range b.Min {
		w.F32(v)
	}
	for _, v := range b.Max {
		w.F32(v)
	}
}
