// Package mapio moves maps between sector files on disk and the in-memory
// scsmap.Map.
package mapio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/scsmap/internal/config"
	"github.com/cory-johannsen/scsmap/internal/scsmap"
)

// Sector file extensions.
const (
	BaseExt = ".base"
	AuxExt  = ".aux"
)

// BaseFileName returns the base file name of the sector at c.
func BaseFileName(c scsmap.SectorCoord) string { return c.String() + BaseExt }

// AuxFileName returns the aux file name of the sector at c.
func AuxFileName(c scsmap.SectorCoord) string { return c.String() + AuxExt }

// SectorFiles names the files of one sector in a map directory.
type SectorFiles struct {
	Coord scsmap.SectorCoord
	// Base is the path of the base file.
	Base string
	// Aux is the path of the aux file, or empty when the sector has none.
	Aux string
}

// ListSectors returns the sector files in dir ordered by coordinate. Files
// whose names are not sector names are ignored.
//
// Postcondition: returns an error if an aux file has no matching base file.
func ListSectors(dir string) ([]SectorFiles, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading map directory %s: %w", dir, err)
	}

	found := make(map[scsmap.SectorCoord]*SectorFiles)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != BaseExt && ext != AuxExt {
			continue
		}
		c, err := scsmap.ParseSectorCoord(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		sf, ok := found[c]
		if !ok {
			sf = &SectorFiles{Coord: c}
			found[c] = sf
		}
		if ext == BaseExt {
			sf.Base = filepath.Join(dir, name)
		} else {
			sf.Aux = filepath.Join(dir, name)
		}
	}

	out := make([]SectorFiles, 0, len(found))
	for _, sf := range found {
		if sf.Base == "" {
			return nil, fmt.Errorf("sector %s has an aux file but no base file", sf.Coord)
		}
		out = append(out, *sf)
	}
	slices.SortFunc(out, func(a, b SectorFiles) int { return a.Coord.Compare(b.Coord) })
	return out, nil
}

// Loader reads map directories.
type Loader struct {
	workers int
	strict  bool
	logger  *zap.Logger
	mapOpts []scsmap.Option
}

// NewLoader returns a Loader configured from cfg. opts are applied to every
// Map the loader creates.
//
// Precondition: cfg must have passed config validation.
// Postcondition: a nil logger is replaced with zap.NewNop().
func NewLoader(cfg config.MapConfig, logger *zap.Logger, opts ...scsmap.Option) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Loader{
		workers: workers,
		strict:  cfg.StrictReferences,
		logger:  logger,
		mapOpts: opts,
	}
}

// Load reads every sector in dir and resolves references across them.
//
// Sectors decode concurrently, at most cfg.Workers at a time. Resolution
// starts only after every sector has decoded. The first read or decode
// failure cancels the remaining work and aborts the load.
//
// Postcondition: on success the map is resolved and the report describes
// the pass. With strict references, a non-empty Report.Unresolved is an
// error and the map is still returned for inspection.
func (l *Loader) Load(ctx context.Context, dir string) (*scsmap.Map, scsmap.Report, error) {
	start := time.Now()
	files, err := ListSectors(dir)
	if err != nil {
		return nil, scsmap.Report{}, fmt.Errorf("mapio: Load: %w", err)
	}

	m := scsmap.New(filepath.Base(dir), l.mapOpts...)
	reg := m.Registry()

	sectors := make([]*scsmap.Sector, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, sf := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := l.decode(sf, reg)
			if err != nil {
				return err
			}
			sectors[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, scsmap.Report{}, fmt.Errorf("mapio: Load: %w", err)
	}

	for _, s := range sectors {
		if err := m.AddSector(s); err != nil {
			return nil, scsmap.Report{}, fmt.Errorf("mapio: Load: %w", err)
		}
	}

	rep := m.Resolve()
	for _, id := range rep.DuplicateItems {
		l.logger.Warn("duplicate item", zap.String("uid", fmt.Sprintf("%016x", id)))
	}
	for i := range rep.Unresolved {
		u := &rep.Unresolved[i]
		l.logger.Warn("unresolved reference",
			zap.String("owner", fmt.Sprintf("%016x", u.Owner)),
			zap.String("owner_kind", u.OwnerKind),
			zap.String("field", u.Field),
			zap.String("target", fmt.Sprintf("%016x", u.Target)),
		)
	}
	l.logger.Info("map loaded",
		zap.String("map", m.Name),
		zap.Int("sectors", len(sectors)),
		zap.Int("nodes", m.NodeCount()),
		zap.Int("items", m.ItemCount()),
		zap.Int("resolved", rep.Resolved),
		zap.Int("merged", rep.Merged),
		zap.Int("unresolved", len(rep.Unresolved)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if l.strict {
		if err := rep.Err(); err != nil {
			return m, rep, fmt.Errorf("mapio: Load: strict references: %w", err)
		}
	}
	return m, rep, nil
}

func (l *Loader) decode(sf SectorFiles, reg *scsmap.Registry) (*scsmap.Sector, error) {
	base, err := os.ReadFile(sf.Base)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", sf.Base, err)
	}
	var aux []byte
	if sf.Aux != "" {
		if aux, err = os.ReadFile(sf.Aux); err != nil {
			return nil, fmt.Errorf("reading %s: %w", sf.Aux, err)
		}
	}
	s, err := scsmap.DecodeSector(sf.Coord, base, aux, reg)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("sector decoded",
		zap.String("sector", sf.Coord.String()),
		zap.Int("items", len(s.Items)),
		zap.Int("nodes", len(s.Nodes)),
	)
	return s, nil
}

// Save writes every sector of m to dir as a base and aux file pair.
// Existing sector files for the same coordinates are replaced.
//
// Postcondition: on error, files written before the failing sector remain.
func Save(dir string, m *scsmap.Map) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mapio: Save: creating %s: %w", dir, err)
	}
	for _, s := range m.Sectors() {
		base, aux, err := scsmap.EncodeSector(s, m.Registry())
		if err != nil {
			return fmt.Errorf("mapio: Save: %w", err)
		}
		if err := writeFile(filepath.Join(dir, BaseFileName(s.Coord)), base); err != nil {
			return fmt.Errorf("mapio: Save: %w", err)
		}
		if err := writeFile(filepath.Join(dir, AuxFileName(s.Coord)), aux); err != nil {
			return fmt.Errorf("mapio: Save: %w", err)
		}
	}
	return nil
}

// writeFile writes data next to path and renames it into place.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}

// IsNotExist reports whether err was caused by a missing map directory.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
