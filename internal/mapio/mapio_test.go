package mapio_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/scsmap/internal/codec"
	"github.com/cory-johannsen/scsmap/internal/config"
	"github.com/cory-johannsen/scsmap/internal/mapio"
	"github.com/cory-johannsen/scsmap/internal/maperr"
	"github.com/cory-johannsen/scsmap/internal/scsmap"
	"github.com/cory-johannsen/scsmap/internal/token"
	"github.com/cory-johannsen/scsmap/internal/uid"
)

func seeded() scsmap.Option {
	return scsmap.WithUIDGenerator(uid.NewGenerator(uid.NewSeededSource(7)))
}

// sampleMap spans two sectors: the map area's second node lies in sector
// (1, 0) while the item itself is stored in sector (0, 0).
func sampleMap(t *testing.T) (*scsmap.Map, *scsmap.MapArea) {
	t.Helper()
	m := scsmap.New("europe", seeded())
	area, err := m.AddMapArea([]codec.Vec3{{X: 1}, {X: 4001}}, scsmap.MapAreaVisual, scsmap.MapAreaGreen)
	require.NoError(t, err)
	m.AddModel(codec.Vec3{X: 10, Z: -10}, codec.Identity, token.MustParse("tree"), 0, 0)
	m.AddSign(codec.Vec3{X: 20}, token.MustParse("sign"), "", scsmap.Base)
	return m, area
}

func loader(workers int, strict bool, logger *zap.Logger) *mapio.Loader {
	return mapio.NewLoader(config.MapConfig{Workers: workers, StrictReferences: strict}, logger, seeded())
}

func TestFileNames(t *testing.T) {
	c := scsmap.SectorCoord{X: 1, Z: -3}
	assert.Equal(t, "sec+0001-0003.base", mapio.BaseFileName(c))
	assert.Equal(t, "sec+0001-0003.aux", mapio.AuxFileName(c))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "europe")
	m, area := sampleMap(t)
	require.NoError(t, mapio.Save(dir, m))

	for _, s := range m.Sectors() {
		assert.FileExists(t, filepath.Join(dir, mapio.BaseFileName(s.Coord)))
		assert.FileExists(t, filepath.Join(dir, mapio.AuxFileName(s.Coord)))
	}

	got, rep, err := loader(2, true, nil).Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "europe", got.Name)
	assert.Empty(t, rep.Unresolved)
	assert.Equal(t, m.NodeCount(), got.NodeCount())
	assert.Equal(t, m.ItemCount(), got.ItemCount())
	assert.Len(t, got.Sectors(), len(m.Sectors()))

	item, ok := got.Item(area.UID())
	require.True(t, ok)
	loaded := item.(*scsmap.MapArea)
	far, ok := loaded.Nodes[1].Get()
	require.True(t, ok)
	assert.Equal(t, []scsmap.SectorCoord{{X: 1, Z: 0}}, far.Sectors())
	fwd, ok := far.ForwardItem.Get()
	require.True(t, ok)
	assert.Same(t, loaded, fwd)
}

func TestLoad_LogsSummary(t *testing.T) {
	dir := t.TempDir()
	m, _ := sampleMap(t)
	require.NoError(t, mapio.Save(dir, m))

	core, logs := observer.New(zapcore.DebugLevel)
	_, _, err := loader(1, false, zap.New(core)).Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, len(m.Sectors()), logs.FilterMessage("sector decoded").Len())
	summary := logs.FilterMessage("map loaded").All()
	require.Len(t, summary, 1)
	assert.Equal(t, zapcore.InfoLevel, summary[0].Level)
	assert.Equal(t, int64(m.ItemCount()), summary[0].ContextMap()["items"])
}

func TestLoad_UnresolvedReferences(t *testing.T) {
	dir := t.TempDir()
	m, area := sampleMap(t)
	far, ok := area.Nodes[1].Get()
	require.True(t, ok)
	require.NoError(t, m.RemoveNode(far.UID()))
	require.NoError(t, mapio.Save(dir, m))

	core, logs := observer.New(zapcore.WarnLevel)
	got, rep, err := loader(4, false, zap.New(core)).Load(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, rep.Unresolved, 1)
	assert.Equal(t, "nodes[1]", rep.Unresolved[0].Field)
	assert.Equal(t, 1, logs.FilterMessage("unresolved reference").Len())

	got, rep, err = loader(4, true, nil).Load(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, maperr.ErrUnresolvedReference))
	assert.NotNil(t, got)
	assert.Len(t, rep.Unresolved, 1)
}

func TestLoad_CorruptSectorAborts(t *testing.T) {
	dir := t.TempDir()
	m, _ := sampleMap(t)
	require.NoError(t, mapio.Save(dir, m))

	path := filepath.Join(dir, mapio.BaseFileName(scsmap.SectorCoord{}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-3], 0644))

	got, _, err := loader(2, false, nil).Load(context.Background(), dir)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, maperr.ErrFormat))
	assert.Contains(t, err.Error(), "sec+0000+0000.base")
}

func TestLoad_MissingAuxFile(t *testing.T) {
	dir := t.TempDir()
	m, _ := sampleMap(t)
	require.NoError(t, mapio.Save(dir, m))
	require.NoError(t, os.Remove(filepath.Join(dir, mapio.AuxFileName(scsmap.SectorCoord{X: 1}))))

	got, _, err := loader(2, false, nil).Load(context.Background(), dir)
	require.NoError(t, err)
	s, ok := got.Sector(scsmap.SectorCoord{X: 1})
	require.True(t, ok)
	assert.Equal(t, s.BaseHeader, s.AuxHeader)
}

func TestListSectors(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"sec+0001+0000.base", "sec+0001+0000.aux", "sec-0001+0000.base", "notes.txt", "secXX.base"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sec+0005+0005.base"), 0755))

	files, err := mapio.ListSectors(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, scsmap.SectorCoord{X: -1}, files[0].Coord)
	assert.Empty(t, files[0].Aux)
	assert.Equal(t, scsmap.SectorCoord{X: 1}, files[1].Coord)
	assert.Equal(t, filepath.Join(dir, "sec+0001+0000.aux"), files[1].Aux)
}

func TestListSectors_AuxWithoutBase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sec+0001+0000.aux"), nil, 0644))
	_, err := mapio.ListSectors(dir)
	assert.Error(t, err)
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, _, err := loader(1, false, nil).Load(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.True(t, mapio.IsNotExist(err))
}

func TestLoad_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	m, _ := sampleMap(t)
	require.NoError(t, mapio.Save(dir, m))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := loader(1, false, nil).Load(ctx, dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewLoader_ClampsWorkers(t *testing.T) {
	dir := t.TempDir()
	m, _ := sampleMap(t)
	require.NoError(t, mapio.Save(dir, m))
	_, _, err := loader(0, false, nil).Load(context.Background(), dir)
	assert.NoError(t, err)
}
