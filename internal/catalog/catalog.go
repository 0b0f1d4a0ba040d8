// Package catalog indexes resolved maps into a SQLite database so items can
// be looked up by UID, kind or sector without decoding the sector files.
package catalog

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/scsmap/internal/maperr"
	"github.com/cory-johannsen/scsmap/internal/scsmap"
)

// ItemRow is one indexed item.
type ItemRow struct {
	UID    uint64
	Kind   string
	Sector string
	File   string
}

// MapRow summarizes one indexed map.
type MapRow struct {
	Name       string
	Sectors    int
	Nodes      int
	Items      int
	Unresolved int
	IndexedAt  time.Time
}

// Catalog is a SQLite-backed item index. It is safe for concurrent use.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog database at path.
//
// Precondition: path must be non-empty.
// Postcondition: the schema exists and the returned Catalog must be closed.
func Open(path string) (*Catalog, error) {
	if path == "" {
		return nil, fmt.Errorf("catalog: Open: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("catalog: Open: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: Open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: Open: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: Open: %w", err)
	}
	return &Catalog{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS maps (
			name TEXT PRIMARY KEY,
			sectors INTEGER NOT NULL,
			nodes INTEGER NOT NULL,
			items INTEGER NOT NULL,
			indexed_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS items (
			map TEXT NOT NULL REFERENCES maps(name) ON DELETE CASCADE,
			uid INTEGER NOT NULL,
			kind TEXT NOT NULL,
			sector TEXT NOT NULL,
			file TEXT NOT NULL,
			PRIMARY KEY (map, uid)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_items_kind ON items(map, kind);`,
		`CREATE INDEX IF NOT EXISTS idx_items_sector ON items(map, sector);`,
		`CREATE TABLE IF NOT EXISTS unresolved (
			map TEXT NOT NULL REFERENCES maps(name) ON DELETE CASCADE,
			owner INTEGER NOT NULL,
			owner_kind TEXT NOT NULL,
			field TEXT NOT NULL,
			target INTEGER NOT NULL,
			PRIMARY KEY (map, owner, field)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Write replaces the catalog entries of m.Name with the items of m and the
// unresolved references of rep. Duplicate item copies are skipped; only the
// indexed copy is recorded.
//
// Precondition: m must have been resolved and rep must be its report.
func (c *Catalog) Write(ctx context.Context, m *scsmap.Map, rep scsmap.Report) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: Write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM maps WHERE name = ?`, m.Name); err != nil {
		return fmt.Errorf("catalog: Write: clearing %q: %w", m.Name, err)
	}
	sectors := m.Sectors()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO maps(name, sectors, nodes, items, indexed_at) VALUES(?, ?, ?, ?, ?)`,
		m.Name, len(sectors), m.NodeCount(), m.ItemCount(), time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("catalog: Write: %w", err)
	}

	itemStmt, err := tx.PrepareContext(ctx, `INSERT INTO items(map, uid, kind, sector, file) VALUES(?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("catalog: Write: %w", err)
	}
	defer itemStmt.Close()
	for _, s := range sectors {
		for _, item := range s.Items {
			if indexed, ok := m.Item(item.UID()); !ok || indexed != item {
				continue
			}
			if _, err := itemStmt.ExecContext(ctx,
				m.Name, int64(item.UID()), item.Kind().String(), s.Coord.String(), item.File().String(),
			); err != nil {
				return fmt.Errorf("catalog: Write: item %016x: %w", item.UID(), err)
			}
		}
	}

	refStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO unresolved(map, owner, owner_kind, field, target) VALUES(?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("catalog: Write: %w", err)
	}
	defer refStmt.Close()
	for _, u := range rep.Unresolved {
		if _, err := refStmt.ExecContext(ctx,
			m.Name, int64(u.Owner), u.OwnerKind, u.Field, int64(u.Target),
		); err != nil {
			return fmt.Errorf("catalog: Write: unresolved %016x.%s: %w", u.Owner, u.Field, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: Write: %w", err)
	}
	return nil
}

// Map returns the summary of the named map.
func (c *Catalog) Map(ctx context.Context, name string) (MapRow, bool, error) {
	var (
		row       MapRow
		indexedAt string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT m.name, m.sectors, m.nodes, m.items, m.indexed_at,
			(SELECT COUNT(*) FROM unresolved u WHERE u.map = m.name)
		FROM maps m WHERE m.name = ?`, name,
	).Scan(&row.Name, &row.Sectors, &row.Nodes, &row.Items, &indexedAt, &row.Unresolved)
	if errors.Is(err, sql.ErrNoRows) {
		return MapRow{}, false, nil
	}
	if err != nil {
		return MapRow{}, false, fmt.Errorf("catalog: Map: %w", err)
	}
	if row.IndexedAt, err = time.Parse(time.RFC3339Nano, indexedAt); err != nil {
		return MapRow{}, false, fmt.Errorf("catalog: Map: indexed_at: %w", err)
	}
	return row, true, nil
}

// Lookup returns the indexed item with the given UID.
func (c *Catalog) Lookup(ctx context.Context, mapName string, id uint64) (ItemRow, bool, error) {
	var (
		row ItemRow
		raw int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT uid, kind, sector, file FROM items WHERE map = ? AND uid = ?`, mapName, int64(id),
	).Scan(&raw, &row.Kind, &row.Sector, &row.File)
	if errors.Is(err, sql.ErrNoRows) {
		return ItemRow{}, false, nil
	}
	if err != nil {
		return ItemRow{}, false, fmt.Errorf("catalog: Lookup: %w", err)
	}
	row.UID = uint64(raw)
	return row, true, nil
}

// ItemsInSector returns the items stored in the named sector, ordered by UID.
func (c *Catalog) ItemsInSector(ctx context.Context, mapName string, sector scsmap.SectorCoord) ([]ItemRow, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT uid, kind, sector, file FROM items WHERE map = ? AND sector = ?`, mapName, sector.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: ItemsInSector: %w", err)
	}
	defer rows.Close()

	var out []ItemRow
	for rows.Next() {
		var (
			row ItemRow
			raw int64
		)
		if err := rows.Scan(&raw, &row.Kind, &row.Sector, &row.File); err != nil {
			return nil, fmt.Errorf("catalog: ItemsInSector: %w", err)
		}
		row.UID = uint64(raw)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: ItemsInSector: %w", err)
	}
	sortByUID(out)
	return out, nil
}

// CountByKind returns the number of indexed items per kind name.
func (c *Catalog) CountByKind(ctx context.Context, mapName string) (map[string]int, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM items WHERE map = ? GROUP BY kind`, mapName,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: CountByKind: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("catalog: CountByKind: %w", err)
		}
		out[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: CountByKind: %w", err)
	}
	return out, nil
}

// Unresolved returns the recorded unresolved references of the named map,
// ordered by owner then field.
func (c *Catalog) Unresolved(ctx context.Context, mapName string) ([]maperr.UnresolvedReferenceError, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT owner, owner_kind, field, target FROM unresolved WHERE map = ?`, mapName,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: Unresolved: %w", err)
	}
	defer rows.Close()

	var out []maperr.UnresolvedReferenceError
	for rows.Next() {
		var (
			u             maperr.UnresolvedReferenceError
			owner, target int64
		)
		if err := rows.Scan(&owner, &u.OwnerKind, &u.Field, &target); err != nil {
			return nil, fmt.Errorf("catalog: Unresolved: %w", err)
		}
		u.Owner, u.Target = uint64(owner), uint64(target)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: Unresolved: %w", err)
	}
	sortUnresolved(out)
	return out, nil
}

// UIDs are stored as signed SQLite integers, so ordering happens here.
func sortByUID(rows []ItemRow) {
	slices.SortFunc(rows, func(a, b ItemRow) int { return cmp.Compare(a.UID, b.UID) })
}

func sortUnresolved(refs []maperr.UnresolvedReferenceError) {
	slices.SortFunc(refs, func(a, b maperr.UnresolvedReferenceError) int {
		if c := cmp.Compare(a.Owner, b.Owner); c != 0 {
			return c
		}
		return cmp.Compare(a.Field, b.Field)
	})
}
