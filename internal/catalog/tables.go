// Package catalog holds the engine's shared, cross-session mutable state:
// tables behind reader-writer locks, views, functions, procedures, schema
// snapshots, and the plan cache (spec §3.4/§4.H). Grounded on the teacher's
// PostgresPersistentRecordRepository's read-under-lock/copy-out discipline
// (internal/postgres_persistent_repository.go), generalized from a single
// pooled DB connection to a per-table sync.RWMutex.
package catalog

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/optimizer"
)

// lockedTable pairs a Table with the reader-writer lock guarding it. A
// writer panic does not permanently deny access: sync.RWMutex isn't
// poisoned by a panicking holder (unlike the originating language's
// std::sync::RwLock), so no explicit recovery step is needed here - this
// is a deliberate simplification from spec §4.H's "poisoning" note, which
// describes a hazard specific to poison-capable mutexes.
type lockedTable struct {
	mu    sync.RWMutex
	table *yachtsql.Table
}

// Catalog is the engine's single shared instance of cross-session state.
type Catalog struct {
	mu     sync.RWMutex // guards the tables map itself, not table contents
	tables map[string]*lockedTable

	views          map[string]*View
	functions      map[string]*Function
	procedures     map[string]*Procedure
	snapshots      *SnapshotRegistry        // dropped-table retention, for UndropTable
	schemas        map[string]*Namespace    // live namespaces, for CREATE/DROP SCHEMA
	droppedSchemas map[string]*droppedSchema // dropped-namespace retention, for UndropSchema
	snapshotTables map[string]*SnapshotTable // CREATE SNAPSHOT TABLE ... CLONE ... entries
	plans          *PlanCache
	constraints    *constraintStore

	schemaRetention time.Duration // cfg.Catalog.SnapshotRetention

	log *zap.Logger
}

// New builds an empty Catalog. planCacheCapacity <= 0 disables the cache.
// snapshotRetention bounds how long a dropped table or schema can still be
// restored via UndropTable/UndropSchema (cfg.Catalog.SnapshotRetention);
// <= 0 means dropped objects never expire.
func New(log *zap.Logger, planCacheCapacity int, snapshotRetention time.Duration) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{
		tables:         make(map[string]*lockedTable),
		views:          make(map[string]*View),
		functions:      make(map[string]*Function),
		procedures:     make(map[string]*Procedure),
		snapshots:      NewSnapshotRegistry(snapshotRetention),
		schemas:        make(map[string]*Namespace),
		droppedSchemas: make(map[string]*droppedSchema),
		snapshotTables: make(map[string]*SnapshotTable),
		plans:          NewPlanCache(planCacheCapacity),
		constraints:    newConstraintStore(),
		schemaRetention: snapshotRetention,
		log:            log,
	}
}

// CreateTable registers a new empty (or pre-populated) table under name. It
// is an error for name to already exist.
func (c *Catalog) CreateTable(name string, table *yachtsql.Table) error {
	key := canonical(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tables[key]; exists {
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "table %q already exists", name)
	}
	c.tables[key] = &lockedTable{table: table}
	c.snapshots.Forget(key)
	c.plans.InvalidateObject(key)
	c.ForgetConstraints(key)
	return nil
}

// DropTable removes a table, retaining its contents for a subsequent
// UndropTable call within the catalog's retention window. This is a
// separate mechanism from the schema/namespace-level snapshot registry
// spec §3.4 describes for UNDROP SCHEMA (see schemas.go); it is an error if
// name does not exist.
func (c *Catalog) DropTable(name string) error {
	key := canonical(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	lt, exists := c.tables[key]
	if !exists {
		return yachtsql.TableError(yachtsql.ErrTableNotFound, name, "table not found")
	}
	lt.mu.RLock()
	c.snapshots.Retain(key, lt.table.Clone())
	lt.mu.RUnlock()
	delete(c.tables, key)
	delete(c.snapshotTables, key)
	c.plans.InvalidateObject(key)
	c.ForgetConstraints(key)
	return nil
}

// RenameTable moves a table's registration from oldName to newName,
// carrying its lock, constraints, and snapshot-table metadata along (ALTER
// TABLE ... RENAME TO ...). It is an error if oldName doesn't exist or
// newName is already taken.
func (c *Catalog) RenameTable(oldName, newName string) error {
	oldKey, newKey := canonical(oldName), canonical(newName)
	c.mu.Lock()
	defer c.mu.Unlock()
	lt, exists := c.tables[oldKey]
	if !exists {
		return yachtsql.TableError(yachtsql.ErrTableNotFound, oldName, "table not found")
	}
	if _, exists := c.tables[newKey]; exists {
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "table %q already exists", newName)
	}
	delete(c.tables, oldKey)
	c.tables[newKey] = lt
	if snap, ok := c.snapshotTables[oldKey]; ok {
		delete(c.snapshotTables, oldKey)
		snap.Name = newName
		c.snapshotTables[newKey] = snap
	}
	c.constraints.mu.Lock()
	if tc, ok := c.constraints.m[oldKey]; ok {
		delete(c.constraints.m, oldKey)
		c.constraints.m[newKey] = tc
	}
	c.constraints.mu.Unlock()
	c.plans.InvalidateObject(oldKey)
	c.plans.InvalidateObject(newKey)
	return nil
}

// lockedTableFor resolves name to its lockedTable, under the catalog's map
// lock held only long enough to look it up (spec §4.H: "a read lock held
// only for the copy").
func (c *Catalog) lockedTableFor(name string) (*lockedTable, error) {
	key := canonical(name)
	c.mu.RLock()
	lt, ok := c.tables[key]
	c.mu.RUnlock()
	if !ok {
		return nil, yachtsql.TableError(yachtsql.ErrTableNotFound, name, "table not found")
	}
	return lt, nil
}

// ReadTable returns a snapshot (clone) of table name, taking its read lock
// only for the duration of the copy (spec §4.H get_table).
func (c *Catalog) ReadTable(name string) (*yachtsql.Table, error) {
	lt, err := c.lockedTableFor(name)
	if err != nil {
		return nil, err
	}
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.table.Clone(), nil
}

// WriteTable takes table name's write lock and replaces its contents with
// mutate's result. Used by non-transactional DML, which holds the lock only
// for the duration of the statement.
func (c *Catalog) WriteTable(name string, mutate func(*yachtsql.Table) (*yachtsql.Table, error)) error {
	lt, err := c.lockedTableFor(name)
	if err != nil {
		return err
	}
	lt.mu.Lock()
	defer lt.mu.Unlock()
	next, err := mutate(lt.table)
	if err != nil {
		return err
	}
	lt.table = next
	return nil
}

// Truncate empties name's contents in place, keeping its schema and
// constraints registered, and invalidates cached plans referencing it (spec
// §4.H: Truncate is one of the DDL kinds a plan-cache invalidation fires
// on).
func (c *Catalog) Truncate(name string) error {
	lt, err := c.lockedTableFor(name)
	if err != nil {
		return err
	}
	lt.mu.Lock()
	lt.table = yachtsql.NewTable(lt.table.Schema)
	lt.mu.Unlock()
	c.plans.InvalidateObject(canonical(name))
	return nil
}

// TableStats implements optimizer.Catalog.
func (c *Catalog) TableStats(name string) (optimizer.TableStats, bool) {
	lt, err := c.lockedTableFor(name)
	if err != nil {
		return optimizer.TableStats{}, false
	}
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return optimizer.TableStats{RowCount: uint64(lt.table.NumRows())}, true
}

// TableNames returns every registered table's canonical name, sorted.
func (c *Catalog) TableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.tables))
	for k := range c.tables {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SortedForLocking returns names sorted into the canonical acquisition
// order used for multi-table statements (Merge, Update-with-From), so
// concurrent statements touching overlapping table sets always acquire
// locks in the same order and cannot deadlock (spec §4.H "Ordering").
func SortedForLocking(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}

func canonical(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if 'A' <= ch && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		out[i] = ch
	}
	return string(out)
}
