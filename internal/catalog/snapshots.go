package catalog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// droppedTable retains a dropped table's last committed contents long
// enough for a subsequent UndropTable call to restore it. Keyed by the
// table's canonical name at drop time; a later CREATE TABLE of the same
// name evicts any pending snapshot for that name, since its slot is back in
// active use. This is UndropTable's retention mechanism, not the
// schema/namespace-level one spec §3.4 describes for UNDROP SCHEMA (see
// schemas.go's droppedSchema).
type droppedTable struct {
	ID        uuid.UUID
	Name      string
	Table     *yachtsql.Table
	DroppedAt time.Time
}

// SnapshotRegistry retains recently dropped tables for UndropTable, bounded
// both by a fixed retention count per name (so repeated create/drop cycles
// don't grow memory without bound) and by retentionWindow
// (cfg.Catalog.SnapshotRetention): an entry older than the window is no
// longer restorable even if it is still the most recent drop on record.
type SnapshotRegistry struct {
	mu              sync.Mutex
	dropped         map[string][]*droppedTable
	retention       int
	retentionWindow time.Duration
}

// NewSnapshotRegistry builds a registry retaining up to 1 dropped snapshot
// per table name (BigQuery's UNDROP TABLE only ever restores the most
// recent drop within its retention window), expiring after
// retentionWindow (<= 0 means entries never expire).
func NewSnapshotRegistry(retentionWindow time.Duration) *SnapshotRegistry {
	return &SnapshotRegistry{
		dropped:         make(map[string][]*droppedTable),
		retention:       1,
		retentionWindow: retentionWindow,
	}
}

// Retain records table as just-dropped under name, evicting any previously
// retained snapshot for the same name beyond the retention count.
func (r *SnapshotRegistry) Retain(name string, table *yachtsql.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := canonical(name)
	entry := &droppedTable{ID: uuid.New(), Name: name, Table: table, DroppedAt: time.Now()}
	r.dropped[key] = append([]*droppedTable{entry}, r.dropped[key]...)
	if len(r.dropped[key]) > r.retention {
		r.dropped[key] = r.dropped[key][:r.retention]
	}
}

// Restore pops and returns the most recently dropped table retained under
// name, or ok=false if nothing is retained or the retained entry has aged
// past retentionWindow.
func (r *SnapshotRegistry) Restore(name string) (*yachtsql.Table, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := canonical(name)
	entries := r.dropped[key]
	if len(entries) == 0 {
		return nil, false
	}
	head := entries[0]
	r.dropped[key] = entries[1:]
	if len(r.dropped[key]) == 0 {
		delete(r.dropped, key)
	}
	if r.retentionWindow > 0 && time.Since(head.DroppedAt) > r.retentionWindow {
		return nil, false
	}
	return head.Table, true
}

// Forget discards any retained snapshot for name, called when a new table
// is created in that name's slot so a stale UNDROP can no longer resurrect
// an unrelated table under the same identifier.
func (r *SnapshotRegistry) Forget(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dropped, canonical(name))
}

// UndropTable restores the most recently dropped table named name back into
// the catalog's live table set, provided it is still within the registry's
// retention window.
func (c *Catalog) UndropTable(name string) error {
	table, ok := c.snapshots.Restore(name)
	if !ok {
		return yachtsql.TableError(yachtsql.ErrTableNotFound, name, "no dropped table to restore")
	}
	key := canonical(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tables[key]; exists {
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "table %q already exists", name)
	}
	c.tables[key] = &lockedTable{table: table}
	c.plans.InvalidateObject(key)
	return nil
}
