package catalog

import (
	"time"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// SnapshotTable records a point-in-time clone of a source table's contents
// (name, source, creation time), created by CREATE SNAPSHOT TABLE ...
// CLONE .... Unlike the dropped-table retention entries of snapshots.go, a
// snapshot table is a first-class, permanently named catalog object that
// stays registered (and queryable, like any other table) until explicitly
// dropped. Only its initial contents come from the clone: the catalog stores
// it as an ordinary table and does not reject writes to it.
type SnapshotTable struct {
	Name      string
	Source    string
	CreatedAt time.Time
}

// CreateSnapshotTable clones source's current contents into a new,
// independently-writable table named name.
func (c *Catalog) CreateSnapshotTable(name, source string, ifNotExists bool) error {
	key := canonical(name)
	c.mu.RLock()
	_, exists := c.tables[key]
	c.mu.RUnlock()
	if exists {
		if ifNotExists {
			return nil
		}
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "table %q already exists", name)
	}

	clone, err := c.ReadTable(source)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tables[key]; exists {
		if ifNotExists {
			return nil
		}
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "table %q already exists", name)
	}
	c.tables[key] = &lockedTable{table: clone}
	c.snapshotTables[key] = &SnapshotTable{Name: name, Source: source, CreatedAt: time.Now()}
	c.snapshots.Forget(key)
	c.plans.InvalidateObject(key)
	c.ForgetConstraints(key)
	return nil
}

// LookupSnapshotTable returns name's snapshot metadata, or ok=false if name
// is not registered as a snapshot table (an ordinary table, or nothing at
// all).
func (c *Catalog) LookupSnapshotTable(name string) (*SnapshotTable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.snapshotTables[canonical(name)]
	return s, ok
}
